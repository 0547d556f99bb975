package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies capture failures.
type ErrorKind int

const (
	Unknown ErrorKind = iota
	PermissionDenied
	DeviceNotFound
	DeviceBusy
	ConstraintsNotSatisfiable
	PlatformUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case PermissionDenied:
		return "PermissionDenied"
	case DeviceNotFound:
		return "DeviceNotFound"
	case DeviceBusy:
		return "DeviceBusy"
	case ConstraintsNotSatisfiable:
		return "ConstraintsNotSatisfiable"
	case PlatformUnsupported:
		return "PlatformUnsupported"
	default:
		return "Unknown"
	}
}

// Sentinel errors, one per kind. Platform implementations wrap these so that
// classification does not depend on message text.
var (
	ErrPermissionDenied          = errors.New("permission denied")
	ErrDeviceNotFound            = errors.New("device not found")
	ErrDeviceBusy                = errors.New("device busy")
	ErrConstraintsNotSatisfiable = errors.New("constraints not satisfiable")
	ErrPlatformUnsupported       = errors.New("platform unsupported")
)

// Lifecycle errors returned by the managers.
var (
	// ErrInFlight is returned by Enable while a previous Enable is still acquiring.
	ErrInFlight = errors.New("acquisition already in flight")
	// ErrSuperseded is returned by an Enable whose result arrived after Disable.
	ErrSuperseded = errors.New("acquisition superseded by disable")
)

var sentinels = map[ErrorKind]error{
	PermissionDenied:          ErrPermissionDenied,
	DeviceNotFound:            ErrDeviceNotFound,
	DeviceBusy:                ErrDeviceBusy,
	ConstraintsNotSatisfiable: ErrConstraintsNotSatisfiable,
	PlatformUnsupported:       ErrPlatformUnsupported,
}

// CaptureError is a classified failure of a capture operation.
type CaptureError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Is matches the sentinel error of the same kind.
func (e *CaptureError) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// Message returns the human-readable text shown to the candidate.
func (e *CaptureError) Message() string {
	return Message(e.Kind)
}

// NewError classifies err and wraps it for op. An err that is already a
// CaptureError keeps its kind.
func NewError(op string, err error) *CaptureError {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return &CaptureError{Kind: ce.Kind, Op: op, Err: ce.Err}
	}
	return &CaptureError{Kind: Classify(err), Op: op, Err: err}
}

// Classify maps an arbitrary platform error onto the taxonomy. Typed and
// sentinel errors win; otherwise the message is matched against keywords.
func Classify(err error) ErrorKind {
	if err == nil {
		return Unknown
	}

	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	for kind, s := range sentinels {
		if errors.Is(err, s) {
			return kind
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Unknown
	}

	msg := strings.ToLower(err.Error())

	// Most specific first.
	switch {
	case containsAny(msg, permissionKeywords):
		return PermissionDenied
	case containsAny(msg, busyKeywords):
		return DeviceBusy
	case containsAny(msg, constraintKeywords):
		return ConstraintsNotSatisfiable
	case containsAny(msg, notFoundKeywords):
		return DeviceNotFound
	case containsAny(msg, unsupportedKeywords):
		return PlatformUnsupported
	}
	return Unknown
}

var (
	permissionKeywords = []string{
		"permission",
		"not allowed",
		"notallowed",
		"denied",
		"unauthorized",
		"not authorized",
		"operation not permitted",
	}
	busyKeywords = []string{
		"busy",
		"in use",
		"notreadable",
		"not readable",
		"could not start",
		"exclusive",
	}
	constraintKeywords = []string{
		"overconstrained",
		"constraint",
		"best driver that fits",
		"invalid sample rate",
		"invalid number of channels",
		"sample format not supported",
		"resolution",
	}
	notFoundKeywords = []string{
		"not found",
		"notfound",
		"no such device",
		"no device",
		"no default input",
		"invalid device",
	}
	unsupportedKeywords = []string{
		"not supported",
		"unsupported",
		"not implemented",
		"no driver",
	}
)

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// Message returns the text shown to the candidate for a failure kind.
func Message(kind ErrorKind) string {
	switch kind {
	case PermissionDenied:
		return "Access was denied. Allow camera and microphone access and try again."
	case DeviceNotFound:
		return "No matching device was found. Check that it is connected."
	case DeviceBusy:
		return "The device is in use by another application. Close it and try again."
	case ConstraintsNotSatisfiable:
		return "The device does not support the requested capture settings."
	case PlatformUnsupported:
		return "Media capture is not supported on this system."
	default:
		return "The device could not be started."
	}
}
