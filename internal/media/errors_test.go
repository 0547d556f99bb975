package media

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, Unknown},
		{"sentinel", ErrDeviceBusy, DeviceBusy},
		{"wrapped sentinel", fmt.Errorf("open camera: %w", ErrPermissionDenied), PermissionDenied},
		{"typed", &CaptureError{Kind: PlatformUnsupported, Op: "enumerate"}, PlatformUnsupported},
		{"wrapped typed", fmt.Errorf("x: %w", &CaptureError{Kind: DeviceNotFound}), DeviceNotFound},
		{"canceled", context.Canceled, Unknown},
		{"browser style permission", errors.New("NotAllowedError: Permission denied"), PermissionDenied},
		{"device in use", errors.New("Device or resource busy"), DeviceBusy},
		{"mediadevices driver mismatch", errors.New("failed to find the best driver that fits the constraints"), ConstraintsNotSatisfiable},
		{"portaudio sample rate", errors.New("Invalid sample rate"), ConstraintsNotSatisfiable},
		{"portaudio no device", errors.New("No default input device"), DeviceNotFound},
		{"no such device", errors.New("open /dev/video0: no such device"), DeviceNotFound},
		{"unsupported", errors.New("capture not supported on this platform"), PlatformUnsupported},
		{"other", errors.New("something odd happened"), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestCaptureErrorIs(t *testing.T) {
	err := NewError("request video", fmt.Errorf("camera: %w", ErrDeviceBusy))

	assert.Equal(t, DeviceBusy, err.Kind)
	assert.True(t, errors.Is(err, ErrDeviceBusy))
	assert.False(t, errors.Is(err, ErrPermissionDenied))
	assert.Equal(t, Message(DeviceBusy), err.Message())
	assert.Contains(t, err.Error(), "request video")
}

func TestNewErrorKeepsKind(t *testing.T) {
	inner := &CaptureError{Kind: PermissionDenied, Op: "request audio", Err: errors.New("no")}
	outer := NewError("enable audio", fmt.Errorf("wrapped: %w", inner))

	assert.Equal(t, PermissionDenied, outer.Kind)
	assert.Equal(t, "enable audio", outer.Op)
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "PermissionDenied", PermissionDenied.String())
	assert.Equal(t, "ConstraintsNotSatisfiable", ConstraintsNotSatisfiable.String())
	assert.Equal(t, "Unknown", ErrorKind(42).String())
}
