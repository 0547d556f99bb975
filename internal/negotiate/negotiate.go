// Package negotiate acquires a camera by walking a ladder of capture
// constraint profiles until one yields a stream whose tracks are all live.
package negotiate

import (
	"context"
	"errors"
	"fmt"

	"github.com/petems/interview-preflight/internal/devices"
	"github.com/petems/interview-preflight/internal/media"
	"github.com/rs/zerolog"
)

// Profile is one rung of the ladder.
type Profile struct {
	Name      string
	Width     int
	Height    int
	FrameRate int
	// PinDevice restricts the request to the selected device.
	PinDevice bool
}

func (p Profile) constraints(deviceID string) media.Constraints {
	v := &media.VideoConstraints{
		Width:     p.Width,
		Height:    p.Height,
		FrameRate: p.FrameRate,
	}
	if p.PinDevice {
		v.DeviceID = deviceID
	}
	return media.Constraints{Video: v}
}

// DefaultLadder is tried in order: unpinned basic resolution, the same
// resolution pinned to a device, then HD pinned to that device.
func DefaultLadder() []Profile {
	return []Profile{
		{Name: "basic", Width: 640, Height: 480},
		{Name: "pinned", Width: 640, Height: 480, PinDevice: true},
		{Name: "hd", Width: 1280, Height: 720, FrameRate: 30, PinDevice: true},
	}
}

var errNoLiveTracks = errors.New("stream has no live tracks")

// Failure is returned when no profile produced a usable stream. Err is the
// classified error of the last attempt.
type Failure struct {
	Err               *media.CaptureError
	Attempts          int
	ContinueAudioOnly bool
}

func (f *Failure) Error() string {
	return fmt.Sprintf("video negotiation failed after %d attempt(s): %v", f.Attempts, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Negotiator walks the ladder against the platform.
type Negotiator struct {
	platform media.Platform
	devices  *devices.Enumerator
	ladder   []Profile
	log      zerolog.Logger
}

// New creates a negotiator. A nil or empty ladder uses DefaultLadder.
func New(platform media.Platform, enum *devices.Enumerator, ladder []Profile, log zerolog.Logger) *Negotiator {
	if len(ladder) == 0 {
		ladder = DefaultLadder()
	}
	return &Negotiator{
		platform: platform,
		devices:  enum,
		ladder:   ladder,
		log:      log.With().Str("component", "negotiate").Logger(),
	}
}

// Ladder returns a copy of the profiles in attempt order.
func (n *Negotiator) Ladder() []Profile {
	out := make([]Profile, len(n.ladder))
	copy(out, n.ladder)
	return out
}

// AcquireVideo returns the session of the first profile whose stream
// validates. The caller owns the returned session. Every rejected stream is
// stopped here before the next profile is tried.
func (n *Negotiator) AcquireVideo(ctx context.Context, preferredDeviceID string) (*media.Session, error) {
	cams, err := n.devices.List(ctx, media.KindVideo)
	if err != nil {
		return nil, n.fail(media.NewError("enumerate video", err), 0)
	}

	dev, ok := devices.Pick(cams, preferredDeviceID)
	if !ok {
		return nil, n.fail(&media.CaptureError{
			Kind: media.DeviceNotFound,
			Op:   "enumerate video",
			Err:  media.ErrDeviceNotFound,
		}, 0)
	}

	var last *media.CaptureError
	attempts := 0

	for _, p := range n.ladder {
		op := "request video " + p.Name

		if err := ctx.Err(); err != nil {
			last = media.NewError(op, err)
			break
		}

		attempts++
		n.log.Debug().
			Str("profile", p.Name).
			Int("width", p.Width).
			Int("height", p.Height).
			Bool("pinned", p.PinDevice).
			Str("device", dev.ID).
			Msg("Requesting camera")

		stream, err := n.platform.RequestCapture(ctx, p.constraints(dev.ID))
		if err != nil {
			media.StopAll(stream)
			last = media.NewError(op, err)
			n.log.Debug().Err(err).Str("profile", p.Name).Stringer("kind", last.Kind).Msg("Profile rejected")
			continue
		}

		if !media.AllLive(stream) {
			media.StopAll(stream)
			last = &media.CaptureError{Kind: media.ConstraintsNotSatisfiable, Op: op, Err: errNoLiveTracks}
			n.log.Debug().Str("profile", p.Name).Msg("Profile returned no live tracks")
			continue
		}

		session := media.NewSession(media.KindVideo, stream)
		n.log.Info().
			Str("profile", p.Name).
			Str("device", dev.ID).
			Str("session", session.ID.String()).
			Msg("Camera acquired")
		return session, nil
	}

	if last == nil {
		last = &media.CaptureError{
			Kind: media.ConstraintsNotSatisfiable,
			Op:   "negotiate video",
			Err:  errors.New("empty ladder"),
		}
	}
	return nil, n.fail(last, attempts)
}

func (n *Negotiator) fail(err *media.CaptureError, attempts int) *Failure {
	n.log.Warn().
		Err(err).
		Stringer("kind", err.Kind).
		Int("attempts", attempts).
		Msg("Camera unavailable, continuing audio-only")
	return &Failure{Err: err, Attempts: attempts, ContinueAudioOnly: true}
}
