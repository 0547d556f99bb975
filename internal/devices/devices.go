// Package devices lists capture devices from the platform.
package devices

import (
	"context"

	"github.com/petems/interview-preflight/internal/media"
	"github.com/rs/zerolog"
)

// Enumerator lists capture devices by kind.
type Enumerator struct {
	platform media.Platform
	log      zerolog.Logger
}

// New creates an enumerator over platform.
func New(platform media.Platform, log zerolog.Logger) *Enumerator {
	return &Enumerator{
		platform: platform,
		log:      log.With().Str("component", "devices").Logger(),
	}
}

// All returns every device the platform reports.
func (e *Enumerator) All(ctx context.Context) ([]media.Device, error) {
	devices, err := e.platform.EnumerateDevices(ctx)
	if err != nil {
		return nil, media.NewError("enumerate devices", err)
	}
	return devices, nil
}

// List returns the devices of one kind, in platform order.
func (e *Enumerator) List(ctx context.Context, kind media.DeviceKind) ([]media.Device, error) {
	all, err := e.All(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]media.Device, 0, len(all))
	for _, d := range all {
		if d.Kind == kind {
			out = append(out, d)
		}
	}

	e.log.Debug().
		Stringer("kind", kind).
		Int("count", len(out)).
		Msg("Enumerated devices")

	return out, nil
}

// Pick returns the device matching preferredID, or the first device when
// preferredID is empty or not present. ok is false only when devices is empty.
func Pick(devices []media.Device, preferredID string) (media.Device, bool) {
	if len(devices) == 0 {
		return media.Device{}, false
	}
	if preferredID != "" {
		for _, d := range devices {
			if d.ID == preferredID {
				return d, true
			}
		}
	}
	return devices[0], true
}
