package platform

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/petems/interview-preflight/internal/media"
	"github.com/rs/zerolog"

	// Registers the native camera driver (V4L2, AVFoundation or DirectShow).
	_ "github.com/pion/mediadevices/pkg/driver/camera"
)

func listCameras() []media.Device {
	var result []media.Device
	for _, d := range mediadevices.EnumerateDevices() {
		if d.Kind != mediadevices.VideoInput {
			continue
		}
		label := d.Label
		if label == "" {
			label = d.DeviceID
		}
		result = append(result, media.Device{
			ID:    d.DeviceID,
			Kind:  media.KindVideo,
			Label: label,
		})
	}
	return result
}

// trackConstraints translates c into a mediadevices option. Zero fields are
// left unconstrained so the driver picks its own.
func trackConstraints(c *media.VideoConstraints) mediadevices.MediaOption {
	return func(mc *mediadevices.MediaTrackConstraints) {
		if c.DeviceID != "" {
			mc.DeviceID = c.DeviceID
		}
		if c.Width > 0 {
			mc.Width = prop.Int(c.Width)
		}
		if c.Height > 0 {
			mc.Height = prop.Int(c.Height)
		}
		if c.FrameRate > 0 {
			mc.FrameRate = prop.Float(float32(c.FrameRate))
		}
	}
}

func openCamera(c *media.VideoConstraints, log zerolog.Logger) (media.Stream, error) {
	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: trackConstraints(c),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open camera: %w", err)
	}

	cams := listCameras()
	s := &camStream{}
	for _, t := range stream.GetVideoTracks() {
		ct := &camTrack{track: t, label: cameraLabel(cams, t.ID(), c.DeviceID)}
		t.OnEnded(func(err error) {
			ct.ended.Store(true)
			if err != nil {
				log.Warn().Err(err).Str("track", t.ID()).Msg("Camera track ended")
			}
		})
		s.tracks = append(s.tracks, ct)
	}
	return s, nil
}

// cameraLabel names the device behind a track. mediadevices derives track
// IDs from the device ID, so the track is matched first, then the pinned
// device, then the only camera when there is just one.
func cameraLabel(cams []media.Device, trackID, deviceID string) string {
	for _, id := range []string{trackID, deviceID} {
		if id == "" {
			continue
		}
		for _, d := range cams {
			if d.ID == id {
				return d.Label
			}
		}
	}
	if len(cams) == 1 {
		return cams[0].Label
	}
	if deviceID != "" {
		return deviceID
	}
	return "camera"
}

type camStream struct {
	tracks []media.Track
}

func (s *camStream) Tracks() []media.Track { return s.tracks }

// camTrack adapts a mediadevices track to media.Track.
type camTrack struct {
	track mediadevices.Track
	label string
	ended atomic.Bool
	once  sync.Once
}

func (t *camTrack) ID() string             { return t.track.ID() }
func (t *camTrack) Kind() media.DeviceKind { return media.KindVideo }
func (t *camTrack) Label() string          { return t.label }

func (t *camTrack) ReadyState() media.ReadyState {
	if t.ended.Load() {
		return media.ReadyStateEnded
	}
	return media.ReadyStateLive
}

func (t *camTrack) Stop() {
	t.once.Do(func() {
		t.ended.Store(true)
		_ = t.track.Close()
	})
}
