package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/petems/interview-preflight/internal/media"
	"github.com/petems/interview-preflight/internal/media/mediatest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNative() *Native {
	p := newNative(256, zerolog.Nop())
	p.authorize = func(media.DeviceKind) error { return nil }
	p.listMics = func() ([]media.Device, error) {
		return []media.Device{{ID: "Built-in", Kind: media.KindAudio, Label: "Built-in"}}, nil
	}
	p.listCams = func() []media.Device {
		return []media.Device{{ID: "video0", Kind: media.KindVideo, Label: "Webcam"}}
	}
	return p
}

func TestEnumerateDevicesMergesKinds(t *testing.T) {
	p := newTestNative()

	devices, err := p.EnumerateDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, media.KindAudio, devices[0].Kind)
	assert.Equal(t, media.KindVideo, devices[1].Kind)
}

func TestEnumerateDevicesPropagatesError(t *testing.T) {
	p := newTestNative()
	p.listMics = func() ([]media.Device, error) { return nil, errors.New("host api gone") }

	_, err := p.EnumerateDevices(context.Background())
	assert.Error(t, err)
}

func TestRequestCaptureChecksPermission(t *testing.T) {
	p := newTestNative()
	opened := false
	p.authorize = func(kind media.DeviceKind) error {
		if kind == media.KindVideo {
			return media.ErrPermissionDenied
		}
		return nil
	}
	p.camera = func(*media.VideoConstraints, zerolog.Logger) (media.Stream, error) {
		opened = true
		return nil, nil
	}

	_, err := p.RequestCapture(context.Background(), media.Constraints{Video: &media.VideoConstraints{}})
	assert.Equal(t, media.PermissionDenied, media.Classify(err))
	assert.False(t, opened)
}

func TestRequestCaptureRejectsMixedKinds(t *testing.T) {
	p := newTestNative()
	_, err := p.RequestCapture(context.Background(), media.Constraints{
		Audio: &media.AudioConstraints{},
		Video: &media.VideoConstraints{},
	})
	assert.Error(t, err)
}

func TestRequestCaptureStopsLateStream(t *testing.T) {
	p := newTestNative()
	release := make(chan struct{})
	entered := make(chan struct{})
	track := mediatest.NewTrack("mic", media.KindAudio)
	p.microphone = func(*media.AudioConstraints, zerolog.Logger) (media.Stream, error) {
		close(entered)
		<-release
		return mediatest.NewStream(track), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.RequestCapture(ctx, media.Constraints{Audio: &media.AudioConstraints{}})
		done <- err
	}()

	<-entered
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	assert.Eventually(t, track.Stopped, time.Second, 5*time.Millisecond)
}

func TestPortAudioErrorsAreClassified(t *testing.T) {
	assert.Equal(t, media.DeviceBusy, media.Classify(paError(portaudio.DeviceUnavailable)))
	assert.Equal(t, media.DeviceNotFound, media.Classify(paError(portaudio.InvalidDevice)))
	assert.Equal(t, media.ConstraintsNotSatisfiable, media.Classify(paError(portaudio.InvalidSampleRate)))
	assert.Equal(t, media.PlatformUnsupported, media.Classify(paError(portaudio.NotInitialized)))
}

func TestCameraLabel(t *testing.T) {
	cams := []media.Device{
		{ID: "video0", Kind: media.KindVideo, Label: "Integrated Webcam"},
		{ID: "video2", Kind: media.KindVideo, Label: "USB Camera"},
	}

	assert.Equal(t, "USB Camera", cameraLabel(cams, "video2", ""))
	assert.Equal(t, "Integrated Webcam", cameraLabel(cams, "track-1", "video0"))
	assert.Equal(t, "camera", cameraLabel(cams, "track-1", ""))
	assert.Equal(t, "Integrated Webcam", cameraLabel(cams[:1], "track-1", ""))
	assert.Equal(t, "video9", cameraLabel(nil, "track-1", "video9"))
}
