// Package platform implements media.Platform on native devices: PortAudio
// for microphones, pion/mediadevices for cameras and an FFT analyser for
// input levels.
package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/petems/interview-preflight/internal/media"
	"github.com/petems/interview-preflight/internal/permissions"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Native is the desktop media.Platform.
type Native struct {
	fftSize int
	log     zerolog.Logger

	// Overridable in tests.
	authorize  func(media.DeviceKind) error
	microphone func(*media.AudioConstraints, zerolog.Logger) (media.Stream, error)
	camera     func(*media.VideoConstraints, zerolog.Logger) (media.Stream, error)
	listMics   func() ([]media.Device, error)
	listCams   func() []media.Device

	closeOnce sync.Once
}

// New initializes PortAudio. Close must be called to release it.
func New(fftSize int, log zerolog.Logger) (*Native, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, &media.CaptureError{Kind: media.PlatformUnsupported, Op: "initialize", Err: fmt.Errorf("failed to initialize PortAudio: %w", err)}
	}
	return newNative(fftSize, log), nil
}

func newNative(fftSize int, log zerolog.Logger) *Native {
	return &Native{
		fftSize:    fftSize,
		log:        log.With().Str("component", "platform").Logger(),
		authorize:  permissions.Authorize,
		microphone: openMicrophone,
		camera:     openCamera,
		listMics:   listMicrophones,
		listCams:   listCameras,
	}
}

// Close terminates PortAudio.
func (p *Native) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = portaudio.Terminate()
	})
	return err
}

// EnumerateDevices lists microphones and cameras concurrently.
func (p *Native) EnumerateDevices(ctx context.Context) ([]media.Device, error) {
	var mics, cams []media.Device

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mics, err = p.listMics()
		return err
	})
	g.Go(func() error {
		cams = p.listCams()
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return append(mics, cams...), nil
}

// RequestCapture opens the device described by c after checking the OS
// capture permission. Exactly one of c.Audio and c.Video must be set.
func (p *Native) RequestCapture(ctx context.Context, c media.Constraints) (media.Stream, error) {
	if (c.Audio == nil) == (c.Video == nil) {
		return nil, errors.New("request must name exactly one device kind")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kind := c.Kind()
	if err := p.authorize(kind); err != nil {
		return nil, err
	}

	if c.Audio != nil {
		return await(ctx, func() (media.Stream, error) { return p.microphone(c.Audio, p.log) })
	}
	return await(ctx, func() (media.Stream, error) { return p.camera(c.Video, p.log) })
}

func (p *Native) NewAudioContext(sampleRate int) (media.AudioContext, error) {
	return newAudioContext(sampleRate, p.fftSize), nil
}

// await runs a blocking open and gives up when ctx ends first. A stream
// that arrives after that is stopped.
func await(ctx context.Context, open func() (media.Stream, error)) (media.Stream, error) {
	type result struct {
		stream media.Stream
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := open()
		ch <- result{s, err}
	}()

	select {
	case r := <-ch:
		return r.stream, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.err == nil {
				media.StopAll(r.stream)
			}
		}()
		return nil, ctx.Err()
	}
}
