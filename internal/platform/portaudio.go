package platform

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/google/uuid"
	"github.com/petems/interview-preflight/internal/media"
	"github.com/rs/zerolog"
)

const (
	framesPerBuffer = 512
	ringSize        = 8192
)

// listMicrophones returns every PortAudio device with input channels. The
// device name doubles as its ID, matching what users put in the config.
func listMicrophones() ([]media.Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", paError(err))
	}

	result := make([]media.Device, 0, len(devices))
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, media.Device{
				ID:    d.Name,
				Kind:  media.KindAudio,
				Label: d.Name,
			})
		}
	}
	return result, nil
}

func findMicrophone(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default input device: %v: %w", err, media.ErrDeviceNotFound)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", paError(err))
	}
	for _, d := range devices {
		if d.Name == deviceID && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("microphone %q: %w", deviceID, media.ErrDeviceNotFound)
}

// micTrack is a live PortAudio input stream exposed as a media.Track. A
// reader goroutine downmixes every buffer to mono and keeps the most recent
// samples in a ring for the analyser.
type micTrack struct {
	id     string
	label  string
	stream *portaudio.Stream
	log    zerolog.Logger

	mu   sync.Mutex
	ring []float32
	pos  int
	full bool

	ended atomic.Bool
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

type micStream struct {
	track *micTrack
}

func (s *micStream) Tracks() []media.Track { return []media.Track{s.track} }

// openMicrophone opens and starts an input stream for c. When the device
// rejects the requested rate its default rate is used instead.
func openMicrophone(c *media.AudioConstraints, log zerolog.Logger) (media.Stream, error) {
	device, err := findMicrophone(c.DeviceID)
	if err != nil {
		return nil, err
	}

	channels := c.ChannelCount
	if channels <= 0 || channels > device.MaxInputChannels {
		channels = device.MaxInputChannels
	}
	sampleRate := float64(c.SampleRate)
	if sampleRate <= 0 {
		sampleRate = device.DefaultSampleRate
	}

	buffer := make([]float32, framesPerBuffer*channels)
	open := func(rate float64) (*portaudio.Stream, error) {
		return portaudio.OpenStream(portaudio.StreamParameters{
			Input: portaudio.StreamDeviceParameters{
				Device:   device,
				Channels: channels,
				Latency:  device.DefaultLowInputLatency,
			},
			SampleRate:      rate,
			FramesPerBuffer: framesPerBuffer,
		}, buffer)
	}

	stream, err := open(sampleRate)
	if errors.Is(err, portaudio.InvalidSampleRate) && sampleRate != device.DefaultSampleRate {
		log.Debug().Float64("requested", sampleRate).Float64("fallback", device.DefaultSampleRate).Msg("Sample rate rejected, using device default")
		stream, err = open(device.DefaultSampleRate)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", paError(err))
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start audio stream: %w", paError(err))
	}

	t := &micTrack{
		id:     uuid.NewString(),
		label:  device.Name,
		stream: stream,
		log:    log,
		ring:   make([]float32, ringSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go t.read(buffer, channels)

	log.Debug().Str("device", device.Name).Int("channels", channels).Msg("Microphone stream started")
	return &micStream{track: t}, nil
}

// Read loop
func (t *micTrack) read(buffer []float32, channels int) {
	defer close(t.done)
	defer t.stream.Close()
	defer t.stream.Stop()

	for {
		select {
		case <-t.quit:
			return
		default:
		}

		if err := t.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			t.log.Warn().Err(err).Msg("Microphone read failed")
			t.ended.Store(true)
			return
		}
		t.push(downmixInterleaved(buffer, channels, len(buffer)/channels))
	}
}

func (t *micTrack) push(samples []float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range samples {
		t.ring[t.pos] = s
		t.pos++
		if t.pos == len(t.ring) {
			t.pos = 0
			t.full = true
		}
	}
}

// Window copies the most recent samples into dst, oldest first.
func (t *micTrack) Window(dst []float32) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	available := t.pos
	if t.full {
		available = len(t.ring)
	}
	n := len(dst)
	if n > available {
		n = available
	}

	start := t.pos - n
	if start < 0 {
		start += len(t.ring)
	}
	for i := 0; i < n; i++ {
		dst[i] = t.ring[(start+i)%len(t.ring)]
	}
	return n
}

func (t *micTrack) ID() string             { return t.id }
func (t *micTrack) Kind() media.DeviceKind { return media.KindAudio }
func (t *micTrack) Label() string          { return t.label }

func (t *micTrack) ReadyState() media.ReadyState {
	if t.ended.Load() {
		return media.ReadyStateEnded
	}
	return media.ReadyStateLive
}

// Stop ends the stream and waits for the device to be closed.
func (t *micTrack) Stop() {
	t.once.Do(func() {
		t.ended.Store(true)
		close(t.quit)
		<-t.done
	})
}

// downmixInterleaved averages interleaved frames into mono. Mono input is
// copied so callers can reuse the PortAudio buffer.
func downmixInterleaved(input []float32, channels, frames int) []float32 {
	if channels <= 1 {
		out := make([]float32, frames)
		copy(out, input)
		return out
	}

	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		base := f * channels
		for c := 0; c < channels; c++ {
			sum += input[base+c]
		}
		out[f] = sum / float32(channels)
	}
	return out
}

// paError maps PortAudio error codes onto the capture sentinels.
func paError(err error) error {
	switch {
	case errors.Is(err, portaudio.DeviceUnavailable):
		return fmt.Errorf("%v: %w", err, media.ErrDeviceBusy)
	case errors.Is(err, portaudio.InvalidDevice):
		return fmt.Errorf("%v: %w", err, media.ErrDeviceNotFound)
	case errors.Is(err, portaudio.InvalidSampleRate),
		errors.Is(err, portaudio.InvalidChannelCount),
		errors.Is(err, portaudio.SampleFormatNotSupported):
		return fmt.Errorf("%v: %w", err, media.ErrConstraintsNotSatisfiable)
	case errors.Is(err, portaudio.NotInitialized):
		return fmt.Errorf("%v: %w", err, media.ErrPlatformUnsupported)
	}
	return err
}
