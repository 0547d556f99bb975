// Package media defines the vocabulary shared by the capture managers: devices,
// constraints, streams and tracks, the audio analysis graph, and the Platform
// that hands all of them out.
package media

import (
	"context"
	"fmt"
)

// DeviceKind represents the type of capture device.
type DeviceKind int

const (
	KindAudio DeviceKind = iota + 1 // Microphone
	KindVideo                       // Camera
)

func (k DeviceKind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Device describes an enumerated capture device. Devices are owned by the
// platform and never mutated here.
type Device struct {
	ID    string
	Kind  DeviceKind
	Label string
}

func (d Device) String() string {
	if d.Label == "" {
		return fmt.Sprintf("%s:%s", d.Kind, d.ID)
	}
	return fmt.Sprintf("%s:%s (%s)", d.Kind, d.ID, d.Label)
}

// VideoConstraints for a camera request. Zero values mean "no preference".
type VideoConstraints struct {
	DeviceID  string
	Width     int
	Height    int
	FrameRate int
}

// AudioConstraints for a microphone request.
type AudioConstraints struct {
	DeviceID         string
	SampleRate       int
	ChannelCount     int
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// Constraints is a single capture request. Exactly one of Audio or Video is set.
type Constraints struct {
	Audio *AudioConstraints
	Video *VideoConstraints
}

// Kind reports which device kind the constraints ask for.
func (c Constraints) Kind() DeviceKind {
	if c.Video != nil {
		return KindVideo
	}
	return KindAudio
}

// ReadyState is the liveness of a single track.
type ReadyState int

const (
	ReadyStateLive ReadyState = iota
	ReadyStateEnded
)

func (s ReadyState) String() string {
	if s == ReadyStateLive {
		return "live"
	}
	return "ended"
}

// Track is one component of a stream, bound to one device.
type Track interface {
	ID() string
	Kind() DeviceKind
	Label() string
	ReadyState() ReadyState
	// Stop releases the underlying device. Calling it more than once is safe.
	Stop()
}

// Stream is the result of a successful capture request.
type Stream interface {
	Tracks() []Track
}

// PCMSource is implemented by audio tracks whose latest samples can be read by
// an analyser. Window copies the most recent len(dst) mono samples into dst and
// returns how many were available.
type PCMSource interface {
	Window(dst []float32) int
}

// Node is a vertex of the audio analysis graph.
type Node interface {
	Connect(dst Node) error
	Disconnect()
}

// Analyser exposes frequency-domain energy of whatever is connected to it.
type Analyser interface {
	Node
	FrequencyBinCount() int
	// ByteFrequencyData fills dst with per-bin energy scaled to 0..255.
	ByteFrequencyData(dst []byte)
}

// AudioContext owns a processing graph. Close is asynchronous: the returned
// channel yields once the context has been torn down.
type AudioContext interface {
	CreateSource(s Stream) (Node, error)
	CreateAnalyser() (Analyser, error)
	Close() <-chan error
}

// Platform is the hardware access surface consumed by the capture managers.
type Platform interface {
	EnumerateDevices(ctx context.Context) ([]Device, error)
	RequestCapture(ctx context.Context, c Constraints) (Stream, error)
	NewAudioContext(sampleRate int) (AudioContext, error)
}

// StopAll stops every track of s. A nil stream is a no-op.
func StopAll(s Stream) {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// AllLive reports whether s has at least one track and every track is live.
func AllLive(s Stream) bool {
	if s == nil {
		return false
	}
	tracks := s.Tracks()
	if len(tracks) == 0 {
		return false
	}
	for _, t := range tracks {
		if t.ReadyState() != ReadyStateLive {
			return false
		}
	}
	return true
}
