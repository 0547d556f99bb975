package platform

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync"
	"sync/atomic"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"github.com/petems/interview-preflight/internal/media"
)

// Analyser defaults, matching the Web Audio AnalyserNode.
const (
	DefaultFFTSize   = 2048
	minDecibels      = -100.0
	maxDecibels      = -30.0
	smoothing        = 0.8
	decibelRange     = maxDecibels - minDecibels
	byteScale        = 255.0
	magnitudeEpsilon = 1e-12
)

var errContextClosed = errors.New("audio context closed")

// audioContext builds analysis graphs over PCM tracks.
type audioContext struct {
	sampleRate int
	fftSize    int
	closed     atomic.Bool
}

func newAudioContext(sampleRate, fftSize int) *audioContext {
	if fftSize <= 0 {
		fftSize = DefaultFFTSize
	}
	return &audioContext{sampleRate: sampleRate, fftSize: fftSize}
}

// CreateSource wraps the first track of s that exposes PCM samples.
func (c *audioContext) CreateSource(s media.Stream) (media.Node, error) {
	if c.closed.Load() {
		return nil, errContextClosed
	}
	for _, t := range s.Tracks() {
		if pcm, ok := t.(media.PCMSource); ok {
			return &sourceNode{pcm: pcm}, nil
		}
	}
	return nil, fmt.Errorf("stream has no readable audio track: %w", media.ErrConstraintsNotSatisfiable)
}

func (c *audioContext) CreateAnalyser() (media.Analyser, error) {
	if c.closed.Load() {
		return nil, errContextClosed
	}
	n := c.fftSize
	return &analyser{
		size:     n,
		window:   window.Blackman(n),
		samples:  make([]float32, n),
		smoothed: make([]float64, n/2),
	}, nil
}

// Close completes immediately. Nodes created by the context stop producing
// data once disconnected.
func (c *audioContext) Close() <-chan error {
	done := make(chan error, 1)
	if !c.closed.CompareAndSwap(false, true) {
		done <- errContextClosed
	}
	close(done)
	return done
}

type sourceNode struct {
	mu   sync.Mutex
	pcm  media.PCMSource
	dsts []*analyser
}

func (n *sourceNode) Connect(dst media.Node) error {
	a, ok := dst.(*analyser)
	if !ok {
		return fmt.Errorf("cannot connect source to %T", dst)
	}
	n.mu.Lock()
	n.dsts = append(n.dsts, a)
	n.mu.Unlock()
	a.setSource(n.pcm)
	return nil
}

func (n *sourceNode) Disconnect() {
	n.mu.Lock()
	dsts := n.dsts
	n.dsts = nil
	n.mu.Unlock()
	for _, a := range dsts {
		a.setSource(nil)
	}
}

// analyser computes a smoothed, Blackman-windowed magnitude spectrum and
// maps it to bytes over [minDecibels, maxDecibels].
type analyser struct {
	size   int
	window []float64

	mu       sync.Mutex
	src      media.PCMSource
	samples  []float32
	smoothed []float64
}

func (a *analyser) setSource(src media.PCMSource) {
	a.mu.Lock()
	a.src = src
	a.mu.Unlock()
}

func (a *analyser) Connect(dst media.Node) error {
	return errors.New("analyser has no outputs")
}

func (a *analyser) Disconnect() {
	a.setSource(nil)
}

func (a *analyser) FrequencyBinCount() int { return a.size / 2 }

func (a *analyser) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.samples {
		a.samples[i] = 0
	}
	if a.src != nil {
		n := a.src.Window(a.samples)
		// Right-align a short window so the newest samples stay at the end.
		if n < a.size {
			copy(a.samples[a.size-n:], a.samples[:n])
			for i := 0; i < a.size-n; i++ {
				a.samples[i] = 0
			}
		}
	}

	input := make([]float64, a.size)
	for i, s := range a.samples {
		input[i] = float64(s) * a.window[i]
	}
	spectrum := fft.FFTReal(input)

	for i := range a.smoothed {
		if i >= len(dst) {
			break
		}
		mag := cmplx.Abs(spectrum[i]) / float64(a.size)
		a.smoothed[i] = smoothing*a.smoothed[i] + (1-smoothing)*mag
		dst[i] = toByte(a.smoothed[i])
	}
}

func toByte(mag float64) byte {
	db := 20 * math.Log10(mag+magnitudeEpsilon)
	v := byteScale * (db - minDecibels) / decibelRange
	switch {
	case v <= 0:
		return 0
	case v >= byteScale:
		return 255
	}
	return byte(v)
}
