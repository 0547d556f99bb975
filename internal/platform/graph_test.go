package platform

import (
	"math"
	"testing"

	"github.com/petems/interview-preflight/internal/media"
	"github.com/petems/interview-preflight/internal/media/mediatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pcmTrack is a live track that replays a fixed signal.
type pcmTrack struct {
	*mediatest.Track
	signal []float32
}

func (t *pcmTrack) Window(dst []float32) int {
	return copy(dst, t.signal)
}

type pcmStream struct{ tracks []media.Track }

func (s pcmStream) Tracks() []media.Track { return s.tracks }

func sine(n int, amplitude float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(2*math.Pi*float64(i)*32/float64(n)))
	}
	return out
}

func meanLevel(t *testing.T, signal []float32, reads int) float64 {
	t.Helper()
	actx := newAudioContext(48000, 256)
	track := &pcmTrack{Track: mediatest.NewTrack("mic", media.KindAudio), signal: signal}

	src, err := actx.CreateSource(pcmStream{tracks: []media.Track{track}})
	require.NoError(t, err)
	an, err := actx.CreateAnalyser()
	require.NoError(t, err)
	require.NoError(t, src.Connect(an))

	bins := make([]byte, an.FrequencyBinCount())
	for i := 0; i < reads; i++ {
		an.ByteFrequencyData(bins)
	}
	var sum float64
	for _, b := range bins {
		sum += float64(b)
	}
	return sum / float64(len(bins))
}

func TestAnalyserTracksSignalEnergy(t *testing.T) {
	silent := meanLevel(t, make([]float32, 256), 10)
	quiet := meanLevel(t, sine(256, 0.01), 10)
	loud := meanLevel(t, sine(256, 0.8), 10)

	assert.Equal(t, 0.0, silent)
	assert.Greater(t, quiet, silent)
	assert.Greater(t, loud, quiet)
}

func TestAnalyserSmoothsAcrossReads(t *testing.T) {
	once := meanLevel(t, sine(256, 0.5), 1)
	many := meanLevel(t, sine(256, 0.5), 20)
	assert.Greater(t, many, once)
}

func TestDisconnectedAnalyserReadsSilence(t *testing.T) {
	actx := newAudioContext(48000, 64)
	track := &pcmTrack{Track: mediatest.NewTrack("mic", media.KindAudio), signal: sine(64, 0.8)}

	src, err := actx.CreateSource(pcmStream{tracks: []media.Track{track}})
	require.NoError(t, err)
	an, err := actx.CreateAnalyser()
	require.NoError(t, err)
	require.NoError(t, src.Connect(an))

	src.Disconnect()
	an.Disconnect()

	bins := make([]byte, an.FrequencyBinCount())
	an.ByteFrequencyData(bins)
	for _, b := range bins {
		assert.Equal(t, byte(0), b)
	}
}

func TestSourceRequiresPCMTrack(t *testing.T) {
	actx := newAudioContext(48000, 64)
	_, err := actx.CreateSource(mediatest.NewStream(mediatest.NewTrack("cam", media.KindVideo)))
	require.Error(t, err)
	assert.ErrorIs(t, err, media.ErrConstraintsNotSatisfiable)
}

func TestContextClose(t *testing.T) {
	actx := newAudioContext(48000, 64)

	assert.NoError(t, <-actx.Close())
	assert.Error(t, <-actx.Close())

	_, err := actx.CreateAnalyser()
	assert.Error(t, err)
}

func TestToByteRange(t *testing.T) {
	assert.Equal(t, byte(0), toByte(0))
	assert.Equal(t, byte(255), toByte(1))
	mid := toByte(math.Pow(10, -65.0/20))
	assert.InDelta(t, 127, int(mid), 2)
}
