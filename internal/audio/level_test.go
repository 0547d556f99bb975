package audio

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/petems/interview-preflight/internal/media"
	"github.com/petems/interview-preflight/internal/media/mediatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		bins []byte
		want float64
	}{
		{"empty", nil, 0},
		{"silence", []byte{0, 0, 0, 0}, 0},
		{"full scale", []byte{255, 255}, 100},
		{"half", []byte{0, 255}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Normalize(tt.bins), 0.001)
		})
	}
}

func TestSamplerReadsFlagAtTickTime(t *testing.T) {
	p := mediatest.NewPlatform()
	sched := &mediatest.Scheduler{}

	stream, err := p.RequestCapture(context.Background(), media.Constraints{Audio: &media.AudioConstraints{}})
	require.NoError(t, err)
	actx, err := p.NewAudioContext(16000)
	require.NoError(t, err)
	an, err := actx.CreateAnalyser()
	require.NoError(t, err)

	enabled := new(atomic.Bool)
	enabled.Store(true)

	var published []float64
	s := newSampler(enabled, an, media.NewSession(media.KindAudio, stream), sched, time.Millisecond)
	s.publish = func(l float64) { published = append(published, l) }

	s.start()
	p.Graph.SetEnergy(255)
	require.Equal(t, 1, sched.Tick())
	require.Len(t, published, 1)

	// The tick is already scheduled; flipping the cell without cancelling
	// must still turn it into a no-op that does not reschedule.
	enabled.Store(false)
	an.Disconnect()

	assert.Equal(t, 1, sched.Tick())
	assert.Len(t, published, 1)
	assert.Zero(t, sched.Pending())
}
