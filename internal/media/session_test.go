package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingTrack struct {
	stops int
	ended bool
}

func (t *countingTrack) ID() string       { return "t" }
func (t *countingTrack) Kind() DeviceKind { return KindVideo }
func (t *countingTrack) Label() string    { return "t" }
func (t *countingTrack) ReadyState() ReadyState {
	if t.ended {
		return ReadyStateEnded
	}
	return ReadyStateLive
}
func (t *countingTrack) Stop() { t.stops++; t.ended = true }

type sliceStream []Track

func (s sliceStream) Tracks() []Track { return s }

func TestSessionReleaseOnce(t *testing.T) {
	a, b := &countingTrack{}, &countingTrack{}
	s := NewSession(KindVideo, sliceStream{a, b})

	assert.True(t, s.Live())
	s.Release()
	s.Release()

	assert.Equal(t, 1, a.stops)
	assert.Equal(t, 1, b.stops)
	assert.True(t, s.Released())
	assert.False(t, s.Live())
}

func TestNilSessionRelease(t *testing.T) {
	var s *Session
	s.Release()
	assert.False(t, s.Released())
	assert.Empty(t, s.Tracks())
}

func TestAllLive(t *testing.T) {
	assert.False(t, AllLive(nil))
	assert.False(t, AllLive(sliceStream{}))
	assert.True(t, AllLive(sliceStream{&countingTrack{}}))
	assert.False(t, AllLive(sliceStream{&countingTrack{}, &countingTrack{ended: true}}))
}

func TestEpoch(t *testing.T) {
	var e Epoch
	first := e.Begin()
	assert.True(t, e.Current(first))

	second := e.Begin()
	assert.False(t, e.Current(first))
	assert.True(t, e.Current(second))

	e.Invalidate()
	assert.False(t, e.Current(second))
}
