package media

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// State of a capture manager.
type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateLive
	StateError
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateLive:
		return "live"
	case StateError:
		return "error"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Session is one acquired stream of a single device kind. Exactly one owner
// may hold a Session; Release stops every track once.
type Session struct {
	ID     uuid.UUID
	Kind   DeviceKind
	Stream Stream

	once     sync.Once
	released atomic.Bool
}

// NewSession wraps a granted stream.
func NewSession(kind DeviceKind, s Stream) *Session {
	return &Session{
		ID:     uuid.New(),
		Kind:   kind,
		Stream: s,
	}
}

// Tracks returns the tracks of the held stream.
func (s *Session) Tracks() []Track {
	if s == nil || s.Stream == nil {
		return nil
	}
	return s.Stream.Tracks()
}

// Live reports whether every track is still live.
func (s *Session) Live() bool {
	return s != nil && !s.released.Load() && AllLive(s.Stream)
}

// Release stops every track. Safe on a nil or already released session.
func (s *Session) Release() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.released.Store(true)
		StopAll(s.Stream)
	})
}

// Released reports whether Release has run.
func (s *Session) Released() bool {
	return s != nil && s.released.Load()
}
