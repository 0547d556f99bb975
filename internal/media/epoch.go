package media

import "sync/atomic"

// Epoch identifies acquisition attempts. Begin hands out a token; any later
// Begin or Invalidate makes earlier tokens stale.
type Epoch struct {
	n atomic.Uint64
}

// Begin starts a new attempt and returns its token.
func (e *Epoch) Begin() uint64 {
	return e.n.Add(1)
}

// Invalidate makes every outstanding token stale.
func (e *Epoch) Invalidate() {
	e.n.Add(1)
}

// Current reports whether token is still the latest attempt.
func (e *Epoch) Current(token uint64) bool {
	return e.n.Load() == token
}
