package audio

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petems/interview-preflight/internal/media"
)

// Normalize maps analyser bins (0..255 each) to a level in [0,100].
func Normalize(bins []byte) float64 {
	if len(bins) == 0 {
		return 0
	}
	sum := 0
	for _, b := range bins {
		sum += int(b)
	}
	level := float64(sum) / float64(len(bins)) / 255 * 100
	return math.Min(100, math.Max(0, level))
}

// sampler is the self-rescheduling level loop. It never owns the enabled
// cell: the manager flips it and every tick reads it fresh.
type sampler struct {
	enabled  *atomic.Bool
	analyser media.Analyser
	session  *media.Session
	sched    media.Scheduler
	interval time.Duration
	publish  func(float64)
	onEnded  func()
	bins     []byte

	mu    sync.Mutex
	timer media.Timer
}

func newSampler(enabled *atomic.Bool, analyser media.Analyser, session *media.Session, sched media.Scheduler, interval time.Duration) *sampler {
	n := analyser.FrequencyBinCount()
	if n <= 0 {
		n = 1
	}
	return &sampler{
		enabled:  enabled,
		analyser: analyser,
		session:  session,
		sched:    sched,
		interval: interval,
		bins:     make([]byte, n),
	}
}

func (s *sampler) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer = s.sched.AfterFunc(s.interval, s.tick)
}

func (s *sampler) tick() {
	if s.step() && s.onEnded != nil {
		s.onEnded()
	}
}

// step samples once and reschedules. It reports true when the session's
// tracks are no longer live; the loop then stops on its own.
func (s *sampler) step() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timer = nil
	if !s.enabled.Load() {
		return false
	}
	if !s.session.Live() {
		return true
	}

	s.analyser.ByteFrequencyData(s.bins)
	s.publish(Normalize(s.bins))

	s.timer = s.sched.AfterFunc(s.interval, s.tick)
	return false
}

// cancel stops the pending tick. Once it returns no tick of this sampler
// touches the analyser again, provided the enabled cell is already false.
func (s *sampler) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
