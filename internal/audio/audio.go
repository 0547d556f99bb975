// Package audio manages the microphone: it acquires one stream, builds one
// analysis graph on it and publishes a normalized input level.
package audio

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petems/interview-preflight/internal/media"
	"github.com/rs/zerolog"
)

const (
	DefaultSampleRate = 48000
	DefaultInterval   = 50 * time.Millisecond
)

var errTrackEnded = errors.New("microphone track ended")

// Config selects the microphone and the sampling cadence.
type Config struct {
	DeviceID   string
	SampleRate int
	Interval   time.Duration
}

// Constraints returns the fixed acquisition profile for the microphone.
func (c Config) Constraints() media.Constraints {
	return media.Constraints{Audio: &media.AudioConstraints{
		DeviceID:         c.DeviceID,
		SampleRate:       c.SampleRate,
		ChannelCount:     1,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}}
}

// graph holds every native resource of one enabled cycle.
type graph struct {
	session  *media.Session
	actx     media.AudioContext
	source   media.Node
	analyser media.Analyser
	enabled  *atomic.Bool
	loop     *sampler
}

// Manager is the single owner of the microphone session.
type Manager struct {
	platform media.Platform
	sched    media.Scheduler
	cfg      Config
	log      zerolog.Logger

	mu       sync.Mutex
	state    media.State
	err      *media.CaptureError
	epoch    media.Epoch
	graph    *graph
	onChange func(media.State)

	level atomic.Uint64
}

// New creates a manager. A nil scheduler uses the wall clock.
func New(platform media.Platform, sched media.Scheduler, cfg Config, log zerolog.Logger) *Manager {
	if sched == nil {
		sched = media.WallClock{}
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Manager{
		platform: platform,
		sched:    sched,
		cfg:      cfg,
		log:      log.With().Str("component", "audio").Logger(),
	}
}

// Notify registers fn for transitions the manager makes on its own, such as
// the microphone disappearing while live.
func (m *Manager) Notify(fn func(media.State)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// SetDevice changes the microphone used by the next Enable.
func (m *Manager) SetDevice(id string) {
	m.mu.Lock()
	m.cfg.DeviceID = id
	m.mu.Unlock()
}

// State returns the current lifecycle state.
func (m *Manager) State() media.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the classified error of the last failed Enable, if any.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err == nil {
		return nil
	}
	return m.err
}

// Level returns the latest published level in [0,100].
func (m *Manager) Level() float64 {
	return math.Float64frombits(m.level.Load())
}

// Enable acquires the microphone and starts sampling. It is a no-op while
// live and returns media.ErrInFlight while a previous Enable is acquiring.
func (m *Manager) Enable(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case media.StateLive:
		m.mu.Unlock()
		return nil
	case media.StateAcquiring:
		m.mu.Unlock()
		return media.ErrInFlight
	}
	token := m.epoch.Begin()
	m.state = media.StateAcquiring
	m.err = nil
	cfg := m.cfg
	m.mu.Unlock()

	m.log.Debug().Str("device", cfg.DeviceID).Int("sample_rate", cfg.SampleRate).Msg("Requesting microphone")

	stream, err := m.platform.RequestCapture(ctx, cfg.Constraints())

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.epoch.Current(token) {
		media.StopAll(stream)
		m.log.Info().Msg("Discarded microphone stream from a cancelled attempt")
		return media.ErrSuperseded
	}
	if err != nil {
		media.StopAll(stream)
		return m.failLocked(media.NewError("request audio", err))
	}
	if !media.AllLive(stream) {
		media.StopAll(stream)
		return m.failLocked(&media.CaptureError{
			Kind: media.ConstraintsNotSatisfiable,
			Op:   "request audio",
			Err:  errors.New("stream has no live tracks"),
		})
	}

	g, err := m.build(media.NewSession(media.KindAudio, stream), cfg)
	if err != nil {
		m.release(g)
		return m.failLocked(media.NewError("build audio graph", err))
	}

	m.graph = g
	m.state = media.StateLive
	g.loop.start()

	m.log.Info().Str("session", g.session.ID.String()).Msg("Microphone live")
	return nil
}

// build wires source -> analyser on a fresh context. On error the partially
// built graph is returned so the caller can release it.
func (m *Manager) build(session *media.Session, cfg Config) (*graph, error) {
	g := &graph{session: session}

	actx, err := m.platform.NewAudioContext(cfg.SampleRate)
	if err != nil {
		return g, err
	}
	g.actx = actx

	source, err := actx.CreateSource(session.Stream)
	if err != nil {
		return g, err
	}
	g.source = source

	analyser, err := actx.CreateAnalyser()
	if err != nil {
		return g, err
	}
	g.analyser = analyser

	if err := source.Connect(analyser); err != nil {
		return g, err
	}

	g.enabled = new(atomic.Bool)
	g.enabled.Store(true)

	loop := newSampler(g.enabled, analyser, session, m.sched, cfg.Interval)
	loop.publish = m.publish
	cell := g.enabled
	loop.onEnded = func() { m.trackEnded(cell) }
	g.loop = loop

	return g, nil
}

func (m *Manager) publish(level float64) {
	m.level.Store(math.Float64bits(level))
}

// Disable releases everything the manager holds. It is idempotent and
// issues no platform calls when nothing is held. Only the audio context
// close may complete after Disable returns.
func (m *Manager) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch.Invalidate()

	switch m.state {
	case media.StateIdle, media.StateReleased:
		return
	case media.StateError:
		m.state = media.StateIdle
		m.err = nil
		return
	case media.StateAcquiring:
		// The in-flight Enable stops its stream when it returns.
		m.state = media.StateReleased
		return
	}

	m.release(m.graph)
	m.graph = nil
	m.state = media.StateReleased
	m.log.Info().Msg("Microphone released")
}

// release tears g down in order: stop the loop, disconnect nodes, close
// the context, stop tracks, reset the level. Nil fields are skipped.
func (m *Manager) release(g *graph) {
	if g == nil {
		return
	}
	if g.enabled != nil {
		g.enabled.Store(false)
	}
	if g.loop != nil {
		g.loop.cancel()
	}
	if g.source != nil {
		g.source.Disconnect()
	}
	if g.analyser != nil {
		g.analyser.Disconnect()
	}
	if g.actx != nil {
		go m.awaitClose(g.actx.Close())
	}
	g.session.Release()
	m.publish(0)
}

func (m *Manager) awaitClose(done <-chan error) {
	if err := <-done; err != nil {
		m.log.Warn().Err(err).Msg("Audio context close failed")
	}
}

// trackEnded runs when the loop of the cycle owning cell finds a dead track.
func (m *Manager) trackEnded(cell *atomic.Bool) {
	m.mu.Lock()
	if m.graph == nil || m.graph.enabled != cell {
		m.mu.Unlock()
		return
	}
	m.release(m.graph)
	m.graph = nil
	m.failLocked(&media.CaptureError{Kind: media.DeviceNotFound, Op: "monitor audio", Err: errTrackEnded})
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(media.StateError)
	}
}

func (m *Manager) failLocked(err *media.CaptureError) error {
	m.state = media.StateError
	m.err = err
	m.log.Error().Err(err).Stringer("kind", err.Kind).Msg("Microphone unavailable")
	return err
}
