// Package video manages the camera: it adopts a negotiated session and binds
// it to a preview sink. Video failures never affect the microphone.
package video

import (
	"context"
	"sync"
	"time"

	"github.com/petems/interview-preflight/internal/media"
	"github.com/rs/zerolog"
)

// DefaultWatchInterval is how often a live session's tracks are checked.
const DefaultWatchInterval = 500 * time.Millisecond

// Acquirer produces a validated camera session.
type Acquirer interface {
	AcquireVideo(ctx context.Context, preferredDeviceID string) (*media.Session, error)
}

// PreviewSink displays the camera tracks.
type PreviewSink interface {
	Attach(tracks []media.Track) error
	Detach()
}

// Config selects the camera and how often liveness is checked.
type Config struct {
	DeviceID      string
	WatchInterval time.Duration
}

// Manager is the single owner of the camera session.
type Manager struct {
	acquirer Acquirer
	sink     PreviewSink
	sched    media.Scheduler
	cfg      Config
	log      zerolog.Logger

	mu       sync.Mutex
	state    media.State
	err      *media.CaptureError
	epoch    media.Epoch
	session  *media.Session
	watch    media.Timer
	onChange func(media.State)
}

// New creates a manager. A nil sink discards the preview, a nil scheduler
// uses the wall clock.
func New(acquirer Acquirer, sink PreviewSink, sched media.Scheduler, cfg Config, log zerolog.Logger) *Manager {
	if sink == nil {
		sink = nopSink{}
	}
	if sched == nil {
		sched = media.WallClock{}
	}
	if cfg.WatchInterval <= 0 {
		cfg.WatchInterval = DefaultWatchInterval
	}
	return &Manager{
		acquirer: acquirer,
		sink:     sink,
		sched:    sched,
		cfg:      cfg,
		log:      log.With().Str("component", "video").Logger(),
	}
}

// Notify registers fn for transitions the manager makes on its own.
func (m *Manager) Notify(fn func(media.State)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// SetDevice changes the camera preferred by the next Enable.
func (m *Manager) SetDevice(id string) {
	m.mu.Lock()
	m.cfg.DeviceID = id
	m.mu.Unlock()
}

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

// Message returns the human-readable text for the last failure, or "".
func (m *Manager) Message() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err == nil {
		return ""
	}
	return m.err.Message()
}

// Enable negotiates a camera and binds it to the preview sink.
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
	deviceID := m.cfg.DeviceID
	m.mu.Unlock()

	session, err := m.acquirer.AcquireVideo(ctx, deviceID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.epoch.Current(token) {
		session.Release()
		m.log.Info().Msg("Discarded camera session from a cancelled attempt")
		return media.ErrSuperseded
	}
	if err != nil {
		return m.failLocked(media.NewError("enable video", err))
	}

	if err := m.sink.Attach(session.Tracks()); err != nil {
		session.Release()
		return m.failLocked(&media.CaptureError{Kind: media.Unknown, Op: "attach preview", Err: err})
	}

	m.session = session
	m.state = media.StateLive
	m.scheduleWatchLocked(session)

	m.log.Info().Str("session", session.ID.String()).Int("tracks", len(session.Tracks())).Msg("Camera live")
	return nil
}

// Disable stops the camera and detaches the preview. Idempotent.
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
		m.state = media.StateReleased
		return
	}

	m.releaseLocked()
	m.state = media.StateReleased
	m.log.Info().Msg("Camera released")
}

func (m *Manager) releaseLocked() {
	if m.watch != nil {
		m.watch.Stop()
		m.watch = nil
	}
	m.session.Release()
	m.sink.Detach()
	m.session = nil
}

func (m *Manager) scheduleWatchLocked(session *media.Session) {
	m.watch = m.sched.AfterFunc(m.cfg.WatchInterval, func() { m.check(session) })
}

// check moves a live session whose tracks ended to Error.
func (m *Manager) check(session *media.Session) {
	m.mu.Lock()
	if m.session != session || m.state != media.StateLive {
		m.mu.Unlock()
		return
	}
	if session.Live() {
		m.scheduleWatchLocked(session)
		m.mu.Unlock()
		return
	}

	m.watch = nil
	m.releaseLocked()
	m.failLocked(&media.CaptureError{Kind: media.DeviceNotFound, Op: "monitor video", Err: errTrackEnded})
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(media.StateError)
	}
}

func (m *Manager) failLocked(err *media.CaptureError) error {
	m.state = media.StateError
	m.err = err
	m.log.Warn().Err(err).Stringer("kind", err.Kind).Msg("Camera unavailable, continuing audio-only")
	return err
}
