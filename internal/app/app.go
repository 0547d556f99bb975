package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/petems/interview-preflight/internal/config"
	"github.com/petems/interview-preflight/internal/devices"
	"github.com/petems/interview-preflight/internal/media"
	"github.com/rs/zerolog"
)

var (
	// ErrNotReady is returned by Proceed when the readiness gate is closed.
	ErrNotReady = errors.New("media not ready")
	// ErrShutdown is returned after Shutdown.
	ErrShutdown = errors.New("controller shut down")
)

// Manager is a capture manager for one device kind.
type Manager interface {
	Enable(ctx context.Context) error
	Disable()
	State() media.State
	Err() error
	Notify(fn func(media.State))
	SetDevice(id string)
}

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetIdle()
	SetAcquiring()
	SetReady()
	SetError()
}

// Session is the interview session that starts once media is ready.
type Session interface {
	Begin(ctx context.Context, r Readiness) error
}

// Readiness is the externally observed gate state.
type Readiness struct {
	AudioReady bool
	VideoReady bool
	MediaReady bool
}

type Config struct {
	Audio         Manager
	Video         Manager
	Devices       *devices.Enumerator // Optional - needed for ListDevices
	Session       Session             // Optional - Proceed only validates when nil
	Rule          GateRule
	Settings      *config.Config // Optional - persists device selection
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
}

// slot tracks the attempts issued to one manager.
type slot struct {
	kind      media.DeviceKind
	mgr       Manager
	epoch     media.Epoch
	cancel    context.CancelFunc
	inFlight  bool
	requested bool
	lastErr   *media.CaptureError
}

// Controller owns both capture managers and the readiness gate.
type Controller struct {
	devices  *devices.Enumerator
	session  Session
	rule     GateRule
	settings *config.Config
	log      zerolog.Logger
	status   StatusUpdater

	mu        sync.Mutex
	notifyMu  sync.Mutex
	saveMu    sync.Mutex
	audio     slot
	video     slot
	lastErr   string
	readiness Readiness
	observers []func(Readiness)
	shutdown  bool

	shutdownOnce sync.Once
}

func New(cfg Config) *Controller {
	rule := cfg.Rule
	if rule == "" {
		rule = GateAudio
	}
	c := &Controller{
		devices:  cfg.Devices,
		session:  cfg.Session,
		rule:     rule,
		settings: cfg.Settings,
		log:      cfg.Logger.With().Str("component", "controller").Logger(),
		status:   cfg.StatusUpdater,
		audio:    slot{kind: media.KindAudio, mgr: cfg.Audio},
		video:    slot{kind: media.KindVideo, mgr: cfg.Video},
	}
	cfg.Audio.Notify(func(media.State) { c.managerChanged(&c.audio) })
	cfg.Video.Notify(func(media.State) { c.managerChanged(&c.video) })
	return c
}

// SetStatusUpdater attaches the status surface after construction.
func (c *Controller) SetStatusUpdater(s StatusUpdater) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
	c.refresh()
}

// Subscribe registers fn to be called with every readiness change.
func (c *Controller) Subscribe(fn func(Readiness)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Controller) EnableAudio(ctx context.Context) error { return c.enable(ctx, &c.audio) }
func (c *Controller) EnableVideo(ctx context.Context) error { return c.enable(ctx, &c.video) }
func (c *Controller) DisableAudio()                         { c.disable(&c.audio) }
func (c *Controller) DisableVideo()                         { c.disable(&c.video) }

// ToggleAudio enables the microphone if it is off and disables it otherwise.
func (c *Controller) ToggleAudio(ctx context.Context) error { return c.toggle(ctx, &c.audio) }

// ToggleVideo enables the camera if it is off and disables it otherwise.
func (c *Controller) ToggleVideo(ctx context.Context) error { return c.toggle(ctx, &c.video) }

// AudioRequested reports whether the microphone toggle is on.
func (c *Controller) AudioRequested() bool { return c.requested(&c.audio) }

// VideoRequested reports whether the camera toggle is on.
func (c *Controller) VideoRequested() bool { return c.requested(&c.video) }

func (c *Controller) requested(s *slot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.requested
}

func (c *Controller) toggle(ctx context.Context, s *slot) error {
	if c.requested(s) {
		c.disable(s)
		return nil
	}
	return c.enable(ctx, s)
}

func (c *Controller) enable(ctx context.Context, s *slot) error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return ErrShutdown
	}
	if s.inFlight {
		c.mu.Unlock()
		return media.ErrInFlight
	}
	token := s.epoch.Begin()
	attemptCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.inFlight = true
	s.requested = true
	c.mu.Unlock()

	c.log.Info().Stringer("kind", s.kind).Msg("Enabling")
	c.refresh()

	err := s.mgr.Enable(attemptCtx)
	cancel()

	c.mu.Lock()
	if !s.epoch.Current(token) {
		// A disable that ran before the manager started found nothing to
		// release, so the manager may have gone live for this attempt.
		orphaned := err == nil && (c.shutdown || (!s.inFlight && !s.requested))
		var hold uint64
		if orphaned {
			hold = s.epoch.Begin()
			s.inFlight = true
		}
		c.mu.Unlock()
		c.log.Info().Stringer("kind", s.kind).Msg("Dropped result of a cancelled enable")
		if orphaned {
			c.release(s, hold)
		}
		if err == nil || errors.Is(err, media.ErrSuperseded) {
			return media.ErrSuperseded
		}
		return fmt.Errorf("%w: %v", media.ErrSuperseded, err)
	}
	s.inFlight = false
	s.cancel = nil

	if err != nil {
		ce := media.NewError("enable "+s.kind.String(), err)
		s.lastErr = ce
		c.lastErr = describe(s.kind, ce)
		s.requested = false
	} else {
		s.lastErr = nil
		c.clearErrorLocked()
	}
	c.mu.Unlock()

	c.refresh()
	return err
}

func (c *Controller) disable(s *slot) {
	c.mu.Lock()
	s.epoch.Invalidate()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.inFlight = false
	s.requested = false
	s.lastErr = nil
	c.clearErrorLocked()
	c.mu.Unlock()

	c.log.Info().Stringer("kind", s.kind).Msg("Disabling")
	s.mgr.Disable()
	c.refresh()
}

// release disables a manager that went live for an attempt nobody wants.
// The slot is held in flight meanwhile so a new enable cannot be torn down.
func (c *Controller) release(s *slot, hold uint64) {
	c.log.Info().Stringer("kind", s.kind).Msg("Releasing capture from a cancelled enable")
	s.mgr.Disable()

	c.mu.Lock()
	if s.epoch.Current(hold) {
		s.inFlight = false
	}
	c.mu.Unlock()
	c.refresh()
}

// managerChanged handles transitions a manager made on its own.
func (c *Controller) managerChanged(s *slot) {
	err := s.mgr.Err()
	if err != nil {
		ce := media.NewError("monitor "+s.kind.String(), err)
		c.mu.Lock()
		s.lastErr = ce
		s.requested = false
		c.lastErr = describe(s.kind, ce)
		c.mu.Unlock()
		c.log.Warn().Err(err).Stringer("kind", s.kind).Msg("Capture lost")
	}
	c.refresh()
}

func (c *Controller) clearErrorLocked() {
	switch {
	case c.audio.lastErr != nil:
		c.lastErr = describe(media.KindAudio, c.audio.lastErr)
	case c.video.lastErr != nil:
		c.lastErr = describe(media.KindVideo, c.video.lastErr)
	default:
		c.lastErr = ""
	}
}

func describe(kind media.DeviceKind, err *media.CaptureError) string {
	name := "Microphone"
	if kind == media.KindVideo {
		name = "Camera"
	}
	return fmt.Sprintf("%s: %s", name, err.Message())
}

// Readiness returns the current gate state.
func (c *Controller) Readiness() Readiness {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.computeLocked()
}

func (c *Controller) computeLocked() Readiness {
	audioReady := c.audio.mgr.State() == media.StateLive
	videoReady := c.video.mgr.State() == media.StateLive
	return Readiness{
		AudioReady: audioReady,
		VideoReady: videoReady,
		MediaReady: c.rule.Evaluate(audioReady, videoReady, c.video.requested),
	}
}

// LastError returns the latest classified failure for display, or "".
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// refresh recomputes readiness, notifies observers of a change and updates
// the status surface. Observers see changes in the order they were computed.
func (c *Controller) refresh() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	r := c.computeLocked()
	changed := r != c.readiness
	c.readiness = r
	observers := append([]func(Readiness){}, c.observers...)
	status := c.status
	acquiring := c.audio.inFlight || c.video.inFlight
	failed := c.lastErr != ""
	c.mu.Unlock()

	if changed {
		c.log.Debug().
			Bool("audio_ready", r.AudioReady).
			Bool("video_ready", r.VideoReady).
			Bool("media_ready", r.MediaReady).
			Msg("Readiness changed")
		for _, fn := range observers {
			fn(r)
		}
	}

	if status == nil {
		return
	}
	switch {
	case acquiring:
		status.SetAcquiring()
	case r.MediaReady:
		status.SetReady()
	case failed:
		status.SetError()
	default:
		status.SetIdle()
	}
}

// Proceed hands off to the interview session. It is rejected unless the
// gate is open and neither manager is acquiring.
func (c *Controller) Proceed(ctx context.Context) error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return ErrShutdown
	}
	r := c.computeLocked()
	audioState, videoState := c.audio.mgr.State(), c.video.mgr.State()
	c.mu.Unlock()

	if audioState == media.StateAcquiring || videoState == media.StateAcquiring {
		return fmt.Errorf("%w: capture is still starting", ErrNotReady)
	}
	if !r.MediaReady {
		return fmt.Errorf("%w: %s", ErrNotReady, c.rule.Describe())
	}

	c.log.Info().Bool("video", r.VideoReady).Msg("Proceeding to interview")
	if c.session == nil {
		return nil
	}
	if err := c.session.Begin(ctx, r); err != nil {
		return fmt.Errorf("failed to start interview session: %w", err)
	}
	return nil
}

// Shutdown disables both managers exactly once. Later calls are no-ops.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		c.shutdown = true
		for _, s := range []*slot{&c.audio, &c.video} {
			s.epoch.Invalidate()
			if s.cancel != nil {
				s.cancel()
				s.cancel = nil
			}
			s.inFlight = false
			s.requested = false
		}
		c.mu.Unlock()

		c.log.Info().Msg("Releasing capture devices")
		c.audio.mgr.Disable()
		c.video.mgr.Disable()
		c.refresh()
	})
	return nil
}

// ListDevices returns the devices of one kind.
func (c *Controller) ListDevices(ctx context.Context, kind media.DeviceKind) ([]media.Device, error) {
	if c.devices == nil {
		return nil, errors.New("no device enumerator configured")
	}
	return c.devices.List(ctx, kind)
}

// SetDevice selects the device used by the next enable of kind and
// persists the choice.
func (c *Controller) SetDevice(kind media.DeviceKind, id string) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	s := &c.audio
	if kind == media.KindVideo {
		s = &c.video
	}
	if s.inFlight || s.mgr.State() == media.StateLive {
		c.mu.Unlock()
		return fmt.Errorf("cannot change %s device while capturing", kind)
	}
	s.mgr.SetDevice(id)

	if c.settings == nil {
		c.mu.Unlock()
		return nil
	}
	if kind == media.KindVideo {
		c.settings.Video.DeviceID = id
	} else {
		c.settings.Audio.DeviceID = id
	}
	settings := *c.settings
	c.mu.Unlock()

	return settings.Save()
}

// OnHotkey toggles the microphone on key press.
func (c *Controller) OnHotkey(pressed bool) {
	if !pressed {
		return
	}
	go func() {
		if err := c.ToggleAudio(context.Background()); err != nil {
			c.log.Error().Err(err).Msg("Microphone toggle failed")
		}
	}()
}
