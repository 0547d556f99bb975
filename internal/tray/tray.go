package tray

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/getlantern/systray"
	"github.com/petems/interview-preflight/internal/app"
	"github.com/petems/interview-preflight/internal/config"
	"github.com/petems/interview-preflight/internal/media"
	"github.com/petems/interview-preflight/internal/report"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
)

const levelRefresh = 200 * time.Millisecond

type UI struct {
	ctrl     *app.Controller
	reporter *report.Reporter
	level    func() float64
	cfg      *config.Config
	version  string
	commit   string
	log      zerolog.Logger

	ctx context.Context

	mu     sync.Mutex
	status string

	// Menu items
	mMic        *systray.MenuItem
	mCamera     *systray.MenuItem
	mMicDevices *systray.MenuItem
	mCamDevices *systray.MenuItem
	mProceed    *systray.MenuItem
	mStatus     *systray.MenuItem
	mReport     *systray.MenuItem
}

// Status update methods for the app to call
func (u *UI) SetIdle() {
	u.updateStatus("idle")
}

func (u *UI) SetAcquiring() {
	u.updateStatus("acquiring")
}

func (u *UI) SetReady() {
	u.updateStatus("ready")
}

func (u *UI) SetError() {
	u.updateStatus("error")
}

// New creates the tray UI. level reports the microphone input level.
func New(ctrl *app.Controller, reporter *report.Reporter, level func() float64, cfg *config.Config, version, commit string, log zerolog.Logger) *UI {
	return &UI{
		ctrl:     ctrl,
		reporter: reporter,
		level:    level,
		cfg:      cfg,
		version:  version,
		commit:   commit,
		log:      log.With().Str("component", "tray").Logger(),
		status:   "idle",
	}
}

// Run blocks until the tray quits. Capture is released on exit.
func (u *UI) Run(ctx context.Context) error {
	u.ctx = ctx
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	u.render()
	systray.SetTooltip("Interview preflight: check your microphone and camera")

	// Build menu
	u.mStatus = systray.AddMenuItem("Microphone off", "")
	u.mStatus.Disable()
	systray.AddSeparator()

	u.mMic = systray.AddMenuItemCheckbox("Microphone", "Turn the microphone on or off", false)
	u.mCamera = systray.AddMenuItemCheckbox("Camera", "Turn the camera on or off", false)
	systray.AddSeparator()

	u.mMicDevices = systray.AddMenuItem("Microphone Device", "Select microphone")
	u.buildDeviceMenu(u.mMicDevices, media.KindAudio, u.cfg.Audio.DeviceID)
	u.mCamDevices = systray.AddMenuItem("Camera Device", "Select camera")
	u.buildDeviceMenu(u.mCamDevices, media.KindVideo, u.cfg.Video.DeviceID)

	systray.AddSeparator()
	u.mProceed = systray.AddMenuItem("Join Interview", "Open the interview room")
	u.mProceed.Disable()
	u.mReport = systray.AddMenuItem("Copy Diagnostics", "Copy a device report to the clipboard")

	systray.AddSeparator()
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About Interview Preflight")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.ctrl.Subscribe(u.onReadiness)
	u.ctrl.SetStatusUpdater(u)

	// Event loop
	go u.handleEvents(mLogs, mAbout, mQuit)
	go u.refreshLevel()
}

func (u *UI) handleEvents(mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mMic.ClickedCh:
			go u.toggle(media.KindAudio)
		case <-u.mCamera.ClickedCh:
			go u.toggle(media.KindVideo)
		case <-u.mProceed.ClickedCh:
			u.proceed()
		case <-u.mReport.ClickedCh:
			u.copyReport()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		case <-u.ctx.Done():
			systray.Quit()
			return
		}
	}
}

func (u *UI) toggle(kind media.DeviceKind) {
	var err error
	if kind == media.KindVideo {
		err = u.ctrl.ToggleVideo(u.ctx)
	} else {
		err = u.ctrl.ToggleAudio(u.ctx)
	}
	if err != nil && !errors.Is(err, media.ErrSuperseded) {
		u.log.Warn().Err(err).Stringer("kind", kind).Msg("Toggle failed")
	}
	u.syncChecks()
}

func (u *UI) syncChecks() {
	setChecked(u.mMic, u.ctrl.AudioRequested())
	setChecked(u.mCamera, u.ctrl.VideoRequested())
}

func setChecked(item *systray.MenuItem, on bool) {
	if on {
		item.Check()
	} else {
		item.Uncheck()
	}
}

func (u *UI) onReadiness(r app.Readiness) {
	if r.MediaReady {
		u.mProceed.Enable()
	} else {
		u.mProceed.Disable()
	}
	u.syncChecks()
	u.render()
}

func (u *UI) proceed() {
	if err := u.ctrl.Proceed(u.ctx); err != nil {
		u.log.Warn().Err(err).Msg("Cannot join interview yet")
		u.mStatus.SetTitle(firstLine(err.Error()))
	}
}

func (u *UI) copyReport() {
	if _, err := u.reporter.Copy(u.ctx); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy diagnostics")
	}
}

func (u *UI) buildDeviceMenu(parent *systray.MenuItem, kind media.DeviceKind, selected string) {
	devices, err := u.ctrl.ListDevices(u.ctx, kind)
	if err != nil {
		u.log.Error().Err(err).Stringer("kind", kind).Msg("Failed to list devices")
		return
	}
	if len(devices) == 0 {
		none := parent.AddSubMenuItem("No devices found", "")
		none.Disable()
		return
	}

	deviceItems := make(map[string]*systray.MenuItem)

	for _, dev := range devices {
		item := parent.AddSubMenuItemCheckbox(dev.Label, dev.ID, dev.ID == selected)
		deviceItems[dev.ID] = item

		go func(deviceID, deviceName string, menuItem *systray.MenuItem) {
			for range menuItem.ClickedCh {
				if err := u.ctrl.SetDevice(kind, deviceID); err != nil {
					u.log.Warn().Err(err).Str("device", deviceName).Msg("Device not changed")
					continue
				}
				// Uncheck all other items
				for id, itm := range deviceItems {
					if id != deviceID {
						itm.Uncheck()
					}
				}
				menuItem.Check()
				u.log.Info().Str("device", deviceName).Stringer("kind", kind).Msg("Changed device")
			}
		}(dev.ID, dev.Label, item)
	}
}

// refreshLevel redraws the title so the meter follows the microphone.
func (u *UI) refreshLevel() {
	ticker := time.NewTicker(levelRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-u.ctx.Done():
			return
		case <-ticker.C:
			u.render()
		}
	}
}

func (u *UI) openLogs() {
	if err := browser.OpenFile(config.LogPath()); err != nil {
		u.log.Error().Err(err).Msg("Failed to open logs")
	}
}

func (u *UI) showAbout() {
	fmt.Printf("Interview Preflight %s (%s)\nMicrophone and camera check before your interview\n", u.version, u.commit)
}

func (u *UI) onExit() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := u.ctrl.Shutdown(ctx); err != nil {
		u.log.Error().Err(err).Msg("Shutdown failed")
	}
}

func (u *UI) updateStatus(status string) {
	u.mu.Lock()
	u.status = status
	u.mu.Unlock()
	u.render()
}

// render sets the tray title and status line from the current state
func (u *UI) render() {
	u.mu.Lock()
	status := u.status
	u.mu.Unlock()

	r := u.ctrl.Readiness()
	level := 0.0
	if r.AudioReady && u.level != nil {
		level = u.level()
	}
	systray.SetTitle(title(status, r.AudioReady, level))

	if u.mStatus != nil {
		u.mStatus.SetTitle(statusLine(status, u.ctrl.LastError()))
	}
}

func title(status string, audioLive bool, level float64) string {
	t := fmt.Sprintf("🎤 %s", emojiForStatus(status))
	if audioLive {
		t += " " + levelMeter(level)
	}
	return t
}

func statusLine(status, lastErr string) string {
	switch status {
	case "ready":
		return "Ready to join"
	case "acquiring":
		return "Starting devices..."
	case "error":
		if lastErr != "" {
			return firstLine(lastErr)
		}
		return "Device error"
	default:
		return "Microphone off"
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// levelMeter renders level in [0,100] as a five-cell bar.
func levelMeter(level float64) string {
	const cells = 5
	n := int(level/100*cells + 0.5)
	if n < 0 {
		n = 0
	}
	if n > cells {
		n = cells
	}
	return strings.Repeat("▮", n) + strings.Repeat("▯", cells-n)
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "ready":
		return "🟢" // Green - media ready
	case "acquiring":
		return "🟡" // Yellow - waiting on devices or permission
	case "error":
		return "🔴" // Red - device error
	case "idle":
		return "⚪️" // White - nothing enabled
	default:
		return "⚪️"
	}
}
