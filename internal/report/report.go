// Package report renders a plain-text diagnostics summary of the preflight
// and copies it to the clipboard for support requests.
package report

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/petems/interview-preflight/internal/app"
	"github.com/petems/interview-preflight/internal/media"
	"github.com/rs/zerolog"
)

// Source is the controller state a report reads.
type Source interface {
	Readiness() app.Readiness
	LastError() string
	ListDevices(ctx context.Context, kind media.DeviceKind) ([]media.Device, error)
}

// Snapshot is everything a report shows.
type Snapshot struct {
	Taken      time.Time
	Readiness  app.Readiness
	Level      float64
	LastError  string
	Rule       app.GateRule
	Devices    []media.Device
	EnumErrors []string
}

// Reporter collects snapshots and copies them to the clipboard.
type Reporter struct {
	src   Source
	rule  app.GateRule
	level func() float64
	write func(string) error
	now   func() time.Time
	log   zerolog.Logger
}

// New creates a reporter. level may be nil.
func New(src Source, rule app.GateRule, level func() float64, log zerolog.Logger) *Reporter {
	if level == nil {
		level = func() float64 { return 0 }
	}
	return &Reporter{
		src:   src,
		rule:  rule,
		level: level,
		write: clipboard.WriteAll,
		now:   time.Now,
		log:   log.With().Str("component", "report").Logger(),
	}
}

// Collect gathers a snapshot. Enumeration failures are recorded, not returned.
func (r *Reporter) Collect(ctx context.Context) Snapshot {
	s := Snapshot{
		Taken:     r.now(),
		Readiness: r.src.Readiness(),
		Level:     r.level(),
		LastError: r.src.LastError(),
		Rule:      r.rule,
	}
	for _, kind := range []media.DeviceKind{media.KindAudio, media.KindVideo} {
		devices, err := r.src.ListDevices(ctx, kind)
		if err != nil {
			s.EnumErrors = append(s.EnumErrors, fmt.Sprintf("%s: %v", kind, err))
			continue
		}
		s.Devices = append(s.Devices, devices...)
	}
	return s
}

// Render formats s as plain text.
func Render(s Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Interview preflight diagnostics (%s)\n", s.Taken.Format(time.RFC3339))
	fmt.Fprintf(&b, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&b, "Gate rule: %s\n", s.Rule)
	fmt.Fprintf(&b, "Microphone ready: %s\n", yesNo(s.Readiness.AudioReady))
	fmt.Fprintf(&b, "Camera ready: %s\n", yesNo(s.Readiness.VideoReady))
	fmt.Fprintf(&b, "Media ready: %s\n", yesNo(s.Readiness.MediaReady))
	fmt.Fprintf(&b, "Input level: %.0f\n", s.Level)
	if s.LastError != "" {
		fmt.Fprintf(&b, "Last error: %s\n", s.LastError)
	}

	b.WriteString("Devices:\n")
	if len(s.Devices) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, d := range s.Devices {
		fmt.Fprintf(&b, "  [%s] %s (%s)\n", d.Kind, d.Label, d.ID)
	}
	for _, e := range s.EnumErrors {
		fmt.Fprintf(&b, "  error: %s\n", e)
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// Copy renders a fresh snapshot to the clipboard and returns the text.
func (r *Reporter) Copy(ctx context.Context) (string, error) {
	text := Render(r.Collect(ctx))
	if err := r.write(text); err != nil {
		return "", fmt.Errorf("failed to write clipboard: %w", err)
	}
	r.log.Info().Int("bytes", len(text)).Msg("Diagnostics copied to clipboard")
	return text, nil
}
