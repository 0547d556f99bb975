// Package session hands a ready preflight over to the interview room.
package session

import (
	"context"
	"fmt"
	"net/url"

	"github.com/petems/interview-preflight/internal/app"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
)

// Launcher opens the interview room in the system browser.
type Launcher struct {
	url  string
	open func(string) error
	log  zerolog.Logger
}

func NewLauncher(roomURL string, log zerolog.Logger) *Launcher {
	return &Launcher{
		url:  roomURL,
		open: browser.OpenURL,
		log:  log.With().Str("component", "session").Logger(),
	}
}

// Begin opens the room with a media query describing which devices are live.
func (l *Launcher) Begin(ctx context.Context, r app.Readiness) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := RoomURL(l.url, r)
	if err != nil {
		return err
	}

	l.log.Info().Str("url", target).Msg("Opening interview room")
	if err := l.open(target); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// RoomURL adds media=audio or media=audio,video to base.
func RoomURL(base string, r app.Readiness) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid interview url %q: %w", base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid interview url %q: scheme and host are required", base)
	}

	media := "audio"
	if r.VideoReady {
		media = "audio,video"
	}
	q := u.Query()
	q.Set("media", media)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
