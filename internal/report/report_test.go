package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/petems/interview-preflight/internal/app"
	"github.com/petems/interview-preflight/internal/media"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	readiness app.Readiness
	lastErr   string
	devices   map[media.DeviceKind][]media.Device
	enumErr   error
}

func (f *fakeSource) Readiness() app.Readiness { return f.readiness }
func (f *fakeSource) LastError() string        { return f.lastErr }

func (f *fakeSource) ListDevices(ctx context.Context, kind media.DeviceKind) ([]media.Device, error) {
	if kind == media.KindVideo && f.enumErr != nil {
		return nil, f.enumErr
	}
	return f.devices[kind], nil
}

func TestCopyWritesRenderedSnapshot(t *testing.T) {
	src := &fakeSource{
		readiness: app.Readiness{AudioReady: true, MediaReady: true},
		lastErr:   "Camera: " + media.Message(media.PermissionDenied),
		devices: map[media.DeviceKind][]media.Device{
			media.KindAudio: {{ID: "mic-0", Kind: media.KindAudio, Label: "Built-in Microphone"}},
		},
		enumErr: errors.New("driver missing"),
	}

	r := New(src, app.GateAudio, func() float64 { return 42 }, zerolog.Nop())
	r.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	var written string
	r.write = func(s string) error {
		written = s
		return nil
	}

	text, err := r.Copy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, text, written)

	assert.Contains(t, text, "2026-01-02T03:04:05Z")
	assert.Contains(t, text, "Gate rule: audio\n")
	assert.Contains(t, text, "Microphone ready: yes\n")
	assert.Contains(t, text, "Camera ready: no\n")
	assert.Contains(t, text, "Input level: 42\n")
	assert.Contains(t, text, "Last error: Camera: ")
	assert.Contains(t, text, "[audio] Built-in Microphone (mic-0)")
	assert.Contains(t, text, "error: video: driver missing")
}

func TestCopyReportsClipboardFailure(t *testing.T) {
	r := New(&fakeSource{}, app.GateAudio, nil, zerolog.Nop())
	r.write = func(string) error { return errors.New("no clipboard utility") }

	_, err := r.Copy(context.Background())
	assert.Error(t, err)
}

func TestRenderWithoutDevices(t *testing.T) {
	text := Render(Snapshot{Rule: app.GateAudioAndVideo})
	assert.Contains(t, text, "(none)")
	assert.NotContains(t, text, "Last error")
}
