package tray

import (
	"testing"
)

func TestEmojiForStatus(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"ready", "🟢"},
		{"acquiring", "🟡"},
		{"error", "🔴"},
		{"idle", "⚪️"},
		{"unknown", "⚪️"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := emojiForStatus(tt.status); got != tt.want {
				t.Errorf("emojiForStatus(%q) = %s, want %s", tt.status, got, tt.want)
			}
		})
	}
}

func TestLevelMeter(t *testing.T) {
	tests := []struct {
		level float64
		want  string
	}{
		{0, "▯▯▯▯▯"},
		{9, "▯▯▯▯▯"},
		{50, "▮▮▮▯▯"},
		{100, "▮▮▮▮▮"},
		{140, "▮▮▮▮▮"},
		{-5, "▯▯▯▯▯"},
	}

	for _, tt := range tests {
		if got := levelMeter(tt.level); got != tt.want {
			t.Errorf("levelMeter(%v) = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestTitleShowsMeterOnlyWhileLive(t *testing.T) {
	if got := title("idle", false, 80); got != "🎤 ⚪️" {
		t.Errorf("unexpected idle title %q", got)
	}
	if got := title("ready", true, 100); got != "🎤 🟢 ▮▮▮▮▮" {
		t.Errorf("unexpected live title %q", got)
	}
}

func TestStatusLine(t *testing.T) {
	if got := statusLine("error", "Microphone: access denied\ndetails"); got != "Microphone: access denied" {
		t.Errorf("unexpected error line %q", got)
	}
	if got := statusLine("error", ""); got != "Device error" {
		t.Errorf("unexpected error line %q", got)
	}
	if got := statusLine("ready", ""); got != "Ready to join" {
		t.Errorf("unexpected ready line %q", got)
	}
}
