package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 48000, cfg.Audio.SampleRate)
	assert.Equal(t, 50*time.Millisecond, cfg.Audio.SampleInterval)
	assert.Equal(t, "audio", cfg.Gate.Rule)
	require.Len(t, cfg.Video.Ladder, 3)
	assert.Equal(t, "basic", cfg.Video.Ladder[0].Name)
	assert.False(t, cfg.Video.Ladder[0].PinDevice)
	assert.True(t, cfg.Video.Ladder[2].PinDevice)
	assert.Equal(t, 1280, cfg.Video.Ladder[2].Width)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
audio:
  device_id: "USB Mic"
  sample_interval: 100ms
video:
  ladder:
    - name: only
      width: 320
      height: 240
gate:
  rule: audio+video
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "USB Mic", cfg.Audio.DeviceID)
	assert.Equal(t, 100*time.Millisecond, cfg.Audio.SampleInterval)
	assert.Equal(t, 48000, cfg.Audio.SampleRate)
	require.Len(t, cfg.Video.Ladder, 1)
	assert.Equal(t, 320, cfg.Video.Ladder[0].Width)
	assert.Equal(t, "audio+video", cfg.Gate.Rule)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PREFLIGHT_GATE_RULE", "audio+requested-video")
	t.Setenv("PREFLIGHT_LOG_LEVEL", "debug")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "audio+requested-video", cfg.Gate.Rule)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestSavePersistsDeviceSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	cfg.Audio.DeviceID = "Headset"
	cfg.Video.DeviceID = "cam-1"
	require.NoError(t, cfg.Save())

	reloaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "Headset", reloaded.Audio.DeviceID)
	assert.Equal(t, "cam-1", reloaded.Video.DeviceID)
	assert.Equal(t, cfg.Audio.SampleInterval, reloaded.Audio.SampleInterval)
	assert.Len(t, reloaded.Video.Ladder, 3)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Audio: AudioConfig{SampleRate: 48000, SampleInterval: time.Millisecond, FFTSize: 256}}
	}

	assert.NoError(t, valid().Validate())

	c := valid()
	c.Audio.SampleRate = 0
	assert.Error(t, c.Validate())

	c = valid()
	c.Audio.FFTSize = 300
	assert.Error(t, c.Validate())

	c = valid()
	c.Audio.SampleInterval = 0
	assert.Error(t, c.Validate())

	c = valid()
	c.Video.Ladder = []ProfileConfig{{Name: "bad", Width: -1}}
	assert.Error(t, c.Validate())
}
