package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const appName = "interview-preflight"

type Config struct {
	LogLevel     string          `mapstructure:"log_level"`
	Hotkey       string          `mapstructure:"hotkey"`
	HotkeyDarwin string          `mapstructure:"hotkey_darwin"`
	Audio        AudioConfig     `mapstructure:"audio"`
	Video        VideoConfig     `mapstructure:"video"`
	Gate         GateConfig      `mapstructure:"gate"`
	Interview    InterviewConfig `mapstructure:"interview"`

	path string
}

type AudioConfig struct {
	DeviceID       string        `mapstructure:"device_id"`
	SampleRate     int           `mapstructure:"sample_rate"`
	SampleInterval time.Duration `mapstructure:"sample_interval"`
	FFTSize        int           `mapstructure:"fft_size"`
}

type VideoConfig struct {
	DeviceID string          `mapstructure:"device_id"`
	Ladder   []ProfileConfig `mapstructure:"ladder"`
}

// ProfileConfig is one rung of the camera constraint ladder.
type ProfileConfig struct {
	Name      string `mapstructure:"name"`
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
	FrameRate int    `mapstructure:"frame_rate"`
	PinDevice bool   `mapstructure:"pin_device"`
}

type GateConfig struct {
	Rule string `mapstructure:"rule"` // "audio", "audio+video" or "audio+requested-video"
}

type InterviewConfig struct {
	URL string `mapstructure:"url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("hotkey", "Alt+M")
	v.SetDefault("hotkey_darwin", "Ctrl+M")

	v.SetDefault("audio.device_id", "")
	v.SetDefault("audio.sample_rate", 48000)
	v.SetDefault("audio.sample_interval", 50*time.Millisecond)
	v.SetDefault("audio.fft_size", 256)

	v.SetDefault("video.device_id", "")
	v.SetDefault("video.ladder", []map[string]any{
		{"name": "basic", "width": 640, "height": 480},
		{"name": "pinned", "width": 640, "height": 480, "pin_device": true},
		{"name": "hd", "width": 1280, "height": 720, "frame_rate": 30, "pin_device": true},
	})

	v.SetDefault("gate.rule", "audio")
	v.SetDefault("interview.url", "http://localhost:3000/interview")
}

// Load reads the config from the default location, the environment
// (PREFLIGHT_ prefix) and defaults.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the config file at path. A missing file yields defaults.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PREFLIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	ext := filepath.Ext(path)
	v.AddConfigPath(filepath.Dir(path))
	v.SetConfigName(strings.TrimSuffix(filepath.Base(path), ext))
	v.SetConfigType(strings.TrimPrefix(ext, "."))
	if ext == "" {
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise fail deep inside capture.
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.SampleInterval <= 0 {
		return fmt.Errorf("audio.sample_interval must be positive, got %v", c.Audio.SampleInterval)
	}
	if n := c.Audio.FFTSize; n < 32 || n&(n-1) != 0 {
		return fmt.Errorf("audio.fft_size must be a power of two >= 32, got %d", n)
	}
	for i, p := range c.Video.Ladder {
		if p.Width < 0 || p.Height < 0 || p.FrameRate < 0 {
			return fmt.Errorf("video.ladder[%d] (%s) has a negative dimension", i, p.Name)
		}
	}
	return nil
}

// Save writes the config back to the file it was loaded from.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		path = Path()
	}

	v := viper.New()
	v.Set("log_level", c.LogLevel)
	v.Set("hotkey", c.Hotkey)
	v.Set("hotkey_darwin", c.HotkeyDarwin)
	v.Set("audio.device_id", c.Audio.DeviceID)
	v.Set("audio.sample_rate", c.Audio.SampleRate)
	v.Set("audio.sample_interval", c.Audio.SampleInterval.String())
	v.Set("audio.fft_size", c.Audio.FFTSize)
	v.Set("video.device_id", c.Video.DeviceID)

	ladder := make([]map[string]any, 0, len(c.Video.Ladder))
	for _, p := range c.Video.Ladder {
		ladder = append(ladder, map[string]any{
			"name":       p.Name,
			"width":      p.Width,
			"height":     p.Height,
			"frame_rate": p.FrameRate,
			"pin_device": p.PinDevice,
		})
	}
	v.Set("video.ladder", ladder)
	v.Set("gate.rule", c.Gate.Rule)
	v.Set("interview.url", c.Interview.URL)

	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// File returns the path the config was loaded from.
func (c *Config) File() string {
	return c.path
}

// PlatformHotkey returns the appropriate hotkey for the current platform
func (c *Config) PlatformHotkey() string {
	if runtime.GOOS == "darwin" && c.HotkeyDarwin != "" {
		return c.HotkeyDarwin
	}
	return c.Hotkey
}

// Path returns the platform-specific config file path
func Path() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// LogPath returns the platform-specific log file path
func LogPath() string {
	return filepath.Join(xdg.StateHome, appName, appName+".log")
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}
