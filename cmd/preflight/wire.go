package main

import (
	"fmt"

	"github.com/petems/interview-preflight/internal/app"
	"github.com/petems/interview-preflight/internal/audio"
	"github.com/petems/interview-preflight/internal/config"
	"github.com/petems/interview-preflight/internal/devices"
	"github.com/petems/interview-preflight/internal/media"
	"github.com/petems/interview-preflight/internal/negotiate"
	"github.com/petems/interview-preflight/internal/platform"
	"github.com/petems/interview-preflight/internal/report"
	"github.com/petems/interview-preflight/internal/session"
	"github.com/petems/interview-preflight/internal/video"
	"github.com/rs/zerolog"
)

// stack is every long-lived component, wired from config.
type stack struct {
	platform *platform.Native
	devices  *devices.Enumerator
	audio    *audio.Manager
	video    *video.Manager
	ctrl     *app.Controller
	reporter *report.Reporter
	rule     app.GateRule
}

func buildStack(cfg *config.Config, log zerolog.Logger) (*stack, error) {
	rule, err := app.ParseGateRule(cfg.Gate.Rule)
	if err != nil {
		return nil, err
	}

	native, err := platform.New(cfg.Audio.FFTSize, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media platform: %w", err)
	}

	clock := media.WallClock{}
	enum := devices.New(native, log)
	neg := negotiate.New(native, enum, ladderFrom(cfg.Video.Ladder), log)

	mic := audio.New(native, clock, audio.Config{
		DeviceID:   cfg.Audio.DeviceID,
		SampleRate: cfg.Audio.SampleRate,
		Interval:   cfg.Audio.SampleInterval,
	}, log)
	cam := video.New(neg, video.NewLogSink(log), clock, video.Config{
		DeviceID: cfg.Video.DeviceID,
	}, log)

	ctrl := app.New(app.Config{
		Audio:    mic,
		Video:    cam,
		Devices:  enum,
		Session:  session.NewLauncher(cfg.Interview.URL, log),
		Rule:     rule,
		Settings: cfg,
		Logger:   log,
	})

	return &stack{
		platform: native,
		devices:  enum,
		audio:    mic,
		video:    cam,
		ctrl:     ctrl,
		reporter: report.New(ctrl, rule, mic.Level, log),
		rule:     rule,
	}, nil
}

func (s *stack) Close() error {
	return s.platform.Close()
}

// ladderFrom converts configured rungs. An empty list keeps the default ladder.
func ladderFrom(rungs []config.ProfileConfig) []negotiate.Profile {
	out := make([]negotiate.Profile, 0, len(rungs))
	for _, r := range rungs {
		out = append(out, negotiate.Profile{
			Name:      r.Name,
			Width:     r.Width,
			Height:    r.Height,
			FrameRate: r.FrameRate,
			PinDevice: r.PinDevice,
		})
	}
	return out
}
