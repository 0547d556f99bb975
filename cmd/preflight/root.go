package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petems/interview-preflight/internal/config"
	"github.com/petems/interview-preflight/internal/hotkey"
	"github.com/petems/interview-preflight/internal/logging"
	"github.com/petems/interview-preflight/internal/permissions"
	"github.com/petems/interview-preflight/internal/tray"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log zerolog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Microphone and camera check before an interview",
		Long: `preflight acquires your microphone and camera, shows a live input level and
only lets you join the interview once the required devices are working.

Run without a subcommand to start the tray application.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Printf("preflight %s (%s)\n", Version, Commit)
				return nil
			}
			return runTray(opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default "+config.Path()+")")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")
	cmd.Flags().BoolP("version", "v", false, "Print version information and exit")

	cmd.AddCommand(newDevicesCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))

	return cmd
}

func (o *rootOptions) load() error {
	var err error
	if o.configPath != "" {
		o.cfg, err = config.LoadFrom(o.configPath)
	} else {
		o.cfg, err = config.Load()
	}
	if err != nil {
		// Use default logger if config fails to load
		logging.New().Error().Err(err).Msg("Failed to load config")
		return err
	}

	level := o.cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	o.log = logging.NewWithLevel(level)
	return nil
}

func runTray(opts *rootOptions) error {
	cfg, log := opts.cfg, opts.log

	// Hotkeys need accessibility approval on macOS; the app still works from the menu without it
	if ok, _ := permissions.CheckAccessibility(); !ok {
		log.Warn().Msg("Accessibility permission missing, hotkey disabled until granted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := buildStack(cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()

	trayUI := tray.New(s.ctrl, s.reporter, s.audio.Level, cfg, Version, Commit, log)

	// Register global hotkey
	if hkManager, err := hotkey.New(); err != nil {
		log.Warn().Err(err).Msg("Hotkeys unavailable")
	} else {
		defer hkManager.Close()
		if err := hkManager.Register(cfg.PlatformHotkey(), s.ctrl.OnHotkey); err != nil {
			log.Warn().Err(err).Str("hotkey", cfg.PlatformHotkey()).Msg("Failed to register hotkey")
		}
	}

	log.Info().Str("gate", string(s.rule)).Msg("Interview preflight starting...")

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := s.ctrl.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
		cancel()
	}()

	// Start tray UI - MUST run on main thread
	return trayUI.Run(ctx)
}
