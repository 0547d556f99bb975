package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/petems/interview-preflight/internal/app"
	"github.com/petems/interview-preflight/internal/media"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type checkOptions struct {
	duration time.Duration
	video    bool
}

func newCheckCommand(root *rootOptions) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a headless microphone and camera check",
		Long: `Enable the microphone (and optionally the camera), print the input level
for a while, report readiness and release every device.

Exits non-zero when the configured gate rule is not satisfied.`,
		Example: `  preflight check
  preflight check --duration 10s --video=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(contextOrBackground(cmd.Context()), root, opts, os.Stdout)
		},
	}

	flags := cmd.Flags()
	flags.DurationVarP(&opts.duration, "duration", "d", 5*time.Second, "How long to sample the microphone")
	flags.BoolVar(&opts.video, "video", true, "Also check the camera")

	return cmd
}

func runCheck(ctx context.Context, root *rootOptions, opts *checkOptions, out io.Writer) error {
	s, err := buildStack(root.cfg, root.log)
	if err != nil {
		return err
	}
	defer s.Close()
	defer s.ctrl.Shutdown(context.Background())

	ready, err := enableAll(ctx, s.ctrl, opts.video, out)
	if err != nil {
		return err
	}
	if ready.AudioReady {
		sampleLevels(ctx, s.audio.Level, opts.duration, out)
	}

	r := s.ctrl.Readiness()
	printReadiness(out, r, s.ctrl.LastError())
	if !r.MediaReady {
		return fmt.Errorf("%w: %s", app.ErrNotReady, s.rule.Describe())
	}
	return nil
}

// deviceController is the part of the controller the check drives.
type deviceController interface {
	EnableAudio(ctx context.Context) error
	EnableVideo(ctx context.Context) error
	Readiness() app.Readiness
}

// enableAll acquires both devices concurrently. Device failures are
// printed and reflected in readiness; only cancellation aborts the check.
func enableAll(ctx context.Context, ctrl deviceController, withVideo bool, out io.Writer) (app.Readiness, error) {
	g, gctx := errgroup.WithContext(ctx)

	enable := func(name string, fn func(context.Context) error) {
		g.Go(func() error {
			err := fn(gctx)
			switch {
			case err == nil:
				fmt.Fprintf(out, "%s %s\n", color.GreenString("✓"), name)
			case errors.Is(err, context.Canceled):
				return err
			default:
				fmt.Fprintf(out, "%s %s: %s\n", color.RedString("✗"), name, message(err))
			}
			return nil
		})
	}

	enable("microphone", ctrl.EnableAudio)
	if withVideo {
		enable("camera", ctrl.EnableVideo)
	}
	if err := g.Wait(); err != nil {
		return app.Readiness{}, err
	}
	return ctrl.Readiness(), nil
}

func message(err error) string {
	var ce *media.CaptureError
	if errors.As(err, &ce) {
		return ce.Message()
	}
	return media.Message(media.Classify(err))
}

func sampleLevels(ctx context.Context, level func() float64, d time.Duration, out io.Writer) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.NewTimer(d)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			fmt.Fprintln(out)
			return
		case <-ticker.C:
			fmt.Fprintf(out, "\rlevel %s", bar(level()))
		}
	}
}

// bar renders level in [0,100] as a 20-cell meter followed by the value.
func bar(level float64) string {
	const width = 20
	n := int(level / 100 * width)
	if n < 0 {
		n = 0
	}
	if n > width {
		n = width
	}
	cells := make([]rune, width)
	for i := range cells {
		cells[i] = '-'
		if i < n {
			cells[i] = '#'
		}
	}
	return fmt.Sprintf("[%s] %3.0f", string(cells), level)
}

func printReadiness(out io.Writer, r app.Readiness, lastErr string) {
	mark := func(ok bool) string {
		if ok {
			return color.GreenString("ready")
		}
		return color.YellowString("not ready")
	}
	fmt.Fprintf(out, "microphone: %s\n", mark(r.AudioReady))
	fmt.Fprintf(out, "camera:     %s\n", mark(r.VideoReady))
	fmt.Fprintf(out, "interview:  %s\n", mark(r.MediaReady))
	if lastErr != "" {
		fmt.Fprintf(out, "last error: %s\n", lastErr)
	}
}
