package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/petems/interview-preflight/internal/media"
	"github.com/spf13/cobra"
)

func newDevicesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List microphones and cameras",
		Long:  "List every capture device the platform reports. The selected device from the config is marked with *.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack(opts.cfg, opts.log)
			if err != nil {
				return err
			}
			defer s.Close()

			devices, err := s.devices.All(cmd.Context())
			if err != nil {
				return err
			}
			printDevices(os.Stdout, devices, opts.cfg.Audio.DeviceID, opts.cfg.Video.DeviceID)
			return nil
		},
	}
}

func printDevices(w io.Writer, devices []media.Device, micID, camID string) {
	if len(devices) == 0 {
		fmt.Fprintln(w, color.New(color.Faint).Sprint("No capture devices found"))
		return
	}

	for _, d := range devices {
		kind := color.New(color.FgCyan).Sprintf("%-5s", d.Kind)
		selected := " "
		if (d.Kind == media.KindAudio && d.ID == micID) || (d.Kind == media.KindVideo && d.ID == camID) {
			selected = color.New(color.FgGreen, color.Bold).Sprint("*")
		}
		fmt.Fprintf(w, "%s %s  %s %s\n", selected, kind, d.Label, color.New(color.Faint).Sprintf("(%s)", d.ID))
	}
}

// contextOrBackground guards commands run without ExecuteContext.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
