package main

import (
	"fmt"
	"strings"

	"github.com/effective-security/felix/assistants"
	"github.com/effective-security/felix/callbacks"
	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/config"
	"github.com/spf13/cobra"
)

type askFlags struct {
	lat     float64
	lon     float64
	verbose bool
	print   bool
}

func newAskCmd(flags *globalFlags) *cobra.Command {
	f := &askFlags{}
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask the assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(flags.configFile)
			if err != nil {
				return err
			}

			var cb assistants.Callback = callbacks.NewPackageLogger(logger)
			var pad *callbacks.Scratchpad
			if f.verbose || f.print {
				fanout := callbacks.NewFanout(cb)
				if f.verbose {
					pad = callbacks.NewScratchpad(callbacks.ModeVerbose)
					fanout.Add(pad)
				}
				if f.print {
					fanout.Add(callbacks.NewPrinter(cmd.ErrOrStderr(), callbacks.ModeDefault))
				}
				cb = fanout
			}

			a, err := newApp(cmd.Context(), cfg, cb)
			if err != nil {
				return err
			}
			defer a.Close()

			rc := chatmodel.NewRequestContext("")
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				rc.SetLocation(f.lat, f.lon)
			}
			ctx := chatmodel.WithRequestContext(cmd.Context(), rc)

			if pad != nil {
				pad.StartRun(ctx)
			}
			answer := a.failover.Process(ctx, strings.Join(args, " "))
			if pad != nil {
				_, transcript := pad.EndRun(ctx)
				_, _ = cmd.ErrOrStderr().Write(transcript)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), answer)
			return err
		},
	}
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "caller latitude")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "caller longitude")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "print the conversation transcript to stderr")
	cmd.Flags().BoolVar(&f.print, "print", false, "print the assistant and tool events to stderr as they happen")
	return cmd
}
