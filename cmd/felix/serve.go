package main

import (
	"github.com/effective-security/felix/callbacks"
	"github.com/effective-security/felix/config"
	"github.com/effective-security/felix/server"
	"github.com/spf13/cobra"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(flags.configFile)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, callbacks.NewPackageLogger(logger))
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.New(a.failover, a.pool, a.weather, a.dispatcher)
			return srv.ListenAndServe(ctx, cfg.Server.Listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address, overrides the configuration")
	return cmd
}
