package main

import (
	"github.com/effective-security/felix/config"
	"github.com/effective-security/felix/mcp"
	"github.com/effective-security/xlog"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the local tools as an MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(flags.configFile)
			if err != nil {
				return err
			}
			// the local tools only, MCP servers are not chained
			cfg.MCP.Servers = nil

			ctx := cmd.Context()
			a, err := newToolsApp(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := mcp.NewServer(a.local)
			if err != nil {
				return err
			}

			logger.KV(xlog.NOTICE, "status", "mcp_serving", "tools", a.local.Len())
			return srv.Run(ctx, &mcpsdk.StdioTransport{})
		},
	}
}
