// Command felix is the personal assistant service and its command line client.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/mcp"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/felix", "felix")

// Set at build time via ldflags.
var version = "dev"

type globalFlags struct {
	configFile string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "felix",
		Short:         "Felix is a personal assistant backed by a chat model and tools",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(cmd, flags.logLevel)
		},
	}
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "felix.yaml", "configuration file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warning", "log level: debug|info|notice|warning|error")

	root.AddCommand(
		newServeCmd(flags),
		newAskCmd(flags),
		newToolsCmd(flags),
		newMCPCmd(flags),
	)
	return root
}

func setupLogging(cmd *cobra.Command, level string) error {
	lvl, ok := logLevels[strings.ToLower(level)]
	if !ok {
		return chatmodel.ConfigError("unsupported log level: %q", level)
	}
	// stdout is reserved for the MCP protocol and the command output
	xlog.SetFormatter(xlog.NewStringFormatter(cmd.ErrOrStderr()))
	xlog.SetGlobalLogLevel(lvl)
	mcp.Version = version
	return nil
}

var logLevels = map[string]xlog.LogLevel{
	"debug":   xlog.DEBUG,
	"info":    xlog.INFO,
	"notice":  xlog.NOTICE,
	"warning": xlog.WARNING,
	"error":   xlog.ERROR,
}
