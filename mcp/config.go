package mcp

import (
	"context"
	"os"
	"os/exec"
	"sort"

	"github.com/effective-security/felix/chatmodel"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerConfig describes an external tool provider process.
type ServerConfig struct {
	// Name of the provider, reported as the provider of its tools
	Name string `json:"name" yaml:"name" validate:"required"`
	// Command to launch the provider
	Command string `json:"command" yaml:"command" validate:"required"`
	// Arguments of the command
	Arguments []string `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	// Environment is added to the environment of the process
	Environment map[string]string `json:"environment,omitempty" yaml:"environment,omitempty"`
	// Enabled specifies if the provider is started
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Connector returns the transport to the provider.
type Connector func(ctx context.Context, cfg *ServerConfig) (mcpsdk.Transport, error)

// CommandConnector launches the provider as a subprocess
// and talks to it over stdin and stdout.
func CommandConnector(_ context.Context, cfg *ServerConfig) (mcpsdk.Transport, error) {
	if cfg.Command == "" {
		return nil, chatmodel.ConfigError("MCP server %q: command is required", cfg.Name)
	}

	// the process outlives the initialization context, and is stopped by Close
	// #nosec G204 -- the command is from the trusted configuration
	cmd := exec.Command(cfg.Command, cfg.Arguments...)
	cmd.Stderr = os.Stderr
	if len(cfg.Environment) > 0 {
		keys := make([]string, 0, len(cfg.Environment))
		for k := range cfg.Environment {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		cmd.Env = os.Environ()
		for _, k := range keys {
			cmd.Env = append(cmd.Env, k+"="+cfg.Environment[k])
		}
	}
	return &mcpsdk.CommandTransport{Command: cmd}, nil
}
