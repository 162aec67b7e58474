package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/tools"
	"github.com/effective-security/xlog"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/felix", "mcp")

// ClientName is reported to the providers
const ClientName = "felix"

// Version is reported to the providers
var Version = "dev"

// Option configures the Registry
type Option func(*Registry)

// WithConnector overrides the transport factory
func WithConnector(c Connector) Option {
	return func(r *Registry) {
		r.connect = c
	}
}

type provider struct {
	name    string
	session *mcpsdk.ClientSession
	// the session handles one call at a time
	lock sync.Mutex
}

// Registry owns the sessions to external tool providers.
// The tool list is captured once by Initialize.
type Registry struct {
	connect Connector

	lock        sync.RWMutex
	initialized bool
	providers   []*provider
	tools       []tools.Descriptor
	owners      map[string]*provider
}

var _ tools.RemoteProvider = (*Registry)(nil)

// NewRegistry returns a registry that is not initialized
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		connect: CommandConnector,
		owners:  map[string]*provider{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize connects to every enabled provider and lists its tools.
// A provider that fails to connect fails the initialization,
// the sessions opened so far are closed.
// Subsequent calls after a successful initialization do nothing.
func (r *Registry) Initialize(ctx context.Context, configs []*ServerConfig) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.initialized {
		return nil
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: ClientName, Version: Version}, nil)

	var (
		providers []*provider
		list      []tools.Descriptor
		owners    = map[string]*provider{}
	)
	closeAll := func() {
		for _, p := range providers {
			_ = p.session.Close()
		}
	}

	for _, cfg := range configs {
		if cfg == nil || !cfg.Enabled {
			continue
		}

		p, descriptors, err := r.open(ctx, client, cfg)
		if err != nil {
			closeAll()
			return errors.Mark(errors.WithMessagef(err, "failed to connect to MCP server %q", cfg.Name), chatmodel.ErrConfig)
		}
		providers = append(providers, p)

		for _, td := range descriptors {
			if owners[td.Name] != nil {
				logger.KV(xlog.WARNING,
					"status", "duplicate_tool",
					"tool", td.Name,
					"provider", cfg.Name,
					"owner", owners[td.Name].name,
				)
				continue
			}
			owners[td.Name] = p
			list = append(list, td)
		}

		logger.KV(xlog.INFO,
			"status", "connected",
			"provider", cfg.Name,
			"tools", len(descriptors),
		)
	}

	r.providers = providers
	r.tools = list
	r.owners = owners
	r.initialized = true
	return nil
}

func (r *Registry) open(ctx context.Context, client *mcpsdk.Client, cfg *ServerConfig) (*provider, []tools.Descriptor, error) {
	transport, err := r.connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}

	var list []tools.Descriptor
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return nil, nil, errors.WithMessage(err, "failed to list tools")
		}
		list = append(list, tools.Descriptor{
			Name:        tool.Name,
			Description: tool.Description,
			Provider:    cfg.Name,
			Parameters:  tool.InputSchema,
		})
	}

	return &provider{name: cfg.Name, session: session}, list, nil
}

// ListTools returns the tools of all providers,
// in the order of the configuration.
func (r *Registry) ListTools() ([]tools.Descriptor, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if !r.initialized {
		return nil, errors.WithStack(chatmodel.ErrNotInitialized)
	}
	return append([]tools.Descriptor(nil), r.tools...), nil
}

// Invoke calls the tool on its provider and returns the text content.
// Failures are returned as text.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) string {
	r.lock.RLock()
	p := r.owners[name]
	initialized := r.initialized
	r.lock.RUnlock()

	if !initialized {
		return fmt.Sprintf("tool execution failed: %s", chatmodel.ErrNotInitialized.Error())
	}
	if p == nil {
		return fmt.Sprintf("tool not found: %s", name)
	}

	p.lock.Lock()
	res, err := p.session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	p.lock.Unlock()

	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "call_failed",
			"provider", p.name,
			"tool", name,
			"err", err.Error(),
		)
		return fmt.Sprintf("tool execution failed: %s", err.Error())
	}
	return TextContent(res)
}

// TextContent returns text blocks of the result joined with a new line,
// other content types are ignored.
func TextContent(res *mcpsdk.CallToolResult) string {
	if res == nil {
		return ""
	}
	var texts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Close closes all sessions, errors are ignored.
func (r *Registry) Close() {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, p := range r.providers {
		if err := p.session.Close(); err != nil {
			logger.KV(xlog.DEBUG, "status", "close_failed", "provider", p.name, "err", err.Error())
		}
	}
	r.providers = nil
	r.tools = nil
	r.owners = map[string]*provider{}
	r.initialized = false
}
