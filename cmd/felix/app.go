package main

import (
	"context"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/assistants"
	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/config"
	"github.com/effective-security/felix/mcp"
	"github.com/effective-security/felix/pkg/cache"
	"github.com/effective-security/felix/pkg/cwa"
	"github.com/effective-security/felix/pkg/keypool"
	"github.com/effective-security/felix/pkg/llmfactory"
	"github.com/effective-security/felix/pkg/openmeteo"
	"github.com/effective-security/felix/tools"
	"github.com/effective-security/felix/tools/geocoding"
	"github.com/effective-security/felix/tools/tavily"
	"github.com/effective-security/felix/tools/twweather"
	"github.com/effective-security/felix/tools/weather"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// app holds the components built from the configuration
type app struct {
	cfg *config.Config

	weather    *openmeteo.Client
	local      *tools.LocalSet
	registry   *mcp.Registry
	dispatcher *tools.Dispatcher
	pool       *keypool.Pool
	failover   *assistants.Failover

	redis *redis.Client
}

// newToolsApp builds the local tools and connects to the MCP servers
func newToolsApp(ctx context.Context, cfg *config.Config, cb assistants.Callback) (*app, error) {
	a := &app{cfg: cfg}

	var ch cache.Cache
	if cfg.Cache.RedisURL != "" {
		client, err := cache.Dial(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, errors.Mark(err, chatmodel.ErrConfig)
		}
		a.redis = client
		ch = cache.NewRedisCache(client, "felix:", cfg.Cache.TTL.Duration())
	} else {
		ch = cache.NewMemoryCache(cfg.Cache.Size, cfg.Cache.TTL.Duration())
	}

	httpClient := &http.Client{Timeout: cfg.Tools.HTTPTimeout.Duration()}
	a.weather = openmeteo.New(
		openmeteo.WithHTTPClient(httpClient),
		openmeteo.WithCache(ch),
	)

	list := []tools.ITool{
		geocoding.New(a.weather),
		weather.New(a.weather),
		weather.NewCurrentLocation(a.weather),
	}
	if cfg.Tools.CWAAPIKey != "" {
		client, err := cwa.New(cfg.Tools.CWAAPIKey, cwa.WithHTTPClient(httpClient))
		if err != nil {
			a.Close()
			return nil, err
		}
		list = append(list, twweather.New(client))
	}
	if cfg.Tools.TavilyAPIKey != "" {
		tool, err := tavily.New(cfg.Tools.TavilyAPIKey)
		if err != nil {
			a.Close()
			return nil, err
		}
		list = append(list, tool.WithHTTPClient(httpClient))
	}

	local, err := tools.NewLocalSet(list...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.local = local

	a.registry = mcp.NewRegistry()
	if err = a.registry.Initialize(ctx, cfg.MCP.Servers); err != nil {
		a.Close()
		return nil, err
	}

	var dispatcherOpts []tools.DispatcherOption
	if cb != nil {
		dispatcherOpts = append(dispatcherOpts, tools.WithCallback(cb))
	}
	a.dispatcher, err = tools.NewDispatcher(local, a.registry, dispatcherOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.KV(xlog.INFO,
		"status", "tools_ready",
		"local", local.Len(),
		"total", len(a.dispatcher.Descriptors()),
	)
	return a, nil
}

// newApp builds the complete assistant
func newApp(ctx context.Context, cfg *config.Config, cb assistants.Callback) (*app, error) {
	a, err := newToolsApp(ctx, cfg, cb)
	if err != nil {
		return nil, err
	}

	if err = a.buildAssistant(cb); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) buildAssistant(cb assistants.Callback) error {
	pool, err := keypool.New(a.cfg.LLM.APIKeys)
	if err != nil {
		return err
	}
	factory, err := llmfactory.New(&a.cfg.LLM)
	if err != nil {
		return err
	}

	var templateText string
	if file := a.cfg.Assistant.SystemPromptFile; file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return chatmodel.ConfigError("unable to read system prompt: %s", err.Error())
		}
		templateText = string(b)
	}
	prompt, err := assistants.NewPrompt(templateText, a.cfg.Assistant.SkillsDir)
	if err != nil {
		return err
	}

	opts := append(a.cfg.Assistant.Options(), assistants.WithPrompt(prompt))
	if cb != nil {
		opts = append(opts, assistants.WithCallback(cb))
	}
	orchestrator, err := assistants.NewOrchestrator(a.dispatcher, opts...)
	if err != nil {
		return err
	}

	a.pool = pool
	a.failover = assistants.NewFailover(pool, factory, orchestrator)
	return nil
}

// Close stops the MCP servers and closes the connections
func (a *app) Close() {
	if a.registry != nil {
		a.registry.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
