package llmfactory

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/pkg/llms"
	"github.com/effective-security/felix/pkg/llms/anthropic"
	"github.com/effective-security/felix/pkg/llms/googleai"
	"github.com/effective-security/felix/pkg/llms/openai"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/felix", "llmfactory")

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// Factory is the interface for creating and managing LLM models.
type Factory interface {
	// ModelForKey returns the model bound to the API key.
	// Models are created once per key and cached.
	ModelForKey(apiKey string) (llms.Model, error)
}

type factory struct {
	cfg *ProviderConfig

	byKey map[string]llms.Model
	lock  sync.Mutex
}

// New creates a new LLM factory
func New(cfg *ProviderConfig) (Factory, error) {
	if cfg == nil {
		return nil, chatmodel.ConfigError("provider is not configured")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &factory{
		cfg:   cfg,
		byKey: make(map[string]llms.Model),
	}, nil
}

// CreateLLM creates a model for the provider authenticated with the API key.
func CreateLLM(cfg *ProviderConfig, apiKey string) (llms.Model, error) {
	if apiKey == "" {
		return nil, chatmodel.ConfigError("API key is empty")
	}

	switch cfg.ProviderType() {
	case llms.ProviderOpenAI:
		return newOpenAI(cfg, apiKey)
	case llms.ProviderAnthropic:
		return newAnthropic(cfg, apiKey)
	case llms.ProviderGoogleAI:
		return newGoogleAI(cfg, apiKey)
	}
	return nil, chatmodel.ConfigError("unsupported provider type: %s", cfg.APIType)
}

func newOpenAI(cfg *ProviderConfig, apiKey string) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(cfg.DefaultModel),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.OrgID != "" {
		opts = append(opts, openai.WithOrganization(cfg.OrgID))
	}
	return openai.New(opts...)
}

func newAnthropic(cfg *ProviderConfig, apiKey string) (llms.Model, error) {
	opts := []anthropic.Option{
		anthropic.WithToken(apiKey),
		anthropic.WithModel(cfg.DefaultModel),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return anthropic.New(opts...)
}

func newGoogleAI(cfg *ProviderConfig, apiKey string) (llms.Model, error) {
	opts := []googleai.Option{
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(cfg.DefaultModel),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, googleai.WithBaseURL(cfg.BaseURL))
	}
	return googleai.New(context.Background(), opts...)
}

func (f *factory) ModelForKey(apiKey string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if model, ok := f.byKey[apiKey]; ok {
		return model, nil
	}

	model, err := NewLLM(f.cfg, apiKey)
	if err != nil {
		logger.KV(xlog.ERROR,
			"reason", "NewLLM",
			"type", f.cfg.ProviderType(),
			"model", f.cfg.DefaultModel,
			"err", err.Error(),
		)
		return nil, errors.WithMessagef(err, "failed to create %s model", f.cfg.ProviderType())
	}

	logger.KV(xlog.DEBUG,
		"status", "created_llm",
		"type", f.cfg.ProviderType(),
		"model", f.cfg.DefaultModel,
		"name", f.cfg.Name)

	f.byKey[apiKey] = model
	return model, nil
}
