package llmfactory

import (
	"strings"

	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/pkg/llms"
)

// ProviderConfig specifies the chat endpoint and the pool of API keys
type ProviderConfig struct {
	// Name is optional display name of the provider
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// APIType specifies the type of API to use:
	// GOOGLEAI|OPENAI|ANTHROPIC
	APIType string `json:"provider" yaml:"provider" validate:"required,oneof=GOOGLEAI OPENAI OPEN_AI ANTHROPIC googleai openai anthropic"`
	// DefaultModel specifies the model name to use
	DefaultModel string `json:"model" yaml:"model" validate:"required"`
	// APIKeys specifies the ordered list of API keys to rotate on rate limits
	APIKeys []string `json:"api_keys" yaml:"api_keys" validate:"required,min=1,dive,required"`
	// BaseURL is optional endpoint override, use it for compatible endpoints
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// OrgID specifies which organization's quota and billing should be used when making API requests.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty"`
}

// ProviderType returns the normalized provider type
func (c *ProviderConfig) ProviderType() llms.ProviderType {
	t := strings.ToUpper(c.APIType)
	if t == "OPEN_AI" {
		t = string(llms.ProviderOpenAI)
	}
	return llms.ProviderType(t)
}

// Validate returns an error marked with chatmodel.ErrConfig
// if the configuration can not be used to create a model.
func (c *ProviderConfig) Validate() error {
	switch c.ProviderType() {
	case llms.ProviderGoogleAI, llms.ProviderOpenAI, llms.ProviderAnthropic:
	default:
		return chatmodel.ConfigError("unsupported provider type: %q", c.APIType)
	}
	if c.DefaultModel == "" {
		return chatmodel.ConfigError("model is not specified for provider %s", c.ProviderType())
	}
	return nil
}
