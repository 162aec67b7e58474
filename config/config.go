// Package config provides the configuration of the Felix service.
package config

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/assistants"
	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/mcp"
	"github.com/effective-security/felix/pkg/llmfactory"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default values
const (
	DefaultListen      = ":8080"
	DefaultHTTPTimeout = Duration(30 * time.Second)
	DefaultCacheTTL    = Duration(24 * time.Hour)
	DefaultCacheSize   = 1024
)

// Config of the service
type Config struct {
	LLM       llmfactory.ProviderConfig `json:"llm" yaml:"llm"`
	Assistant Assistant                 `json:"assistant" yaml:"assistant"`
	MCP       MCP                       `json:"mcp" yaml:"mcp"`
	Tools     Tools                     `json:"tools" yaml:"tools"`
	Cache     Cache                     `json:"cache" yaml:"cache"`
	Server    Server                    `json:"server" yaml:"server"`
}

// Assistant configures the conversation
type Assistant struct {
	// MaxToolCalls is the number of chat calls in one attempt
	MaxToolCalls int `json:"max_tool_calls,omitempty" yaml:"max_tool_calls,omitempty" validate:"gte=0,lte=50"`
	// SystemPromptFile is optional file with the system prompt template
	SystemPromptFile string `json:"system_prompt_file,omitempty" yaml:"system_prompt_file,omitempty"`
	// SkillsDir is optional folder with additional *.md skills
	SkillsDir string `json:"skills_dir,omitempty" yaml:"skills_dir,omitempty"`

	// Sampling parameters override the provider defaults when set
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	TopP        *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty" validate:"omitempty,gte=0,lte=1"`
	TopK        int      `json:"top_k,omitempty" yaml:"top_k,omitempty" validate:"gte=0"`
	MaxTokens   int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" validate:"gte=0"`
	Seed        *int     `json:"seed,omitempty" yaml:"seed,omitempty"`
	StopWords   []string `json:"stop_words,omitempty" yaml:"stop_words,omitempty"`
}

// Options returns the orchestrator options for the configured values
func (a *Assistant) Options() []assistants.Option {
	opts := []assistants.Option{
		assistants.WithMaxToolCalls(a.MaxToolCalls),
	}
	if a.Temperature != nil {
		opts = append(opts, assistants.WithTemperature(*a.Temperature))
	}
	if a.TopP != nil {
		opts = append(opts, assistants.WithTopP(*a.TopP))
	}
	if a.TopK > 0 {
		opts = append(opts, assistants.WithTopK(a.TopK))
	}
	if a.MaxTokens > 0 {
		opts = append(opts, assistants.WithMaxTokens(a.MaxTokens))
	}
	if a.Seed != nil {
		opts = append(opts, assistants.WithSeed(*a.Seed))
	}
	if len(a.StopWords) > 0 {
		opts = append(opts, assistants.WithStopWords(a.StopWords))
	}
	return opts
}

// MCP configures the external tool providers
type MCP struct {
	Servers []*mcp.ServerConfig `json:"servers,omitempty" yaml:"servers,omitempty" validate:"dive,required"`
}

// Tools configures the local tools
type Tools struct {
	// CWAAPIKey enables the Taiwan forecast tool
	CWAAPIKey string `json:"cwa_api_key,omitempty" yaml:"cwa_api_key,omitempty"`
	// TavilyAPIKey enables the web search tool
	TavilyAPIKey string `json:"tavily_api_key,omitempty" yaml:"tavily_api_key,omitempty"`
	// HTTPTimeout is the timeout of requests to the weather services
	HTTPTimeout Duration `json:"http_timeout,omitempty" yaml:"http_timeout,omitempty"`
}

// Cache configures the cache of geocoding results
type Cache struct {
	// RedisURL selects Redis cache, the in-memory cache is used if empty
	RedisURL string   `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
	TTL      Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	// Size is the number of entries of the in-memory cache
	Size int `json:"size,omitempty" yaml:"size,omitempty" validate:"gte=0"`
}

// Server configures the HTTP server
type Server struct {
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`
}

// LoadConfig from file, the environment variables in the file are expanded
func LoadConfig(file string) (*Config, error) {
	if file == "" {
		return nil, chatmodel.ConfigError("config file is not specified")
	}

	cfg := new(Config)
	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, errors.Mark(errors.WithMessagef(err, "failed to load config %s", file), chatmodel.ErrConfig)
	}

	cfg.SetDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults sets the default values of empty fields
func (c *Config) SetDefaults() {
	if c.Assistant.MaxToolCalls == 0 {
		c.Assistant.MaxToolCalls = assistants.DefaultMaxToolCalls
	}
	if c.Tools.HTTPTimeout == 0 {
		c.Tools.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = DefaultCacheSize
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
}

// Validate returns an error marked with chatmodel.ErrConfig
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			var msgs []string
			for _, fe := range verrs {
				msgs = append(msgs, fe.Namespace()+": "+fe.Tag())
			}
			return chatmodel.ConfigError("invalid configuration: %s", strings.Join(msgs, ", "))
		}
		return errors.Mark(err, chatmodel.ErrConfig)
	}

	if err = c.LLM.Validate(); err != nil {
		return err
	}

	names := map[string]bool{}
	for i, s := range c.MCP.Servers {
		if s == nil {
			return chatmodel.ConfigError("MCP server %d is empty", i)
		}
		if names[s.Name] {
			return chatmodel.ConfigError("duplicate MCP server name: %q", s.Name)
		}
		names[s.Name] = true
	}
	return nil
}

// Duration is time.Duration that is encoded as a string, like "30s"
type Duration time.Duration

// Duration returns the value as time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return errors.WithStack(err)
	}
	return d.set(v)
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return errors.WithStack(err)
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch val := v.(type) {
	case string:
		if val == "" {
			*d = 0
			return nil
		}
		td, err := time.ParseDuration(val)
		if err != nil {
			return errors.Wrapf(err, "invalid duration %q", val)
		}
		*d = Duration(td)
	case float64:
		*d = Duration(time.Duration(val * float64(time.Second)))
	case int:
		*d = Duration(time.Duration(val) * time.Second)
	case nil:
		*d = 0
	default:
		return errors.Newf("invalid duration: %v", v)
	}
	return nil
}
