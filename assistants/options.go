package assistants

import (
	"github.com/effective-security/felix/pkg/llms"
)

// Option is a function that can be used to modify the behavior of the Orchestrator Config.
type Option func(*Config)

type Config struct {
	// MaxToolCalls is the maximum number of chat calls in one attempt.
	MaxToolCalls int

	// Model is the model to use in an LLM call.
	Model    string
	modelSet bool

	// MaxTokens is the maximum number of tokens to generate to use in an LLM call.
	MaxTokens    int
	maxTokensSet bool

	// Temperature is the temperature for sampling to use in an LLM call, between 0 and 1.
	Temperature    float64
	temperatureSet bool

	// StopWords is a list of words to stop on to use in an LLM call.
	StopWords    []string
	stopWordsSet bool

	// TopK is the number of tokens to consider for top-k sampling in an LLM call.
	TopK    int
	topkSet bool

	// TopP is the cumulative probability for top-p sampling in an LLM call.
	TopP    float64
	toppSet bool

	// Seed is a seed for deterministic sampling in an LLM call.
	Seed    int
	seedSet bool

	// CallbackHandler receives the assistant events
	CallbackHandler Callback

	// DirectiveParser extracts tool calls from the model replies
	DirectiveParser DirectiveParser

	// Prompt builds the system prompt, the default one is used if nil
	Prompt *Prompt
}

func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		MaxToolCalls:    DefaultMaxToolCalls,
		DirectiveParser: ParseDirective,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithMaxToolCalls sets the maximum number of chat calls in one attempt,
// values less than 1 are ignored.
func WithMaxToolCalls(n int) Option {
	return func(o *Config) {
		if n > 0 {
			o.MaxToolCalls = n
		}
	}
}

// WithDirectiveParser replaces the tool call parser.
func WithDirectiveParser(parser DirectiveParser) Option {
	return func(o *Config) {
		if parser != nil {
			o.DirectiveParser = parser
		}
	}
}

// WithPrompt sets the system prompt builder.
func WithPrompt(prompt *Prompt) Option {
	return func(o *Config) {
		o.Prompt = prompt
	}
}

// WithCallback allows setting a custom Callback Handler.
func WithCallback(callbackHandler Callback) Option {
	return func(o *Config) {
		o.CallbackHandler = callbackHandler
	}
}

// WithModel is an option for LLM.Call.
func WithModel(model string) Option {
	return func(o *Config) {
		o.Model = model
		o.modelSet = true
	}
}

// WithMaxTokens is an option for LLM.Call.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
		o.maxTokensSet = true
	}
}

// WithTemperature is an option for LLM.Call.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
		o.temperatureSet = true
	}
}

// WithTopK will add an option to use top-k sampling for LLM.Call.
func WithTopK(topK int) Option {
	return func(o *Config) {
		o.TopK = topK
		o.topkSet = true
	}
}

// WithTopP	will add an option to use top-p sampling for LLM.Call.
func WithTopP(topP float64) Option {
	return func(o *Config) {
		o.TopP = topP
		o.toppSet = true
	}
}

// WithSeed will add an option to use deterministic sampling for LLM.Call.
func WithSeed(seed int) Option {
	return func(o *Config) {
		o.Seed = seed
		o.seedSet = true
	}
}

// WithStopWords is an option for setting the stop words for LLM.Call.
func WithStopWords(stopWords []string) Option {
	return func(o *Config) {
		o.StopWords = stopWords
		o.stopWordsSet = true
	}
}

func (c *Config) GetCallOptions() []llms.CallOption {
	var callOptions []llms.CallOption
	if c.modelSet {
		callOptions = append(callOptions, llms.WithModel(c.Model))
	}
	if c.maxTokensSet {
		callOptions = append(callOptions, llms.WithMaxTokens(c.MaxTokens))
	}
	if c.temperatureSet {
		callOptions = append(callOptions, llms.WithTemperature(c.Temperature))
	}
	if c.stopWordsSet {
		callOptions = append(callOptions, llms.WithStopWords(c.StopWords))
	}
	if c.topkSet {
		callOptions = append(callOptions, llms.WithTopK(c.TopK))
	}
	if c.toppSet {
		callOptions = append(callOptions, llms.WithTopP(c.TopP))
	}
	if c.seedSet {
		callOptions = append(callOptions, llms.WithSeed(c.Seed))
	}
	return callOptions
}
