package llms

// CallOption is a function that configures a CallOptions.
type CallOption func(*CallOptions)

// CallOptions is a set of options for calling models,
// providers ignore the options they do not support.
type CallOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
	StopWords   []string
	TopK        int
	TopP        float64
	Seed        int
}

// Apply returns a copy of the defaults with the options applied.
func (o CallOptions) Apply(options ...CallOption) CallOptions {
	for _, opt := range options {
		opt(&o)
	}
	return o
}

// WithModel overrides the model configured for the provider.
func WithModel(model string) CallOption {
	return func(o *CallOptions) {
		o.Model = model
	}
}

// WithMaxTokens limits the number of generated tokens.
func WithMaxTokens(maxTokens int) CallOption {
	return func(o *CallOptions) {
		o.MaxTokens = maxTokens
	}
}

// WithTemperature sets the sampling temperature, between 0 and 1.
func WithTemperature(temperature float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = temperature
	}
}

func WithStopWords(stopWords []string) CallOption {
	return func(o *CallOptions) {
		o.StopWords = stopWords
	}
}

func WithTopK(topK int) CallOption {
	return func(o *CallOptions) {
		o.TopK = topK
	}
}

func WithTopP(topP float64) CallOption {
	return func(o *CallOptions) {
		o.TopP = topP
	}
}

// WithSeed requests deterministic sampling where the provider supports it.
func WithSeed(seed int) CallOption {
	return func(o *CallOptions) {
		o.Seed = seed
	}
}
