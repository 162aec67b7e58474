// Package llms provides the model-agnostic chat types used to talk to the
// supported LLM chat endpoints.
//
// Each subpackage implements the Model interface for a provider and maps
// provider-specific rate limit responses to ErrRateLimited, so the caller can
// rotate API keys without knowing about the provider.
package llms
