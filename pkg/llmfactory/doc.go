// Package llmfactory creates chat models for the configured provider,
// one model instance per API key of the key pool.
package llmfactory
