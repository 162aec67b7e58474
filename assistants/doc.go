// Package assistants runs the conversation with the chat model:
// the Orchestrator drives the bounded tool-calling loop over the textual
// directive protocol, and Failover rotates API keys on rate limits.
package assistants
