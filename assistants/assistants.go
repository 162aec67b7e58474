package assistants

import (
	"context"

	"github.com/effective-security/felix/pkg/llms"
	"github.com/effective-security/felix/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/felix", "assistants")

const (
	// DefaultMaxToolCalls is the number of chat calls in one attempt
	DefaultMaxToolCalls = 5

	// ExhaustedMessage is returned when the model keeps calling tools
	ExhaustedMessage = "Sorry, I tried several times but could not complete your request. Please rephrase it or try again later."
	// BusyMessage is returned when all API keys are rate limited
	BusyMessage = "Sorry, the service is busy right now. Please try again later."
	// GenericErrorMessage is returned on unexpected failures
	GenericErrorMessage = "Sorry, something went wrong while processing your request. Please try again later."
)

// Dispatcher provides the tool catalogue and executes tools
type Dispatcher interface {
	// Catalogue returns the list of tools for the system prompt
	Catalogue() string
	// Invoke calls the tool and returns its result as text
	Invoke(ctx context.Context, name string, args map[string]any) string
}

// KeyPool provides the active API key
type KeyPool interface {
	Active() (int, string)
	AdvanceFrom(index int) bool
	RecordUse()
}

// ModelFactory returns the chat model for the API key
type ModelFactory interface {
	ModelForKey(apiKey string) (llms.Model, error)
}

// Callback receives the assistant events
type Callback interface {
	tools.Callback

	OnAssistantStart(ctx context.Context, input string)
	OnAssistantEnd(ctx context.Context, input string, outcome *Outcome)
	OnAssistantError(ctx context.Context, input string, err error)
	OnAssistantLLMCallStart(ctx context.Context, llm llms.Model, payload []llms.Message)
	OnAssistantLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse)
}
