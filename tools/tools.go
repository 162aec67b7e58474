package tools

import (
	"context"
)

//go:generate mockgen -destination=../mocks/mocktools/tools_mock.gen.go -package=mocktools github.com/effective-security/felix/tools ITool,RemoteProvider,Callback

// LocalProvider is the provider name of in-process tools.
const LocalProvider = "local"

// ITool is a tool for the llm agent to interact with different applications.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	// Should not exceed LLM model limit.
	Description() string
	// Parameters returns the parameters definition of the function, to be used in the prompt.
	Parameters() any

	// Call executes the tool with the given input and returns the result.
	// If the tool fails to parse the input, it should return ErrFailedUnmarshalInput error.
	Call(context.Context, string) (string, error)
}

type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}

// RemoteProvider is a source of tools hosted outside of the process.
type RemoteProvider interface {
	// ListTools returns the tools exposed by all remote providers.
	ListTools() ([]Descriptor, error)
	// Invoke calls the remote tool and returns its text result.
	// Failures are returned as text.
	Invoke(ctx context.Context, name string, args map[string]any) string
}

// Callback receives tool events from the Dispatcher.
type Callback interface {
	OnToolStart(ctx context.Context, tool Descriptor, input string)
	OnToolEnd(ctx context.Context, tool Descriptor, input string, output string)
	OnToolError(ctx context.Context, tool Descriptor, input string, err error)
	OnToolNotFound(ctx context.Context, name string)
}

// Descriptor describes a tool available to the model.
type Descriptor struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Provider is LocalProvider or the name of the remote provider
	Provider string `json:"provider" yaml:"provider"`
	// Parameters is the JSON schema of the tool arguments, if known
	Parameters any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// DescriptorOf returns the descriptor of the local tool.
func DescriptorOf(tool ITool) Descriptor {
	return Descriptor{
		Name:        tool.Name(),
		Description: tool.Description(),
		Provider:    LocalProvider,
		Parameters:  tool.Parameters(),
	}
}
