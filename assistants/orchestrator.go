package assistants

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/pkg/llms"
	"github.com/effective-security/felix/pkg/llmutils"
	"github.com/effective-security/felix/pkg/metricskey"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

// ToolResultPrefix starts the user turn that carries a tool result
const ToolResultPrefix = "tool execution result:\n"

// Status is the terminal state of an attempt
type Status int

const (
	// StatusFailed means the attempt stopped on an error
	StatusFailed Status = iota
	// StatusAnswered means the model returned a final answer
	StatusAnswered
	// StatusExhausted means the model kept calling tools
	StatusExhausted
	// StatusRateLimited means the chat endpoint rejected the API key by quota
	StatusRateLimited
)

func (s Status) String() string {
	switch s {
	case StatusAnswered:
		return "answered"
	case StatusExhausted:
		return "exhausted"
	case StatusRateLimited:
		return "rate_limited"
	default:
		return "failed"
	}
}

// Outcome is the result of one attempt
type Outcome struct {
	Status Status
	// Answer is the text for the user, set for Answered and Exhausted
	Answer string
	// Err is set for RateLimited and Failed
	Err error
	// Turns is the number of chat calls
	Turns int
	// Calls is the number of dispatched tools
	Calls int
	// Messages is the conversation sent to the model
	Messages []llms.Message
}

// Orchestrator runs the tool calling loop for one user message
type Orchestrator struct {
	dispatcher Dispatcher
	cfg        *Config
}

// NewOrchestrator returns an Orchestrator over the dispatcher
func NewOrchestrator(dispatcher Dispatcher, opts ...Option) (*Orchestrator, error) {
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	cfg := NewConfig(opts...)
	if cfg.Prompt == nil {
		p, err := NewPrompt("", "")
		if err != nil {
			return nil, err
		}
		cfg.Prompt = p
	}
	return &Orchestrator{
		dispatcher: dispatcher,
		cfg:        cfg,
	}, nil
}

// Config returns the orchestrator configuration
func (o *Orchestrator) Config() *Config {
	return o.cfg
}

// Run starts a fresh conversation with the model.
// It returns after a final answer, after MaxToolCalls chat calls,
// or on the first error; it never panics on model output.
func (o *Orchestrator) Run(ctx context.Context, model llms.Model, message string) *Outcome {
	out := &Outcome{}

	systemPrompt, err := o.cfg.Prompt.System(o.dispatcher.Catalogue())
	if err != nil {
		out.Err = err
		return out
	}

	out.Messages = []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, systemPrompt),
		llms.MessageFromTextParts(llms.RoleHuman, UserMessage(ctx, message)),
	}

	provider := string(model.GetProviderType())
	modelName := model.GetName()
	callOpts := o.cfg.GetCallOptions()
	cb := o.cfg.CallbackHandler

	for out.Turns < o.cfg.MaxToolCalls {
		if err := ctx.Err(); err != nil {
			out.Err = errors.WithStack(err)
			return out
		}

		if cb != nil {
			cb.OnAssistantLLMCallStart(ctx, model, out.Messages)
		}

		bytesSent := llmutils.CountMessagesContentSize(out.Messages)
		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(out.Messages)), provider, modelName)
		metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), provider, modelName)

		out.Turns++
		resp, err := o.generate(ctx, model, out.Messages, callOpts)
		if err != nil {
			if llms.IsRateLimited(err) {
				metricskey.StatsLLMRateLimited.IncrCounter(1, provider, modelName)
				out.Status = StatusRateLimited
			}
			out.Err = err
			return out
		}

		if cb != nil {
			cb.OnAssistantLLMCallEnd(ctx, model, resp)
		}

		metricskey.StatsLLMBytesReceived.IncrCounter(float64(llmutils.CountResponseContentSize(resp)), provider, modelName)
		tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
		metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), provider, modelName)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), provider, modelName)
		metricskey.StatsLLMTotalTokens.IncrCounter(float64(tokensTotal), provider, modelName)

		if resp == nil || len(resp.Choices) == 0 {
			out.Err = errors.Newf("model %s returned empty response", modelName)
			return out
		}

		content := resp.Content()
		directive, ok := o.cfg.DirectiveParser(content)
		if !ok {
			out.Status = StatusAnswered
			out.Answer = content
			return out
		}

		logger.ContextKV(ctx, xlog.DEBUG,
			"status", "tool_call",
			"tool", directive.Tool,
			"turn", out.Turns,
			"args", slices.StringUpto(llmutils.ToJSON(directive.Args), 128),
			"directive", slices.StringUpto(directive.Raw, 256),
		)

		result := o.dispatcher.Invoke(ctx, directive.Tool, directive.Args)
		out.Calls++
		out.Messages = append(out.Messages,
			llms.MessageFromTextParts(llms.RoleAI, content),
			llms.MessageFromTextParts(llms.RoleHuman, ToolResultPrefix+result),
		)
	}

	metricskey.StatsAssistantToolLimitReached.IncrCounter(1, provider)
	logger.ContextKV(ctx, xlog.WARNING,
		"status", "tool_limit_reached",
		"turns", out.Turns,
		"calls", out.Calls,
		"input", slices.StringUpto(message, 64),
	)
	out.Status = StatusExhausted
	out.Answer = ExhaustedMessage
	return out
}

func (o *Orchestrator) generate(ctx context.Context, model llms.Model, messages []llms.Message, opts []llms.CallOption) (*llms.ContentResponse, error) {
	provider := string(model.GetProviderType())
	modelName := model.GetName()
	defer metricskey.PerfLLMCall.MeasureSince(time.Now(), provider, modelName)

	resp, err := model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to generate content from LLM")
	}
	return resp, nil
}
