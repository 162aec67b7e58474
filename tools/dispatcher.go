package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/pkg/llmutils"
	"github.com/effective-security/felix/pkg/metricskey"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/felix", "tools")

// Dispatcher merges local and remote tools into one lookup.
// The remote catalogue is captured once, at construction.
type Dispatcher struct {
	local    *LocalSet
	remote   RemoteProvider
	callback Callback

	remoteTools  []Descriptor
	remoteByName map[string]Descriptor
}

// DispatcherOption configures the Dispatcher
type DispatcherOption func(*Dispatcher)

// WithCallback sets the tool events handler
func WithCallback(cb Callback) DispatcherOption {
	return func(d *Dispatcher) {
		d.callback = cb
	}
}

// NewDispatcher returns the Dispatcher over the local set and the remote provider,
// both of which can be nil.
// Remote tools shadowed by a local tool with the same name are dropped.
func NewDispatcher(local *LocalSet, remote RemoteProvider, opts ...DispatcherOption) (*Dispatcher, error) {
	d := &Dispatcher{
		local:        local,
		remote:       remote,
		remoteByName: map[string]Descriptor{},
	}
	for _, opt := range opts {
		opt(d)
	}

	if remote != nil {
		list, err := remote.ListTools()
		if err != nil {
			return nil, errors.WithMessage(err, "failed to list remote tools")
		}
		for _, td := range list {
			if local.Get(td.Name) != nil {
				logger.KV(xlog.WARNING,
					"status", "remote_tool_shadowed",
					"tool", td.Name,
					"provider", td.Provider,
				)
				continue
			}
			if _, ok := d.remoteByName[td.Name]; ok {
				logger.KV(xlog.WARNING,
					"status", "remote_tool_duplicate",
					"tool", td.Name,
					"provider", td.Provider,
				)
				continue
			}
			d.remoteByName[td.Name] = td
			d.remoteTools = append(d.remoteTools, td)
		}
	}
	return d, nil
}

// Descriptors returns local tools followed by remote tools,
// in registration order.
func (d *Dispatcher) Descriptors() []Descriptor {
	list := make([]Descriptor, 0, d.local.Len()+len(d.remoteTools))
	for _, tool := range d.local.Tools() {
		list = append(list, DescriptorOf(tool))
	}
	return append(list, d.remoteTools...)
}

// Catalogue returns the list of tools for the system prompt,
// one `- name: description` line per tool.
func (d *Dispatcher) Catalogue() string {
	var lines []string
	for _, td := range d.Descriptors() {
		if td.Description == "" {
			lines = append(lines, "- "+td.Name)
		} else {
			lines = append(lines, fmt.Sprintf("- %s: %s", td.Name, td.Description))
		}
	}
	return strings.Join(lines, "\n")
}

// Invoke calls the tool by name and returns its result as text.
// Failures are returned as text for the model, Invoke never fails.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]any) string {
	if args == nil {
		args = map[string]any{}
	}
	input := llmutils.ToJSON(args)

	if tool := d.local.Get(name); tool != nil {
		return d.invokeLocal(ctx, tool, input)
	}

	if td, ok := d.remoteByName[name]; ok {
		if d.callback != nil {
			d.callback.OnToolStart(ctx, td, input)
		}
		started := time.Now()
		res := d.remote.Invoke(ctx, name, args)
		metricskey.PerfToolCall.MeasureSince(started, name)
		metricskey.StatsToolCallsSucceeded.IncrCounter(1, name, td.Provider)

		if d.callback != nil {
			d.callback.OnToolEnd(ctx, td, input, res)
		}
		return res
	}

	metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
	logger.ContextKV(ctx, xlog.WARNING,
		"status", "tool_not_found",
		"tool", name,
	)
	if d.callback != nil {
		d.callback.OnToolNotFound(ctx, name)
	}
	return fmt.Sprintf("tool not found: %s", name)
}

func (d *Dispatcher) invokeLocal(ctx context.Context, tool ITool, input string) string {
	td := Descriptor{
		Name:     tool.Name(),
		Provider: LocalProvider,
	}
	if d.callback != nil {
		d.callback.OnToolStart(ctx, td, input)
	}

	started := time.Now()
	res, err := tool.Call(ctx, input)
	metricskey.PerfToolCall.MeasureSince(started, td.Name)

	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, td.Name, LocalProvider)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_call_failed",
			"tool", td.Name,
			"err", err.Error(),
		)
		if d.callback != nil {
			d.callback.OnToolError(ctx, td, input, err)
		}
		if errors.Is(err, chatmodel.ErrFailedUnmarshalInput) {
			return fmt.Sprintf("tool execution failed: invalid arguments for %s, check the arguments and try again", td.Name)
		}
		return fmt.Sprintf("tool execution failed: %s", err.Error())
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, td.Name, LocalProvider)
	if d.callback != nil {
		d.callback.OnToolEnd(ctx, td, input, res)
	}
	return res
}
