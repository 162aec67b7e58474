package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/effective-security/felix/assistants"
	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/pkg/llms"
	"github.com/effective-security/felix/pkg/llmutils"
	"github.com/effective-security/felix/tools"
)

// ensure Scratchpad implements the callbacks
var (
	_ assistants.Callback = (*Scratchpad)(nil)
	_ tools.Callback      = (*Scratchpad)(nil)
)

var TimeNowFn = time.Now

// RunStats are the counters of one request
type RunStats struct {
	RequestID string

	Duration            time.Duration
	TotalMessages       uint32
	LLMBytesOut         uint64
	LLMBytesIn          uint64
	LLMInputTokens      uint64
	LLMOutputTokens     uint64
	LLMTotalTokens      uint64
	LLMCalls            uint32
	Attempts            uint32
	AttemptsFailed      uint32
	ToolsCalls          uint32
	ToolsCallsSucceeded uint32
	ToolsCallsFailed    uint32
	ToolNotFound        uint32
}

// Scratchpad records a transcript and stats per request,
// the runs are keyed by the request ID of the context.
type Scratchpad struct {
	runs map[string]*run
	mode Mode
	lock sync.Mutex
}

func NewScratchpad(mode Mode) *Scratchpad {
	return &Scratchpad{
		runs: make(map[string]*run),
		mode: mode,
	}
}

// StartRun starts recording the request,
// the context must have a RequestContext.
func (l *Scratchpad) StartRun(ctx context.Context) {
	id := chatmodel.GetRequestID(ctx)
	if id == "" {
		return
	}

	r := &run{
		stats: RunStats{
			RequestID: id,
		},
		started: time.Now(),
	}

	l.lock.Lock()
	l.runs[id] = r
	l.lock.Unlock()

	r.print("*** Run Started ***")
}

// EndRun stops recording the request and returns the stats and the transcript
func (l *Scratchpad) EndRun(ctx context.Context) (*RunStats, []byte) {
	run := l.getRun(ctx)
	if run == nil {
		return nil, nil
	}

	stats := run.stats
	stats.Duration = time.Since(run.started)

	run.print(fmt.Sprintf("Attempts: %d, Failed: %d",
		stats.Attempts,
		stats.AttemptsFailed,
	))
	run.print(fmt.Sprintf("Tool calls: %d, Failed: %d, Not Found: %d",
		stats.ToolsCalls,
		stats.ToolsCallsFailed,
		stats.ToolNotFound,
	))
	run.print(fmt.Sprintf("LLM calls: %d, Messages: %d, Bytes Out: %d, Bytes In: %d, Input Tokens: %d, Output Tokens: %d, Total Tokens: %d",
		stats.LLMCalls,
		stats.TotalMessages,
		stats.LLMBytesOut,
		stats.LLMBytesIn,
		stats.LLMInputTokens,
		stats.LLMOutputTokens,
		stats.LLMTotalTokens,
	))

	run.print(fmt.Sprintf("*** Run Ended. Duration: %s ***", stats.Duration))

	l.lock.Lock()
	delete(l.runs, stats.RequestID)
	l.lock.Unlock()

	return &stats, run.bytes()
}

func (l *Scratchpad) getRun(ctx context.Context) *run {
	id := chatmodel.GetRequestID(ctx)
	if id == "" {
		return nil
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	return l.runs[id]
}

func (l *Scratchpad) OnAssistantStart(ctx context.Context, input string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	run.print("*** Assistant Start ***")
	run.print("Input:", input)
}

func (l *Scratchpad) OnAssistantEnd(ctx context.Context, input string, outcome *assistants.Outcome) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.Attempts, 1)
	if l.mode == ModeVerbose {
		run.print("Output:", outcome.Answer)
	}
	run.print("*** Assistant End ***", outcome.Status.String())
}

func (l *Scratchpad) OnAssistantError(ctx context.Context, input string, err error) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.Attempts, 1)
	atomic.AddUint32(&run.stats.AttemptsFailed, 1)
	run.print("*** Error ***", err.Error())
}

func (l *Scratchpad) OnAssistantLLMCallStart(ctx context.Context, llm llms.Model, payload []llms.Message) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}

	atomic.AddUint64(&run.stats.LLMBytesOut, llmutils.CountMessagesContentSize(payload))
	atomic.AddUint32(&run.stats.LLMCalls, 1)
	count := uint32(len(payload))
	atomic.AddUint32(&run.stats.TotalMessages, count)

	run.print("*** LLM Call ***", fmt.Sprintf("%s model, %d messages", llm.GetName(), count))
	if l.mode == ModeVerbose && len(payload) > 0 {
		last := payload[len(payload)-1]
		run.print(string(last.Role)+":", last.GetContent())
	}
}

func (l *Scratchpad) OnAssistantLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}

	atomic.AddUint64(&run.stats.LLMBytesIn, llmutils.CountResponseContentSize(resp))
	tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
	atomic.AddUint64(&run.stats.LLMInputTokens, uint64(tokensIn))
	atomic.AddUint64(&run.stats.LLMOutputTokens, uint64(tokensOut))
	atomic.AddUint64(&run.stats.LLMTotalTokens, uint64(tokensTotal))

	run.print("*** LLM Call End ***", fmt.Sprintf("%s model, %d input tokens, %d output tokens, %d total tokens", llm.GetName(), tokensIn, tokensOut, tokensTotal))
	if l.mode == ModeVerbose {
		run.print("Reply:", resp.Content())
	}
}

func (l *Scratchpad) OnToolStart(ctx context.Context, tool tools.Descriptor, input string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCalls, 1)
	run.print(tool.Name, "*** Tool Start ***")
	run.print(tool.Name, "Input:", input)
}

func (l *Scratchpad) OnToolEnd(ctx context.Context, tool tools.Descriptor, input string, output string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCallsSucceeded, 1)
	if l.mode == ModeVerbose {
		run.print(tool.Name, "Output:", output)
	}
	run.print(tool.Name, "*** Tool End ***")
}

func (l *Scratchpad) OnToolError(ctx context.Context, tool tools.Descriptor, input string, err error) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCallsFailed, 1)
	run.print(tool.Name, "*** Tool Error ***", err.Error())
}

func (l *Scratchpad) OnToolNotFound(ctx context.Context, name string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolNotFound, 1)
	run.print(name, "*** Tool Not Found ***")
}

type run struct {
	w       bytes.Buffer
	started time.Time
	lock    sync.Mutex
	stats   RunStats
}

// print writes the entries to the run's output in the format:
// [timestamp requestID] entry entry\n
func (r *run) print(entries ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	ts := TimeNowFn().Format("2006-01-02 15:04:05")

	_, _ = r.w.WriteString(ts)
	_, _ = r.w.WriteString(" ")
	_, _ = r.w.WriteString(r.stats.RequestID)
	_, _ = r.w.WriteString(" ")

	for i, entry := range entries {
		if i > 0 {
			_, _ = r.w.WriteString(" ")
		}
		_, _ = r.w.WriteString(entry)
	}
	_, _ = r.w.WriteString("\n")
}

func (r *run) bytes() []byte {
	r.lock.Lock()
	defer r.lock.Unlock()
	return bytes.Clone(r.w.Bytes())
}
