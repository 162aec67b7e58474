package assistants

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/pkg/metricskey"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

// Failover runs the orchestrator with the active API key and rotates
// to the next key when the chat endpoint rejects it by quota.
// Each retry starts a fresh conversation.
type Failover struct {
	pool         KeyPool
	factory      ModelFactory
	orchestrator *Orchestrator
}

// NewFailover returns a Failover
func NewFailover(pool KeyPool, factory ModelFactory, orchestrator *Orchestrator) *Failover {
	return &Failover{
		pool:         pool,
		factory:      factory,
		orchestrator: orchestrator,
	}
}

// Process returns the answer for the user message.
// Failures are logged and returned as an apology text.
func (f *Failover) Process(ctx context.Context, message string) string {
	started := time.Now()
	provider := "unknown"
	defer func() {
		metricskey.PerfAssistantCall.MeasureSince(started, provider)
	}()

	// the location can not change while the request is being processed
	if rc := chatmodel.GetRequestContext(ctx); rc != nil {
		rc.Seal()
	}

	cb := f.orchestrator.cfg.CallbackHandler
	if cb != nil {
		cb.OnAssistantStart(ctx, message)
	}

	for {
		if err := ctx.Err(); err != nil {
			return f.fail(ctx, provider, message, errors.WithStack(err))
		}

		index, key := f.pool.Active()
		model, err := f.factory.ModelForKey(key)
		if err != nil {
			return f.fail(ctx, provider, message, errors.WithMessage(err, "failed to create model"))
		}
		provider = string(model.GetProviderType())

		out := f.orchestrator.Run(ctx, model, message)
		switch out.Status {
		case StatusAnswered, StatusExhausted:
			f.pool.RecordUse()
			metricskey.StatsAssistantCallsSucceeded.IncrCounter(1, provider)
			if cb != nil {
				cb.OnAssistantEnd(ctx, message, out)
			}
			return out.Answer

		case StatusRateLimited:
			f.pool.RecordUse()
			if !f.pool.AdvanceFrom(index) {
				metricskey.StatsKeyPoolExhausted.IncrCounter(1, provider)
				metricskey.StatsAssistantCallsFailed.IncrCounter(1, provider)
				logger.ContextKV(ctx, xlog.WARNING,
					"status", "keys_exhausted",
					"index", index,
					"err", out.Err.Error(),
				)
				if cb != nil {
					cb.OnAssistantError(ctx, message, out.Err)
				}
				return BusyMessage
			}
			metricskey.StatsAssistantCallsRetried.IncrCounter(1, provider)
			logger.ContextKV(ctx, xlog.NOTICE,
				"status", "retry_next_key",
				"index", index,
				"turns", out.Turns,
			)

		default:
			err := out.Err
			if err == nil {
				err = errors.New("attempt failed")
			}
			return f.fail(ctx, provider, message, err)
		}
	}
}

func (f *Failover) fail(ctx context.Context, provider, message string, err error) string {
	metricskey.StatsAssistantCallsFailed.IncrCounter(1, provider)
	logger.ContextKV(ctx, xlog.ERROR,
		"status", "failed",
		"input", slices.StringUpto(message, 64),
		"err", err.Error(),
	)
	if cb := f.orchestrator.cfg.CallbackHandler; cb != nil {
		cb.OnAssistantError(ctx, message, err)
	}
	return GenericErrorMessage
}
