package invoke

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anshukrra07/CampusCare-sub001/internal/metrics"
	"github.com/anshukrra07/CampusCare-sub001/internal/observability"
	"github.com/anshukrra07/CampusCare-sub001/internal/types"
	"github.com/anshukrra07/CampusCare-sub001/pkg/llm"
)

// Policy controls how a single prompt is retried against the inference
// service.
type Policy struct {
	MaxAttempts    int
	BackoffStep    time.Duration
	AttemptTimeout time.Duration
	PrimaryModel   string
	FallbackModel  string
	MaxTokens      int
}

// DefaultPolicy returns 3 attempts with a 1.5s linear backoff step and a
// 10s per-attempt timeout.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BackoffStep:    1500 * time.Millisecond,
		AttemptTimeout: 10 * time.Second,
	}
}

// Delay is the wait before the attempt that follows attempt n (1-indexed).
func (p Policy) Delay(attempt int) time.Duration {
	return time.Duration(attempt) * p.BackoffStep
}

// ModelFor returns the model variant used for the given attempt. Only the
// last attempt of a multi-attempt run switches to the fallback variant.
func (p Policy) ModelFor(attempt, maxAttempts int) string {
	if maxAttempts > 1 && attempt == maxAttempts && p.FallbackModel != "" {
		return p.FallbackModel
	}
	return p.PrimaryModel
}

// Result is a successful invocation plus the attempts that led to it.
type Result struct {
	Text     string
	Model    string
	Attempt  int
	Attempts []types.InvocationAttempt
}

// Invoker wraps one text-generation call with retries and model fallback.
// It holds no per-call state and is safe for concurrent use.
type Invoker struct {
	provider llm.Provider
	policy   Policy
	metrics  *metrics.Metrics
	sleep    func(ctx context.Context, d time.Duration) error
}

type Option func(*Invoker)

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(i *Invoker) { i.sleep = fn }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Invoker) { i.metrics = m }
}

// New creates an Invoker. A nil provider is allowed; every Invoke then fails
// with llm.ErrServiceUnavailable so callers go straight to their fallbacks.
func New(provider llm.Provider, policy Policy, opts ...Option) *Invoker {
	def := DefaultPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.BackoffStep < 0 {
		policy.BackoffStep = 0
	}
	inv := &Invoker{
		provider: provider,
		policy:   policy,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Available reports whether a provider client was configured.
func (i *Invoker) Available() bool {
	return i != nil && i.provider != nil
}

func (i *Invoker) Policy() Policy {
	return i.policy
}

// Invoke sends prompt to the provider. maxAttempts <= 0 uses the policy
// default. Transient failures are retried with linear backoff and the final
// attempt uses the fallback model; permanent failures return immediately.
func (i *Invoker) Invoke(ctx context.Context, prompt string, maxAttempts int) (*Result, error) {
	if !i.Available() {
		return nil, llm.ErrServiceUnavailable
	}
	if maxAttempts <= 0 {
		maxAttempts = i.policy.MaxAttempts
	}

	logger := observability.LoggerFromContext(ctx)
	var attempts []types.InvocationAttempt
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("invoke canceled before attempt %d: %w", attempt, err)
		}

		model := i.policy.ModelFor(attempt, maxAttempts)
		start := time.Now()
		resp, err := i.call(ctx, model, prompt)
		elapsed := time.Since(start)

		outcome := types.OutcomeSuccess
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil, fmt.Errorf("invoke canceled during attempt %d: %w", attempt, ctx.Err())
		case llm.IsTransient(err):
			outcome = types.OutcomeTransientFailure
		default:
			outcome = types.OutcomePermanentFailure
		}

		attempts = append(attempts, types.InvocationAttempt{
			AttemptNumber: attempt,
			ModelVariant:  model,
			Outcome:       outcome,
			Duration:      elapsed,
		})
		i.metrics.RecordInvocation(modelLabel(model), string(outcome))
		logger.Debug("inference attempt", "attempt", attempt, "max_attempts", maxAttempts, "model", modelLabel(model), "outcome", outcome, "duration", elapsed)

		if err == nil {
			used := resp.Model
			if used == "" {
				used = model
			}
			return &Result{Text: resp.Content, Model: used, Attempt: attempt, Attempts: attempts}, nil
		}

		lastErr = err
		if outcome == types.OutcomePermanentFailure {
			return nil, fmt.Errorf("invoke attempt %d: %w", attempt, err)
		}
		if attempt < maxAttempts {
			if err := i.sleep(ctx, i.policy.Delay(attempt)); err != nil {
				return nil, fmt.Errorf("invoke backoff: %w", err)
			}
		}
	}

	return nil, fmt.Errorf("invoke exhausted %d attempts: %w", maxAttempts, lastErr)
}

func (i *Invoker) call(ctx context.Context, model, prompt string) (*llm.Response, error) {
	callCtx := ctx
	if i.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, i.policy.AttemptTimeout)
		defer cancel()
	}

	req := llm.UserRequest(model, prompt)
	req.MaxTokens = i.policy.MaxTokens
	resp, err := i.provider.Complete(callCtx, req)
	if err != nil {
		// The attempt deadline fired while the caller is still waiting.
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			return nil, llm.NewTransient(0, "attempt timed out", err)
		}
		return nil, err
	}
	if resp == nil {
		return nil, llm.NewPermanent(0, "provider returned no response", nil)
	}
	return resp, nil
}

func modelLabel(model string) string {
	if model == "" {
		return "default"
	}
	return model
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
