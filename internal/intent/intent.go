package intent

import (
	"context"

	"github.com/anshukrra07/CampusCare-sub001/internal/invoke"
	"github.com/anshukrra07/CampusCare-sub001/internal/metrics"
	"github.com/anshukrra07/CampusCare-sub001/internal/observability"
	"github.com/anshukrra07/CampusCare-sub001/internal/policy"
	"github.com/anshukrra07/CampusCare-sub001/internal/prompt"
	"github.com/anshukrra07/CampusCare-sub001/internal/types"
)

type Invoker interface {
	Invoke(ctx context.Context, prompt string, maxAttempts int) (*invoke.Result, error)
}

// Classifier decides which data domains a reply should draw on.
type Classifier struct {
	invoker Invoker
	policy  policy.Source
	prompts *prompt.Builder
	metrics *metrics.Metrics
}

func New(inv Invoker, src policy.Source, prompts *prompt.Builder, m *metrics.Metrics) *Classifier {
	if prompts == nil {
		prompts = prompt.NewBuilder(nil)
	}
	return &Classifier{invoker: inv, policy: src, prompts: prompts, metrics: m}
}

// Classify returns the model's flags, or the pattern fallback when the model
// fails or ctx is already done.
func (c *Classifier) Classify(ctx context.Context, msg types.Message) types.IntentFlags {
	pol := policy.For(ctx, c.policy)
	logger := observability.LoggerFromContext(ctx).With("classifier", "intent")

	if c.invoker == nil {
		c.metrics.RecordFallback("intent", "no_invoker")
		return Fallback(pol, msg.Text)
	}
	if ctx.Err() != nil {
		c.metrics.RecordFallback("intent", "canceled")
		return Fallback(pol, msg.Text)
	}

	p, err := c.prompts.Intent(msg.Text)
	if err != nil {
		logger.Warn("intent prompt failed, using pattern fallback", "error", err)
		c.metrics.RecordFallback("intent", "prompt_error")
		return Fallback(pol, msg.Text)
	}

	res, err := c.invoker.Invoke(ctx, p, 0)
	if err != nil {
		reason := "invoke_error"
		if ctx.Err() != nil {
			reason = "canceled"
		}
		logger.Warn("intent model unavailable, using pattern fallback", "error", err)
		c.metrics.RecordFallback("intent", reason)
		return Fallback(pol, msg.Text)
	}

	parsed := Parse(res.Text)
	if !parsed.OK() {
		logger.Warn("intent output rejected, using pattern fallback", "reason", parsed.Failure)
		c.metrics.RecordFallback("intent", "parse_failure")
		return Fallback(pol, msg.Text)
	}
	return parsed.Value
}

// Fallback evaluates each domain pattern independently.
func Fallback(pol *policy.Policy, text string) types.IntentFlags {
	p := pol.Intent.Patterns()
	return types.IntentFlags{
		NeedsAssessments:  p.Assessments.MatchString(text),
		NeedsMoods:        p.Moods.MatchString(text),
		NeedsAppointments: p.Appointments.MatchString(text),
		NeedsAlerts:       p.Alerts.MatchString(text),
		NeedsSummary:      p.Summary.MatchString(text),
		NeedsProfile:      p.Profile.MatchString(text),
	}
}
