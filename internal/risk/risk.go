package risk

import (
	"context"
	"strings"

	"github.com/anshukrra07/CampusCare-sub001/internal/invoke"
	"github.com/anshukrra07/CampusCare-sub001/internal/metrics"
	"github.com/anshukrra07/CampusCare-sub001/internal/observability"
	"github.com/anshukrra07/CampusCare-sub001/internal/policy"
	"github.com/anshukrra07/CampusCare-sub001/internal/prompt"
	"github.com/anshukrra07/CampusCare-sub001/internal/types"
)

// Invoker is the slice of invoke.Invoker the classifiers need.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, maxAttempts int) (*invoke.Result, error)
}

// Classifier produces a high/safe verdict for a message. It always returns
// a verdict: model failures fall back to the keyword scan.
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

func (c *Classifier) Classify(ctx context.Context, msg types.Message) types.RiskVerdict {
	pol := policy.For(ctx, c.policy)
	logger := observability.LoggerFromContext(ctx).With("classifier", "risk")

	if c.invoker == nil {
		c.metrics.RecordFallback("risk", "no_invoker")
		return Fallback(pol, msg.Text)
	}

	p, err := c.prompts.Risk(msg.Text, string(msg.Channel))
	if err != nil {
		logger.Warn("risk prompt failed, using keyword fallback", "error", err)
		c.metrics.RecordFallback("risk", "prompt_error")
		return Fallback(pol, msg.Text)
	}

	res, err := c.invoker.Invoke(ctx, p, 0)
	if err != nil {
		logger.Warn("risk model unavailable, using keyword fallback", "error", err)
		c.metrics.RecordFallback("risk", "invoke_error")
		return Fallback(pol, msg.Text)
	}

	parsed := ParseVerdict(res.Text)
	if !parsed.OK() {
		logger.Warn("risk output rejected, using keyword fallback", "reason", parsed.Failure)
		c.metrics.RecordFallback("risk", "parse_failure")
		return Fallback(pol, msg.Text)
	}
	if tok := firstToken(res.Text); tok != string(types.RiskHigh) && tok != string(types.RiskSafe) {
		logger.Warn("unexpected risk token coerced to safe", "token", tok)
	}

	return types.RiskVerdict{Value: parsed.Value, Source: types.SourceModel}
}

// ParseVerdict reads the first word of the model reply. "high" and "safe"
// map directly; any other word coerces to safe. Empty output is a failure.
func ParseVerdict(raw string) types.ParseResult[types.RiskLevel] {
	tok := firstToken(raw)
	switch tok {
	case "":
		return types.ParseFailure[types.RiskLevel]("empty risk output")
	case string(types.RiskHigh):
		return types.Parsed(types.RiskHigh)
	default:
		return types.Parsed(types.RiskSafe)
	}
}

// Fallback is the deterministic keyword scan. The positive-context
// allowlist is checked before the high-risk phrases, so a message carrying
// both resolves to safe.
func Fallback(pol *policy.Policy, text string) types.RiskVerdict {
	lowered := policy.Normalize(text)

	if len(policy.ContainsAny(lowered, pol.Risk.PositiveContext)) > 0 {
		return types.RiskVerdict{Value: types.RiskSafe, Source: types.SourceKeyword}
	}
	if hits := policy.ContainsAny(lowered, pol.Risk.HighRiskPhrases); len(hits) > 0 {
		return types.RiskVerdict{Value: types.RiskHigh, Source: types.SourceKeyword, MatchedKeywords: hits}
	}
	return types.RiskVerdict{Value: types.RiskSafe, Source: types.SourceKeyword}
}

func firstToken(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, "`\"' \n\t")
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
