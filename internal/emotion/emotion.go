package emotion

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

type Invoker interface {
	Invoke(ctx context.Context, prompt string, maxAttempts int) (*invoke.Result, error)
}

// Analyzer extracts a canonical emotion and a 0-100 intensity. Like the
// risk classifier it always resolves, using lexicon rules when the model
// path fails.
type Analyzer struct {
	invoker Invoker
	policy  policy.Source
	prompts *prompt.Builder
	metrics *metrics.Metrics
}

func New(inv Invoker, src policy.Source, prompts *prompt.Builder, m *metrics.Metrics) *Analyzer {
	if prompts == nil {
		prompts = prompt.NewBuilder(nil)
	}
	return &Analyzer{invoker: inv, policy: src, prompts: prompts, metrics: m}
}

func (a *Analyzer) Analyze(ctx context.Context, msg types.Message) types.EmotionAssessment {
	pol := policy.For(ctx, a.policy)
	logger := observability.LoggerFromContext(ctx).With("classifier", "emotion")

	if a.invoker == nil {
		a.metrics.RecordFallback("emotion", "no_invoker")
		return Fallback(pol, msg.Text)
	}

	p, err := a.prompts.Emotion(msg.Text, string(msg.Channel), pol.Emotion.Canonical)
	if err != nil {
		logger.Warn("emotion prompt failed, using lexicon fallback", "error", err)
		a.metrics.RecordFallback("emotion", "prompt_error")
		return Fallback(pol, msg.Text)
	}

	res, err := a.invoker.Invoke(ctx, p, 0)
	if err != nil {
		logger.Warn("emotion model unavailable, using lexicon fallback", "error", err)
		a.metrics.RecordFallback("emotion", "invoke_error")
		return Fallback(pol, msg.Text)
	}

	parsed := Parse(pol, res.Text)
	if !parsed.OK() {
		logger.Warn("emotion output rejected, using lexicon fallback", "reason", parsed.Failure)
		a.metrics.RecordFallback("emotion", "parse_failure")
		return Fallback(pol, msg.Text)
	}

	return Boost(pol, parsed.Value, msg.Text)
}

// Boost raises the intensity of a happy assessment whose message uses an
// intensifier with a positive adjective ("so excited").
func Boost(pol *policy.Policy, a types.EmotionAssessment, text string) types.EmotionAssessment {
	hb := pol.Emotion.HappyBoost
	if a.Category != types.EmotionHappy || a.Intensity >= hb.Below {
		return a
	}
	if !pol.Emotion.Intensified(policy.Normalize(text)) {
		return a
	}
	a.Intensity = hb.RaiseTo
	if a.Notes == "" {
		a.Notes = hb.Note
	} else {
		a.Notes += "; " + hb.Note
	}
	return a
}

// Normalize maps a raw label onto the canonical set through the synonym
// table. Anything unknown becomes neutral.
func Normalize(pol *policy.Policy, raw string) types.Emotion {
	label := strings.ToLower(strings.TrimSpace(raw))
	if to, ok := pol.Emotion.Synonyms[label]; ok {
		label = to
	}
	if pol.Emotion.IsCanonical(label) {
		return types.Emotion(label)
	}
	return types.EmotionNeutral
}

func clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
