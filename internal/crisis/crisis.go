package crisis

import (
	"context"
	"slices"

	"github.com/anshukrra07/CampusCare-sub001/internal/policy"
	"github.com/anshukrra07/CampusCare-sub001/internal/types"
)

// Engine fuses the risk verdict and the emotion assessment into one
// escalation decision. It does no I/O.
type Engine struct {
	policy policy.Source
}

func New(src policy.Source) *Engine {
	return &Engine{policy: src}
}

// Decide escalates when any trigger fires and keeps every trigger that did.
// Thresholds come from the policy snapshot pinned in ctx, if any.
func (e *Engine) Decide(ctx context.Context, risk types.RiskVerdict, emotion types.EmotionAssessment) types.CrisisDecision {
	return Decide(policy.For(ctx, e.policy).Crisis, risk, emotion)
}

// Decide is the pure rule set behind Engine.Decide.
func Decide(c policy.Crisis, risk types.RiskVerdict, emotion types.EmotionAssessment) types.CrisisDecision {
	t := types.Triggers{
		AIModeration:     risk.Value == types.RiskHigh,
		CrisisEmotion:    slices.Contains(c.Emotions, string(emotion.Category)) && emotion.Intensity >= c.EmotionThreshold,
		ExtremeIntensity: emotion.Intensity >= c.ExtremeThreshold,
	}
	d := types.CrisisDecision{
		Escalate: t.AIModeration || t.CrisisEmotion || t.ExtremeIntensity,
		Triggers: t,
		Severity: types.RiskSafe,
	}
	if d.Escalate {
		d.Severity = types.RiskHigh
	}
	return d
}

// FailClosed is the decision used when a classifier could not resolve.
// Triggers that the available inputs support are still recorded.
func FailClosed(c policy.Crisis, risk *types.RiskVerdict, emotion *types.EmotionAssessment) types.CrisisDecision {
	var r types.RiskVerdict
	var em types.EmotionAssessment
	if risk != nil {
		r = *risk
	}
	if emotion != nil {
		em = *emotion
	}
	d := Decide(c, r, em)
	d.Escalate = true
	d.Severity = types.RiskHigh
	d.FailClosed = true
	return d
}
