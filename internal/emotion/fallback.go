package emotion

import (
	"github.com/anshukrra07/CampusCare-sub001/internal/policy"
	"github.com/anshukrra07/CampusCare-sub001/internal/types"
)

const (
	noteCrisis    = "crisis language detected by keyword rules"
	noteIntense   = "strongly positive language detected by keyword rules"
	notePositive  = "positive vocabulary detected by keyword rules"
	noteNegative  = "negative vocabulary detected by keyword rules"
	noteAnxiety   = "anxiety vocabulary detected by keyword rules"
	noteAnger     = "anger vocabulary detected by keyword rules"
	noteNoSignals = "no emotional keywords found"
)

// Fallback applies the lexicon rules in order; the first match wins.
func Fallback(pol *policy.Policy, text string) types.EmotionAssessment {
	lowered := policy.Normalize(text)
	e := &pol.Emotion

	result := func(c types.Emotion, intensity int, note string) types.EmotionAssessment {
		return types.EmotionAssessment{Category: c, Intensity: intensity, Notes: note, Source: types.SourceKeyword}
	}

	crisis := len(policy.ContainsAny(lowered, pol.Risk.HighRiskPhrases)) > 0 ||
		len(policy.ContainsAny(lowered, e.CrisisKeywords)) > 0
	hopeful := len(policy.ContainsAny(lowered, pol.Risk.PositiveContext)) > 0

	switch {
	case crisis && !hopeful:
		return result(types.EmotionSuicidal, 95, noteCrisis)
	case e.Intensified(lowered) || len(policy.ContainsAny(lowered, e.StrongPositive)) > 0:
		return result(types.EmotionHappy, 85, noteIntense)
	case e.Positive(lowered):
		return result(types.EmotionHappy, 70, notePositive)
	case e.Negative(lowered):
		return result(types.EmotionSad, 70, noteNegative)
	case e.Anxious(lowered):
		return result(types.EmotionAnxious, 65, noteAnxiety)
	case e.Angry(lowered):
		return result(types.EmotionAngry, 65, noteAnger)
	default:
		return result(types.EmotionNeutral, 30, noteNoSignals)
	}
}
