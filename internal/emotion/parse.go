package emotion

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/anshukrra07/CampusCare-sub001/internal/policy"
	"github.com/anshukrra07/CampusCare-sub001/internal/prompt"
	"github.com/anshukrra07/CampusCare-sub001/internal/types"
)

type rawAssessment struct {
	Emotion   any `json:"emotion"`
	Intensity any `json:"intensity"`
	Notes     any `json:"notes"`
}

// Parse decodes the model's JSON reply. Code fences and surrounding prose
// are tolerated. The category is normalized and the intensity clamped, so a
// successful parse always satisfies the assessment invariants.
func Parse(pol *policy.Policy, raw string) types.ParseResult[types.EmotionAssessment] {
	obj, ok := prompt.ExtractJSON(raw)
	if !ok {
		return types.ParseFailure[types.EmotionAssessment]("no JSON object in emotion output")
	}

	var r rawAssessment
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return types.ParseFailure[types.EmotionAssessment]("invalid emotion JSON: " + err.Error())
	}

	label, _ := r.Emotion.(string)
	notes, _ := r.Notes.(string)
	return types.Parsed(types.EmotionAssessment{
		Category:  Normalize(pol, label),
		Intensity: clamp(intensity(r.Intensity, pol.Emotion.DefaultIntensity)),
		Notes:     strings.TrimSpace(notes),
		Source:    types.SourceModel,
	})
}

// intensity accepts a number or a numeric string; anything else, including
// "n/a" and a missing field, yields def. Values are clamped to [0,100]
// before conversion so huge magnitudes cannot overflow int.
func intensity(v any, def int) int {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return def
		}
		return percent(x)
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(x), "%")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return def
		}
		return percent(f)
	default:
		return def
	}
}

func percent(x float64) int {
	switch {
	case x <= 0:
		return 0
	case x >= 100:
		return 100
	}
	return int(math.Round(x))
}
