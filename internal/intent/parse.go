package intent

import (
	"encoding/json"
	"strings"

	"github.com/anshukrra07/CampusCare-sub001/internal/prompt"
	"github.com/anshukrra07/CampusCare-sub001/internal/types"
)

// Parse decodes the six flags from a JSON object. Keys match
// case-insensitively with underscores ignored, so "needsMoods" and
// "needs_moods" are the same field. Missing keys are false.
func Parse(raw string) types.ParseResult[types.IntentFlags] {
	obj, ok := prompt.ExtractJSON(raw)
	if !ok {
		return types.ParseFailure[types.IntentFlags]("no JSON object in intent output")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return types.ParseFailure[types.IntentFlags]("invalid intent JSON: " + err.Error())
	}

	var flags types.IntentFlags
	targets := map[string]*bool{
		"needsassessments":  &flags.NeedsAssessments,
		"needsmoods":        &flags.NeedsMoods,
		"needsappointments": &flags.NeedsAppointments,
		"needsalerts":       &flags.NeedsAlerts,
		"needssummary":      &flags.NeedsSummary,
		"needsprofile":      &flags.NeedsProfile,
	}
	for k, v := range fields {
		key := strings.ToLower(strings.ReplaceAll(k, "_", ""))
		if dst, ok := targets[key]; ok {
			*dst = truthy(v)
		}
	}
	return types.Parsed(flags)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "y", "1":
			return true
		}
	}
	return false
}
