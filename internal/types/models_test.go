// internal/types/models_test.go
package types

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestTriggerNames(t *testing.T) {
	tests := []struct {
		name     string
		triggers Triggers
		want     []string
	}{
		{"none", Triggers{}, nil},
		{"moderation only", Triggers{AIModeration: true}, []string{"ai_moderation"}},
		{"all", Triggers{AIModeration: true, CrisisEmotion: true, ExtremeIntensity: true},
			[]string{"ai_moderation", "crisis_emotion", "extreme_intensity"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.triggers.Names(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestResultOmitsPlanOnCrisisPath(t *testing.T) {
	res := Result{
		Crisis: CrisisDecision{Escalate: true, Severity: RiskHigh},
	}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["plan"]; ok {
		t.Error("expected plan to be omitted")
	}
	if _, ok := m["strategy"]; ok {
		t.Error("expected strategy to be omitted")
	}
}

func TestParseResult(t *testing.T) {
	ok := Parsed(42)
	if !ok.OK() || ok.Value != 42 {
		t.Errorf("expected parsed 42, got %+v", ok)
	}
	bad := ParseFailure[int]("")
	if bad.OK() {
		t.Error("expected failure")
	}
	if bad.Failure == "" {
		t.Error("expected default failure reason")
	}
}
