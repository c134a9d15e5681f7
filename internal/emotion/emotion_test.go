package emotion

import (
	"context"
	"strings"
	"testing"

	"github.com/anshukrra07/CampusCare-sub001/internal/invoke"
	"github.com/anshukrra07/CampusCare-sub001/internal/policy"
	"github.com/anshukrra07/CampusCare-sub001/internal/types"
	"github.com/anshukrra07/CampusCare-sub001/pkg/llm"
)

type mockInvoker struct {
	text string
	err  error
}

func (m *mockInvoker) Invoke(ctx context.Context, prompt string, maxAttempts int) (*invoke.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &invoke.Result{Text: m.text, Attempt: 1}, nil
}

func TestParseIntensityAlwaysInRange(t *testing.T) {
	pol := policy.Default()
	tests := []struct {
		raw  string
		want int
	}{
		{`{"emotion":"sad","intensity":-10}`, 0},
		{`{"emotion":"sad","intensity":150}`, 100},
		{`{"emotion":"sad","intensity":"n/a"}`, 50},
		{`{"emotion":"sad"}`, 50},
		{`{"emotion":"sad","intensity":null}`, 50},
		{`{"emotion":"sad","intensity":"72"}`, 72},
		{`{"emotion":"sad","intensity":"80%"}`, 80},
		{`{"emotion":"sad","intensity":64.6}`, 65},
		{`{"emotion":"sad","intensity":true}`, 50},
		{`{"emotion":"sad","intensity":1e19}`, 100},
		{`{"emotion":"sad","intensity":-1e19}`, 0},
		{`{"emotion":"sad","intensity":"1e30"}`, 100},
		{`{"emotion":"sad","intensity":"-1e30"}`, 0},
		{`{"emotion":"sad","intensity":99.6}`, 100},
	}
	for _, tt := range tests {
		got := Parse(pol, tt.raw)
		if !got.OK() {
			t.Fatalf("Parse(%s) failed: %s", tt.raw, got.Failure)
		}
		if got.Value.Intensity != tt.want {
			t.Errorf("Parse(%s) intensity = %d, want %d", tt.raw, got.Value.Intensity, tt.want)
		}
		if got.Value.Intensity < 0 || got.Value.Intensity > 100 {
			t.Errorf("Parse(%s) intensity %d out of range", tt.raw, got.Value.Intensity)
		}
	}
}

func TestNormalize(t *testing.T) {
	pol := policy.Default()
	tests := map[string]types.Emotion{
		"joyful":        types.EmotionHappy,
		"Delighted":     types.EmotionHappy,
		" pleased ":     types.EmotionHappy,
		"self-harm":     types.EmotionSuicidal,
		"selfharm":      types.EmotionSuicidal,
		"anxious":       types.EmotionAnxious,
		"frustrated":    types.EmotionFrustrated,
		"hopeless":      types.EmotionDepressed,
		"bewildered":    types.EmotionNeutral,
		"":              types.EmotionNeutral,
		"schadenfreude": types.EmotionNeutral,
	}
	for raw, want := range tests {
		if got := Normalize(pol, raw); got != want {
			t.Errorf("Normalize(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestParseHandlesFencesAndFailures(t *testing.T) {
	pol := policy.Default()

	fenced := "```json\n{\"emotion\": \"Anxious\", \"intensity\": 70, \"notes\": \"exam stress\"}\n```"
	got := Parse(pol, fenced)
	if !got.OK() {
		t.Fatalf("expected fenced JSON to parse: %s", got.Failure)
	}
	if got.Value.Category != types.EmotionAnxious || got.Value.Notes != "exam stress" || got.Value.Source != types.SourceModel {
		t.Errorf("unexpected assessment: %+v", got.Value)
	}

	for _, raw := range []string{"", "I think they are sad", "{not json}", "}{"} {
		if r := Parse(pol, raw); r.OK() {
			t.Errorf("Parse(%q) should fail", raw)
		}
	}

	unknown := Parse(pol, `{"emotion":"wistful","intensity":40}`)
	if !unknown.OK() || unknown.Value.Category != types.EmotionNeutral {
		t.Errorf("expected unknown label to become neutral, got %+v", unknown)
	}
}

func TestBoost(t *testing.T) {
	pol := policy.Default()

	low := types.EmotionAssessment{Category: types.EmotionHappy, Intensity: 60, Notes: "good news", Source: types.SourceModel}
	got := Boost(pol, low, "I am so excited!")
	if got.Intensity != 80 {
		t.Errorf("expected boost to 80, got %d", got.Intensity)
	}
	if !strings.HasPrefix(got.Notes, "good news; ") {
		t.Errorf("expected note appended, got %q", got.Notes)
	}

	if got := Boost(pol, low, "I am excited"); got.Intensity != 60 {
		t.Errorf("no intensifier should leave intensity, got %d", got.Intensity)
	}

	high := low
	high.Intensity = 75
	if got := Boost(pol, high, "so happy"); got.Intensity != 75 {
		t.Errorf("intensity above threshold should stay, got %d", got.Intensity)
	}

	sad := low
	sad.Category = types.EmotionSad
	if got := Boost(pol, sad, "so happy"); got.Intensity != 60 {
		t.Errorf("non-happy category should not be boosted, got %d", got.Intensity)
	}
}

func TestFallbackRules(t *testing.T) {
	pol := policy.Default()
	tests := []struct {
		msg       string
		category  types.Emotion
		intensity int
	}{
		{"I want to kill myself", types.EmotionSuicidal, 95},
		{"We talked about suicide prevention", types.EmotionSuicidal, 95},
		{"I'm excited about graduation", types.EmotionHappy, 85},
		{"I am so happy today", types.EmotionHappy, 85},
		{"I had a good day", types.EmotionHappy, 70},
		{"I feel lonely", types.EmotionSad, 70},
		{"I'm worried about tomorrow", types.EmotionAnxious, 65},
		{"This is so unfair", types.EmotionAngry, 65},
		{"The bus is late", types.EmotionNeutral, 30},
		{"I want to die but I'm getting better", types.EmotionNeutral, 30},
		{"I don\u2019t want to live anymore", types.EmotionSuicidal, 95},
		{"I want to kill  myself", types.EmotionSuicidal, 95},
		{"I want to kill\nmyself", types.EmotionSuicidal, 95},
		{"I don't want to be here anymore. I want to die.", types.EmotionSuicidal, 95},
	}
	for _, tt := range tests {
		got := Fallback(pol, tt.msg)
		if got.Category != tt.category || got.Intensity != tt.intensity {
			t.Errorf("Fallback(%q) = {%s, %d}, want {%s, %d}", tt.msg, got.Category, got.Intensity, tt.category, tt.intensity)
		}
		if got.Source != types.SourceKeyword {
			t.Errorf("Fallback(%q) source = %s", tt.msg, got.Source)
		}
		if got.Notes == "" {
			t.Errorf("Fallback(%q) missing notes", tt.msg)
		}
	}
}

func TestAnalyzeModelPath(t *testing.T) {
	a := New(&mockInvoker{text: `{"emotion":"delighted","intensity":50,"notes":"good news"}`}, policy.Static(policy.Default()), nil, nil)
	got := a.Analyze(context.Background(), types.Message{Text: "I'm so happy about my grades", Channel: types.ChannelText})

	if got.Category != types.EmotionHappy || got.Source != types.SourceModel {
		t.Errorf("unexpected assessment: %+v", got)
	}
	if got.Intensity != 80 {
		t.Errorf("expected happy boost to 80, got %d", got.Intensity)
	}
}

func TestAnalyzeFallsBack(t *testing.T) {
	src := policy.Static(policy.Default())
	msg := types.Message{Text: "I want to kill myself", Channel: types.ChannelVoice}

	for name, inv := range map[string]Invoker{
		"error":       &mockInvoker{err: llm.NewTransient(503, "overloaded", nil)},
		"parse":       &mockInvoker{text: "I'd say they are very upset"},
		"no invoker":  nil,
		"unavailable": invoke.New(nil, invoke.DefaultPolicy()),
	} {
		got := New(inv, src, nil, nil).Analyze(context.Background(), msg)
		if got.Category != types.EmotionSuicidal || got.Intensity != 95 || got.Source != types.SourceKeyword {
			t.Errorf("%s: expected keyword suicidal 95, got %+v", name, got)
		}
	}
}
