package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anshukrra07/CampusCare-sub001/internal/emotion"
	"github.com/anshukrra07/CampusCare-sub001/internal/intent"
	"github.com/anshukrra07/CampusCare-sub001/internal/invoke"
	"github.com/anshukrra07/CampusCare-sub001/internal/metrics"
	"github.com/anshukrra07/CampusCare-sub001/internal/policy"
	"github.com/anshukrra07/CampusCare-sub001/internal/risk"
	"github.com/anshukrra07/CampusCare-sub001/internal/types"
	"github.com/anshukrra07/CampusCare-sub001/pkg/llm"
	"github.com/anshukrra07/CampusCare-sub001/pkg/llm/llmtest"
)

type recorderFunc func(ctx context.Context, a *types.Alert) error

func (f recorderFunc) Record(ctx context.Context, a *types.Alert) error { return f(ctx, a) }

type alertSink struct {
	mu     sync.Mutex
	alerts []*types.Alert
}

func (s *alertSink) Record(_ context.Context, a *types.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *alertSink) all() []*types.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*types.Alert(nil), s.alerts...)
}

type riskFunc func(ctx context.Context, msg types.Message) types.RiskVerdict

func (f riskFunc) Classify(ctx context.Context, msg types.Message) types.RiskVerdict {
	return f(ctx, msg)
}

type emotionFunc func(ctx context.Context, msg types.Message) types.EmotionAssessment

func (f emotionFunc) Analyze(ctx context.Context, msg types.Message) types.EmotionAssessment {
	return f(ctx, msg)
}

type intentFunc func(ctx context.Context, msg types.Message) types.IntentFlags

func (f intentFunc) Classify(ctx context.Context, msg types.Message) types.IntentFlags {
	return f(ctx, msg)
}

// realDeps wires the production classifiers around provider.
func realDeps(provider llm.Provider, sink AlertRecorder) Deps {
	src := policy.Static(policy.Default())
	inv := invoke.New(provider, invoke.Policy{MaxAttempts: 2, AttemptTimeout: time.Second},
		invoke.WithSleep(func(context.Context, time.Duration) error { return nil }))
	return Deps{
		Risk:     risk.New(inv, src, nil, nil),
		Emotion:  emotion.New(inv, src, nil, nil),
		Intent:   intent.New(inv, src, nil, nil),
		Policy:   src,
		Recorder: sink,
		Deadline: 5 * time.Second,
	}
}

func TestEndToEndCrisisMessage(t *testing.T) {
	for name, provider := range map[string]llm.Provider{
		"no provider":     nil,
		"failing service": llmtest.Fail(llm.NewPermanent(401, "invalid credentials", nil)),
	} {
		t.Run(name, func(t *testing.T) {
			sink := &alertSink{}
			deps := realDeps(provider, sink)
			deps.Background = NewBackground(2, nil)
			p := New(deps)

			res, err := p.Process(context.Background(), types.Message{Text: "I want to kill myself", Channel: types.ChannelText})
			if err != nil {
				t.Fatal(err)
			}

			if res.Risk.Value != types.RiskHigh || res.Risk.Source != types.SourceKeyword {
				t.Errorf("expected {high, keyword}, got %+v", res.Risk)
			}
			if res.Emotion.Category != types.EmotionSuicidal || res.Emotion.Intensity != 95 || res.Emotion.Source != types.SourceKeyword {
				t.Errorf("expected {suicidal, 95, keyword}, got %+v", res.Emotion)
			}
			if !res.Crisis.Escalate || !res.Crisis.Triggers.AIModeration || res.Crisis.Severity != types.RiskHigh {
				t.Errorf("expected escalation with ai moderation, got %+v", res.Crisis)
			}
			if res.Crisis.FailClosed {
				t.Error("resolved classifiers should not fail closed")
			}
			if res.Plan != nil || res.Strategy != "" {
				t.Errorf("crisis path should not build a plan, got %v %q", res.Plan, res.Strategy)
			}

			if !p.deps.Background.WaitIdle(2 * time.Second) {
				t.Fatal("background alert did not finish")
			}
			alerts := sink.all()
			if len(alerts) != 1 {
				t.Fatalf("expected 1 alert, got %d", len(alerts))
			}
			if alerts[0].Message != "I want to kill myself" || alerts[0].RequestID != res.RequestID {
				t.Errorf("unexpected alert: %+v", alerts[0])
			}
		})
	}
}

func TestEndToEndPositiveMessage(t *testing.T) {
	sink := &alertSink{}
	p := New(realDeps(nil, sink))

	res, err := p.Process(context.Background(), types.Message{Text: "I'm excited about graduation", Channel: types.ChannelText})
	if err != nil {
		t.Fatal(err)
	}
	if res.Emotion.Category != types.EmotionHappy || res.Emotion.Intensity < 75 {
		t.Errorf("expected happy >= 75, got %+v", res.Emotion)
	}
	if res.Crisis.Escalate {
		t.Errorf("expected no escalation, got %+v", res.Crisis)
	}
	if res.Strategy != string(intent.StrategyConversational) {
		t.Errorf("expected conversational strategy, got %q", res.Strategy)
	}
	if len(res.Plan) != 1 || res.Plan[0] != "chats" {
		t.Errorf("expected chats-only plan, got %v", res.Plan)
	}
	p.deps.Background.WaitIdle(time.Second)
	if len(sink.all()) != 0 {
		t.Error("no alert expected")
	}
}

func TestModelPathDrivesPlan(t *testing.T) {
	provider := &llmtest.Provider{CompleteFunc: func(_ context.Context, req llm.Request) (*llm.Response, error) {
		prompt := req.Messages[0].Content
		switch {
		case strings.Contains(prompt, "high or safe"):
			return &llm.Response{Content: "safe"}, nil
		case strings.Contains(prompt, "dominant emotion"):
			return &llm.Response{Content: `{"emotion":"worried","intensity":55,"notes":"exams"}`}, nil
		default:
			return &llm.Response{Content: `{"needs_summary": true}`}, nil
		}
	}}
	p := New(realDeps(provider, nil))

	res, err := p.Process(context.Background(), types.Message{Text: "how am I doing overall?"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Emotion.Category != types.EmotionAnxious || res.Emotion.Source != types.SourceModel {
		t.Errorf("unexpected emotion: %+v", res.Emotion)
	}
	if res.Strategy != string(intent.StrategySummary) || len(res.Plan) != 6 {
		t.Errorf("expected summary plan, got %q %v", res.Strategy, res.Plan)
	}
}

func TestRiskPanicFailsClosed(t *testing.T) {
	m := metrics.New()
	sink := &alertSink{}
	p := New(Deps{
		Risk: riskFunc(func(context.Context, types.Message) types.RiskVerdict { panic("boom") }),
		Emotion: emotionFunc(func(context.Context, types.Message) types.EmotionAssessment {
			return types.EmotionAssessment{Category: types.EmotionNeutral, Intensity: 20, Source: types.SourceModel}
		}),
		Intent:   intentFunc(func(context.Context, types.Message) types.IntentFlags { return types.IntentFlags{} }),
		Policy:   policy.Static(policy.Default()),
		Recorder: sink,
		Metrics:  m,
	})

	res, err := p.Process(context.Background(), types.Message{Text: "just a normal day"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Crisis.Escalate || !res.Crisis.FailClosed || res.Crisis.Severity != types.RiskHigh {
		t.Errorf("expected fail-closed escalation, got %+v", res.Crisis)
	}
	if res.Risk.Source != types.SourceKeyword || res.Risk.Value != types.RiskSafe {
		t.Errorf("expected keyword risk in result, got %+v", res.Risk)
	}
	if res.Emotion.Intensity != 20 {
		t.Errorf("expected resolved emotion to be kept, got %+v", res.Emotion)
	}

	p.deps.Background.WaitIdle(time.Second)
	alerts := sink.all()
	if len(alerts) != 1 || !alerts[0].Meta.FailClosed {
		t.Errorf("expected one fail-closed alert, got %+v", alerts)
	}
}

func TestIntentPanicYieldsEmptyFlags(t *testing.T) {
	p := New(Deps{
		Risk: riskFunc(func(context.Context, types.Message) types.RiskVerdict {
			return types.RiskVerdict{Value: types.RiskSafe, Source: types.SourceModel}
		}),
		Emotion: emotionFunc(func(context.Context, types.Message) types.EmotionAssessment {
			return types.EmotionAssessment{Category: types.EmotionHappy, Intensity: 60, Source: types.SourceModel}
		}),
		Intent: intentFunc(func(context.Context, types.Message) types.IntentFlags { panic("bad regex") }),
		Policy: policy.Static(policy.Default()),
	})

	res, err := p.Process(context.Background(), types.Message{Text: "show my moods"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Crisis.Escalate {
		t.Errorf("intent failure must not escalate, got %+v", res.Crisis)
	}
	if res.Intent != (types.IntentFlags{}) || res.Strategy != string(intent.StrategyConversational) {
		t.Errorf("expected empty flags and conversational, got %+v %q", res.Intent, res.Strategy)
	}
}

func TestEscalationCancelsIntent(t *testing.T) {
	intentCanceled := make(chan struct{})
	p := New(Deps{
		Risk: riskFunc(func(context.Context, types.Message) types.RiskVerdict {
			return types.RiskVerdict{Value: types.RiskHigh, Source: types.SourceModel}
		}),
		Emotion: emotionFunc(func(context.Context, types.Message) types.EmotionAssessment {
			return types.EmotionAssessment{Category: types.EmotionSad, Intensity: 70, Source: types.SourceModel}
		}),
		Intent: intentFunc(func(ctx context.Context, _ types.Message) types.IntentFlags {
			<-ctx.Done()
			close(intentCanceled)
			return types.IntentFlags{NeedsAlerts: true}
		}),
		Policy:   policy.Static(policy.Default()),
		Deadline: 10 * time.Second,
	})

	start := time.Now()
	res, err := p.Process(context.Background(), types.Message{Text: "anything"})
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("process waited for the deadline instead of cancelling intent")
	}
	select {
	case <-intentCanceled:
	default:
		t.Error("intent context was not cancelled")
	}
	if !res.Crisis.Escalate || !res.Intent.NeedsAlerts {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestDeadlineFallsBackWithoutFailingClosed(t *testing.T) {
	provider := llmtest.Block()
	deps := realDeps(provider, nil)
	deps.Deadline = 50 * time.Millisecond
	p := New(deps)

	res, err := p.Process(context.Background(), types.Message{Text: "I'm excited about graduation"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Crisis.Escalate {
		t.Errorf("expected keyword fallbacks to resolve after deadline, got %+v", res.Crisis)
	}
	if res.Emotion.Source != types.SourceKeyword {
		t.Errorf("expected keyword emotion, got %+v", res.Emotion)
	}
}

func TestStuckClassifierFailsClosed(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	p := New(Deps{
		Risk: riskFunc(func(context.Context, types.Message) types.RiskVerdict {
			<-release
			return types.RiskVerdict{Value: types.RiskSafe}
		}),
		Emotion: emotionFunc(func(context.Context, types.Message) types.EmotionAssessment {
			return types.EmotionAssessment{Category: types.EmotionNeutral, Intensity: 10, Source: types.SourceModel}
		}),
		Intent:   intentFunc(func(context.Context, types.Message) types.IntentFlags { return types.IntentFlags{} }),
		Policy:   policy.Static(policy.Default()),
		Deadline: 20 * time.Millisecond,
	})

	res, err := p.Process(context.Background(), types.Message{Text: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Crisis.Escalate || !res.Crisis.FailClosed {
		t.Errorf("expected fail-closed escalation, got %+v", res.Crisis)
	}
}

func TestProcessRejectsInvalidMessages(t *testing.T) {
	p := New(realDeps(nil, nil))
	for _, msg := range []types.Message{
		{Text: ""},
		{Text: "   "},
		{Text: "hi", Channel: "fax"},
	} {
		if _, err := p.Process(context.Background(), msg); !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("Process(%+v) expected ErrInvalidMessage, got %v", msg, err)
		}
	}
}

func TestRecorderFailureDoesNotSurface(t *testing.T) {
	m := metrics.New()
	deps := realDeps(nil, recorderFunc(func(context.Context, *types.Alert) error {
		return errors.New("firestore down")
	}))
	deps.Metrics = m
	deps.Background = NewBackground(1, m)
	p := New(deps)

	res, err := p.Process(context.Background(), types.Message{Text: "I want to end my life"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Crisis.Escalate {
		t.Fatal("expected escalation")
	}
	p.deps.Background.WaitIdle(time.Second)
}
