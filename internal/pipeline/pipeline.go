package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anshukrra07/CampusCare-sub001/internal/alert"
	"github.com/anshukrra07/CampusCare-sub001/internal/crisis"
	"github.com/anshukrra07/CampusCare-sub001/internal/emotion"
	"github.com/anshukrra07/CampusCare-sub001/internal/intent"
	"github.com/anshukrra07/CampusCare-sub001/internal/metrics"
	"github.com/anshukrra07/CampusCare-sub001/internal/observability"
	"github.com/anshukrra07/CampusCare-sub001/internal/policy"
	"github.com/anshukrra07/CampusCare-sub001/internal/risk"
	"github.com/anshukrra07/CampusCare-sub001/internal/types"
)

// ErrInvalidMessage is returned for input the pipeline refuses to classify.
var ErrInvalidMessage = errors.New("invalid message")

type RiskClassifier interface {
	Classify(ctx context.Context, msg types.Message) types.RiskVerdict
}

type EmotionAnalyzer interface {
	Analyze(ctx context.Context, msg types.Message) types.EmotionAssessment
}

type IntentClassifier interface {
	Classify(ctx context.Context, msg types.Message) types.IntentFlags
}

// AlertRecorder persists and announces an alert. It runs on the background
// executor.
type AlertRecorder interface {
	Record(ctx context.Context, a *types.Alert) error
}

// Deps are the process-scoped collaborators, built once in cmd/.
type Deps struct {
	Risk       RiskClassifier
	Emotion    EmotionAnalyzer
	Intent     IntentClassifier
	Policy     policy.Source
	Recorder   AlertRecorder
	Background *Background
	Metrics    *metrics.Metrics
	// Deadline bounds one Process call. Zero uses DefaultDeadline.
	Deadline time.Duration
}

const (
	DefaultDeadline = 20 * time.Second
	// joinGrace is how long Process keeps waiting after the deadline for
	// classifiers to return their fallback results.
	joinGrace = 500 * time.Millisecond
)

// Pipeline is the message safety pipeline.
type Pipeline struct {
	deps   Deps
	engine *crisis.Engine
	now    func() time.Time
}

func New(deps Deps) *Pipeline {
	if deps.Deadline <= 0 {
		deps.Deadline = DefaultDeadline
	}
	if deps.Background == nil {
		deps.Background = NewBackground(4, deps.Metrics)
	}
	return &Pipeline{
		deps:   deps,
		engine: crisis.New(deps.Policy),
		now:    time.Now,
	}
}

type riskOutcome struct {
	verdict types.RiskVerdict
	err     error
}

type emotionOutcome struct {
	assessment types.EmotionAssessment
	err        error
}

type intentOutcome struct {
	flags types.IntentFlags
	err   error
}

// Process classifies one message. It returns an error only for invalid
// input; classifier failures degrade to fallbacks or to a fail-closed
// escalation.
func (p *Pipeline) Process(ctx context.Context, msg types.Message) (*types.Result, error) {
	msg, err := normalize(msg)
	if err != nil {
		return nil, err
	}

	start := p.now()
	reqID := types.RequestID(observability.RequestID(ctx))
	if reqID == "" {
		reqID = types.NewRequestID()
		ctx = observability.WithRequestID(ctx, string(reqID))
	}
	logger := observability.LoggerFromContext(ctx)
	pol := p.deps.Policy.Current()
	ctx = policy.WithSnapshot(ctx, pol)

	ctx, cancel := context.WithTimeout(ctx, p.deps.Deadline)
	defer cancel()

	intentCtx, cancelIntent := context.WithCancel(ctx)
	defer cancelIntent()
	intentCh := make(chan intentOutcome, 1)
	go func() {
		var out intentOutcome
		out.err = guard("intent", func() { out.flags = p.deps.Intent.Classify(intentCtx, msg) })
		intentCh <- out
	}()

	riskCh := make(chan riskOutcome, 1)
	emotionCh := make(chan emotionOutcome, 1)
	var g errgroup.Group
	g.Go(func() error {
		var out riskOutcome
		out.err = guard("risk", func() { out.verdict = p.deps.Risk.Classify(ctx, msg) })
		riskCh <- out
		return out.err
	})
	g.Go(func() error {
		var out emotionOutcome
		out.err = guard("emotion", func() { out.assessment = p.deps.Emotion.Analyze(ctx, msg) })
		emotionCh <- out
		return out.err
	})

	joined := make(chan error, 1)
	go func() { joined <- g.Wait() }()

	var joinErr error
	select {
	case joinErr = <-joined:
	case <-ctx.Done():
		select {
		case joinErr = <-joined:
		case <-time.After(joinGrace):
			joinErr = fmt.Errorf("classifiers did not finish: %w", ctx.Err())
		}
	}

	ro := takeRisk(riskCh)
	eo := takeEmotion(emotionCh)
	result := &types.Result{RequestID: reqID}

	var decision types.CrisisDecision
	if joinErr != nil || ro == nil || eo == nil || ro.err != nil || eo.err != nil {
		var rp *types.RiskVerdict
		var ep *types.EmotionAssessment
		if ro != nil && ro.err == nil {
			rp = &ro.verdict
		}
		if eo != nil && eo.err == nil {
			ep = &eo.assessment
		}
		decision = crisis.FailClosed(pol.Crisis, rp, ep)
		result.Risk = resolvedRisk(pol, rp, msg.Text)
		result.Emotion = resolvedEmotion(pol, ep, msg.Text)
		logger.Error("classifier unresolved, failing closed", "error", joinErr)
	} else {
		result.Risk = ro.verdict
		result.Emotion = eo.assessment
		decision = p.engine.Decide(ctx, ro.verdict, eo.assessment)
	}
	result.Crisis = decision

	if decision.Escalate {
		cancelIntent()
		p.escalate(ctx, reqID, msg, result)
	}

	var in intentOutcome
	select {
	case in = <-intentCh:
	case <-ctx.Done():
		select {
		case in = <-intentCh:
		case <-time.After(joinGrace):
			in.err = fmt.Errorf("intent did not finish: %w", ctx.Err())
		}
	}
	if in.err != nil {
		logger.Warn("intent unresolved, using empty flags", "error", in.err)
		in.flags = types.IntentFlags{}
	}
	result.Intent = in.flags

	if !decision.Escalate {
		result.Plan = intent.BuildPlan(in.flags).Names()
		result.Strategy = string(intent.SelectStrategy(in.flags))
	}

	elapsed := p.now().Sub(start)
	p.deps.Metrics.ObservePipeline(elapsed)
	logger.Info("message processed",
		"escalate", decision.Escalate,
		"risk", result.Risk.Value,
		"risk_source", result.Risk.Source,
		"emotion", result.Emotion.Category,
		"intensity", result.Emotion.Intensity,
		"strategy", result.Strategy,
		"duration", elapsed,
	)
	return result, nil
}

// escalate logs the decision and hands the alert to the background
// executor without waiting for it.
func (p *Pipeline) escalate(ctx context.Context, reqID types.RequestID, msg types.Message, r *types.Result) {
	triggers := r.Crisis.Triggers.Names()
	p.deps.Metrics.RecordEscalation(triggers)
	observability.LoggerFromContext(ctx).Error("crisis escalation",
		"triggers", strings.Join(triggers, ","),
		"fail_closed", r.Crisis.FailClosed,
		"risk_source", r.Risk.Source,
		"emotion", r.Emotion.Category,
		"intensity", r.Emotion.Intensity,
	)

	if p.deps.Recorder == nil {
		return
	}
	a := alert.Build(reqID, msg, r.Risk, r.Emotion, r.Crisis, p.now())
	p.deps.Background.Go(ctx, "alert", func(ctx context.Context) error {
		return p.deps.Recorder.Record(ctx, a)
	})
}

// Shutdown drains pending background work.
func (p *Pipeline) Shutdown(timeout time.Duration) bool {
	return p.deps.Background.Stop(timeout)
}

func normalize(msg types.Message) (types.Message, error) {
	if strings.TrimSpace(msg.Text) == "" {
		return msg, fmt.Errorf("%w: empty text", ErrInvalidMessage)
	}
	switch msg.Channel {
	case "":
		msg.Channel = types.ChannelText
	case types.ChannelText, types.ChannelVoice:
	default:
		return msg, fmt.Errorf("%w: unknown channel %q", ErrInvalidMessage, msg.Channel)
	}
	if msg.ID == "" {
		msg.ID = types.NewMessageID()
	}
	return msg, nil
}

// guard runs fn and converts a panic into an error.
func guard(name string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s classifier panic: %v", name, r)
		}
	}()
	fn()
	return nil
}

func takeRisk(ch chan riskOutcome) *riskOutcome {
	select {
	case o := <-ch:
		return &o
	default:
		return nil
	}
}

func takeEmotion(ch chan emotionOutcome) *emotionOutcome {
	select {
	case o := <-ch:
		return &o
	default:
		return nil
	}
}

// resolvedRisk fills the result when the risk classifier failed, using the
// keyword scan so the reported verdict is never empty.
func resolvedRisk(pol *policy.Policy, v *types.RiskVerdict, text string) (out types.RiskVerdict) {
	if v != nil {
		return *v
	}
	defer func() {
		if recover() != nil {
			out = types.RiskVerdict{Value: types.RiskHigh, Source: types.SourceKeyword}
		}
	}()
	return risk.Fallback(pol, text)
}

func resolvedEmotion(pol *policy.Policy, a *types.EmotionAssessment, text string) (out types.EmotionAssessment) {
	if a != nil {
		return *a
	}
	defer func() {
		if recover() != nil {
			out = types.EmotionAssessment{
				Category:  types.EmotionNeutral,
				Intensity: pol.Emotion.DefaultIntensity,
				Notes:     "emotion unresolved",
				Source:    types.SourceKeyword,
			}
		}
	}()
	return emotion.Fallback(pol, text)
}
