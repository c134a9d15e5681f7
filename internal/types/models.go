// internal/types/models.go
package types

import "time"

type Channel string

const (
	ChannelText  Channel = "text"
	ChannelVoice Channel = "voice"
)

// Message is the immutable input to the safety pipeline.
type Message struct {
	ID      MessageID `json:"id,omitempty"`
	UserID  string    `json:"user_id,omitempty"`
	Text    string    `json:"text"`
	Channel Channel   `json:"channel"`
}

// RiskLevel doubles as the crisis severity.
type RiskLevel string

const (
	RiskHigh RiskLevel = "high"
	RiskSafe RiskLevel = "safe"
)

// Source records which path produced a classification.
type Source string

const (
	SourceModel   Source = "model"
	SourceKeyword Source = "keyword"
)

type RiskVerdict struct {
	Value           RiskLevel `json:"value"`
	Source          Source    `json:"source"`
	MatchedKeywords []string  `json:"matched_keywords,omitempty"`
}

type Emotion string

const (
	EmotionHappy      Emotion = "happy"
	EmotionSad        Emotion = "sad"
	EmotionAnxious    Emotion = "anxious"
	EmotionAngry      Emotion = "angry"
	EmotionExcited    Emotion = "excited"
	EmotionFrustrated Emotion = "frustrated"
	EmotionDepressed  Emotion = "depressed"
	EmotionSuicidal   Emotion = "suicidal"
	EmotionNeutral    Emotion = "neutral"
)

// EmotionAssessment always carries a canonical category and an intensity in [0,100].
type EmotionAssessment struct {
	Category  Emotion `json:"category"`
	Intensity int     `json:"intensity"`
	Notes     string  `json:"notes"`
	Source    Source  `json:"source"`
}

type IntentFlags struct {
	NeedsAssessments  bool `json:"needs_assessments"`
	NeedsMoods        bool `json:"needs_moods"`
	NeedsAppointments bool `json:"needs_appointments"`
	NeedsAlerts       bool `json:"needs_alerts"`
	NeedsSummary      bool `json:"needs_summary"`
	NeedsProfile      bool `json:"needs_profile"`
}

type Triggers struct {
	AIModeration     bool `json:"ai_moderation"`
	CrisisEmotion    bool `json:"crisis_emotion"`
	ExtremeIntensity bool `json:"extreme_intensity"`
}

// Names lists the triggers that fired, in a stable order.
func (t Triggers) Names() []string {
	var names []string
	if t.AIModeration {
		names = append(names, "ai_moderation")
	}
	if t.CrisisEmotion {
		names = append(names, "crisis_emotion")
	}
	if t.ExtremeIntensity {
		names = append(names, "extreme_intensity")
	}
	return names
}

// CrisisDecision is derived once per request and never mutated.
type CrisisDecision struct {
	Escalate bool      `json:"escalate"`
	Triggers Triggers  `json:"triggers"`
	Severity RiskLevel `json:"severity"`
	// FailClosed is set when a classifier could not resolve and the
	// pipeline escalated without a complete signal.
	FailClosed bool `json:"fail_closed,omitempty"`
}

type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeTransientFailure Outcome = "transient_failure"
	OutcomePermanentFailure Outcome = "permanent_failure"
)

type InvocationAttempt struct {
	AttemptNumber int           `json:"attempt_number"`
	ModelVariant  string        `json:"model_variant"`
	Outcome       Outcome       `json:"outcome"`
	Duration      time.Duration `json:"duration"`
}

// AlertMeta is the audit context stored with an alert.
type AlertMeta struct {
	Emotion         Emotion  `json:"emotion"`
	Intensity       int      `json:"intensity"`
	EmotionSource   Source   `json:"emotion_source"`
	RiskSource      Source   `json:"risk_source"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	Triggers        []string `json:"triggers"`
	FailClosed      bool     `json:"fail_closed,omitempty"`
}

type Alert struct {
	ID        AlertID   `json:"id"`
	Severity  RiskLevel `json:"severity"`
	Reason    string    `json:"reason"`
	Message   string    `json:"message"`
	UserID    string    `json:"user_id,omitempty"`
	Channel   Channel   `json:"channel"`
	RequestID RequestID `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Meta      AlertMeta `json:"meta"`
}

// Result is what the pipeline hands back to the surrounding application.
// Plan and Strategy are only populated on the non-crisis path.
type Result struct {
	RequestID RequestID         `json:"request_id"`
	Risk      RiskVerdict       `json:"risk"`
	Emotion   EmotionAssessment `json:"emotion"`
	Crisis    CrisisDecision    `json:"crisis"`
	Intent    IntentFlags       `json:"intent"`
	Plan      []string          `json:"plan,omitempty"`
	Strategy  string            `json:"strategy,omitempty"`
}
