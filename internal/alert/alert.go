package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anshukrra07/CampusCare-sub001/internal/types"
)

// Store persists crisis alerts. Implementations live under internal/state.
type Store interface {
	Append(ctx context.Context, a *types.Alert) error
	// Recent returns up to limit alerts, newest first.
	Recent(ctx context.Context, limit int) ([]*types.Alert, error)
}

// Notifier tells a human about an alert.
type Notifier interface {
	Notify(ctx context.Context, a *types.Alert) error
}

// Build assembles the alert record for an escalated decision.
func Build(reqID types.RequestID, msg types.Message, risk types.RiskVerdict, emotion types.EmotionAssessment, d types.CrisisDecision, now time.Time) *types.Alert {
	return &types.Alert{
		ID:        types.NewAlertID(),
		Severity:  d.Severity,
		Reason:    Reason(risk, emotion, d),
		Message:   msg.Text,
		UserID:    msg.UserID,
		Channel:   msg.Channel,
		RequestID: reqID,
		CreatedAt: now.UTC(),
		Meta: types.AlertMeta{
			Emotion:         emotion.Category,
			Intensity:       emotion.Intensity,
			EmotionSource:   emotion.Source,
			RiskSource:      risk.Source,
			MatchedKeywords: risk.MatchedKeywords,
			Triggers:        d.Triggers.Names(),
			FailClosed:      d.FailClosed,
		},
	}
}

// Reason renders a one-line human summary of why the message escalated.
func Reason(risk types.RiskVerdict, emotion types.EmotionAssessment, d types.CrisisDecision) string {
	var parts []string
	if d.Triggers.AIModeration {
		p := fmt.Sprintf("risk %s via %s", risk.Value, risk.Source)
		if len(risk.MatchedKeywords) > 0 {
			p += fmt.Sprintf(" (matched %q)", strings.Join(risk.MatchedKeywords, ", "))
		}
		parts = append(parts, p)
	}
	if d.Triggers.CrisisEmotion {
		parts = append(parts, fmt.Sprintf("crisis emotion %s at %d", emotion.Category, emotion.Intensity))
	}
	if d.Triggers.ExtremeIntensity {
		parts = append(parts, fmt.Sprintf("extreme intensity %d", emotion.Intensity))
	}
	if d.FailClosed {
		parts = append(parts, "classifier unresolved, failed closed")
	}
	if len(parts) == 0 {
		return "crisis escalation"
	}
	return "crisis escalation: " + strings.Join(parts, "; ")
}

// Summary is the short text sent to counselors.
func Summary(a *types.Alert) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] CampusCare alert %s\n", strings.ToUpper(string(a.Severity)), a.ID)
	sb.WriteString(a.Reason)
	sb.WriteString("\n")
	if a.UserID != "" {
		fmt.Fprintf(&sb, "Student: %s\n", a.UserID)
	}
	fmt.Fprintf(&sb, "Channel: %s\nAt: %s\n\n%s", a.Channel, a.CreatedAt.Format(time.RFC3339), a.Message)
	return sb.String()
}
