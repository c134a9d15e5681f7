package prompt

import (
	"fmt"
	"strings"
	"text/template"
)

const riskTemplate = `You are a safety moderator for a student mental-wellness assistant.
Decide whether the student's message indicates risk of self-harm, suicide, or
immediate danger. When in doubt, answer high.

Reply with exactly one word: high or safe.

Message ({{.Channel}}):
"""
{{.Text}}
"""`

const emotionTemplate = `Identify the dominant emotion in the student's message.

Respond with only a JSON object:
{"emotion": "<one of: {{.Emotions}}>", "intensity": <integer 0-100>, "notes": "<one short sentence>"}

Message ({{.Channel}}):
"""
{{.Text}}
"""`

const intentTemplate = `Decide which of the student's records a helpful reply should draw on.

Respond with only a JSON object with these boolean fields:
{"needs_assessments": false, "needs_moods": false, "needs_appointments": false,
 "needs_alerts": false, "needs_summary": false, "needs_profile": false}

Set needs_summary when the student asks for an overview of their progress.

Message:
"""
{{.Text}}
"""`

var (
	riskTmpl    = template.Must(template.New("risk").Parse(riskTemplate))
	emotionTmpl = template.Must(template.New("emotion").Parse(emotionTemplate))
	intentTmpl  = template.Must(template.New("intent").Parse(intentTemplate))
)

type data struct {
	Text     string
	Channel  string
	Emotions string
}

// Builder renders classifier prompts with the message fitted to a token
// budget.
type Builder struct {
	budget *Budget
}

// NewBuilder accepts a nil budget, in which case messages are not truncated.
func NewBuilder(budget *Budget) *Builder {
	return &Builder{budget: budget}
}

func (b *Builder) Risk(text, channel string) (string, error) {
	return b.render(riskTmpl, data{Text: b.fit(text), Channel: channel})
}

func (b *Builder) Emotion(text, channel string, canonical []string) (string, error) {
	return b.render(emotionTmpl, data{Text: b.fit(text), Channel: channel, Emotions: strings.Join(canonical, ", ")})
}

func (b *Builder) Intent(text string) (string, error) {
	return b.render(intentTmpl, data{Text: b.fit(text)})
}

func (b *Builder) fit(text string) string {
	if b == nil {
		return text
	}
	return b.budget.Truncate(text)
}

func (b *Builder) render(t *template.Template, d data) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, d); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return sb.String(), nil
}
