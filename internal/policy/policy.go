package policy

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_policy.yaml
var defaultPolicy []byte

// Policy is the product-tunable safety data: phrase lists, lexicons, intent
// patterns and crisis thresholds. Use Load or Default; both return a
// validated policy with compiled patterns.
type Policy struct {
	Risk    Risk    `yaml:"risk"`
	Emotion Emotion `yaml:"emotion"`
	Intent  Intent  `yaml:"intent"`
	Crisis  Crisis  `yaml:"crisis"`
}

type Risk struct {
	PositiveContext []string `yaml:"positive_context"`
	HighRiskPhrases []string `yaml:"high_risk_phrases"`
}

type Emotion struct {
	Canonical          []string          `yaml:"canonical"`
	Synonyms           map[string]string `yaml:"synonyms"`
	DefaultIntensity   int               `yaml:"default_intensity"`
	CrisisKeywords     []string          `yaml:"crisis_keywords"`
	Intensifiers       []string          `yaml:"intensifiers"`
	PositiveAdjectives []string          `yaml:"positive_adjectives"`
	StrongPositive     []string          `yaml:"strong_positive"`
	PositiveWords      []string          `yaml:"positive_words"`
	NegativeWords      []string          `yaml:"negative_words"`
	AnxietyWords       []string          `yaml:"anxiety_words"`
	AngerWords         []string          `yaml:"anger_words"`
	HappyBoost         HappyBoost        `yaml:"happy_boost"`

	intensified *regexp.Regexp
	positive    *regexp.Regexp
	negative    *regexp.Regexp
	anxiety     *regexp.Regexp
	anger       *regexp.Regexp
}

type HappyBoost struct {
	Below   int    `yaml:"below"`
	RaiseTo int    `yaml:"raise_to"`
	Note    string `yaml:"note"`
}

type Intent struct {
	Assessments  string `yaml:"assessments"`
	Moods        string `yaml:"moods"`
	Appointments string `yaml:"appointments"`
	Alerts       string `yaml:"alerts"`
	Summary      string `yaml:"summary"`
	Profile      string `yaml:"profile"`

	compiled IntentPatterns
}

// IntentPatterns holds the compiled per-domain patterns.
type IntentPatterns struct {
	Assessments  *regexp.Regexp
	Moods        *regexp.Regexp
	Appointments *regexp.Regexp
	Alerts       *regexp.Regexp
	Summary      *regexp.Regexp
	Profile      *regexp.Regexp
}

type Crisis struct {
	Emotions         []string `yaml:"emotions"`
	EmotionThreshold int      `yaml:"emotion_threshold"`
	ExtremeThreshold int      `yaml:"extreme_threshold"`
}

// Default returns the embedded policy. It panics if the embedded document
// is invalid, which the package tests rule out.
func Default() *Policy {
	p, err := Parse(defaultPolicy)
	if err != nil {
		panic(fmt.Sprintf("embedded policy: %v", err))
	}
	return p
}

// DefaultYAML returns the embedded policy document.
func DefaultYAML() []byte {
	return bytes.Clone(defaultPolicy)
}

// Parse decodes a complete policy document. Unknown keys are rejected.
func Parse(data []byte) (*Policy, error) {
	p := &Policy{}
	if err := decode(data, p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads an operator policy file and layers it over the embedded
// default. Lists in the file replace the default lists; synonym entries are
// merged into the default table.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy: %w", err)
	}

	p := &Policy{}
	if err := decode(defaultPolicy, p); err != nil {
		return nil, fmt.Errorf("embedded policy: %w", err)
	}
	if err := decode(data, p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return p, nil
}

func decode(data []byte, p *Policy) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return fmt.Errorf("decoding policy: %w", err)
	}
	return nil
}

// Validate checks ranges and references and compiles every pattern.
func (p *Policy) Validate() error {
	if len(p.Risk.HighRiskPhrases) == 0 {
		return fmt.Errorf("risk.high_risk_phrases must not be empty")
	}

	e := &p.Emotion
	if len(e.Canonical) == 0 {
		return fmt.Errorf("emotion.canonical must not be empty")
	}
	if !slices.Contains(e.Canonical, "neutral") {
		return fmt.Errorf("emotion.canonical must include neutral")
	}
	for from, to := range e.Synonyms {
		if !slices.Contains(e.Canonical, to) {
			return fmt.Errorf("emotion.synonyms: %q maps to non-canonical %q", from, to)
		}
	}
	if err := checkPercent("emotion.default_intensity", e.DefaultIntensity); err != nil {
		return err
	}
	if err := checkPercent("emotion.happy_boost.below", e.HappyBoost.Below); err != nil {
		return err
	}
	if err := checkPercent("emotion.happy_boost.raise_to", e.HappyBoost.RaiseTo); err != nil {
		return err
	}
	if len(e.Intensifiers) > 0 && len(e.PositiveAdjectives) > 0 {
		re, err := regexp.Compile(`\b(?:` + alternation(e.Intensifiers) + `)\s+(?:` + alternation(e.PositiveAdjectives) + `)\b`)
		if err != nil {
			return fmt.Errorf("emotion intensifier pattern: %w", err)
		}
		e.intensified = re
	} else {
		e.intensified = nil
	}
	e.positive = wordPattern(e.PositiveWords)
	e.negative = wordPattern(e.NegativeWords)
	e.anxiety = wordPattern(e.AnxietyWords)
	e.anger = wordPattern(e.AngerWords)

	compiled, err := p.Intent.compile()
	if err != nil {
		return err
	}
	p.Intent.compiled = compiled

	if len(p.Crisis.Emotions) == 0 {
		return fmt.Errorf("crisis.emotions must not be empty")
	}
	if err := checkPercent("crisis.emotion_threshold", p.Crisis.EmotionThreshold); err != nil {
		return err
	}
	if err := checkPercent("crisis.extreme_threshold", p.Crisis.ExtremeThreshold); err != nil {
		return err
	}
	return nil
}

// Intensified reports whether lowered contains an intensifier followed by a
// positive adjective, e.g. "so excited".
func (e *Emotion) Intensified(lowered string) bool {
	return e.intensified != nil && e.intensified.MatchString(lowered)
}

// The lexicon matchers compare whole words so "mad" does not match "made".

func (e *Emotion) Positive(lowered string) bool { return matches(e.positive, lowered) }
func (e *Emotion) Negative(lowered string) bool { return matches(e.negative, lowered) }
func (e *Emotion) Anxious(lowered string) bool  { return matches(e.anxiety, lowered) }
func (e *Emotion) Angry(lowered string) bool    { return matches(e.anger, lowered) }

// IsCanonical reports whether label is a member of the canonical set.
func (e *Emotion) IsCanonical(label string) bool {
	return slices.Contains(e.Canonical, label)
}

// Patterns returns the compiled intent patterns.
func (i *Intent) Patterns() IntentPatterns {
	return i.compiled
}

func (i *Intent) compile() (IntentPatterns, error) {
	var out IntentPatterns
	fields := []struct {
		name string
		src  string
		dst  **regexp.Regexp
	}{
		{"assessments", i.Assessments, &out.Assessments},
		{"moods", i.Moods, &out.Moods},
		{"appointments", i.Appointments, &out.Appointments},
		{"alerts", i.Alerts, &out.Alerts},
		{"summary", i.Summary, &out.Summary},
		{"profile", i.Profile, &out.Profile},
	}
	for _, f := range fields {
		if f.src == "" {
			return out, fmt.Errorf("intent.%s must not be empty", f.name)
		}
		re, err := regexp.Compile(f.src)
		if err != nil {
			return out, fmt.Errorf("intent.%s: %w", f.name, err)
		}
		*f.dst = re
	}
	return out, nil
}

func checkPercent(name string, v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%s must be within [0,100], got %d", name, v)
	}
	return nil
}

func alternation(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(strings.ToLower(w))
		if w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	return strings.Join(quoted, "|")
}

func wordPattern(words []string) *regexp.Regexp {
	alt := alternation(words)
	if alt == "" {
		return nil
	}
	return regexp.MustCompile(`\b(?:` + alt + `)\b`)
}

func matches(re *regexp.Regexp, s string) bool {
	return re != nil && re.MatchString(s)
}

var apostrophes = strings.NewReplacer("\u2018", "'", "\u2019", "'", "\u02bc", "'")

// Normalize lowercases text, folds typographic apostrophes to ASCII and
// collapses whitespace runs to a single space. Keyword matching runs on
// normalized text.
func Normalize(text string) string {
	return strings.Join(strings.Fields(apostrophes.Replace(strings.ToLower(text))), " ")
}

// ContainsAny returns the entries of phrases found in text, in list order.
// Both sides are normalized before comparison.
func ContainsAny(text string, phrases []string) []string {
	text = Normalize(text)
	var hits []string
	for _, p := range phrases {
		if n := Normalize(p); n != "" && strings.Contains(text, n) {
			hits = append(hits, p)
		}
	}
	return hits
}
