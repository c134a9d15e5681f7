package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	DataDir              string `json:"data_dir"`
	LogLevel             string `json:"log_level"`
	LogFormat            string `json:"log_format"`
	PolicyPath           string `json:"policy_path"`
	PolicyReloadSchedule string `json:"policy_reload_schedule"`
	PolicyWatch          bool   `json:"policy_watch"`
	LLM                  struct {
		Provider        string  `json:"provider"`
		BaseURL         string  `json:"base_url"`
		APIKey          string  `json:"api_key"`
		Model           string  `json:"model"`
		FallbackModel   string  `json:"fallback_model"`
		GCPProject      string  `json:"gcp_project"`
		Location        string  `json:"location"`
		MaxTokens       int     `json:"max_tokens"`
		Temperature     float32 `json:"temperature"`
		MaxPromptTokens int     `json:"max_prompt_tokens"`
	} `json:"llm"`
	Pipeline struct {
		MaxAttempts           int `json:"max_attempts"`
		BackoffStepMS         int `json:"backoff_step_ms"`
		AttemptTimeoutMS      int `json:"attempt_timeout_ms"`
		DeadlineMS            int `json:"pipeline_deadline_ms"`
		BackgroundConcurrency int `json:"background_concurrency"`
	} `json:"pipeline"`
	Alerts struct {
		Backend          string   `json:"backend"`
		Notify           []string `json:"notify"`
		FirestoreProject string   `json:"firestore_project"`
	} `json:"alerts"`
	Telegram struct {
		Token string `json:"token"`
	} `json:"telegram"`
	HTTP struct {
		Listen string `json:"listen"`
	} `json:"http"`
}

// Alert store backends.
const (
	BackendJSONL     = "jsonl"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// Model defaults per provider. Load swaps them when the provider changes
// but the models were left at the other provider's defaults.
var providerModels = map[string][2]string{
	"openai": {"gpt-4o-mini", "gpt-3.5-turbo"},
	"gemini": {"gemini-2.5-flash", "gemini-2.5-flash-lite"},
}

func defaults() *Config {
	cfg := &Config{
		DataDir:  filepath.Join(os.Getenv("HOME"), ".campuscare"),
		LogLevel: "info",
	}
	cfg.LogFormat = "text"
	cfg.PolicyReloadSchedule = "@every 5m"
	cfg.PolicyWatch = true
	cfg.LLM.Provider = "openai"
	cfg.LLM.BaseURL = "https://api.openai.com/v1"
	cfg.LLM.Model = providerModels["openai"][0]
	cfg.LLM.FallbackModel = providerModels["openai"][1]
	cfg.LLM.Location = "us-central1"
	cfg.LLM.MaxTokens = 256
	cfg.LLM.MaxPromptTokens = 2048
	cfg.Pipeline.MaxAttempts = 3
	cfg.Pipeline.BackoffStepMS = 1500
	cfg.Pipeline.AttemptTimeoutMS = 10000
	cfg.Pipeline.DeadlineMS = 20000
	cfg.Pipeline.BackgroundConcurrency = 4
	cfg.Alerts.Backend = BackendJSONL
	cfg.Alerts.Notify = []string{"log:counselors"}
	cfg.HTTP.Listen = "127.0.0.1:8088"
	return cfg
}

func Load(path string) (*Config, error) {
	cfg := defaults()

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
		cfg.ApplyProviderDefaults()
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	switch cfg.LLM.Provider {
	case "gemini":
		if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
			cfg.LLM.APIKey = apiKey
		}
	default:
		if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
			cfg.LLM.APIKey = apiKey
		}
		if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}
	if project := os.Getenv("CAMPUSCARE_GCP_PROJECT"); project != "" {
		cfg.LLM.GCPProject = project
		if cfg.Alerts.FirestoreProject == "" {
			cfg.Alerts.FirestoreProject = project
		}
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}

	return cfg, nil
}

// ApplyProviderDefaults fills empty model fields with the selected
// provider's defaults, and replaces models that are still at another
// provider's defaults.
func (c *Config) ApplyProviderDefaults() {
	want, ok := providerModels[c.LLM.Provider]
	if !ok {
		return
	}
	for provider, models := range providerModels {
		if provider == c.LLM.Provider {
			continue
		}
		if c.LLM.Model == models[0] {
			c.LLM.Model = ""
		}
		if c.LLM.FallbackModel == models[1] {
			c.LLM.FallbackModel = ""
		}
	}
	if c.LLM.Model == "" {
		c.LLM.Model = want[0]
	}
	if c.LLM.FallbackModel == "" {
		c.LLM.FallbackModel = want[1]
	}
}

// Validate checks enumerated fields and numeric ranges.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown llm.provider %q (want openai or gemini)", c.LLM.Provider)
	}
	switch c.Alerts.Backend {
	case BackendJSONL, BackendSQLite, BackendFirestore:
	default:
		return fmt.Errorf("unknown alerts.backend %q (want jsonl, sqlite or firestore)", c.Alerts.Backend)
	}
	if c.Alerts.Backend == BackendFirestore && c.Alerts.FirestoreProject == "" {
		return fmt.Errorf("alerts.firestore_project is required for the firestore backend")
	}
	if c.Pipeline.MaxAttempts < 1 {
		return fmt.Errorf("pipeline.max_attempts must be at least 1")
	}
	if c.Pipeline.BackoffStepMS < 0 || c.Pipeline.AttemptTimeoutMS <= 0 || c.Pipeline.DeadlineMS <= 0 {
		return fmt.Errorf("pipeline durations must be positive")
	}
	return nil
}

// ProviderConfigured reports whether credentials for the selected provider
// are present. Without them the pipeline runs on keyword fallbacks only.
func (c *Config) ProviderConfigured() bool {
	if c.LLM.Provider == "gemini" {
		return c.LLM.APIKey != "" || c.LLM.GCPProject != ""
	}
	return c.LLM.APIKey != ""
}

func (c *Config) BackoffStep() time.Duration {
	return time.Duration(c.Pipeline.BackoffStepMS) * time.Millisecond
}

func (c *Config) AttemptTimeout() time.Duration {
	return time.Duration(c.Pipeline.AttemptTimeoutMS) * time.Millisecond
}

func (c *Config) PipelineDeadline() time.Duration {
	return time.Duration(c.Pipeline.DeadlineMS) * time.Millisecond
}

// Save writes cfg to path atomically, creating the parent directory.
// The file holds credentials, so it is written 0600.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts cfg into its JSON object form.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListValues returns the flattened config, optionally with secrets masked.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue loads the config at path and returns the value at a dotted key.
// Keys present only in the file (not in Config) are also visible.
func GetValue(path, key string) (any, error) {
	if _, err := Load(path); err != nil {
		return nil, err
	}
	flat, err := readFlat(path)
	if err != nil {
		return nil, err
	}
	v, ok := flat[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue writes a dotted key into the config file at path. The key must
// name a Config field. String fields take value verbatim; other fields
// decode it as JSON, and list fields also accept a comma-separated list.
// The updated file is validated as Load would see it and is only written
// when it passes. The file must already exist.
func SetValue(path, key, value string) error {
	known, err := ToMap(defaults())
	if err != nil {
		return err
	}
	current, ok := Flatten(known)[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}

	flat, err := readFlat(path)
	if err != nil {
		return err
	}
	flat[key] = coerce(current, value)

	data, err := json.MarshalIndent(Unflatten(flat), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	cfg := defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	cfg.ApplyProviderDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("rejected %s=%s: %w", key, value, err)
	}

	flat["llm.model"] = cfg.LLM.Model
	flat["llm.fallback_model"] = cfg.LLM.FallbackModel
	data, err = json.MarshalIndent(Unflatten(flat), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeAtomic(path, data)
}

// coerce shapes value after the type of the field's default.
func coerce(current any, value string) any {
	if _, isString := current.(string); isString {
		return value
	}
	var decoded any
	if err := json.Unmarshal([]byte(value), &decoded); err == nil {
		return decoded
	}
	if _, isList := current.([]any); isList {
		var items []any
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items
	}
	return value
}

func readFlat(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return Flatten(m), nil
}
