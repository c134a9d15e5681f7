package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/anshukrra07/CampusCare-sub001/internal/alert"
	"github.com/anshukrra07/CampusCare-sub001/internal/config"
	"github.com/anshukrra07/CampusCare-sub001/internal/delivery"
	"github.com/anshukrra07/CampusCare-sub001/internal/emotion"
	"github.com/anshukrra07/CampusCare-sub001/internal/intent"
	"github.com/anshukrra07/CampusCare-sub001/internal/invoke"
	"github.com/anshukrra07/CampusCare-sub001/internal/metrics"
	"github.com/anshukrra07/CampusCare-sub001/internal/pipeline"
	"github.com/anshukrra07/CampusCare-sub001/internal/policy"
	promptpkg "github.com/anshukrra07/CampusCare-sub001/internal/prompt"
	"github.com/anshukrra07/CampusCare-sub001/internal/risk"
	"github.com/anshukrra07/CampusCare-sub001/internal/state"
	"github.com/anshukrra07/CampusCare-sub001/internal/state/firestore"
	"github.com/anshukrra07/CampusCare-sub001/internal/state/sqlite"
	"github.com/anshukrra07/CampusCare-sub001/internal/telegram"
	"github.com/anshukrra07/CampusCare-sub001/pkg/llm"
	"github.com/anshukrra07/CampusCare-sub001/pkg/llm/gemini"
	"github.com/anshukrra07/CampusCare-sub001/pkg/llm/openai"
)

// app holds the process-scoped collaborators shared by serve and analyze.
type app struct {
	cfg        *config.Config
	metrics    *metrics.Metrics
	policy     *policy.Reloader
	invoker    *invoke.Invoker
	store      alert.Store
	background *pipeline.Background
	pipeline   *pipeline.Pipeline
	closers    []func() error
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	a := &app{cfg: cfg, metrics: metrics.New()}

	pol, err := policy.NewReloader(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	a.policy = pol

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.invoker = invoke.New(provider, invoke.Policy{
		MaxAttempts:    cfg.Pipeline.MaxAttempts,
		BackoffStep:    cfg.BackoffStep(),
		AttemptTimeout: cfg.AttemptTimeout(),
		PrimaryModel:   cfg.LLM.Model,
		FallbackModel:  cfg.LLM.FallbackModel,
		MaxTokens:      cfg.LLM.MaxTokens,
	}, invoke.WithMetrics(a.metrics))

	budget, err := promptpkg.NewBudget(cfg.LLM.Model, cfg.LLM.MaxPromptTokens)
	if err != nil {
		slog.Warn("prompt budget disabled", "error", err)
	}
	prompts := promptpkg.NewBuilder(budget)

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store = store
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	notifier, err := buildNotifier(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.background = pipeline.NewBackground(int64(cfg.Pipeline.BackgroundConcurrency), a.metrics)
	a.background.Start(ctx)

	a.pipeline = pipeline.New(pipeline.Deps{
		Risk:       risk.New(a.invoker, pol, prompts, a.metrics),
		Emotion:    emotion.New(a.invoker, pol, prompts, a.metrics),
		Intent:     intent.New(a.invoker, pol, prompts, a.metrics),
		Policy:     pol,
		Recorder:   alert.NewRecorder(store, notifier, a.metrics),
		Background: a.background,
		Metrics:    a.metrics,
		Deadline:   cfg.PipelineDeadline(),
	})
	return a, nil
}

// Close releases store connections. Call after the pipeline has drained.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}

// buildProvider returns nil when no credentials are configured; the
// classifiers then run on keyword fallbacks only.
func buildProvider(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	if !cfg.ProviderConfigured() {
		slog.Warn("no inference credentials configured, using keyword fallbacks", "provider", cfg.LLM.Provider)
		return nil, nil
	}
	switch cfg.LLM.Provider {
	case "gemini":
		c, err := gemini.New(ctx, gemini.Config{
			APIKey:      cfg.LLM.APIKey,
			Project:     cfg.LLM.GCPProject,
			Location:    cfg.LLM.Location,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return c, nil
	default:
		return openai.New(&llm.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}), nil
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (alert.Store, func() error, error) {
	switch cfg.Alerts.Backend {
	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite alert store: %w", err)
		}
		return s, s.Close, nil
	case config.BackendFirestore:
		s, err := firestore.NewStore(ctx, cfg.Alerts.FirestoreProject)
		if err != nil {
			return nil, nil, fmt.Errorf("open firestore alert store: %w", err)
		}
		return s, s.Close, nil
	default:
		return state.NewAlertStore(cfg.DataDir), nil, nil
	}
}

func buildNotifier(cfg *config.Config) (alert.Notifier, error) {
	reg := delivery.NewRegistry()
	reg.Register(delivery.LogPrefix, delivery.LogHandler)

	if cfg.Telegram.Token != "" {
		tg, err := telegram.New(cfg.Telegram.Token)
		if err != nil {
			return nil, fmt.Errorf("create telegram notifier: %w", err)
		}
		reg.Register(telegram.TargetPrefix, tg.Deliver)
	}

	var errs []error
	for _, target := range cfg.Alerts.Notify {
		if !reg.Has(target) {
			errs = append(errs, fmt.Errorf("no delivery handler for alert target %q", target))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if len(cfg.Alerts.Notify) == 0 {
		slog.Warn("no alert notification targets configured")
	}
	return delivery.NewAlertNotifier(reg, cfg.Alerts.Notify), nil
}
