package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anshukrra07/CampusCare-sub001/internal/policy"
	"github.com/anshukrra07/CampusCare-sub001/internal/scheduler"
	"github.com/anshukrra07/CampusCare-sub001/internal/server"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the campuscare daemon",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "campuscare.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Write PID file
	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	// Policy reload: file watch for immediate pickup, cron as a backstop for
	// filesystems without change notifications.
	if cfg.PolicyPath != "" && cfg.PolicyWatch {
		watcher := policy.NewWatcher(a.policy, policy.DefaultWatchDebounce)
		if err := watcher.Start(); err != nil {
			slog.Warn("policy file watch disabled", "error", err)
		} else {
			defer watcher.Stop()
		}
	}
	sched := scheduler.New()
	if cfg.PolicyPath != "" && cfg.PolicyReloadSchedule != "" {
		if err := sched.Add(scheduler.Job{
			Name:     "policy-reload",
			Schedule: cfg.PolicyReloadSchedule,
			Run: func(context.Context) {
				if err := a.policy.Reload(); err != nil {
					slog.Error("policy reload failed", "path", cfg.PolicyPath, "error", err)
				}
			},
		}); err != nil {
			return fmt.Errorf("schedule policy reload: %w", err)
		}
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	// HTTP server
	httpServer := &http.Server{
		Addr: cfg.HTTP.Listen,
		Handler: server.New(a.pipeline, server.Options{
			Alerts:        a.store,
			Metrics:       a.metrics,
			ProviderReady: a.invoker.Available(),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server started", "listen", cfg.HTTP.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	slog.Info("campuscare started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"provider_ready", a.invoker.Available(),
		"alert_backend", cfg.Alerts.Backend,
		"policy_path", cfg.PolicyPath,
		"pid_file", pidPath,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case err := <-serveErr:
			return fmt.Errorf("http server: %w", err)
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				slog.Info("received SIGHUP, restarting")
				execPath, err := os.Executable()
				if err != nil {
					slog.Error("failed to get executable path", "error", err)
					continue
				}
				shutdown(httpServer, a)
				// Clean up PID file before re-exec
				os.Remove(pidPath)
				if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
					slog.Error("failed to re-exec", "error", err)
					return err
				}
			}
			// SIGINT or SIGTERM
			slog.Info("shutting down", "signal", sig)
			shutdown(httpServer, a)
			return nil
		}
	}
}

// shutdown stops accepting requests, then drains queued alert work.
func shutdown(httpServer *http.Server, a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	if !a.pipeline.Shutdown(shutdownTimeout) {
		slog.Warn("background alert work did not finish before shutdown")
	}
}
