package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anshukrra07/CampusCare-sub001/internal/alert"
	"github.com/anshukrra07/CampusCare-sub001/internal/types"
)

// LogPrefix targets write the alert to the process log. Useful when no
// chat integration is configured.
const LogPrefix = "log:"

// LogHandler writes deliveries to slog at Warn.
func LogHandler(_ context.Context, target, message string) error {
	slog.Warn("alert notification", "target", target, "message", message)
	return nil
}

// AlertNotifier fans an alert out to every configured target.
type AlertNotifier struct {
	registry *Registry
	targets  []string
}

var _ alert.Notifier = (*AlertNotifier)(nil)

func NewAlertNotifier(registry *Registry, targets []string) *AlertNotifier {
	return &AlertNotifier{registry: registry, targets: targets}
}

// Notify attempts every target and joins the failures.
func (n *AlertNotifier) Notify(ctx context.Context, a *types.Alert) error {
	text := alert.Summary(a)
	var errs []error
	for _, target := range n.targets {
		if err := n.registry.Deliver(ctx, target, text); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", target, err))
		}
	}
	return errors.Join(errs...)
}
