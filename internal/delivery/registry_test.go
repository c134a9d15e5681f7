// internal/delivery/registry_test.go
package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/anshukrra07/CampusCare-sub001/internal/types"
)

func TestRegistryDeliver(t *testing.T) {
	reg := NewRegistry()

	var gotTarget, gotMsg string
	reg.Register("test:", func(_ context.Context, target, message string) error {
		gotTarget = target
		gotMsg = message
		return nil
	})

	err := reg.Deliver(context.Background(), "test:123", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotTarget != "test:123" {
		t.Errorf("expected target %q, got %q", "test:123", gotTarget)
	}
	if gotMsg != "hello" {
		t.Errorf("expected message %q, got %q", "hello", gotMsg)
	}
}

func TestRegistryNoHandler(t *testing.T) {
	reg := NewRegistry()

	err := reg.Deliver(context.Background(), "unknown:123", "hello")
	if err == nil {
		t.Fatal("expected error for unregistered prefix, got nil")
	}
	if reg.Has("unknown:123") {
		t.Error("Has should be false without a handler")
	}
}

func TestRegistryLongestPrefixWins(t *testing.T) {
	reg := NewRegistry()

	var hit string
	reg.Register("telegram:", func(context.Context, string, string) error {
		hit = "generic"
		return nil
	})
	reg.Register("telegram:-100", func(context.Context, string, string) error {
		hit = "group"
		return nil
	})

	if err := reg.Deliver(context.Background(), "telegram:-100555", "msg"); err != nil {
		t.Fatal(err)
	}
	if hit != "group" {
		t.Errorf("expected group handler, got %s", hit)
	}
	if err := reg.Deliver(context.Background(), "telegram:42", "msg"); err != nil {
		t.Fatal(err)
	}
	if hit != "generic" {
		t.Errorf("expected generic handler, got %s", hit)
	}
}

func TestAlertNotifierFansOut(t *testing.T) {
	reg := NewRegistry()
	var delivered []string
	reg.Register("ok:", func(_ context.Context, target, message string) error {
		if !strings.Contains(message, "I can't go on") {
			t.Errorf("summary missing message text: %q", message)
		}
		delivered = append(delivered, target)
		return nil
	})
	reg.Register("bad:", func(context.Context, string, string) error {
		return errors.New("unreachable")
	})

	n := NewAlertNotifier(reg, []string{"ok:a", "bad:b", "ok:c", "missing:d"})
	err := n.Notify(context.Background(), &types.Alert{
		ID:        types.NewAlertID(),
		Severity:  types.RiskHigh,
		Reason:    "crisis escalation",
		Message:   "I can't go on",
		Channel:   types.ChannelText,
		CreatedAt: time.Now(),
	})

	if len(delivered) != 2 {
		t.Errorf("expected 2 successful deliveries, got %v", delivered)
	}
	if err == nil || !strings.Contains(err.Error(), "bad:b") || !strings.Contains(err.Error(), "missing:d") {
		t.Errorf("expected joined errors for bad and missing targets, got %v", err)
	}
}
