package state

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/anshukrra07/CampusCare-sub001/internal/types"
)

// AlertStore is a JSONL-backed append-only alert log at
// <root>/alerts/alerts.jsonl.
type AlertStore struct {
	root string
	mu   sync.Mutex
}

// NewAlertStore creates a file-backed AlertStore rooted at the given directory.
func NewAlertStore(root string) *AlertStore {
	return &AlertStore{root: root}
}

func (s *AlertStore) path() string {
	return filepath.Join(s.root, "alerts", "alerts.jsonl")
}

// Append writes one alert as a JSON line.
func (s *AlertStore) Append(_ context.Context, a *types.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path()), 0o700); err != nil {
		return fmt.Errorf("create alerts dir: %w", err)
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	f, err := os.OpenFile(s.path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open alerts file: %w", err)
	}
	defer f.Close()

	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write alert: %w", err)
	}
	return nil
}

// Recent returns the last limit alerts, newest first. limit <= 0 returns all.
func (s *AlertStore) Recent(_ context.Context, limit int) ([]*types.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open alerts file: %w", err)
	}
	defer f.Close()

	var alerts []*types.Alert
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var a types.Alert
		if err := json.Unmarshal(scanner.Bytes(), &a); err != nil {
			return nil, fmt.Errorf("unmarshal alert: %w", err)
		}
		alerts = append(alerts, &a)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan alerts file: %w", err)
	}

	if limit > 0 && len(alerts) > limit {
		alerts = alerts[len(alerts)-limit:]
	}
	for i, j := 0, len(alerts)-1; i < j; i, j = i+1, j-1 {
		alerts[i], alerts[j] = alerts[j], alerts[i]
	}
	return alerts, nil
}
