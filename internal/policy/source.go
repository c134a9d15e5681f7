package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Source hands out the policy snapshot a request should use. A snapshot is
// never mutated after it is published.
type Source interface {
	Current() *Policy
}

type snapshotKey struct{}

// WithSnapshot pins p for the rest of a request so every component sees
// the same policy even if a reload lands mid-request.
func WithSnapshot(ctx context.Context, p *Policy) context.Context {
	return context.WithValue(ctx, snapshotKey{}, p)
}

// For returns the snapshot pinned in ctx, or src.Current() when none is.
func For(ctx context.Context, src Source) *Policy {
	if p, ok := ctx.Value(snapshotKey{}).(*Policy); ok && p != nil {
		return p
	}
	return src.Current()
}

type static struct{ p *Policy }

func (s static) Current() *Policy { return s.p }

// Static wraps a fixed policy.
func Static(p *Policy) Source {
	return static{p: p}
}

// Reloader serves a policy file and swaps in a new snapshot on Reload.
// In-flight requests keep the snapshot they started with.
type Reloader struct {
	path    string
	current atomic.Pointer[Policy]
}

// NewReloader loads path once. An empty path serves the embedded default
// and Reload becomes a no-op.
func NewReloader(path string) (*Reloader, error) {
	r := &Reloader{path: path}
	if path == "" {
		r.current.Store(Default())
		return r, nil
	}
	p, err := Load(path)
	if err != nil {
		return nil, err
	}
	r.current.Store(p)
	return r, nil
}

func (r *Reloader) Current() *Policy {
	return r.current.Load()
}

func (r *Reloader) Path() string {
	return r.path
}

// Reload re-reads the policy file. On error the previous snapshot stays.
func (r *Reloader) Reload() error {
	if r.path == "" {
		return nil
	}
	p, err := Load(r.path)
	if err != nil {
		slog.Warn("policy reload failed, keeping previous", "path", r.path, "error", err)
		return fmt.Errorf("reloading policy: %w", err)
	}
	r.current.Store(p)
	slog.Info("policy reloaded", "path", r.path)
	return nil
}
