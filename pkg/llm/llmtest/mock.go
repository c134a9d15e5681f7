// Package llmtest provides provider doubles for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/anshukrra07/CampusCare-sub001/pkg/llm"
)

// Provider is a scriptable llm.Provider that records every request.
type Provider struct {
	CompleteFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)

	mu       sync.Mutex
	requests []llm.Request
}

func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.CompleteFunc != nil {
		return p.CompleteFunc(ctx, req)
	}
	return &llm.Response{Content: "mock response"}, nil
}

// Requests returns a copy of the requests seen so far.
func (p *Provider) Requests() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.Request, len(p.requests))
	copy(out, p.requests)
	return out
}

func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Reply returns a provider that always answers with text.
func Reply(text string) *Provider {
	return &Provider{CompleteFunc: func(context.Context, llm.Request) (*llm.Response, error) {
		return &llm.Response{Content: text}, nil
	}}
}

// Fail returns a provider that always fails with err.
func Fail(err error) *Provider {
	return &Provider{CompleteFunc: func(context.Context, llm.Request) (*llm.Response, error) {
		return nil, err
	}}
}

// Block returns a provider that waits for the context to end.
func Block() *Provider {
	return &Provider{CompleteFunc: func(ctx context.Context, _ llm.Request) (*llm.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
}
