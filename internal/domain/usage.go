package domain

import (
	"context"
	"sync"
)

type tokenUsageKey struct{}

// TokenUsage collects provider token usage for a single workflow. The
// orchestrator puts a pointer into the context before running the stages;
// provider adapters add to it; the terminal statistics read it.
// Adjudication calls run concurrently, so additions are synchronized.
type TokenUsage struct {
	mu    sync.Mutex
	total int
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *TokenUsage) {
	u := &TokenUsage{}
	return context.WithValue(ctx, tokenUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector. Returns nil if not set.
func UsageFromContext(ctx context.Context) *TokenUsage {
	u, _ := ctx.Value(tokenUsageKey{}).(*TokenUsage)
	return u
}

// AddTokens records consumed tokens. Safe on a nil receiver.
func (u *TokenUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.total += n
	u.mu.Unlock()
}

// Total returns the tokens consumed so far.
func (u *TokenUsage) Total() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.total
}
