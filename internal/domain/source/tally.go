package source

import (
	"context"
	"sync"
)

// Tally counts records an adapter skipped while fetching one source
type Tally struct {
	mu      sync.Mutex
	skipped int
	reasons map[string]int
}

// Skipped returns the total number of skipped records
func (t *Tally) Skipped() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.skipped
}

// Reasons returns skipped counts by reason
func (t *Tally) Reasons() map[string]int {
	out := make(map[string]int)
	if t == nil {
		return out
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range t.reasons {
		out[k] = v
	}
	return out
}

type tallyKey struct{}

// WithTally attaches a tally the adapter reports skipped records into
func WithTally(ctx context.Context, t *Tally) context.Context {
	return context.WithValue(ctx, tallyKey{}, t)
}

// Skip records one malformed record; it is a no-op without a tally
func Skip(ctx context.Context, reason string) {
	t, ok := ctx.Value(tallyKey{}).(*Tally)
	if !ok || t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.skipped++
	if t.reasons == nil {
		t.reasons = make(map[string]int)
	}
	t.reasons[reason]++
}
