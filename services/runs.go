package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Run is one pipeline run. Its context is cancelled when the run finishes or
// is superseded by a newer run.
type Run struct {
	ID  string
	Ctx context.Context

	cancel   context.CancelFunc
	stale    atomic.Bool
	registry *RunRegistry
}

// Stale reports whether a newer run has started since this one.
func (r *Run) Stale() bool {
	return r.stale.Load()
}

// Finish releases the run.
func (r *Run) Finish() {
	r.registry.mu.Lock()
	if r.registry.current == r {
		r.registry.current = nil
	}
	r.registry.mu.Unlock()
	r.cancel()
}

// RunRegistry tracks the current run; starting one supersedes the previous.
type RunRegistry struct {
	mu      sync.Mutex
	current *Run
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{}
}

// Begin starts a run derived from ctx, marking any current run stale and
// cancelling its in-flight work.
func (rr *RunRegistry) Begin(ctx context.Context) *Run {
	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{ID: uuid.NewString(), Ctx: runCtx, cancel: cancel, registry: rr}

	rr.mu.Lock()
	prev := rr.current
	rr.current = run
	rr.mu.Unlock()

	if prev != nil {
		prev.stale.Store(true)
		prev.cancel()
	}
	return run
}

// Current returns the id of the run in progress, or "".
func (rr *RunRegistry) Current() string {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	if rr.current == nil {
		return ""
	}
	return rr.current.ID
}
