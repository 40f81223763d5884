package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Runner executes pipeline jobs asynchronously with a bounded amount of
// concurrency. Each job gets its own cancelable context keyed by the entity
// ID so cancel endpoints can reach into a running job.
type Runner struct {
	sem     chan struct{}
	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

func NewRunner(maxConcurrent int) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		sem:     make(chan struct{}, maxConcurrent),
		baseCtx: ctx,
		stop:    cancel,
		cancels: make(map[uuid.UUID]context.CancelFunc),
	}
}

// Go schedules fn under the runner's concurrency limit. fn observes
// cancellation through its context; the slot is released when fn returns.
func (r *Runner) Go(id uuid.UUID, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(r.baseCtx)
	r.mu.Lock()
	r.cancels[id] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.cancels, id)
			r.mu.Unlock()
			cancel()
		}()

		select {
		case r.sem <- struct{}{}:
		case <-ctx.Done():
			fn(ctx)
			return
		}
		defer func() { <-r.sem }()
		fn(ctx)
	}()
}

// Tracking reports whether a job with the given ID is scheduled or running.
func (r *Runner) Tracking(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cancels[id]
	return ok
}

// Cancel stops the job with the given ID if it is still tracked.
func (r *Runner) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Shutdown cancels everything and waits for in-flight jobs, or gives up when
// ctx expires.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.stop()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
