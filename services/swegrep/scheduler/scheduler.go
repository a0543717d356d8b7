// Package scheduler implements the bounded-concurrency worker pool with
// cooperative cancellation described in §4.4 and §5: a fixed number of
// workers run ToolInvocations in parallel, dispatched in the precedence
// order of their originating QueryVariant, and any worker can raise a
// shared cancel signal that stops its peers.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Task is one unit of scheduled work. The ID is a per-invocation
// correlation token used in telemetry and logs, not for cancellation
// itself — cancellation is carried by ctx, per §9 "avoid shared-mutable
// future graphs."
type Task struct {
	ID  string
	Run func(ctx context.Context) error
}

// NewTask wraps run in a Task with a fresh correlation ID.
func NewTask(run func(ctx context.Context) error) Task {
	return Task{ID: uuid.NewString(), Run: run}
}

// Pool runs Tasks with bounded concurrency and cooperative cancellation.
// A Pool is scoped to one stage of one cycle; callers construct a new Pool
// per stage so that a stage's deadline cleanly bounds every task it owns.
type Pool struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// New returns a Pool allowing at most concurrency tasks to run at once.
// dispatchRate, if positive, additionally caps how fast new tasks may
// start (a guard against bursts of spawns beyond the semaphore alone,
// mirrored from the scheduler's "bounded memory" contract in §4.4).
func New(concurrency int, dispatchRate rate.Limit) *Pool {
	if concurrency <= 0 {
		concurrency = 8
	}
	p := &Pool{sem: semaphore.NewWeighted(int64(concurrency))}
	if dispatchRate > 0 {
		p.limiter = rate.NewLimiter(dispatchRate, concurrency)
	}
	return p
}

// Run executes tasks with bounded concurrency under ctx, cancelling all
// in-flight and not-yet-started tasks the moment any task's result
// satisfies cancelOn. It returns once every dispatched task has returned;
// tasks that never got a semaphore slot before ctx was cancelled are
// skipped, not run.
//
// Run never returns an error itself: individual task failures are
// observed by the caller through cancelOn's inspection of their side
// effects (e.g. a Hit channel), matching the core's error-handling design
// of surfacing failures in the cycle summary rather than aborting (§7).
func (p *Pool) Run(ctx context.Context, tasks []Task, cancelOn func() bool) {
	cycleCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	cancelled := false

	maybeCancel := func() {
		if cancelOn == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if cancelled {
			return
		}
		if cancelOn() {
			cancelled = true
			cancel()
		}
	}

	for _, task := range tasks {
		if cycleCtx.Err() != nil {
			break
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(cycleCtx); err != nil {
				break
			}
		}
		if err := p.sem.Acquire(cycleCtx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			defer p.sem.Release(1)
			_ = t.Run(cycleCtx)
			maybeCancel()
		}(task)
	}

	wg.Wait()
}

// WithDeadline returns a context bounded by the earlier of parent's
// existing deadline and d from now, used to enforce §4.4's per-stage soft
// budgets (discover 40ms, probe 150ms, disambiguate 80ms, escalate 200ms,
// verify 50ms by default).
func WithDeadline(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}
