package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolRunsAllTasks(t *testing.T) {
	p := New(4, 0)
	var ran int32
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = NewTask(func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		})
	}
	p.Run(context.Background(), tasks, nil)
	assert.EqualValues(t, 10, ran)
}

func TestPoolCancelOnHighConfidence(t *testing.T) {
	p := New(2, 0)
	var hit atomic.Bool
	var completed int32
	tasks := make([]Task, 20)
	for i := range tasks {
		idx := i
		tasks[idx] = NewTask(func(ctx context.Context) error {
			if idx == 0 {
				hit.Store(true)
			}
			select {
			case <-time.After(20 * time.Millisecond):
			case <-ctx.Done():
			}
			atomic.AddInt32(&completed, 1)
			return nil
		})
	}
	p.Run(context.Background(), tasks, func() bool { return hit.Load() })
	// Cancellation should keep at least one later task from ever starting.
	assert.Less(t, int(completed), len(tasks))
}

func TestWithDeadlineBoundsContext(t *testing.T) {
	ctx, cancel := WithDeadline(context.Background(), 5*time.Millisecond)
	defer cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}
