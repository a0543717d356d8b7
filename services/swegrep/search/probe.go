package search

import (
	"context"
	"sync"
	"time"

	"github.com/mosif16/swe-grep/services/swegrep/scheduler"
	"github.com/mosif16/swe-grep/services/swegrep/types"
)

// runProbe implements §4.5's Probe stage: every query variant is dispatched
// as an independent rg invocation through the Scheduler's bounded-
// concurrency pool, in precedence order, against c.scope (or the whole root
// when Discover left it nil). Once the cycle holds req.MaxMatches raw
// matches, the pool's cooperative-cancellation flag is raised so
// outstanding low-precedence variants are skipped rather than awaited.
func (c *cycleState) runProbe(ctx context.Context) {
	start := time.Now()
	defer func() { c.summary.StageStats.ProbeMs = msSince(start) }()

	if len(c.summary.Queries) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.engine.budgets.Probe)
	defer cancel()

	var mu sync.Mutex
	tasks := make([]scheduler.Task, 0, len(c.summary.Queries))

	for _, variant := range orderByPrecedence(c.summary.Queries) {
		v := variant
		tasks = append(tasks, scheduler.NewTask(func(taskCtx context.Context) error {
			matches, errs := c.rgAdapter().SearchUnion(taskCtx, c.req.Root, []string{v.Text}, c.scope, types.OriginRgScoped)
			collected, failed := drainMatches(matches, errs, c.req.MaxMatches*2)

			mu.Lock()
			c.addRaw(collected)
			c.noteSpawn(failed)
			mu.Unlock()
			return nil
		}))
	}

	// req.MaxMatches raw matches, from any variants, already saturate
	// Verify's top-K; lower-precedence regex/docs variants add nothing but
	// latency once that many raw matches exist.
	enoughSignal := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(c.raw) >= c.req.MaxMatches
	}

	c.pool.Run(ctx, tasks, enoughSignal)
}

// orderByPrecedence returns queries sorted by ascending Precedence, stable
// on ties, so the Scheduler dispatches literal/qualified rewrites before
// regex fallbacks (§3 QueryVariant).
func orderByPrecedence(queries []types.QueryVariant) []types.QueryVariant {
	out := make([]types.QueryVariant, len(queries))
	copy(out, queries)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Precedence < out[j-1].Precedence; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
