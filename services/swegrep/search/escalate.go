package search

import (
	"context"
	"time"

	"github.com/mosif16/swe-grep/services/swegrep/types"
)

// runEscalate implements §4.5's Escalate stage: entered only when the
// accepted hit count after Probe/Disambiguate falls below
// ceil(max_matches/5). It tries, in order: rga over docs/config content
// when enabled, then the inverted-index collaborator when wired, then a
// relaxed-scope rg pass with no path filter at all. Each step only runs if
// the previous one left the deficit unresolved.
func (c *cycleState) runEscalate(ctx context.Context) {
	start := time.Now()
	defer func() { c.summary.StageStats.EscalateMs = msSince(start) }()

	ctx, cancel := context.WithTimeout(ctx, c.engine.budgets.Escalate)
	defer cancel()

	threshold := escalateThreshold(c.req.MaxMatches)

	if c.req.Tools.EnableRga && c.deficit(threshold) {
		matches, errs := c.rgaAdapter().Search(ctx, c.req.Root, c.req.Symbol)
		collected, failed := drainMatches(matches, errs, c.req.MaxMatches*2)
		c.addRaw(collected)
		c.noteSpawn(failed)
	}

	if c.req.Tools.EnableIndex && c.engine.index != nil && c.deficit(threshold) {
		paths, err := c.engine.index.Search(ctx, c.req.Symbol)
		if err == nil && len(paths) > 0 {
			matches, errs := c.rgAdapter().SearchUnion(ctx, c.req.Root, []string{c.req.Symbol}, paths, types.OriginIndex)
			collected, failed := drainMatches(matches, errs, c.req.MaxMatches*2)
			c.addRaw(collected)
			c.noteSpawn(failed)
		}
	}

	if c.deficit(threshold) {
		matches, errs := c.rgAdapter().SearchUnion(ctx, c.req.Root, []string{c.req.Symbol}, nil, types.OriginRgRelaxed)
		collected, failed := drainMatches(matches, errs, c.req.MaxMatches*2)
		c.addRaw(collected)
		c.noteSpawn(failed)
	}
}

// deficit reports whether the cycle's current raw-match signal still falls
// short of threshold; Escalate's sub-steps short-circuit once satisfied.
func (c *cycleState) deficit(threshold int) bool {
	scored, _ := c.scoreAndDedupe()
	return len(scored) < threshold
}
