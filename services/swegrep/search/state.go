package search

import (
	"github.com/mosif16/swe-grep/services/swegrep/cache"
	"github.com/mosif16/swe-grep/services/swegrep/langtag"
	"github.com/mosif16/swe-grep/services/swegrep/scheduler"
	"github.com/mosif16/swe-grep/services/swegrep/tools"
	"github.com/mosif16/swe-grep/services/swegrep/types"
)

// cycleState carries everything one Run call accumulates across stages.
// It is never shared across cycles.
type cycleState struct {
	req    types.SearchRequest
	engine *Engine

	files  *fileCache
	tagger *langtag.Tagger
	pool   *scheduler.Pool

	store      *cache.Store
	cacheState *types.CacheState

	scope     []string // candidate paths from Discover; nil means "whole root"
	raw       []types.RawMatch
	accepted  []types.Hit
	fastPath  bool

	spawnAttempts int
	spawnFailures int

	summary *types.CycleSummary
}

// noteSpawn records the outcome of one adapter invocation so Engine.Run can
// tell "every tool this cycle failed to spawn" (§7 ErrFatalSpawnFailure)
// apart from an ordinary zero-match result.
func (c *cycleState) noteSpawn(failedToSpawn bool) {
	c.spawnAttempts++
	if failedToSpawn {
		c.spawnFailures++
	}
}

// fatalSpawnFailure reports whether every adapter invocation attempted this
// cycle failed to spawn its binary at all.
func (c *cycleState) fatalSpawnFailure() bool {
	return c.spawnAttempts > 0 && c.spawnFailures == c.spawnAttempts
}

func (c *cycleState) rgAdapter() *tools.RgAdapter {
	return tools.NewRgAdapter(c.engine.runner, c.req.MaxMatches)
}

func (c *cycleState) fdAdapter() *tools.FdAdapter {
	return tools.NewFdAdapter(c.engine.runner, 512)
}

func (c *cycleState) astAdapter() *tools.AstGrepAdapter {
	return tools.NewAstGrepAdapter(c.engine.runner, c.req.MaxMatches)
}

func (c *cycleState) rgaAdapter() *tools.RgaAdapter {
	return tools.NewRgaAdapter(c.engine.runner, c.req.MaxMatches)
}

// addRaw appends matches to the cycle's raw match pool, bounding the pool
// as a whole at max_matches*2: once it is full, every further match from
// any adapter is dropped and counted in StageStats.Truncated. Each
// adapter's own output is already capped at the same bound by
// drainMatches, which drops the excess without counting it.
func (c *cycleState) addRaw(matches []types.RawMatch) {
	limit := c.req.MaxMatches * 2
	for _, m := range matches {
		if len(c.raw) >= limit {
			c.summary.StageStats.Truncated++
			continue
		}
		c.raw = append(c.raw, m)
	}
}

func (c *cycleState) acceptedCount() int {
	return len(c.accepted)
}
