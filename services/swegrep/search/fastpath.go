package search

import (
	"context"
	"errors"
	"time"

	"github.com/mosif16/swe-grep/services/swegrep/query"
	"github.com/mosif16/swe-grep/services/swegrep/tools"
	"github.com/mosif16/swe-grep/services/swegrep/types"
)

// runFastPath implements §4.5's Literal Fast Path: when symbol is a bare
// identifier, it issues a single rg invocation over the alternation of
// every rewrite, before paying for Discover/Probe/Disambiguate/Escalate.
// The invocation is scoped to the seeded Hint Cache paths when there are
// any, and to the whole root otherwise. It returns true when the
// top-scored hit's precision is at least the acceptance threshold, in
// which case the caller skips the full pipeline entirely.
func (c *cycleState) runFastPath(ctx context.Context) bool {
	if !query.IsLiteralSymbol(c.req.Symbol) {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Millisecond)
	defer cancel()

	texts := make([]string, 0, len(c.summary.Queries))
	for _, v := range c.summary.Queries {
		texts = append(texts, v.Text)
	}
	if len(texts) == 0 {
		texts = []string{c.req.Symbol}
	}

	seeded := c.store.Seed(c.req.Symbol)

	matches, errs := c.rgAdapter().SearchUnion(ctx, c.req.Root, texts, seeded, types.OriginRgScoped)
	collected, failed := drainMatches(matches, errs, c.req.MaxMatches*2)
	c.noteSpawn(failed)
	c.addRaw(collected)

	if len(c.raw) == 0 {
		return false
	}

	scored, _ := c.scoreAndDedupe()
	if len(scored) == 0 || scored[0].Precision < fastPathPrecisionThreshold {
		// Reset so the full pipeline starts from a clean slate; the
		// FastPath attempt's matches are discarded, not carried forward.
		c.raw = nil
		c.summary.Deduped = 0
		return false
	}

	c.fastPath = true
	return true
}

// drainMatches reads from matches until both channels close or cap raw
// results are collected, discarding anything past limit so a runaway
// producer can't grow the cycle's memory unbounded. Adapter errors don't
// stop already-parsed matches from being returned; the caller only learns
// whether the invocation never got its binary off the ground at all
// (failedToSpawn), which is what distinguishes a fatal cycle from an
// ordinary zero-match one.
func drainMatches(matches <-chan types.RawMatch, errs <-chan error, limit int) (out []types.RawMatch, failedToSpawn bool) {
	out = make([]types.RawMatch, 0, limit)
	matchesOpen, errsOpen := true, true
	for matchesOpen || errsOpen {
		select {
		case m, ok := <-matches:
			if !ok {
				matchesOpen = false
				continue
			}
			if len(out) < limit {
				out = append(out, m)
			}
		case err, ok := <-errs:
			if !ok {
				errsOpen = false
				continue
			}
			if errors.Is(err, tools.ErrBinaryNotFound) {
				failedToSpawn = true
			}
		}
	}
	return out, failedToSpawn
}
