package search

import (
	"math"

	"github.com/mosif16/swe-grep/services/swegrep/scorer"
	"github.com/mosif16/swe-grep/services/swegrep/types"
)

// fastPathPrecisionThreshold is §4.5's FastPath acceptance threshold.
const fastPathPrecisionThreshold = 0.5

// escalateThreshold returns ceil(max_matches/5), the accepted-hit count
// below which Escalate triggers (§4.5).
func escalateThreshold(maxMatches int) int {
	return int(math.Ceil(float64(maxMatches) / 5.0))
}

// scoreAndDedupe normalizes c.raw into Hits, deduplicates by (path, line),
// and scores every survivor (§4.6 steps 1-4). It updates c.summary.Deduped
// and c.summary.StageStats.{Precision,Density,ClusterScore,Novelty} with
// the means over the scored set.
func (c *cycleState) scoreAndDedupe() (scored []types.Hit, highConfidence bool) {
	hits := make([]types.Hit, 0, len(c.raw))
	for _, m := range c.raw {
		hits = append(hits, scorer.Normalize(m, c.tagger))
	}

	deduped, dropped := scorer.Dedupe(hits)
	c.summary.Deduped = dropped

	lineCounts := make(map[string]int)
	for _, h := range deduped {
		if _, ok := lineCounts[h.Path]; !ok {
			lineCounts[h.Path] = c.files.lineCount(h.Path)
		}
	}

	known := func(symbol, path string) bool { return c.store.KnownPath(symbol, path) }
	scored, highConfidence = scorer.Score(c.req.Symbol, deduped, lineCounts, known)

	if n := len(scored); n > 0 {
		var sp, sd, sc, sn float64
		for _, h := range scored {
			sp += h.Precision
			sd += h.Density
			sc += h.Clustering
			sn += h.Novelty
		}
		c.summary.StageStats.Precision = sp / float64(n)
		c.summary.StageStats.Density = sd / float64(n)
		c.summary.StageStats.ClusterScore = sc / float64(n)
		c.summary.StageStats.Novelty = sn / float64(n)
	}

	return scored, highConfidence
}

// materialize expands context windows (and bodies where applicable) for
// the top req.MaxMatches scored hits and stores them as the cycle's
// accepted hits (§3 Hit, §4.6 "Context materialization" / "Body
// retrieval"). scored must already be sorted by score descending.
func (c *cycleState) materialize(scored []types.Hit) {
	limit := c.req.MaxMatches
	if limit > len(scored) {
		limit = len(scored)
	}

	out := make([]types.Hit, 0, limit)
	for _, h := range scored[:limit] {
		before, after := c.req.ContextBefore, c.req.ContextAfter
		if h.RawSnippetTruncated && c.req.AutoContext {
			before, after = 4, 4
			h.AutoExpandedContext = true
		}

		snippet, start, end, err := c.files.expandContext(h.Path, h.Line, before, after)
		if err == nil {
			h.ExpandedSnippet = snippet
			h.ContextStart = start
			h.ContextEnd = end
		} else {
			h.ContextStart, h.ContextEnd = h.Line, h.Line
		}

		wantsBody := c.req.RetrieveBody || defaultBodyLanguage(h.Language)
		if wantsBody {
			if body, ok := retrieveBody(h.Path); ok {
				h.Body = body
				h.BodyRetrieved = true
			}
		}

		out = append(out, h)
	}

	c.accepted = out
}

// finalize runs Verify's final steps once either the FastPath or the full
// pipeline has produced c.raw: score, dedupe, materialize, and assemble
// the fields of CycleSummary that depend on accepted hits (§4.7).
func (c *cycleState) finalize() {
	scored, _ := c.scoreAndDedupe()
	c.materialize(scored)

	c.summary.TopHits = c.accepted
	c.summary.Reward = scorer.Reward(c.accepted)
	c.summary.FastPath = c.fastPath
	c.summary.NextActions = buildNextActions(c.accepted)
	c.summary.Hints = buildHints(c.accepted)

	if c.fatalSpawnFailure() {
		c.summary.Error = ErrFatalSpawnFailure.Error()
	}
}
