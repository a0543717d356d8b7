package search

import "context"

// runFullPipeline drives the four remaining stages of §4.5's state machine
// once the Literal Fast Path has declined to short-circuit: Discover,
// Probe, Disambiguate, then Escalate only if the accepted signal is still
// below threshold. Verify itself runs once, in Engine.Run, via finalize.
func (c *cycleState) runFullPipeline(ctx context.Context) {
	c.runDiscover(ctx)
	c.runProbe(ctx)
	c.runDisambiguate(ctx)

	if c.deficit(escalateThreshold(c.req.MaxMatches)) {
		c.runEscalate(ctx)
	}
}
