package search

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/mosif16/swe-grep/services/swegrep/tools"
	"github.com/mosif16/swe-grep/services/swegrep/types"
)

// maxDisambiguateFiles is §4.5's top-K candidate file cap for ast-grep.
const maxDisambiguateFiles = 40

// runDisambiguate implements §4.5's Disambiguate stage: ast-grep runs its
// structural pattern library for the request's language (or every
// candidate language when none was given) against the top-K files that
// Probe already touched. PatternErrors are recorded as ast_warnings, never
// fatal; a language whose pattern set is entirely rejected just contributes
// no ast-grep evidence for this cycle.
func (c *cycleState) runDisambiguate(ctx context.Context) {
	start := time.Now()
	defer func() { c.summary.StageStats.DisambiguateMs = msSince(start) }()

	if !c.req.Tools.UseAstGrep {
		return
	}

	files := topCandidateFiles(c.raw, maxDisambiguateFiles)
	languages := languagesForDisambiguate(c.req.Language, files, c.tagger)
	if len(languages) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.engine.budgets.Disambiguate)
	defer cancel()

	matches, errs := c.astAdapter().SearchIdentifier(ctx, c.req.Root, c.req.Symbol, languages, files)
	collected, warnings, failed := drainMatchesAndCount(matches, errs, c.req.MaxMatches*2)
	c.addRaw(collected)
	c.noteSpawn(failed)
	c.summary.StageStats.AstHits = len(collected)
	c.summary.StageStats.AstWarnings += warnings
}

// topCandidateFiles returns the distinct paths already surfaced in raw,
// ranked by how many times each appeared (a proxy for relevance), capped
// at limit.
func topCandidateFiles(raw []types.RawMatch, limit int) []string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, m := range raw {
		if _, ok := counts[m.Path]; !ok {
			order = append(order, m.Path)
		}
		counts[m.Path]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

// languagesForDisambiguate resolves the candidate language set: an
// explicit request hint is authoritative, otherwise every language tag
// observed among files is tried.
func languagesForDisambiguate(hint types.LanguageHint, files []string, tagger interface{ Tag(string) string }) []string {
	if tag := languageToTag(hint); tag != "" {
		return []string{tag}
	}
	seen := make(map[string]struct{})
	var out []string
	for _, f := range files {
		tag := tagger.Tag(f)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// drainMatchesAndCount behaves like drainMatches but also counts how many
// errors arrived on errs, used for stages that track a warning counter
// (PatternErrors are non-fatal and folded into StageStats.AstWarnings
// rather than surfaced to the caller). It reports failedToSpawn the same
// way drainMatches does.
func drainMatchesAndCount(matches <-chan types.RawMatch, errs <-chan error, limit int) (out []types.RawMatch, warnings int, failedToSpawn bool) {
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
			warnings++
			if errors.Is(err, tools.ErrBinaryNotFound) {
				failedToSpawn = true
			}
		}
	}
	return out, warnings, failedToSpawn
}
