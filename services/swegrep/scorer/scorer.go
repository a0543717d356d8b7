// Package scorer implements the Scorer & Deduper (§4.6): normalizing raw
// tool output into Hits, deduplicating by (path, line) with trust-ordered
// merging, scoring each surviving Hit, and computing the cycle's reward.
package scorer

import (
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/mosif16/swe-grep/services/swegrep/langtag"
	"github.com/mosif16/swe-grep/services/swegrep/types"
)

const maxSnippetBytes = 200

// originBoost is added to a Hit's score based on which tool produced it
// (§4.6 step 3).
var originBoost = map[types.Origin]float64{
	types.OriginAstGrep:   0.4,
	types.OriginRgScoped:  0.2,
	types.OriginRga:       -0.1,
}

// KnownPath reports whether a path has a prior Hint Cache entry for a
// symbol. The Scorer depends on this only through the interface below so
// it never imports the cache package directly.
type KnownPath func(symbol, path string) bool

// Normalize converts one RawMatch into a Hit: trims the snippet to
// maxSnippetBytes, tags its language, and builds the origin label
// "<tool>-<scope> [lang]" (§4.6 step 1).
func Normalize(m types.RawMatch, tagger *langtag.Tagger) types.Hit {
	snippet := m.RawSnippet
	snippetLen := len(snippet)
	truncated := m.RawSnippetTruncated
	if len(snippet) > maxSnippetBytes {
		snippet = snippet[:maxSnippetBytes]
	}
	lang := tagger.Tag(m.Path)

	return types.Hit{
		Path:                m.Path,
		Line:                m.Line,
		Snippet:             snippet,
		RawSnippet:          m.RawSnippet,
		RawSnippetTruncated: truncated,
		SnippetLength:       snippetLen,
		Origin:              m.Origin,
		OriginLabel:         originLabel(m.Origin, lang),
		Language:            lang,
	}
}

func originLabel(origin types.Origin, lang string) string {
	if lang == "" {
		return string(origin)
	}
	return fmt.Sprintf("%s [%s]", origin, lang)
}

// Dedupe removes entries sharing (path, line), keeping the hit whose
// origin has the higher trust rank (the earlier one on a tie) and filling
// its snippet and language, when empty, from the dropped one (§4.6 step
// 2). It returns the deduplicated hits and the count of entries dropped.
func Dedupe(hits []types.Hit) (kept []types.Hit, dropped int) {
	type key struct {
		path string
		line int
	}
	best := make(map[key]types.Hit)

	for _, h := range hits {
		k := key{h.Path, h.Line}
		cur, ok := best[k]
		if !ok {
			best[k] = h
			continue
		}
		dropped++
		merged, other := cur, h
		if h.Origin.TrustRank() > cur.Origin.TrustRank() {
			merged, other = h, cur
		}
		if merged.Snippet == "" {
			merged.Snippet = other.Snippet
		}
		if merged.Language == "" {
			merged.Language = other.Language
		}
		best[k] = merged
	}

	kept = make([]types.Hit, 0, len(best))
	for _, h := range best {
		kept = append(kept, h)
	}
	return kept, dropped
}

var wordBoundaryCache = map[string]*regexp.Regexp{}

func wholeWordMatches(line, symbol string) bool {
	re, ok := wordBoundaryCache[symbol]
	if !ok {
		re = regexp.MustCompile(`\b` + regexp.QuoteMeta(symbol) + `\b`)
		wordBoundaryCache[symbol] = re
	}
	return re.MatchString(line)
}

// fileStats carries the per-file counts the density and clustering terms
// need: total lines in the file and the line numbers of every hit within
// it.
type fileStats struct {
	lineCount  int
	hitLines   []int
}

// Score computes §4.6 step 3's weighted score for every hit in place,
// given the symbol being searched for, per-file line counts (lineCounts,
// keyed by path; a missing or zero entry is replaced by the line number of
// the file's first hit, so density is then computed against that), and a
// KnownPath lookup for
// the novelty term. It also returns whether any hit is high-confidence
// (§4.6 step 4), which the Scheduler uses to raise its cancel signal.
func Score(symbol string, hits []types.Hit, lineCounts map[string]int, known KnownPath) (scored []types.Hit, highConfidence bool) {
	byFile := make(map[string]*fileStats)
	for _, h := range hits {
		fs, ok := byFile[h.Path]
		if !ok {
			lc := lineCounts[h.Path]
			if lc == 0 {
				lc = h.Line
			}
			fs = &fileStats{lineCount: lc}
			byFile[h.Path] = fs
		}
		fs.hitLines = append(fs.hitLines, h.Line)
	}

	out := make([]types.Hit, len(hits))
	for i, h := range hits {
		precision := 0.5
		if wholeWordMatches(h.RawSnippet, symbol) {
			precision = 1.0
		}

		fs := byFile[h.Path]
		density := 0.0
		if fs != nil && fs.lineCount > 0 {
			density = math.Min(float64(len(fs.hitLines))/float64(fs.lineCount), 0.5)
		}

		clustering := 0.0
		if fs != nil {
			for _, other := range fs.hitLines {
				if other == h.Line {
					continue
				}
				if abs(other-h.Line) <= 10 {
					clustering += 0.2
				}
			}
			clustering = math.Min(clustering, 0.6)
		}

		novelty := 0.3
		if known != nil && known(symbol, h.Path) {
			novelty = 0.0
		}

		score := precision + density + clustering + novelty + originBoost[h.Origin]

		h.Precision = precision
		h.Density = density
		h.Clustering = clustering
		h.Novelty = novelty
		h.Score = score
		out[i] = h

		if h.HighConfidence() {
			highConfidence = true
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Line < out[j].Line
	})

	return out, highConfidence
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Reward computes §4.6 step 5's cycle-level reward, rounded to four
// decimal places. hits must already be scored (Precision/Density/
// Clustering/Novelty populated by Score).
func Reward(hits []types.Hit) float64 {
	if len(hits) == 0 {
		return 0
	}
	var sumPrecision, sumDensity, sumCluster, sumNovelty float64
	for _, h := range hits {
		sumPrecision += h.Precision
		sumDensity += h.Density
		sumCluster += h.Clustering
		sumNovelty += h.Novelty
	}
	n := float64(len(hits))
	meanPrecision := sumPrecision / n
	meanDensity := sumDensity / n
	meanCluster := sumCluster / n
	meanNovelty := sumNovelty / n

	reward := meanPrecision*0.4 + meanDensity*0.2 + meanCluster*0.2 + meanNovelty*0.2
	return math.Round(reward*10000) / 10000
}
