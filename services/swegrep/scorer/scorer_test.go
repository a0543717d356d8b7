package scorer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosif16/swe-grep/services/swegrep/langtag"
	"github.com/mosif16/swe-grep/services/swegrep/types"
)

func TestNormalizeTrimsSnippetAndTagsLanguage(t *testing.T) {
	tagger := langtag.New(16)
	m := types.RawMatch{Path: "src/lib.rs", Line: 1, RawSnippet: "fn login_user() {}", Origin: types.OriginRgScoped}
	h := Normalize(m, tagger)
	assert.Equal(t, "rust", h.Language)
	assert.Equal(t, "rg-scoped [rust]", h.OriginLabel)
	assert.LessOrEqual(t, len(h.Snippet), 200)
}

func TestDedupeKeepsHigherTrustOrigin(t *testing.T) {
	hits := []types.Hit{
		{Path: "a.rs", Line: 1, Origin: types.OriginFd},
		{Path: "a.rs", Line: 1, Origin: types.OriginAstGrep, Snippet: "fn foo() {}"},
	}
	kept, dropped := Dedupe(hits)
	require.Len(t, kept, 1)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, types.OriginAstGrep, kept[0].Origin)
}

func TestDedupeNoDuplicatePathLine(t *testing.T) {
	hits := []types.Hit{
		{Path: "a.rs", Line: 1, Origin: types.OriginFd},
		{Path: "a.rs", Line: 2, Origin: types.OriginFd},
		{Path: "a.rs", Line: 1, Origin: types.OriginRgScoped},
	}
	kept, _ := Dedupe(hits)
	seen := make(map[string]bool)
	for _, h := range kept {
		key := fmt.Sprintf("%s:%d", h.Path, h.Line)
		require.False(t, seen[key])
		seen[key] = true
	}
	assert.Len(t, kept, 2)
}

func TestScoreHighConfidenceRequiresAstGrepAndPrecisionAndClustering(t *testing.T) {
	hits := []types.Hit{
		{Path: "a.rs", Line: 10, RawSnippet: "fn fetchUser() {}", Origin: types.OriginAstGrep},
		{Path: "a.rs", Line: 15, RawSnippet: "fetchUser();", Origin: types.OriginRgScoped},
	}
	scored, highConfidence := Score("fetchUser", hits, map[string]int{"a.rs": 100}, nil)
	require.Len(t, scored, 2)
	assert.True(t, highConfidence)
}

func TestScoreSortedByScoreThenPathLine(t *testing.T) {
	hits := []types.Hit{
		{Path: "b.rs", Line: 1, RawSnippet: "x", Origin: types.OriginFd},
		{Path: "a.rs", Line: 1, RawSnippet: "fetchUser", Origin: types.OriginAstGrep},
	}
	scored, _ := Score("fetchUser", hits, nil, nil)
	require.Len(t, scored, 2)
	assert.GreaterOrEqual(t, scored[0].Score, scored[1].Score)
}

func TestRewardIsFourDecimalRounded(t *testing.T) {
	hits := []types.Hit{
		{Precision: 1.0, Density: 0.1, Clustering: 0.2, Novelty: 0.3},
		{Precision: 0.5, Density: 0.0, Clustering: 0.0, Novelty: 0.0},
	}
	reward := Reward(hits)
	assert.Equal(t, 0.36, reward)
}

func TestRewardZeroOnNoHits(t *testing.T) {
	assert.Equal(t, 0.0, Reward(nil))
}
