package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosif16/swe-grep/services/swegrep/types"
)

func TestLoadOnMissingFileYieldsEmptyState(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	state, _, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, state.Symbols)
	require.NoError(t, s.Flush())
}

func TestRecordThenFlushThenReload(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	_, _, err := s.Load()
	require.NoError(t, err)

	hits := []types.Hit{{Path: "src/lib.rs", Score: 1.2}}
	s.Record("login_user", hits, time.Now())
	require.NoError(t, s.Flush())

	s2 := New(dir, nil)
	state, _, err := s2.Load()
	require.NoError(t, err)
	require.Len(t, state.Symbols["login_user"], 1)
	assert.Equal(t, "src/lib.rs", state.Symbols["login_user"][0].Path)
	require.NoError(t, s2.Flush())
}

func TestNoMutationLeavesMtimeUnchanged(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	_, _, err := s.Load()
	require.NoError(t, err)
	s.Record("x", []types.Hit{{Path: "a.rs", Score: 1}}, time.Now())
	require.NoError(t, s.Flush())

	path := filepath.Join(dir, stateFileName)
	info, err := os.Stat(path)
	require.NoError(t, err)
	mtimeBefore := info.ModTime()

	s2 := New(dir, nil)
	_, _, err = s2.Load()
	require.NoError(t, err)
	// no Record call: this cycle produced no accepted hits.
	require.NoError(t, s2.Flush())

	info2, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, mtimeBefore, info2.ModTime())
}

func TestSeedOrdersByScoreEWMADescending(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	_, _, err := s.Load()
	require.NoError(t, err)

	s.Record("f", []types.Hit{{Path: "low.rs", Score: 0.3}, {Path: "high.rs", Score: 0.9}}, time.Now())
	paths := s.Seed("f")
	require.Len(t, paths, 2)
	assert.Equal(t, "high.rs", paths[0])
}
