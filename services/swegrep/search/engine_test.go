package search

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mosif16/swe-grep/services/swegrep/tools"
	"github.com/mosif16/swe-grep/services/swegrep/types"
)

// unreachableRunner fails every spawn with tools.ErrBinaryNotFound, the
// way a host with none of rg/fd/ast-grep/rga on PATH would.
type unreachableRunner struct{}

func (unreachableRunner) Start(ctx context.Context, dir, name string, args []string) (io.ReadCloser, func() string, func() error, error) {
	return nil, nil, nil, tools.ErrBinaryNotFound
}

// fakeRunner is a minimal tools.CommandRunner double driven entirely by
// per-tool canned stdout, so Engine.Run can be exercised without any real
// rg/fd/ast-grep/rga binary on the test host.
type fakeRunner struct {
	stdoutByTool map[string]string
}

func (f *fakeRunner) Start(ctx context.Context, dir, name string, args []string) (io.ReadCloser, func() string, func() error, error) {
	out := f.stdoutByTool[name]
	return io.NopCloser(strings.NewReader(out)), func() string { return "" }, func() error { return nil }, nil
}

func rgJSONLine(path string, line int, text string) string {
	return `{"type":"match","data":{"path":{"text":"` + path + `"},"lines":{"text":"` + text + `"},"line_number":` + itoa(line) + `}}`
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

func TestEngineRunFastPathAcceptsCleanLiteralHit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/main.rs", []byte("fn fetchUser() {}\n"), 0o644))

	runner := &fakeRunner{stdoutByTool: map[string]string{
		"rg": rgJSONLine("main.rs", 1, "fn fetchUser() {}") + "\n",
	}}

	engine := NewEngine(runner)
	req := types.DefaultSearchRequest("fetchUser", dir)
	req.CacheDir = dir + "/.cache"

	summary, err := engine.Run(context.Background(), req)
	require.NoError(t, err)
	require.True(t, summary.FastPath)
	require.NotEmpty(t, summary.TopHits)
	require.Equal(t, "main.rs", summary.TopHits[0].Path)
}

func TestEngineRunFallsBackWhenFastPathFindsNothing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/lib.rs", []byte("fn other() {}\n"), 0o644))

	runner := &fakeRunner{stdoutByTool: map[string]string{
		"rg": "",
		"fd": "lib.rs\n",
	}}

	engine := NewEngine(runner)
	req := types.DefaultSearchRequest("missingSymbol", dir)
	req.CacheDir = dir + "/.cache"
	req.TimeoutSecs = 1

	summary, err := engine.Run(context.Background(), req)
	require.NoError(t, err)
	require.False(t, summary.FastPath)
	require.Empty(t, summary.TopHits)
}

func TestEngineRunSetsErrorWhenEveryAdapterFailsToSpawn(t *testing.T) {
	dir := t.TempDir()

	engine := NewEngine(unreachableRunner{})
	req := types.DefaultSearchRequest("missingSymbol", dir)
	req.CacheDir = dir + "/.cache"
	req.TimeoutSecs = 1

	summary, err := engine.Run(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, ErrFatalSpawnFailure.Error(), summary.Error)
}

func TestEngineRunLeavesErrorEmptyWhenAtLeastOneAdapterSpawns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/lib.rs", []byte("fn other() {}\n"), 0o644))

	runner := &fakeRunner{stdoutByTool: map[string]string{
		"rg": "",
		"fd": "lib.rs\n",
	}}

	engine := NewEngine(runner)
	req := types.DefaultSearchRequest("missingSymbol", dir)
	req.CacheDir = dir + "/.cache"
	req.TimeoutSecs = 1

	summary, err := engine.Run(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, summary.Error)
}

func TestEngineRunRejectsInvalidRequest(t *testing.T) {
	engine := NewEngine(&fakeRunner{})
	_, err := engine.Run(context.Background(), types.SearchRequest{})
	require.Error(t, err)
}

func TestCycleLoggerAppendWritesJSONLine(t *testing.T) {
	dir := t.TempDir()
	logger := newCycleLogger(dir)
	logger.append(&types.CycleSummary{Cycle: 1, Symbol: "fetchUser"})

	raw, err := os.ReadFile(dir + "/search.log.jsonl")
	require.NoError(t, err)
	require.True(t, bytes.Contains(raw, []byte("fetchUser")))
}
