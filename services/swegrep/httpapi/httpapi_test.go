package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosif16/swe-grep/services/swegrep/search"
	"github.com/mosif16/swe-grep/services/swegrep/tools"
	"github.com/mosif16/swe-grep/services/swegrep/types"
)

// stubRunner never succeeds at spawning anything; it exercises the
// handler's error path without depending on rg/fd/ast-grep/rga being on
// PATH in the test environment.
type stubRunner struct{}

func (stubRunner) Start(ctx context.Context, dir, name string, args []string) (io.ReadCloser, func() string, func() error, error) {
	return nil, nil, nil, tools.ErrBinaryNotFound
}

func TestHealthzReturnsOK(t *testing.T) {
	srv := NewServer(search.NewEngine(stubRunner{}))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSearchRejectsMissingRequiredFields(t *testing.T) {
	srv := NewServer(search.NewEngine(stubRunner{}))
	body, err := json.Marshal(map[string]string{"root": "."})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// recordingRunner remembers which tool names it was asked to spawn, then
// fails every spawn the same way stubRunner does.
type recordingRunner struct {
	spawned map[string]bool
}

func (r *recordingRunner) Start(ctx context.Context, dir, name string, args []string) (io.ReadCloser, func() string, func() error, error) {
	r.spawned[name] = true
	return nil, nil, nil, tools.ErrBinaryNotFound
}

func TestSearchOmittedToolsFallsBackToDefaultsEnablingFdAndAstGrep(t *testing.T) {
	runner := &recordingRunner{spawned: map[string]bool{}}
	srv := NewServer(search.NewEngine(runner))
	body, err := json.Marshal(map[string]string{"symbol": "FetchUser", "root": t.TempDir()})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, runner.spawned["fd"], "fd should be attempted when tools is omitted")
	assert.True(t, runner.spawned["ast-grep"], "ast-grep should be attempted when tools is omitted")
}

func TestSearchExplicitAllFalseToolsDisablesFdAndAstGrep(t *testing.T) {
	runner := &recordingRunner{spawned: map[string]bool{}}
	srv := NewServer(search.NewEngine(runner))
	payload := map[string]interface{}{
		"symbol": "FetchUser",
		"root":   t.TempDir(),
		"tools":  types.ToolFlags{},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, runner.spawned["fd"], "fd must stay off when tools is explicitly all-false")
	assert.False(t, runner.spawned["ast-grep"], "ast-grep must stay off when tools is explicitly all-false")
}

func TestSearchRunsACycleAndReturnsSummaryJSON(t *testing.T) {
	srv := NewServer(search.NewEngine(stubRunner{}))
	body, err := json.Marshal(map[string]string{"symbol": "FetchUser", "root": t.TempDir()})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	assert.Equal(t, "FetchUser", decoded["Symbol"])
}
