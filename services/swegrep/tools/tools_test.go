package tools

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner replays the same canned stdout/stderr on every Start call,
// independent of the args passed, so adapter tests don't depend on rg/fd/
// ast-grep/rga being installed.
type fakeRunner struct {
	stdout   string
	stderr   string
	waitErr  error
	starts   int
	lastArgs []string
}

func (f *fakeRunner) Start(_ context.Context, _, _ string, args []string) (io.ReadCloser, func() string, func() error, error) {
	f.starts++
	f.lastArgs = args
	return io.NopCloser(bytes.NewReader([]byte(f.stdout))), func() string { return f.stderr }, func() error { return f.waitErr }, nil
}

func TestRgAdapterParsesMatchEvents(t *testing.T) {
	stdout := strings.Join([]string{
		`{"type":"begin","data":{}}`,
		`{"type":"match","data":{"path":{"text":"src/lib.rs"},"lines":{"text":"fn login_user() {}"},"line_number":1}}`,
		`{"type":"end","data":{}}`,
	}, "\n")
	runner := &fakeRunner{stdout: stdout}
	adapter := NewRgAdapter(runner, 20)

	out, errs := adapter.SearchUnion(context.Background(), "/repo", []string{"login_user"}, nil, "rg-scoped")

	var matches []string
	for m := range out {
		matches = append(matches, m.Path)
		assert.Equal(t, 1, m.Line)
	}
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}
	require.Len(t, matches, 1)
	assert.Equal(t, "src/lib.rs", matches[0])
}

func TestRgAdapterSkipsMalformedJSON(t *testing.T) {
	stdout := "not json\n" + `{"type":"match","data":{"path":{"text":"a.rs"},"lines":{"text":"x"},"line_number":2}}`
	runner := &fakeRunner{stdout: stdout}
	adapter := NewRgAdapter(runner, 20)

	out, errs := adapter.SearchUnion(context.Background(), "/repo", []string{"x"}, nil, "rg-scoped")
	var count int
	for range out {
		count++
	}
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, 1, count)
}

func TestFdAdapterEnumerate(t *testing.T) {
	runner := &fakeRunner{stdout: "src/lib.rs\nsrc/main.rs\n"}
	adapter := NewFdAdapter(runner, 10)

	out, errs := adapter.Enumerate(context.Background(), "/repo", "")
	var paths []string
	for p := range out {
		paths = append(paths, p)
	}
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, []string{"src/lib.rs", "src/main.rs"}, paths)
}

func TestAstGrepAdapterDetectsPatternError(t *testing.T) {
	runner := &fakeRunner{stdout: "", stderr: "Error: Pattern contains an ERROR node: (identifier"}
	adapter := NewAstGrepAdapter(runner, 10)

	out, errs := adapter.SearchIdentifier(context.Background(), "/repo", "fetchUser", []string{"rust"}, nil)
	for range out {
	}
	var gotPatternErr bool
	for err := range errs {
		var pe *PatternError
		if ok := asPatternError(err, &pe); ok {
			gotPatternErr = true
		}
	}
	assert.True(t, gotPatternErr)
}

func asPatternError(err error, target **PatternError) bool {
	if pe, ok := err.(*PatternError); ok {
		*target = pe
		return true
	}
	return false
}

func TestBinaryAvailableMemoizes(t *testing.T) {
	// "ls" exists on essentially every CI runner; a bogus name does not.
	assert.True(t, BinaryAvailable("ls"))
	assert.False(t, BinaryAvailable("swe-grep-definitely-not-a-real-binary"))
}
