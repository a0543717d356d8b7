package bench

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosif16/swe-grep/services/swegrep/search"
	"github.com/mosif16/swe-grep/services/swegrep/tools"
)

type stubRunner struct{}

func (stubRunner) Start(ctx context.Context, dir, name string, args []string) (io.ReadCloser, func() string, func() error, error) {
	return nil, nil, nil, tools.ErrBinaryNotFound
}

func TestRunReturnsOneResultPerCaseWithRequestedRunCount(t *testing.T) {
	engine := search.NewEngine(stubRunner{})
	cases := []Case{
		{Symbol: "FetchUser", Root: t.TempDir(), WantPath: "src/user.rs"},
		{Symbol: "Widget", Root: t.TempDir(), WantPath: "src/widget.rs"},
	}

	results, err := Run(context.Background(), engine, cases, 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, 3, r.Runs)
		assert.GreaterOrEqual(t, r.MeanLatency, time.Duration(0))
	}
}

func TestRunDefaultsRunsWhenNonPositive(t *testing.T) {
	engine := search.NewEngine(stubRunner{})
	results, err := Run(context.Background(), engine, []Case{{Symbol: "X", Root: t.TempDir()}}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 5, results[0].Runs)
}

func TestPercentileClampsToLastElement(t *testing.T) {
	durations := []time.Duration{1, 2, 3}
	assert.Equal(t, time.Duration(3), percentile(durations, 1.0))
}

func TestMeanDurationOfEmptySliceIsZero(t *testing.T) {
	assert.Equal(t, time.Duration(0), meanDuration(nil))
}
