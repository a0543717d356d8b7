package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledHonorsFlagAndEnvVar(t *testing.T) {
	assert.True(t, Disabled(true))

	t.Setenv("SWE_GREP_DISABLE_TELEMETRY", "1")
	assert.True(t, Disabled(false))

	t.Setenv("SWE_GREP_DISABLE_TELEMETRY", "")
	assert.False(t, Disabled(false))
}

func TestSetupDisabledReturnsNoopShutdown(t *testing.T) {
	shutdown, err := Setup(context.Background(), true)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestToolCountersIncrementIndependently(t *testing.T) {
	reg := prometheus.NewRegistry()
	counters := NewToolCounters(reg)

	counters.IncSpawn("rg")
	counters.IncSpawn("rg")
	counters.IncFailure("rg")
	counters.IncBreak("fd")

	assert.Equal(t, float64(2), testutil.ToFloat64(counters.Spawns.WithLabelValues("rg")))
	assert.Equal(t, float64(1), testutil.ToFloat64(counters.Failures.WithLabelValues("rg")))
	assert.Equal(t, float64(1), testutil.ToFloat64(counters.Breaks.WithLabelValues("fd")))
	assert.Equal(t, float64(0), testutil.ToFloat64(counters.Spawns.WithLabelValues("ast-grep")))
}
