// Package telemetry wires the otel tracer provider and the Prometheus
// counters that back per-tool spawn/failure metrics (§5, §9). It resolves
// the SWE_GREP_DISABLE_TELEMETRY Open Question (spec.md §9) by honoring
// the env var and an equivalent CLI flag, fully implemented rather than
// left as a documented-but-inert toggle.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Disabled reports whether telemetry is turned off, either via the
// SWE_GREP_DISABLE_TELEMETRY env var or the disable flag passed in.
func Disabled(flagDisable bool) bool {
	if flagDisable {
		return true
	}
	v := os.Getenv("SWE_GREP_DISABLE_TELEMETRY")
	return v == "1" || v == "true"
}

// Setup installs a tracer provider: a stdout span exporter when telemetry
// is enabled, a no-op provider otherwise. It returns a shutdown func the
// caller must run before exit.
func Setup(ctx context.Context, disabled bool) (shutdown func(context.Context) error, err error) {
	if disabled {
		otel.SetTracerProvider(otel.GetTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// ToolCounters holds the per-tool Prometheus counters incremented by the
// tool adapters' circuit breaker wrapper (§9 "per-tool telemetry
// counters" supplemented feature).
type ToolCounters struct {
	Spawns   *prometheus.CounterVec
	Failures *prometheus.CounterVec
	Breaks   *prometheus.CounterVec
}

// NewToolCounters registers the counters against reg. A nil reg uses the
// default global registry.
func NewToolCounters(reg prometheus.Registerer) *ToolCounters {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &ToolCounters{
		Spawns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swegrep_tool_spawns_total",
			Help: "Number of times a tool adapter attempted to spawn its binary.",
		}, []string{"tool"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swegrep_tool_spawn_failures_total",
			Help: "Number of tool spawn attempts that failed.",
		}, []string{"tool"}),
		Breaks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swegrep_tool_circuit_breaks_total",
			Help: "Number of times a tool's circuit breaker tripped open.",
		}, []string{"tool"}),
	}
	reg.MustRegister(c.Spawns, c.Failures, c.Breaks)
	return c
}

// IncSpawn increments the spawn counter for tool.
func (c *ToolCounters) IncSpawn(tool string) { c.Spawns.WithLabelValues(tool).Inc() }

// IncFailure increments the spawn-failure counter for tool.
func (c *ToolCounters) IncFailure(tool string) { c.Failures.WithLabelValues(tool).Inc() }

// IncBreak increments the circuit-break counter for tool.
func (c *ToolCounters) IncBreak(tool string) { c.Breaks.WithLabelValues(tool).Inc() }

// LogDisabled logs once, at startup, that telemetry is off so an operator
// reading logs isn't left wondering why no spans appear.
func LogDisabled(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("telemetry disabled", slog.String("reason", "SWE_GREP_DISABLE_TELEMETRY or --no-telemetry"))
}
