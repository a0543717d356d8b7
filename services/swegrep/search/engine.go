// Package search implements the Stage Pipeline and Summary Builder (§4.5,
// §4.7): the finite state machine that turns a SearchRequest into a
// CycleSummary, plus the Literal Fast Path short-circuit.
package search

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/mosif16/swe-grep/services/swegrep/cache"
	"github.com/mosif16/swe-grep/services/swegrep/index"
	"github.com/mosif16/swe-grep/services/swegrep/langtag"
	"github.com/mosif16/swe-grep/services/swegrep/query"
	"github.com/mosif16/swe-grep/services/swegrep/scheduler"
	"github.com/mosif16/swe-grep/services/swegrep/tools"
	"github.com/mosif16/swe-grep/services/swegrep/types"
)

var tracer = otel.Tracer("swegrep.search")

// StageBudgets holds the default soft per-stage deadlines from §4.4.
type StageBudgets struct {
	Discover      time.Duration
	Probe         time.Duration
	Disambiguate  time.Duration
	Escalate      time.Duration
	Verify        time.Duration
}

// DefaultStageBudgets returns §4.4's documented defaults.
func DefaultStageBudgets() StageBudgets {
	return StageBudgets{
		Discover:     40 * time.Millisecond,
		Probe:        150 * time.Millisecond,
		Disambiguate: 80 * time.Millisecond,
		Escalate:     200 * time.Millisecond,
		Verify:       50 * time.Millisecond,
	}
}

// Engine runs Search Cycles. One Engine is typically long-lived (owns the
// lazily-resolved tool binaries for a process), while each Run call is one
// independent cycle.
type Engine struct {
	runner tools.CommandRunner
	index  index.Index
	logger *slog.Logger
	budgets StageBudgets
	cycleLog *cycleLogger

	cycleCount int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger overrides the Engine's slog.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStageBudgets overrides the default per-stage soft deadlines.
func WithStageBudgets(b StageBudgets) Option {
	return func(e *Engine) { e.budgets = b }
}

// WithIndex wires the optional inverted-index collaborator used by the
// Escalate stage (§4.5 step b).
func WithIndex(idx index.Index) Option {
	return func(e *Engine) { e.index = idx }
}

// WithCycleLog enables the structured JSONL cycle log at dir/search.log.jsonl.
func WithCycleLog(dir string) Option {
	return func(e *Engine) { e.cycleLog = newCycleLogger(dir) }
}

// NewEngine returns an Engine backed by runner (ExecRunner in production,
// a fake in tests).
func NewEngine(runner tools.CommandRunner, opts ...Option) *Engine {
	e := &Engine{
		runner:  runner,
		logger:  slog.Default(),
		budgets: DefaultStageBudgets(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one Search Cycle for req and returns its CycleSummary.
// Run never returns a non-nil error for ordinary tool/cache failures —
// those are surfaced inside the summary per §7; it returns an error only
// if req fails validation.
func (e *Engine) Run(ctx context.Context, req types.SearchRequest) (*types.CycleSummary, error) {
	req = ApplyDefaults(req)
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	cycleCtx, cancel := context.WithTimeout(ctx, time.Duration(req.TimeoutSecs)*time.Second)
	defer cancel()

	cycleCtx, span := tracer.Start(cycleCtx, "search_cycle",
		trace.WithAttributes(attribute.String("symbol", req.Symbol), attribute.String("root", req.Root)))
	defer span.End()

	e.cycleCount++
	start := time.Now()

	c := &cycleState{
		req:     req,
		engine:  e,
		files:   newFileCache(),
		tagger:  langtag.New(1024),
		pool:    scheduler.New(req.Concurrency, rate.Limit(req.Concurrency*20)),
		summary: &types.CycleSummary{Cycle: e.cycleCount, Symbol: req.Symbol},
	}

	store := cache.New(req.CacheDir, e.logger)
	cacheState, cacheMs, err := store.Load()
	if err != nil {
		e.logger.Warn("search: cache load failed, continuing with empty state", slog.Any("error", err))
	}
	c.cacheState = cacheState
	c.store = store
	c.summary.StartupStats.CacheMs = cacheMs

	c.summary.Queries = query.ForSymbol(req.Symbol, req.Language)

	if ok := c.runFastPath(cycleCtx); !ok {
		c.runFullPipeline(cycleCtx)
	}

	c.finalize()

	c.summary.StageStats.CycleLatencyMs = msSince(start)

	if len(c.accepted) > 0 {
		store.Record(req.Symbol, c.accepted, time.Now())
	}
	if err := store.Flush(); err != nil {
		e.logger.Warn("search: cache flush failed", slog.Any("error", err))
	}

	if e.cycleLog != nil {
		e.cycleLog.append(c.summary)
	}

	span.SetAttributes(
		attribute.Float64("reward", c.summary.Reward),
		attribute.Int("top_hits", len(c.summary.TopHits)),
	)

	e.logger.Info("search_cycle_complete",
		slog.String("symbol", req.Symbol),
		slog.Int("cycle", c.summary.Cycle),
		slog.Float64("reward", c.summary.Reward),
		slog.Int("hits", len(c.summary.TopHits)),
		slog.Duration("latency", time.Since(start)),
	)

	return c.summary, nil
}

func now() time.Time { return time.Now() }

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
