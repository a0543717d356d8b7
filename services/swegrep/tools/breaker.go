package tools

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Counters receives per-tool spawn/failure/break events. Satisfied by
// telemetry.ToolCounters; kept as an interface here so this package never
// imports the prometheus client directly.
type Counters interface {
	IncSpawn(tool string)
	IncFailure(tool string)
	IncBreak(tool string)
}

// BreakerRunner wraps a CommandRunner with a per-tool-name circuit breaker.
// A binary that keeps failing to spawn (missing from PATH, permission
// denied, exec format error) trips its breaker so the adapter stops paying
// the LookPath/fork cost on every cycle; §7 BinaryNotFound already disables
// the adapter for one cycle, this extends that across cycles within a
// single process's lifetime.
type BreakerRunner struct {
	next     CommandRunner
	logger   *slog.Logger
	counters Counters
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[io.ReadCloser]
}

// NewBreakerRunner wraps next with a circuit breaker per tool name. logger
// and counters may both be nil.
func NewBreakerRunner(next CommandRunner, logger *slog.Logger, counters Counters) *BreakerRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &BreakerRunner{
		next:     next,
		logger:   logger,
		counters: counters,
		breakers: make(map[string]*gobreaker.CircuitBreaker[io.ReadCloser]),
	}
}

func (r *BreakerRunner) breakerFor(name string) *gobreaker.CircuitBreaker[io.ReadCloser] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[io.ReadCloser](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("tool circuit breaker state change",
				slog.String("tool", name), slog.String("from", from.String()), slog.String("to", to.String()))
			if to == gobreaker.StateOpen && r.counters != nil {
				r.counters.IncBreak(name)
			}
		},
	})
	r.breakers[name] = b
	return b
}

// Start implements CommandRunner, routing spawn attempts through the
// tool's breaker. The stderr and wait accessors are not gated by the
// breaker since a process that started successfully should be allowed to
// finish.
func (r *BreakerRunner) Start(ctx context.Context, dir, name string, args []string) (io.ReadCloser, func() string, func() error, error) {
	var stderr func() string
	var wait func() error
	if r.counters != nil {
		r.counters.IncSpawn(name)
	}
	stdout, err := r.breakerFor(name).Execute(func() (io.ReadCloser, error) {
		out, se, w, err := r.next.Start(ctx, dir, name, args)
		stderr, wait = se, w
		return out, err
	})
	if err != nil {
		if r.counters != nil {
			r.counters.IncFailure(name)
		}
		return nil, nil, nil, err
	}
	return stdout, stderr, wait, nil
}
