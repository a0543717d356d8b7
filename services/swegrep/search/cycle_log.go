package search

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mosif16/swe-grep/services/swegrep/types"
)

// cycleLogger appends one JSON line per completed cycle to
// <dir>/search.log.jsonl, the structured cycle log from SPEC_FULL.md's
// supplemented features (§4). A logger that failed to open its file
// degrades to a no-op rather than failing the cycle.
type cycleLogger struct {
	mu   sync.Mutex
	file *os.File
}

// newCycleLogger opens (creating if absent) the JSONL log file under dir.
// A nil dir or an open failure yields a logger whose append is a no-op.
func newCycleLogger(dir string) *cycleLogger {
	if dir == "" {
		return &cycleLogger{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Default().Warn("search: cycle log dir unavailable", slog.Any("error", err))
		return &cycleLogger{}
	}
	f, err := os.OpenFile(filepath.Join(dir, "search.log.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Default().Warn("search: cycle log open failed", slog.Any("error", err))
		return &cycleLogger{}
	}
	return &cycleLogger{file: f}
}

// append writes summary as one JSON line. Marshal/write failures are
// logged, never propagated: the cycle log is diagnostic, not load-bearing.
func (l *cycleLogger) append(summary *types.CycleSummary) {
	if l == nil || l.file == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		slog.Default().Warn("search: cycle log marshal failed", slog.Any("error", err))
		return
	}
	raw = append(raw, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(raw); err != nil {
		slog.Default().Warn("search: cycle log write failed", slog.Any("error", err))
	}
}
