// Package cache implements the Hint Cache (§4.3): a single persisted JSON
// document mapping symbol -> ordered Hints and directory -> weight, loaded
// once at cycle entry and flushed at most once at cycle exit.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mosif16/swe-grep/services/swegrep/types"
)

const stateFileName = "state.json"
const lockFileName = "state.json.lock"

// ewmaDecay is the decay factor applied when folding a new hit's score
// into a Hint's running score_ewma (§4.3 "updates EWMA with decay factor
// 0.5").
const ewmaDecay = 0.5

// Store owns one cache directory's state.json. A Store is created fresh
// per cycle: Load reads (or initializes empty) state, Record folds in the
// cycle's accepted hits, and Flush writes back only if Record mutated
// anything.
//
// # Thread Safety
//
// A Store is not safe for concurrent use by multiple cycles against the
// same cache directory; §5 scopes the Hint Cache to a single owner guarded
// by an exclusive file lock acquired in Load and released in Flush.
type Store struct {
	dir     string
	logger  *slog.Logger
	state   *types.CacheState
	dirty   bool
	lockPath string
	lockFile *os.File
	mu      sync.Mutex
}

// New returns a Store scoped to dir. dir is created on first Load if
// absent.
func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger, lockPath: filepath.Join(dir, lockFileName)}
}

// Load reads state.json, returning an empty CacheState (never an error) if
// the file is absent, matching §4.3's "absence of state.json yields empty
// state, never an error." cacheMs reports the time spent creating the
// directory and acquiring the exclusive lock, resolving the cache_ms Open
// Question (spec.md §9) by measuring real work instead of reporting zero.
func (s *Store) Load() (state *types.CacheState, cacheMs float64, err error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return types.NewCacheState(), elapsedMs(start), fmt.Errorf("cache: mkdir %s: %w", s.dir, err)
	}
	if err := s.acquireLock(); err != nil {
		return types.NewCacheState(), elapsedMs(start), fmt.Errorf("cache: lock: %w", err)
	}
	lockMs := elapsedMs(start)

	path := filepath.Join(s.dir, stateFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.state = types.NewCacheState()
			return s.state, lockMs, nil
		}
		s.logger.Warn("cache: read failed, treating as empty", slog.String("path", path), slog.Any("error", err))
		s.state = types.NewCacheState()
		return s.state, lockMs, nil
	}

	var cs types.CacheState
	if err := json.Unmarshal(raw, &cs); err != nil {
		s.logger.Warn("cache: corrupt state.json, treating as empty", slog.String("path", path), slog.Any("error", err))
		s.state = types.NewCacheState()
		return s.state, lockMs, nil
	}
	if cs.Symbols == nil {
		cs.Symbols = make(map[string][]types.Hint)
	}
	if cs.Dirs == nil {
		cs.Dirs = make(map[string]float64)
	}
	s.state = &cs
	return s.state, lockMs, nil
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// Seed returns prior-hit paths for symbol, highest score_ewma first (§4.3
// seed).
func (s *Store) Seed(symbol string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	hints := append([]types.Hint(nil), s.state.Symbols[symbol]...)
	sort.SliceStable(hints, func(i, j int) bool { return hints[i].ScoreEWMA > hints[j].ScoreEWMA })
	paths := make([]string, len(hints))
	for i, h := range hints {
		paths[i] = h.Path
	}
	return paths
}

// TopDirectories returns the directories with the highest accumulated
// weight, used to bias Discover's fd scope.
func (s *Store) TopDirectories(limit int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil || len(s.state.Dirs) == 0 {
		return nil
	}
	type kv struct {
		dir    string
		weight float64
	}
	kvs := make([]kv, 0, len(s.state.Dirs))
	for d, w := range s.state.Dirs {
		kvs = append(kvs, kv{d, w})
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].weight > kvs[j].weight })
	if limit > len(kvs) {
		limit = len(kvs)
	}
	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = kvs[i].dir
	}
	return out
}

// KnownPath reports whether path already has a hint recorded for symbol,
// used by the Scorer's novelty term (§4.6: "+0.3 if path unseen in Hint
// Cache; 0 if cached").
func (s *Store) KnownPath(symbol, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return false
	}
	for _, h := range s.state.Symbols[symbol] {
		if h.Path == path {
			return true
		}
	}
	return false
}

// Record folds a cycle's accepted hits into the cache state. It is a no-op
// (and leaves dirty unset) when hits is empty, preserving the invariant
// that a miss never mutates on-disk cache (§3).
func (s *Store) Record(symbol string, hits []types.Hit, now time.Time) {
	if len(hits) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		s.state = types.NewCacheState()
	}

	existing := make(map[string]types.Hint)
	for _, h := range s.state.Symbols[symbol] {
		existing[h.Path] = h
	}

	for _, hit := range hits {
		prev, ok := existing[hit.Path]
		var ewma float64
		if ok {
			ewma = ewmaDecay*hit.Score + (1-ewmaDecay)*prev.ScoreEWMA
		} else {
			ewma = hit.Score
		}
		count := 1
		if ok {
			count = prev.HitCount + 1
		}
		existing[hit.Path] = types.Hint{
			Symbol:    symbol,
			Path:      hit.Path,
			LastSeen:  now,
			HitCount:  count,
			ScoreEWMA: ewma,
		}

		dir := filepath.Dir(hit.Path)
		s.state.Dirs[dir] = s.state.Dirs[dir] + 1.0
	}

	merged := make([]types.Hint, 0, len(existing))
	for _, h := range existing {
		merged = append(merged, h)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].ScoreEWMA > merged[j].ScoreEWMA })
	s.state.Symbols[symbol] = merged
	s.dirty = true
}

// Flush atomically persists state to state.json if Record mutated
// anything this cycle, then releases the exclusive lock acquired by Load.
// A no-mutation cycle skips the write entirely (§3, §8 property 4: cache
// mtime unchanged when no hit was accepted).
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.releaseLock()

	if !s.dirty || s.state == nil {
		return nil
	}

	raw, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}

	path := filepath.Join(s.dir, stateFileName)
	tmp := path + ".tmp-" + strings.ReplaceAll(time.Now().Format("150405.000000"), ".", "")
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("cache: write temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cache: rename: %w", err)
	}
	s.dirty = false
	return nil
}

func (s *Store) acquireLock() error {
	f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	s.lockFile = f
	return lockExclusive(f)
}

func (s *Store) releaseLock() {
	if s.lockFile == nil {
		return
	}
	unlock(s.lockFile)
	s.lockFile.Close()
	s.lockFile = nil
}
