// Package index implements the optional inverted-index collaborator the
// Escalate stage consults when Probe and Disambiguate leave too few
// accepted hits (§4.5 step b, §6). It is a thin BadgerDB-backed term index:
// symbol -> candidate file paths, built lazily per term by walking the
// project tree on a cache miss rather than kept perfectly in sync with the
// filesystem.
package index

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// entryTTL bounds how long a term's candidate list is trusted before the
// walker is asked to refresh it; a stale entry simply falls back to a
// fresh Walk on the next miss.
const entryTTL = 24 * time.Hour

const keyPrefix = "swegrep/index/v1/"

// Index resolves a symbol to candidate file paths without spawning any
// external tool, used as Escalate's last-resort widening step.
type Index interface {
	Search(ctx context.Context, term string) ([]string, error)
	Close() error
}

// BadgerIndex implements Index over an embedded BadgerDB instance rooted
// at a project's index directory (SearchRequest.IndexDir).
type BadgerIndex struct {
	db     *dgbadger.DB
	root   string
	logger *slog.Logger
}

// Open opens (creating if absent) the BadgerDB instance at dir. The caller
// owns the returned Index's lifecycle and must call Close.
func Open(dir, root string, logger *slog.Logger) (*BadgerIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := dgbadger.DefaultOptions(dir).WithLogger(nil)
	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("index: open badger at %s: %w", dir, err)
	}
	return &BadgerIndex{db: db, root: root, logger: logger}, nil
}

func (idx *BadgerIndex) Close() error {
	return idx.db.Close()
}

// Search returns candidate paths for term. A miss triggers a synchronous
// Walk of idx.root (bounded by walkBudget) whose results are cached under
// term's key with entryTTL before returning to the caller.
func (idx *BadgerIndex) Search(ctx context.Context, term string) ([]string, error) {
	key := indexKey(term)

	var cached []string
	err := idx.db.View(func(txn *dgbadger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		cached, err = gobDecode(raw)
		return err
	})
	if err == nil {
		return cached, nil
	}

	paths, err := idx.walk(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("index: walk: %w", err)
	}

	if raw, encErr := gobEncode(paths); encErr == nil {
		_ = idx.db.Update(func(txn *dgbadger.Txn) error {
			entry := dgbadger.NewEntry(key, raw).WithTTL(entryTTL)
			return txn.SetEntry(entry)
		})
	}

	idx.logger.Debug("index: rebuilt term", slog.String("term", term), slog.Int("candidates", len(paths)))
	return paths, nil
}

const walkBudget = 20000

// walk scans idx.root for files whose base name contains term, case
// sensitive first, and falls back to a case-insensitive pass only if the
// first finds nothing; this mirrors rg's --smart-case default so the index
// behaves consistently with the tool adapters it stands in for.
func (idx *BadgerIndex) walk(ctx context.Context, term string) ([]string, error) {
	var exact, ci []string
	visited := 0

	err := filepath.WalkDir(idx.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if visited >= walkBudget {
			return filepath.SkipAll
		}
		visited++
		if d.IsDir() {
			if strings.HasPrefix(filepath.Base(path), ".") && path != idx.root {
				return filepath.SkipDir
			}
			return nil
		}
		base := filepath.Base(path)
		if strings.Contains(base, term) {
			exact = append(exact, path)
		} else if strings.Contains(strings.ToLower(base), strings.ToLower(term)) {
			ci = append(ci, path)
		}
		select {
		case <-ctx.Done():
			return filepath.SkipAll
		default:
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	if len(exact) > 0 {
		sort.Strings(exact)
		return exact, nil
	}
	sort.Strings(ci)
	return ci, nil
}

func indexKey(term string) []byte {
	return []byte(keyPrefix + term)
}

func gobEncode(paths []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(paths); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte) ([]string, error) {
	var paths []string
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&paths); err != nil {
		return nil, err
	}
	return paths, nil
}
