package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/mosif16/swe-grep/services/swegrep/types"
)

// RgAdapter wraps the rg binary. It supports a union-regex invocation that
// accepts an alternation of query variants in a single process (§4.1 "Fast
// literal detector").
type RgAdapter struct {
	runner     CommandRunner
	maxMatches int
}

// NewRgAdapter returns an RgAdapter backed by runner.
func NewRgAdapter(runner CommandRunner, maxMatches int) *RgAdapter {
	return &RgAdapter{runner: runner, maxMatches: maxMatches}
}

type rgMessage struct {
	Type string          `json:"type"`
	Data rgMatchData     `json:"data,omitempty"`
}

type rgMatchData struct {
	Path       rgText `json:"path"`
	Lines      rgText `json:"lines"`
	LineNumber int    `json:"line_number"`
}

type rgText struct {
	Text string `json:"text"`
}

// SearchUnion runs one rg invocation over queries joined as alternation
// patterns (one -e flag per query, so rg itself unions them), scoped to
// paths (relative to root; empty means search all of root). Results stream
// onto the returned channel as they are parsed; the channel is closed when
// the invocation completes or ctx is cancelled. A non-nil error is sent on
// the error channel when rg fails to spawn, or when it exits non-zero while
// ctx is still live (rg also exits non-zero when nothing matched); it does
// not stop already-parsed matches from being delivered. Malformed records
// are skipped without an error, and a cancelled or timed-out invocation
// sends none.
func (a *RgAdapter) SearchUnion(ctx context.Context, root string, queries []string, paths []string, origin types.Origin) (<-chan types.RawMatch, <-chan error) {
	out := make(chan types.RawMatch, 64)
	errs := make(chan error, 1)

	if len(queries) == 0 {
		close(out)
		close(errs)
		return out, errs
	}

	args := []string{"--json", "--line-number", "--column", "--max-columns", "200", "--smart-case", "--max-count", strconv.Itoa(a.maxMatches)}
	for _, q := range queries {
		args = append(args, "-e", q)
	}
	if len(paths) == 0 {
		args = append(args, ".")
	} else {
		for _, p := range paths {
			args = append(args, relativeTo(root, p))
		}
	}

	stdout, _, wait, err := a.runner.Start(ctx, root, "rg", args)
	if err != nil {
		errs <- err
		close(out)
		close(errs)
		return out, errs
	}

	go func() {
		defer close(out)
		defer close(errs)
		defer stdout.Close()

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		count := 0
		for scanner.Scan() {
			if count >= a.maxMatches {
				break
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			line := scanner.Text()
			var msg rgMessage
			if err := json.Unmarshal([]byte(line), &msg); err != nil {
				continue // ParseError (§7): skip the bad record and continue; skipped records are not counted.
			}
			if msg.Type != "match" {
				continue
			}
			truncated := len(msg.Data.Lines.Text) >= 200
			match := types.RawMatch{
				Path:                msg.Data.Path.Text,
				Line:                msg.Data.LineNumber,
				RawSnippet:          msg.Data.Lines.Text,
				RawSnippetTruncated: truncated,
				Origin:              origin,
			}
			select {
			case out <- match:
				count++
			case <-ctx.Done():
				return
			}
		}
		if err := wait(); err != nil {
			if ctx.Err() == nil {
				errs <- fmt.Errorf("tools: rg: %w", err)
			}
		}
	}()

	return out, errs
}

func relativeTo(root, p string) string {
	if !filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return p
	}
	return rel
}
