package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mosif16/swe-grep/services/swegrep/types"
)

// RgaAdapter wraps ripgrep-all for the Escalate stage's documentation and
// config-file fallback. Its JSON event shape matches rg's (§6).
type RgaAdapter struct {
	runner     CommandRunner
	maxMatches int
}

// NewRgaAdapter returns an RgaAdapter backed by runner.
func NewRgaAdapter(runner CommandRunner, maxMatches int) *RgaAdapter {
	return &RgaAdapter{runner: runner, maxMatches: maxMatches}
}

// Search runs rga over root for a single query, used when Probe's accepted
// hit count is below the escalation threshold.
func (a *RgaAdapter) Search(ctx context.Context, root, query string) (<-chan types.RawMatch, <-chan error) {
	out := make(chan types.RawMatch, 32)
	errs := make(chan error, 1)

	args := []string{"--json", "--line-number", "--column", "--max-columns", "200", query, "."}

	stdout, _, wait, err := a.runner.Start(ctx, root, "rga", args)
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
			var msg rgMessage
			if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
				continue
			}
			if msg.Type != "match" {
				continue
			}
			match := types.RawMatch{
				Path:                msg.Data.Path.Text,
				Line:                msg.Data.LineNumber,
				RawSnippet:          msg.Data.Lines.Text,
				RawSnippetTruncated: len(msg.Data.Lines.Text) >= 200,
				Origin:              types.OriginRga,
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
				errs <- fmt.Errorf("tools: rga: %w", err)
			}
		}
	}()

	return out, errs
}
