package tools

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
)

// FdAdapter wraps the fd binary for the Discover stage's candidate-path
// enumeration.
type FdAdapter struct {
	runner     CommandRunner
	maxResults int
}

// NewFdAdapter returns an FdAdapter backed by runner.
func NewFdAdapter(runner CommandRunner, maxResults int) *FdAdapter {
	return &FdAdapter{runner: runner, maxResults: maxResults}
}

// Enumerate lists up to maxResults file paths under root matching needle
// (an empty needle matches every file), honoring fd's default hidden-file
// and .gitignore conventions.
func (a *FdAdapter) Enumerate(ctx context.Context, root, needle string) (<-chan string, <-chan error) {
	out := make(chan string, 64)
	errs := make(chan error, 1)

	args := []string{"--type", "f", "--color", "never", "--max-results", strconv.Itoa(a.maxResults)}
	if needle != "" {
		args = append(args, needle, ".")
	} else {
		args = append(args, ".")
	}

	stdout, _, wait, err := a.runner.Start(ctx, root, "fd", args)
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
		count := 0
		for scanner.Scan() {
			if count >= a.maxResults {
				break
			}
			select {
			case out <- scanner.Text():
				count++
			case <-ctx.Done():
				return
			}
		}
		if err := wait(); err != nil {
			if ctx.Err() == nil {
				errs <- fmt.Errorf("tools: fd: %w", err)
			}
		}
	}()

	return out, errs
}
