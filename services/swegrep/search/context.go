package search

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// maxBodyBytes is the body-retrieval size cap (§4.6 "reject > 512 KiB").
const maxBodyBytes = 512 * 1024

// fileCache memoizes a file's split lines for the lifetime of a cycle, so
// context materialization for multiple hits in the same file reads the
// file once.
type fileCache struct {
	lines map[string][]string
}

func newFileCache() *fileCache {
	return &fileCache{lines: make(map[string][]string)}
}

func (c *fileCache) linesFor(path string) ([]string, error) {
	if ls, ok := c.lines[path]; ok {
		return ls, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ls := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	c.lines[path] = ls
	return ls, nil
}

// expandContext extracts lines [line-before, line+after] from path,
// clamped to the file's bounds, formatted with 3-digit zero-padded line
// numbers (§4.6 "Context materialization"). The caller chooses before and
// after, including the truncation-triggered widening to ±4.
func (c *fileCache) expandContext(path string, line, before, after int) (snippet string, start, end int, err error) {
	lines, err := c.linesFor(path)
	if err != nil {
		return "", line, line, err
	}
	total := len(lines)
	if total == 0 {
		return "", line, line, nil
	}

	start = clamp(line-before, 1, total)
	end = clamp(line+after, 1, total)
	if start > end {
		start, end = line, line
	}

	var b strings.Builder
	for n := start; n <= end; n++ {
		fmt.Fprintf(&b, "%03d %s\n", n, lines[n-1])
	}
	return strings.TrimRight(b.String(), "\n"), start, end, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// retrieveBody reads path and returns its contents if it is valid UTF-8
// and no larger than maxBodyBytes; otherwise it returns ("", false) with
// no error (§4.6 "Body retrieval": rejections set body_retrieved=false
// without error).
func retrieveBody(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || info.Size() > maxBodyBytes {
		return "", false
	}
	raw, err := os.ReadFile(path)
	if err != nil || len(raw) > maxBodyBytes {
		return "", false
	}
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

// defaultBodyLanguage reports whether lang is retrieved by default without
// an explicit body flag (§4.6: "language ∈ {rust, swift} by default").
func defaultBodyLanguage(lang string) bool {
	return lang == "rust" || lang == "swift"
}

// lineCount returns the number of lines in path, used by the Scorer's
// density term; it returns 0 (not an error) on any read failure so a
// missing/unreadable file simply contributes no density signal.
func (c *fileCache) lineCount(path string) int {
	lines, err := c.linesFor(path)
	if err != nil {
		return 0
	}
	return len(lines)
}
