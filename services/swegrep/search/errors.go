package search

import "errors"

// Sentinel errors for the kinds enumerated in §7. They exist so callers can
// branch with errors.Is instead of string matching; the cycle itself never
// aborts on any of them except ErrFatalSpawnFailure.
var (
	ErrBinaryNotFound    = errors.New("search: binary not found")
	ErrToolTimeout       = errors.New("search: tool invocation timed out")
	ErrParseError        = errors.New("search: malformed tool output")
	ErrPatternError      = errors.New("search: ast-grep rejected pattern")
	ErrFileTooLarge      = errors.New("search: file exceeds body size limit")
	ErrNonUTF8           = errors.New("search: file is not valid UTF-8")
	ErrCacheError        = errors.New("search: hint cache read/write failed")
	ErrCycleTimeout      = errors.New("search: cycle exceeded timeout_secs")
	ErrFatalSpawnFailure = errors.New("search: every tool adapter failed to spawn")
)
