package search

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/mosif16/swe-grep/services/swegrep/types"
)

var validate = validator.New()

// ValidateRequest checks a SearchRequest against §3's field constraints
// (non-empty symbol, an existing directory for root, an enum-constrained
// language hint, positive timeout/concurrency/max-matches). It never
// mutates req.
func ValidateRequest(req types.SearchRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("search: invalid request: %w", err)
	}
	return nil
}

// ApplyDefaults fills any zero-valued field of req with the spec-mandated
// default (§3), without overriding fields the caller set explicitly.
// tool_flags are never defaulted here: they are authoritative wherever
// they come from (§9 Open Question 2), so a zero-valued Tools leaves every
// tool off, and a caller that wants fd/ast-grep enabled must set them
// explicitly rather than relying on ApplyDefaults.
func ApplyDefaults(req types.SearchRequest) types.SearchRequest {
	d := types.DefaultSearchRequest(req.Symbol, req.Root)
	if req.MaxMatches > 0 {
		d.MaxMatches = req.MaxMatches
	}
	if req.TimeoutSecs > 0 {
		d.TimeoutSecs = req.TimeoutSecs
	}
	if req.Concurrency > 0 {
		d.Concurrency = req.Concurrency
	}
	if req.ContextBefore > 0 || req.ContextAfter > 0 {
		d.ContextBefore = req.ContextBefore
		d.ContextAfter = req.ContextAfter
		d.AutoContext = false
	}
	if req.CacheDir != "" {
		d.CacheDir = req.CacheDir
	}
	d.Language = req.Language
	d.Tools = req.Tools
	d.RetrieveBody = req.RetrieveBody
	d.IndexDir = req.IndexDir
	d.LogDir = req.LogDir
	return d
}
