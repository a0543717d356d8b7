package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mosif16/swe-grep/services/swegrep/langtag"
	"github.com/mosif16/swe-grep/services/swegrep/tools"
	"github.com/mosif16/swe-grep/services/swegrep/types"
)

const maxDiscoverScope = 512

// runDiscover populates c.scope with candidate paths for the rest of the
// pipeline (§4.5 Discover). It runs fd once per Hint Cache seed directory
// plus the root itself, prunes results to the request's language hint when
// one was given, and caps the union at maxDiscoverScope entries. A nil
// c.scope after this call means "search the whole root" (fd disabled,
// unavailable, or every attempt failed).
func (c *cycleState) runDiscover(ctx context.Context) {
	start := time.Now()
	defer func() { c.summary.StageStats.DiscoverMs = msSince(start) }()

	if !c.req.Tools.UseFd {
		return
	}

	roots := append([]string{c.req.Root}, c.store.TopDirectories(4)...)
	exts := langtag.ExtensionsFor(languageToTag(c.req.Language))

	seen := make(map[string]struct{})
	var scope []string

	ctx, cancel := context.WithTimeout(ctx, c.engine.budgets.Discover)
	defer cancel()

	for _, dir := range dedupeStrings(roots) {
		paths, errs := c.fdAdapter().Enumerate(ctx, dir, "")
		for p := range paths {
			if len(exts) > 0 && !hasAnyExt(p, exts) {
				continue
			}
			abs := p
			if !filepath.IsAbs(abs) {
				abs = filepath.Join(dir, abs)
			}
			if _, dup := seen[abs]; dup {
				continue
			}
			seen[abs] = struct{}{}
			scope = append(scope, abs)
			if len(scope) >= maxDiscoverScope {
				break
			}
		}
		failed := false
		for err := range errs {
			// fd's own transient failures don't abort discovery; Probe
			// falls back to a root-scoped rg pass if scope ends up empty.
			if errors.Is(err, tools.ErrBinaryNotFound) {
				failed = true
			}
		}
		c.noteSpawn(failed)
		if len(scope) >= maxDiscoverScope {
			break
		}
	}

	if c.req.Language == types.LangSwift || c.req.Language == types.LangAutoSwiftTS {
		for _, p := range swiftPackageHints(c.req.Root) {
			if len(exts) > 0 && !hasAnyExt(p, exts) {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			scope = append(scope, p)
			if len(scope) >= maxDiscoverScope {
				break
			}
		}
	}

	c.summary.StageStats.FdCandidates = len(scope)
	if len(scope) > 0 {
		c.scope = scope
	}
}

// swiftPackageHints walks root's Swift package layout the way the original
// discover() did (search.rs:645-686): the Package.swift manifest itself,
// the first 20 direct children of a Sources/ directory, and, for each of
// those that is a subdirectory, the files among its first 10 entries.
func swiftPackageHints(root string) []string {
	var hints []string

	manifest := filepath.Join(root, "Package.swift")
	if info, err := os.Stat(manifest); err == nil && !info.IsDir() {
		hints = append(hints, manifest)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return hints
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.EqualFold(e.Name(), "sources") {
			continue
		}
		sourcesDir := filepath.Join(root, e.Name())
		children, err := os.ReadDir(sourcesDir)
		if err != nil {
			continue
		}
		for i, child := range children {
			if i >= 20 {
				break
			}
			childPath := filepath.Join(sourcesDir, child.Name())
			if !child.IsDir() {
				hints = append(hints, childPath)
				continue
			}
			grandchildren, err := os.ReadDir(childPath)
			if err != nil {
				continue
			}
			for j, gc := range grandchildren {
				if j >= 10 {
					break
				}
				if gc.IsDir() {
					continue
				}
				hints = append(hints, filepath.Join(childPath, gc.Name()))
			}
		}
	}
	return hints
}

func hasAnyExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// languageToTag maps a request's LanguageHint onto the langtag package's
// canonical tags; auto-swift-ts and unspecified hints prune nothing.
func languageToTag(hint types.LanguageHint) string {
	switch hint {
	case types.LangRust:
		return "rust"
	case types.LangSwift:
		return "swift"
	case types.LangTS:
		return "ts"
	case types.LangTSX:
		return "tsx"
	default:
		return ""
	}
}
