// Package langtag derives a canonical language tag from a file path. The
// mapping is a pure function of the extension (§4.6, §9 "Language tagging")
// but is memoized per path since a cycle may re-tag the same path many
// times while scoring and deduping hits.
package langtag

import (
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

var extToLang = map[string]string{
	".rs":    "rust",
	".swift": "swift",
	".ts":    "ts",
	".tsx":   "tsx",
	".js":    "js",
	".jsx":   "jsx",
	".go":    "go",
	".py":    "python",
	".rb":    "ruby",
	".java":  "java",
	".kt":    "kotlin",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".md":    "markdown",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".toml":  "toml",
}

// Tagger memoizes path -> language tag lookups for the lifetime of a cycle.
// A fresh Tagger must be created per cycle; it is not meant to outlive one.
type Tagger struct {
	cache *lru.Cache[string, string]
}

// New returns a Tagger with a bounded memoization cache. size should cover
// the cycle's worst-case number of distinct candidate paths; a cold miss
// simply recomputes the tag.
func New(size int) *Tagger {
	if size <= 0 {
		size = 1024
	}
	c, _ := lru.New[string, string](size)
	return &Tagger{cache: c}
}

// Tag returns the canonical language tag for path, or "" if the extension
// is unrecognized.
func (t *Tagger) Tag(path string) string {
	if v, ok := t.cache.Get(path); ok {
		return v
	}
	tag := fromExtension(path)
	t.cache.Add(path, tag)
	return tag
}

func fromExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return extToLang[ext]
}

// ExtensionsFor returns the file extensions associated with a language tag,
// used by Discover to prune fd's candidate scope by language hint.
func ExtensionsFor(lang string) []string {
	var out []string
	for ext, l := range extToLang {
		if l == lang {
			out = append(out, ext)
		}
	}
	return out
}
