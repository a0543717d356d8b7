// Package query implements the deterministic Query Rewriter: turning a raw
// symbol and optional language hint into an ordered, deduplicated set of
// QueryVariants (§4.2).
package query

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mosif16/swe-grep/services/swegrep/types"
)

// MaxVariants bounds probe fan-out; the rewriter never emits more than this
// many variants for a single symbol.
const MaxVariants = 8

var literalSymbolRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// IsLiteralSymbol reports whether symbol qualifies for the Literal Fast
// Path (§4.1, §4.5, §8 property 7).
func IsLiteralSymbol(symbol string) bool {
	return literalSymbolRe.MatchString(symbol)
}

var metaEscaper = strings.NewReplacer(
	`\`, `\\`, `.`, `\.`, `+`, `\+`, `*`, `\*`, `?`, `\?`,
	`(`, `\(`, `)`, `\)`, `[`, `\[`, `]`, `\]`, `{`, `\{`, `}`, `\}`,
	`^`, `\^`, `$`, `\$`, `|`, `\|`,
)

// EscapeLiteral escapes regex metacharacters so a symbol can be embedded in
// an alternation or used as a literal `rg -e` pattern.
func EscapeLiteral(symbol string) string {
	return metaEscaper.Replace(symbol)
}

func hasMixedCase(s string) bool {
	var hasUpper, hasLower bool
	for _, r := range s {
		if unicode.IsUpper(r) {
			hasUpper = true
		}
		if unicode.IsLower(r) {
			hasLower = true
		}
	}
	return hasUpper && hasLower
}

// ForSymbol builds the ordered, deduplicated QueryVariant list for a symbol
// under an optional language hint, capped at MaxVariants. Literal is always
// first.
func ForSymbol(symbol string, hint types.LanguageHint) []types.QueryVariant {
	seen := make(map[string]bool)
	var out []types.QueryVariant

	add := func(text string, kind types.QueryVariantKind) {
		if text == "" || seen[text] || len(out) >= MaxVariants {
			return
		}
		seen[text] = true
		out = append(out, types.QueryVariant{Text: text, Kind: kind, Precedence: len(out)})
	}

	add(symbol, types.VariantLiteral)

	add(symbol+" User", types.VariantDocs)
	add(symbol+" error", types.VariantDocs)

	add(symbol+"(", types.VariantQualified)
	add(capitalize(symbol)+"."+symbol, types.VariantQualified)

	switch hint {
	case types.LangRust:
		addPresetVariants(add, "rust", symbol)
	case types.LangSwift:
		addPresetVariants(add, "swift", symbol)
	case types.LangTS, types.LangTSX:
		addPresetVariants(add, "ts", symbol)
	case types.LangAutoSwiftTS:
		addPresetVariants(add, "swift", symbol)
		addPresetVariants(add, "ts", symbol)
	}

	escaped := EscapeLiteral(symbol)
	if escaped != symbol {
		add(escaped, types.VariantRegex)
	}
	if hasMixedCase(symbol) {
		add("(?i)"+escaped, types.VariantRegex)
	}

	return out
}

// capitalize upper-cases the first rune of s; used to derive a plausible
// receiver-type hint from a lowerCamelCase symbol (e.g. "fetchUser" ->
// "FetchUser" for the "Type.symbol" qualified-variant guess).
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// DeriveTypeHint guesses a receiver type name from a symbol's casing, used
// when building language-specific disambiguation patterns in the
// Disambiguate stage. Mirrors the original's underscore/camelCase split.
func DeriveTypeHint(symbol string) string {
	if symbol == "" {
		return ""
	}
	parts := strings.FieldsFunc(symbol, func(r rune) bool { return r == '_' })
	if len(parts) > 1 {
		var b strings.Builder
		for _, p := range parts {
			b.WriteString(capitalize(p))
		}
		return b.String()
	}
	return capitalize(symbol)
}
