package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mosif16/swe-grep/services/swegrep/types"
)

// maxNextActions caps the Summary Builder's suggested-next-step list
// (§4.7: "one to three of the highest-scoring hits").
const maxNextActions = 3

// buildNextActions renders "inspect path:line" suggestions for the top
// scored hits, in the order they were materialized (already score-sorted).
func buildNextActions(hits []types.Hit) []string {
	n := len(hits)
	if n > maxNextActions {
		n = maxNextActions
	}
	out := make([]string, 0, n)
	for _, h := range hits[:n] {
		out = append(out, fmt.Sprintf("inspect %s:%d", h.Path, h.Line))
	}
	return out
}

var (
	funcNameRe  = regexp.MustCompile(`\b(?:func|fn|function)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	scopeDeclRe = regexp.MustCompile(`\b(extension|struct|class|protocol|enum|impl|trait)\s+([A-Za-z_][A-Za-z0-9_]*)`)
)

// buildHints derives accepted hits' declaring scopes (§4.7), e.g.
// "extension UserService :: func fetchUser", extracted from the AST
// origin's surrounding node when the hit carries expanded context,
// otherwise from the snippet's own leading tokens.
func buildHints(hits []types.Hit) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, h := range hits {
		scope := declaringScope(h)
		if scope == "" {
			continue
		}
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		out = append(out, scope)
	}
	return out
}

// declaringScope renders one hit's scope as "<kind> <Name> :: func
// <funcName>", falling back to "func <funcName>" when no enclosing
// declaration is visible in the available snippet text.
func declaringScope(h types.Hit) string {
	funcName := firstSubmatch(funcNameRe, h.RawSnippet)
	if funcName == "" {
		return ""
	}
	context := h.ExpandedSnippet
	if context == "" {
		context = h.RawSnippet
	}
	if kind, name := enclosingDeclaration(context, funcName); kind != "" {
		return fmt.Sprintf("%s %s :: func %s", kind, name, funcName)
	}
	return "func " + funcName
}

// enclosingDeclaration scans context for the nearest
// extension/struct/class/protocol/enum/impl/trait declaration preceding the
// declaration of funcName: first earlier on that same line, then on the
// lines above it.
func enclosingDeclaration(context, funcName string) (kind, name string) {
	lines := strings.Split(context, "\n")
	funcLine := len(lines)
	for i, line := range lines {
		if strings.Contains(line, funcName) && funcNameRe.MatchString(line) {
			funcLine = i
			break
		}
	}
	if funcLine < len(lines) {
		if loc := funcNameRe.FindStringIndex(lines[funcLine]); loc != nil {
			if m := scopeDeclRe.FindStringSubmatch(lines[funcLine][:loc[0]]); m != nil {
				return m[1], m[2]
			}
		}
	}
	for i := funcLine - 1; i >= 0; i-- {
		if m := scopeDeclRe.FindStringSubmatch(lines[i]); m != nil {
			return m[1], m[2]
		}
	}
	return "", ""
}

func firstSubmatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}
