package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mosif16/swe-grep/services/swegrep/types"
)

// PatternError represents §7's PatternError: ast-grep rejected a structural
// pattern. The cycle records it as an ast_warning and continues without
// that pattern's evidence; it is never fatal.
type PatternError struct {
	Language string
	Pattern  string
	Message  string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("tools: ast-grep pattern error for %s/%q: %s", e.Language, e.Pattern, e.Message)
}

// AstGrepAdapter wraps the ast-grep binary for the Disambiguate stage's
// structural pattern matching.
type AstGrepAdapter struct {
	runner     CommandRunner
	maxMatches int
}

// NewAstGrepAdapter returns an AstGrepAdapter backed by runner.
func NewAstGrepAdapter(runner CommandRunner, maxMatches int) *AstGrepAdapter {
	return &AstGrepAdapter{runner: runner, maxMatches: maxMatches}
}

type astGrepMessage struct {
	File  string        `json:"file"`
	Range astGrepRange  `json:"range"`
	Text  string        `json:"text"`
}

type astGrepRange struct {
	Start astGrepPosition `json:"start"`
}

type astGrepPosition struct {
	Line int `json:"line"`
}

// SearchIdentifier tries, in order, every structural pattern for symbol
// across languages, streaming RawMatches as each pattern invocation
// returns. paths scopes the search (typically the top-K candidate files
// surfaced by Probe); empty means the whole root. Non-fatal PatternErrors
// are sent on the error channel rather than aborting remaining patterns.
func (a *AstGrepAdapter) SearchIdentifier(ctx context.Context, root, symbol string, languages []string, paths []string) (<-chan types.RawMatch, <-chan error) {
	out := make(chan types.RawMatch, 64)
	errs := make(chan error, 4)

	if len(languages) == 0 {
		languages = []string{"rust"}
	}

	go func() {
		defer close(out)
		defer close(errs)

		count := 0
		for _, lang := range languages {
			for _, pattern := range patternsForLanguage(symbol, lang) {
				if count >= a.maxMatches {
					return
				}
				remaining := a.maxMatches - count
				n, err := a.runPattern(ctx, out, root, lang, pattern, paths, remaining)
				count += n
				if err != nil {
					select {
					case errs <- err:
					default:
					}
				}
				if ctx.Err() != nil {
					return
				}
			}
		}
	}()

	return out, errs
}

func (a *AstGrepAdapter) runPattern(ctx context.Context, out chan<- types.RawMatch, root, lang, pattern string, paths []string, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}

	args := []string{"--json", "--pattern", pattern, "--lang", lang}
	if len(paths) == 0 {
		args = append(args, ".")
	} else {
		args = append(args, paths...)
	}

	stdout, stderr, wait, err := a.runner.Start(ctx, root, "ast-grep", args)
	if err != nil {
		return 0, err
	}
	defer stdout.Close()

	n := 0
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if n >= limit {
			break
		}
		line := scanner.Text()
		// ast-grep --json emits either a single JSON array across the whole
		// stream or one object per line; try line-object first since it is
		// the streaming-friendly shape, then, for a line that is not an
		// object, fall back to parsing that line on its own as an array.
		var msg astGrepMessage
		if err := json.Unmarshal([]byte(line), &msg); err == nil && msg.File != "" {
			select {
			case out <- types.RawMatch{
				Path:       msg.File,
				Line:       msg.Range.Start.Line,
				RawSnippet: msg.Text,
				Origin:     types.OriginAstGrep,
			}:
				n++
			case <-ctx.Done():
				return n, nil
			}
			continue
		}
		// Whole-array shape: parse once the full line (ast-grep sometimes
		// writes the entire array as one line of output).
		var arr []astGrepMessage
		if err := json.Unmarshal([]byte(line), &arr); err == nil {
			for _, m := range arr {
				if n >= limit {
					break
				}
				select {
				case out <- types.RawMatch{Path: m.File, Line: m.Range.Start.Line, RawSnippet: m.Text, Origin: types.OriginAstGrep}:
					n++
				case <-ctx.Done():
					return n, nil
				}
			}
		}
	}

	waitErr := wait()
	stderrText := ""
	if stderr != nil {
		stderrText = stderr()
	}
	if diag := findDiagnostic(stderrText, "Pattern contains an ERROR node"); diag != "" {
		return n, &PatternError{Language: lang, Pattern: pattern, Message: diag}
	}
	if waitErr != nil && ctx.Err() == nil {
		return n, fmt.Errorf("tools: ast-grep: %w", waitErr)
	}
	return n, nil
}

func findDiagnostic(stderrText, marker string) string {
	for _, line := range strings.Split(stderrText, "\n") {
		if strings.Contains(line, marker) {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

// patternsForLanguage returns the tree-sitter structural queries used to
// disambiguate symbol in language. The set mirrors the original Rust
// implementation's pattern library, trimmed to the highest-signal forms
// per language (declaration, call, and the most common binding shapes).
func patternsForLanguage(symbol, language string) []string {
	needle := strings.TrimSpace(symbol)
	if needle == "" {
		return []string{"(identifier) @id"}
	}
	eq := func(tmpl string) string {
		return strings.ReplaceAll(tmpl, "{needle}", strconv.Quote(needle))
	}

	switch strings.ToLower(language) {
	case "swift":
		return []string{
			eq(`(function_declaration name: (identifier) @id (#eq? @id {needle}))`),
			eq(`(protocol_declaration name: (identifier) @id (#eq? @id {needle}))`),
			eq(`(initializer_declaration name: (identifier) @id (#eq? @id {needle}))`),
			eq(`(extension_declaration body: (member_declaration_list (member_declaration (function_declaration name: (identifier) @id (#eq? @id {needle})))))`),
			eq(`(function_call_expression function: (identifier) @id (#eq? @id {needle}))`),
		}
	case "typescript", "ts", "tsx":
		return []string{
			eq(`(identifier) @id (#eq? @id {needle})`),
			eq(`(call_expression function: (identifier) @id (#eq? @id {needle}))`),
			eq(`(class_declaration name: (identifier) @id (#eq? @id {needle}))`),
			eq(`(interface_declaration name: (identifier) @id (#eq? @id {needle}))`),
			eq(`(method_definition name: (property_identifier) @id (#eq? @id {needle}))`),
			eq(`(lexical_declaration (variable_declarator name: (identifier) @id (#eq? @id {needle}))))`),
			eq(`(jsx_opening_element name: (identifier) @id (#eq? @id {needle}))`),
		}
	case "rust":
		return []string{
			eq(`(function_item name: (identifier) @id (#eq? @id {needle}))`),
			eq(`(impl_item type: (type_path (path_segment name: (identifier) @id (#eq? @id {needle}))))`),
			eq(`(trait_item name: (identifier) @id (#eq? @id {needle}))`),
			eq(`(struct_item name: (identifier) @id (#eq? @id {needle}))`),
			eq(`(enum_item name: (identifier) @id (#eq? @id {needle}))`),
		}
	default:
		return []string{eq(`(identifier) @id (#eq? @id {needle})`)}
	}
}
