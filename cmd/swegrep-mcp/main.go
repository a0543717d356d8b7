// Command swegrep-mcp exposes one search cycle as an MCP tool over stdio,
// for editors and agent harnesses that speak the Model Context Protocol
// instead of HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	mcpsdk "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mosif16/swe-grep/services/swegrep/search"
	"github.com/mosif16/swe-grep/services/swegrep/telemetry"
	"github.com/mosif16/swe-grep/services/swegrep/tools"
	"github.com/mosif16/swe-grep/services/swegrep/types"
)

const (
	serverName    = "swegrep-mcp"
	serverVersion = "1.0.0"
)

func main() {
	disabled := telemetry.Disabled(false)
	if disabled {
		telemetry.LogDisabled(slog.Default())
	}
	shutdown, err := telemetry.Setup(context.Background(), disabled)
	if err != nil {
		slog.Warn("swegrep-mcp: telemetry setup failed, continuing without spans", slog.Any("error", err))
	} else {
		defer shutdown(context.Background())
	}

	counters := telemetry.NewToolCounters(nil)
	runner := tools.NewBreakerRunner(tools.ExecRunner{}, slog.Default(), counters)
	engine := search.NewEngine(runner)

	mcpServer := server.NewMCPServer(serverName, serverVersion)
	mcpServer.AddTool(searchSymbolTool(), newSearchSymbolHandler(engine))

	if err := server.ServeStdio(mcpServer); err != nil {
		fmt.Fprintf(os.Stderr, "swegrep-mcp: %v\n", err)
		os.Exit(1)
	}
}

// searchSymbolTool describes the one tool this server exposes: one Search
// Cycle for a symbol under a root, returning its cycle summary.
func searchSymbolTool() mcpsdk.Tool {
	return mcpsdk.Tool{
		Name:        "search_symbol",
		Description: "Find exact file/line spans for a symbol in a code repository",
		InputSchema: mcpsdk.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"symbol": map[string]interface{}{
					"type":        "string",
					"description": "Symbol name to locate",
				},
				"root": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the repository root to search",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Optional language hint: rust, swift, ts, tsx, auto-swift-ts",
				},
				"max_matches": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum accepted hits (default 20)",
				},
			},
			Required: []string{"symbol", "root"},
		},
	}
}

func newSearchSymbolHandler(engine *search.Engine) func(context.Context, mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	return func(ctx context.Context, request mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("swegrep-mcp: invalid arguments")
		}

		symbol, _ := args["symbol"].(string)
		root, _ := args["root"].(string)
		if symbol == "" || root == "" {
			return nil, fmt.Errorf("swegrep-mcp: symbol and root are both required")
		}

		req := types.SearchRequest{
			Symbol:   symbol,
			Root:     root,
			Language: types.LanguageHint(stringArg(args, "language")),
			// This tool exposes no per-call tool_flags, so every call gets
			// the spec-mandated default rather than the zero value
			// ApplyDefaults would otherwise treat as "fd/ast-grep
			// explicitly disabled".
			Tools: types.DefaultSearchRequest(symbol, root).Tools,
		}
		if mm, ok := args["max_matches"].(float64); ok && mm > 0 {
			req.MaxMatches = int(mm)
		}

		summary, err := engine.Run(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("swegrep-mcp: %w", err)
		}

		return mcpsdk.NewToolResultText(formatSummary(summary)), nil
	}
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func formatSummary(summary *types.CycleSummary) string {
	out := fmt.Sprintf("symbol: %s (reward %.4f, fast_path=%t)\n", summary.Symbol, summary.Reward, summary.FastPath)
	if summary.Error != "" {
		out += "error: " + summary.Error + "\n"
	}
	for i, hit := range summary.TopHits {
		out += fmt.Sprintf("%d. %s:%d origin=%s score=%.4f\n%s\n", i+1, hit.Path, hit.Line, hit.OriginLabel, hit.Score, hit.Snippet)
	}
	if len(summary.NextActions) > 0 {
		out += "next actions:\n"
		for _, a := range summary.NextActions {
			out += "  - " + a + "\n"
		}
	}
	return out
}
