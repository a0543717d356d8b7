// Command swegrep finds exact file/line spans for a symbol by orchestrating
// rg, fd, ast-grep, and rga, scoring and deduplicating their output within a
// fixed wall-clock budget.
//
// Usage:
//
//	swegrep search SymbolName --root /path/to/repo
//	swegrep search SymbolName --root . --max-matches 10 --json
//
// Serve the same cycle over HTTP:
//
//	swegrep serve --addr :8090
//	curl -X POST localhost:8090/search -d '{"symbol":"SymbolName","root":"."}'
//
// Bench a fixed case list against a warm process:
//
//	swegrep bench --cases cases.json --runs 5
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mosif16/swe-grep/services/swegrep/bench"
	"github.com/mosif16/swe-grep/services/swegrep/httpapi"
	"github.com/mosif16/swe-grep/services/swegrep/index"
	"github.com/mosif16/swe-grep/services/swegrep/search"
	"github.com/mosif16/swe-grep/services/swegrep/telemetry"
	"github.com/mosif16/swe-grep/services/swegrep/tools"
	"github.com/mosif16/swe-grep/services/swegrep/types"
)

// Flag vars for the search subcommand.
var (
	searchRoot          string
	searchLanguage      string
	searchMaxMatches    int
	searchContextBefore int
	searchContextAfter  int
	searchTimeoutSecs   int
	searchConcurrency   int
	searchRetrieveBody  bool
	searchCacheDir      string
	searchIndexDir      string
	searchLogDir        string
	searchUseFd         bool
	searchUseAstGrep    bool
	searchEnableRga     bool
	searchEnableIndex   bool
	searchJSON          bool
)

// Flag vars for the serve subcommand.
var (
	serveAddr     string
	serveIndexDir string
	serveLogDir   string
)

// Flag vars for the bench subcommand.
var (
	benchCasesPath string
	benchRuns      int
)

// noTelemetry disables the stdout trace exporter for any subcommand.
var noTelemetry bool

func main() {
	root := &cobra.Command{
		Use:   "swegrep",
		Short: "Deterministic sub-second code search agent",
	}
	root.PersistentFlags().BoolVar(&noTelemetry, "no-telemetry", false, "disable the stdout trace exporter")

	root.AddCommand(newSearchCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newBenchCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search SYMBOL",
		Short: "Run one search cycle for SYMBOL and print its cycle summary",
		Args:  cobra.ExactArgs(1),
		Run:   runSearchCommand,
	}
	cmd.Flags().StringVar(&searchRoot, "root", ".", "repository root to search")
	cmd.Flags().StringVar(&searchLanguage, "language", "", "language hint (rust, swift, ts, tsx, auto-swift-ts)")
	cmd.Flags().IntVar(&searchMaxMatches, "max-matches", 0, "cap on accepted hits (0 uses the default)")
	cmd.Flags().IntVar(&searchContextBefore, "context-before", 0, "lines of context before each hit (0 uses auto context)")
	cmd.Flags().IntVar(&searchContextAfter, "context-after", 0, "lines of context after each hit (0 uses auto context)")
	cmd.Flags().IntVar(&searchTimeoutSecs, "timeout", 0, "cycle wall-clock budget in seconds (0 uses the default)")
	cmd.Flags().IntVar(&searchConcurrency, "concurrency", 0, "scheduler worker count (0 uses the default)")
	cmd.Flags().BoolVar(&searchRetrieveBody, "retrieve-body", false, "retrieve each hit's full file body")
	cmd.Flags().StringVar(&searchCacheDir, "cache-dir", "", "Hint Cache directory (defaults to <root>/.swe-grep-cache)")
	cmd.Flags().StringVar(&searchIndexDir, "index-dir", "", "inverted-index directory (empty disables the Escalate index step)")
	cmd.Flags().StringVar(&searchLogDir, "log-dir", "", "append each cycle's summary as JSONL under this directory")
	cmd.Flags().BoolVar(&searchUseFd, "use-fd", true, "allow the Discover stage to shell out to fd")
	cmd.Flags().BoolVar(&searchUseAstGrep, "use-ast-grep", true, "allow the Disambiguate stage to shell out to ast-grep")
	cmd.Flags().BoolVar(&searchEnableRga, "enable-rga", false, "allow the Escalate stage to shell out to rga")
	cmd.Flags().BoolVar(&searchEnableIndex, "enable-index", false, "allow the Escalate stage to consult the inverted index")
	cmd.Flags().BoolVar(&searchJSON, "json", false, "print the cycle summary as JSON instead of a human-readable report")
	return cmd
}

func runSearchCommand(cmd *cobra.Command, args []string) {
	symbol := args[0]
	shutdown := setupTelemetry()
	defer shutdown()

	engine := buildEngine(searchRoot, searchIndexDir, searchLogDir)

	req := types.SearchRequest{
		Symbol:        symbol,
		Root:          searchRoot,
		Language:      types.LanguageHint(searchLanguage),
		MaxMatches:    searchMaxMatches,
		ContextBefore: searchContextBefore,
		ContextAfter:  searchContextAfter,
		TimeoutSecs:   searchTimeoutSecs,
		Concurrency:   searchConcurrency,
		RetrieveBody:  searchRetrieveBody,
		CacheDir:      searchCacheDir,
		IndexDir:      searchIndexDir,
		LogDir:        searchLogDir,
		Tools: types.ToolFlags{
			UseFd:       searchUseFd,
			UseAstGrep:  searchUseAstGrep,
			EnableRga:   searchEnableRga,
			EnableIndex: searchEnableIndex,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	summary, err := engine.Run(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swegrep: %v\n", err)
		os.Exit(1)
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fmt.Fprintf(os.Stderr, "swegrep: encode summary: %v\n", err)
			os.Exit(1)
		}
	} else {
		printSummary(summary)
	}

	if summary.Error != "" {
		os.Exit(1)
	}
}

func printSummary(summary *types.CycleSummary) {
	fmt.Printf("symbol: %s (cycle %d, reward %.4f, fast_path=%t)\n", summary.Symbol, summary.Cycle, summary.Reward, summary.FastPath)
	if summary.Error != "" {
		fmt.Printf("error: %s\n", summary.Error)
	}
	for i, hit := range summary.TopHits {
		fmt.Printf("%d. %s:%d  origin=%s score=%.4f\n", i+1, hit.Path, hit.Line, hit.OriginLabel, hit.Score)
		if hit.Snippet != "" {
			fmt.Println(hit.Snippet)
		}
	}
	if len(summary.NextActions) > 0 {
		fmt.Println("next actions:")
		for _, a := range summary.NextActions {
			fmt.Printf("  - %s\n", a)
		}
	}
	if len(summary.Hints) > 0 {
		fmt.Println("hints:")
		for _, h := range summary.Hints {
			fmt.Printf("  - %s\n", h)
		}
	}
	fmt.Printf("cycle_latency_ms=%.2f deduped=%d\n", summary.StageStats.CycleLatencyMs, summary.Deduped)
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /search over HTTP (§6)",
		Run:   runServeCommand,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", ":8090", "listen address")
	cmd.Flags().StringVar(&serveIndexDir, "index-dir", "", "inverted-index directory (empty disables the Escalate index step)")
	cmd.Flags().StringVar(&serveLogDir, "log-dir", "", "append each cycle's summary as JSONL under this directory")
	return cmd
}

func runServeCommand(cmd *cobra.Command, args []string) {
	shutdown := setupTelemetry()
	defer shutdown()

	engine := buildEngine(".", serveIndexDir, serveLogDir)
	srv := httpapi.NewServer(engine)

	httpServer := &http.Server{
		Addr:         serveAddr,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("swegrep: shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.Error("swegrep: shutdown error", slog.Any("error", err))
		}
	}()

	slog.Info("swegrep: listening", slog.String("addr", serveAddr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("swegrep: server error", slog.Any("error", err))
		os.Exit(1)
	}
}

func newBenchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a fixed case list repeatedly and report latency/reward statistics",
		Run:   runBenchCommand,
	}
	cmd.Flags().StringVar(&benchCasesPath, "cases", "", "path to a JSON array of {symbol,root,want_path} cases (required)")
	cmd.Flags().IntVar(&benchRuns, "runs", 5, "repetitions per case")
	return cmd
}

type benchCaseFile struct {
	Symbol   string `json:"symbol"`
	Root     string `json:"root"`
	WantPath string `json:"want_path"`
}

func runBenchCommand(cmd *cobra.Command, args []string) {
	if benchCasesPath == "" {
		fmt.Fprintln(os.Stderr, "swegrep: bench requires --cases")
		os.Exit(1)
	}
	shutdown := setupTelemetry()
	defer shutdown()

	raw, err := os.ReadFile(benchCasesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swegrep: read cases: %v\n", err)
		os.Exit(1)
	}
	var caseFiles []benchCaseFile
	if err := json.Unmarshal(raw, &caseFiles); err != nil {
		fmt.Fprintf(os.Stderr, "swegrep: parse cases: %v\n", err)
		os.Exit(1)
	}

	cases := make([]bench.Case, 0, len(caseFiles))
	for _, c := range caseFiles {
		cases = append(cases, bench.Case{Symbol: c.Symbol, Root: c.Root, WantPath: c.WantPath})
	}

	engine := buildEngine("", "", "")
	results, err := bench.Run(context.Background(), engine, cases, benchRuns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swegrep: bench: %v\n", err)
		os.Exit(1)
	}

	for _, r := range results {
		fmt.Printf("%-30s runs=%d mean=%v p95=%v mean_reward=%.4f top_hits=%d/%d\n",
			r.Case.Symbol, r.Runs, r.MeanLatency, r.P95Latency, r.MeanReward, r.TopPathHits, r.Runs)
	}
}

// buildEngine wires a production Engine: ExecRunner wrapped in a
// per-tool circuit breaker, the optional badger index rooted at
// indexRoot, and an optional cycle log.
func buildEngine(indexRoot, indexDir, logDir string) *search.Engine {
	counters := telemetry.NewToolCounters(nil)
	runner := tools.NewBreakerRunner(tools.ExecRunner{}, slog.Default(), counters)

	opts := []search.Option{}
	if logDir != "" {
		opts = append(opts, search.WithCycleLog(logDir))
	}
	if indexDir != "" {
		if indexRoot == "" {
			indexRoot = "."
		}
		idx, err := index.Open(indexDir, indexRoot, slog.Default())
		if err != nil {
			slog.Warn("swegrep: index unavailable, Escalate index step disabled", slog.Any("error", err))
		} else {
			opts = append(opts, search.WithIndex(idx))
		}
	}
	return search.NewEngine(runner, opts...)
}

func setupTelemetry() func() {
	disabled := telemetry.Disabled(noTelemetry)
	if disabled {
		telemetry.LogDisabled(slog.Default())
	}
	shutdown, err := telemetry.Setup(context.Background(), disabled)
	if err != nil {
		slog.Warn("swegrep: telemetry setup failed, continuing without spans", slog.Any("error", err))
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			slog.Warn("swegrep: telemetry shutdown failed", slog.Any("error", err))
		}
	}
}
