// Package types defines the data model shared by every swegrep component:
// the request that enters a cycle, the intermediate records produced while
// discovering and scoring matches, and the summary that leaves it.
package types

import "time"

// LanguageHint narrows query rewriting and ast-grep pattern selection.
type LanguageHint string

const (
	LangUnspecified LanguageHint = ""
	LangRust        LanguageHint = "rust"
	LangSwift       LanguageHint = "swift"
	LangTS          LanguageHint = "ts"
	LangTSX         LanguageHint = "tsx"
	LangAutoSwiftTS LanguageHint = "auto-swift-ts"
)

// ToolFlags controls which external tools a cycle is permitted to use.
// These are authoritative: no transport wrapper may override a caller's
// explicit value with a server-side default.
type ToolFlags struct {
	UseFd      bool
	UseAstGrep bool
	EnableRga  bool
	EnableIndex bool
}

// SearchRequest is the single entry point to a Search Cycle. All fields are
// immutable for the lifetime of the cycle they describe.
type SearchRequest struct {
	Symbol        string       `validate:"required"`
	Root          string       `validate:"required,dir"`
	Language      LanguageHint `validate:"omitempty,oneof=rust swift ts tsx auto-swift-ts"`
	Tools         ToolFlags
	MaxMatches    int `validate:"gt=0"`
	ContextBefore int `validate:"gte=0"`
	ContextAfter  int `validate:"gte=0"`
	AutoContext   bool // true when ContextBefore/After were not explicitly set
	TimeoutSecs   int  `validate:"gt=0"`
	Concurrency   int  `validate:"gt=0"`
	RetrieveBody  bool
	CacheDir      string
	IndexDir      string
	LogDir        string
}

// DefaultSearchRequest returns a request populated with spec-mandated
// defaults; callers override only the fields they care about.
func DefaultSearchRequest(symbol, root string) SearchRequest {
	return SearchRequest{
		Symbol:        symbol,
		Root:          root,
		MaxMatches:    20,
		ContextBefore: 2,
		ContextAfter:  2,
		AutoContext:   true,
		TimeoutSecs:   3,
		Concurrency:   8,
		CacheDir:      root + "/.swe-grep-cache",
		Tools: ToolFlags{
			UseFd:      true,
			UseAstGrep: true,
		},
	}
}

// QueryVariantKind classifies how a QueryVariant text was derived.
type QueryVariantKind string

const (
	VariantLiteral   QueryVariantKind = "literal"
	VariantQualified QueryVariantKind = "qualified"
	VariantReceiver  QueryVariantKind = "receiver"
	VariantRegex     QueryVariantKind = "regex"
	VariantDocs      QueryVariantKind = "docs"
)

// QueryVariant is one deterministically derived rewrite of a symbol.
// Precedence is the dispatch order within the Scheduler (lower first).
type QueryVariant struct {
	Text       string
	Kind       QueryVariantKind
	Precedence int
}

// ToolName identifies one of the external binaries swegrep orchestrates.
type ToolName string

const (
	ToolRg      ToolName = "rg"
	ToolFd      ToolName = "fd"
	ToolAstGrep ToolName = "ast-grep"
	ToolRga     ToolName = "rga"
)

// ToolInvocation is the scheduled unit of external work the Scheduler
// dispatches to a worker.
type ToolInvocation struct {
	Tool     ToolName
	Args     []string
	Deadline time.Time
	Variant  QueryVariant
}

// Origin identifies which tool and scope produced a RawMatch/Hit, and
// determines trust ordering during dedup.
type Origin string

const (
	OriginRgScoped   Origin = "rg-scoped"
	OriginRgRelaxed  Origin = "rg-relaxed"
	OriginAstGrep    Origin = "ast-grep"
	OriginRga        Origin = "rga"
	OriginFd         Origin = "fd"
	OriginIndex      Origin = "index"
)

// originTrust ranks origins for dedup collisions: higher wins.
var originTrust = map[Origin]int{
	OriginAstGrep:   5,
	OriginRgScoped:  4,
	OriginRgRelaxed: 3,
	OriginRga:       2,
	OriginIndex:     1,
	OriginFd:        0,
}

// TrustRank returns the dedup trust rank for an origin; unknown origins
// rank lowest.
func (o Origin) TrustRank() int {
	if rank, ok := originTrust[o]; ok {
		return rank
	}
	return -1
}

// RawMatch is one match as reported by a single tool adapter, before
// normalization into a Hit.
type RawMatch struct {
	Path                 string
	Line                 int
	RawSnippet           string
	RawSnippetTruncated  bool
	Origin               Origin
	Language             string
}

// Hit is a normalized, scored match ready for inclusion in a CycleSummary.
type Hit struct {
	Path                 string
	Line                 int
	Snippet              string
	RawSnippet           string
	RawSnippetTruncated  bool
	SnippetLength        int
	Origin               Origin
	OriginLabel          string
	Language             string
	ExpandedSnippet       string
	ContextStart          int
	ContextEnd            int
	AutoExpandedContext   bool
	Body                  string
	BodyRetrieved         bool
	Score                 float64

	Precision  float64
	Density    float64
	Clustering float64
	Novelty    float64
}

// HighConfidence reports whether this hit is precise and clustered enough
// to raise the scheduler's cooperative-cancellation signal (§4.6).
func (h Hit) HighConfidence() bool {
	return h.Origin == OriginAstGrep && h.Precision >= 1.0 && h.Clustering >= 0.2
}

// Hint is a prior cycle's evidence that a symbol lives at a given path.
type Hint struct {
	Symbol    string
	Path      string
	LastSeen  time.Time
	HitCount  int
	ScoreEWMA float64
}

// DirWeight is a sibling-directory hint accumulated across cycles.
type DirWeight struct {
	Dir    string
	Weight float64
}

// CacheState is the in-memory form of the persisted Hint Cache document.
type CacheState struct {
	Version int                `json:"version"`
	Symbols map[string][]Hint  `json:"symbols"`
	Dirs    map[string]float64 `json:"dirs"`
}

// NewCacheState returns an empty, ready-to-use CacheState.
func NewCacheState() *CacheState {
	return &CacheState{
		Version: 1,
		Symbols: make(map[string][]Hint),
		Dirs:    make(map[string]float64),
	}
}

// LanguageMetrics summarizes per-language match counts for one cycle.
type LanguageMetrics struct {
	MatchCount int
	HitCount   int
}

// StartupStats records time spent readying each collaborator before the
// pipeline's first stage begins.
type StartupStats struct {
	InitMs  float64
	FdMs    float64
	RgMs    float64
	AstMs   float64
	RgaMs   float64
	CacheMs float64
	StateMs float64
	IndexMs float64
}

// StageStats records per-stage latency and the scoring inputs that produced
// the cycle's reward.
type StageStats struct {
	DiscoverMs      float64
	ProbeMs         float64
	DisambiguateMs  float64
	EscalateMs      float64
	VerifyMs        float64
	CycleLatencyMs  float64
	Precision       float64
	Density         float64
	ClusterScore    float64
	Novelty         float64
	Reward          float64
	LanguageMetrics map[string]LanguageMetrics

	FdCandidates int
	AstHits      int

	AstWarnings int
	ParseErrors int
	Truncated   int
}

// CycleSummary is the structured record emitted at the end of one Search
// Cycle: the stable, transport-agnostic output of the core.
type CycleSummary struct {
	Cycle        int
	Symbol       string
	Queries      []QueryVariant
	TopHits      []Hit
	Deduped      int
	NextActions  []string
	Hints        []string
	StageStats   StageStats
	Reward       float64
	StartupStats StartupStats
	FastPath     bool
	Error        string
}
