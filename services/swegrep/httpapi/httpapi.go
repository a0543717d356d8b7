// Package httpapi implements the POST /search transport (§6): a single
// gin endpoint that decodes a SearchRequest body, runs one cycle through
// search.Engine, and returns its CycleSummary as JSON.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	otelgin "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mosif16/swe-grep/services/swegrep/search"
	"github.com/mosif16/swe-grep/services/swegrep/types"
)

// Server wraps a gin engine around a search.Engine.
type Server struct {
	engine *search.Engine
	router *gin.Engine
}

// NewServer builds a Server whose routes delegate every cycle to engine.
func NewServer(engine *search.Engine) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("swegrep"))

	s := &Server{engine: engine, router: r}
	r.POST("/search", s.handleSearch)
	r.GET("/healthz", s.handleHealth)
	return s
}

// Router returns the underlying gin.Engine so callers (cmd/swegrep's serve
// subcommand) can wrap it in an http.Server with their own timeouts.
func (s *Server) Router() http.Handler { return s.router }

type searchRequestBody struct {
	Symbol   string `json:"symbol" binding:"required"`
	Root     string `json:"root" binding:"required"`
	Language string `json:"language,omitempty"`
	// Tools is a pointer so an omitted "tools" key is distinguishable from
	// an explicit all-false one: the latter really does disable fd/ast-grep,
	// the former falls back to the spec-mandated default below.
	Tools         *types.ToolFlags `json:"tools,omitempty"`
	MaxMatches    int              `json:"max_matches,omitempty"`
	ContextBefore int              `json:"context_before,omitempty"`
	ContextAfter  int              `json:"context_after,omitempty"`
	TimeoutSecs   int              `json:"timeout_secs,omitempty"`
	Concurrency   int              `json:"concurrency,omitempty"`
	RetrieveBody  bool             `json:"retrieve_body,omitempty"`
	CacheDir      string           `json:"cache_dir,omitempty"`
	IndexDir      string           `json:"index_dir,omitempty"`
}

func (s *Server) handleSearch(c *gin.Context) {
	var body searchRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tools := types.DefaultSearchRequest(body.Symbol, body.Root).Tools
	if body.Tools != nil {
		tools = *body.Tools
	}

	req := types.SearchRequest{
		Symbol:        body.Symbol,
		Root:          body.Root,
		Language:      types.LanguageHint(body.Language),
		Tools:         tools,
		MaxMatches:    body.MaxMatches,
		ContextBefore: body.ContextBefore,
		ContextAfter:  body.ContextAfter,
		TimeoutSecs:   body.TimeoutSecs,
		Concurrency:   body.Concurrency,
		RetrieveBody:  body.RetrieveBody,
		CacheDir:      body.CacheDir,
		IndexDir:      body.IndexDir,
	}

	summary, err := s.engine.Run(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
