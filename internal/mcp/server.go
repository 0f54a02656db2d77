package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AnefuIII/aihero/internal/config"
	"github.com/AnefuIII/aihero/internal/embed"
	"github.com/AnefuIII/aihero/internal/search"
	"github.com/AnefuIII/aihero/pkg/version"
)

// snippetLength bounds the chunk text returned per result.
const snippetLength = 500

// Server bridges MCP clients with the hybrid search engine.
type Server struct {
	mcp      *mcp.Server
	engine   *search.Engine
	embedder embed.Embedder
	config   *config.Config
	logger   *slog.Logger
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query       string `json:"query" jsonschema:"the search query to execute"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	KeywordOnly bool   `json:"keyword_only,omitempty" jsonschema:"skip vector search and rank by keywords alone"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"ranked search results"`
}

// SearchResultOutput is one fused result with its scoring breakdown, so
// clients can see whether a hit was lexical, semantic, or both.
type SearchResultOutput struct {
	Path         string   `json:"path" jsonschema:"document path relative to the docs root"`
	Title        string   `json:"title,omitempty" jsonschema:"document title"`
	Snippet      string   `json:"snippet" jsonschema:"matched chunk text"`
	Start        int      `json:"start" jsonschema:"chunk offset into the document, in characters"`
	Score        float64  `json:"score" jsonschema:"fused relevance score"`
	KeywordScore float64  `json:"keyword_score,omitempty" jsonschema:"raw keyword score"`
	VectorScore  float64  `json:"vector_score,omitempty" jsonschema:"raw vector similarity"`
	Source       string   `json:"source" jsonschema:"which index matched: keyword, vector, or both"`
	MatchedTerms []string `json:"matched_terms,omitempty" jsonschema:"query terms found by the keyword index"`
}

// IndexStatusInput is the (empty) input schema for index_status.
type IndexStatusInput struct{}

// IndexStatusOutput reports index readiness and the active embedder, so
// clients can adjust expectations when the static fallback is serving.
type IndexStatusOutput struct {
	Ready      bool         `json:"ready" jsonschema:"true once an index build has completed"`
	ChunkCount int          `json:"chunk_count" jsonschema:"number of indexed chunks"`
	BuiltAt    string       `json:"built_at,omitempty" jsonschema:"RFC3339 timestamp of the last build"`
	Embedder   EmbedderInfo `json:"embedder" jsonschema:"active embedding provider"`
}

// EmbedderInfo describes the active embedding provider.
type EmbedderInfo struct {
	Model          string `json:"model" jsonschema:"embedding model name"`
	Dimensions     int    `json:"dimensions" jsonschema:"embedding dimension"`
	Available      bool   `json:"available" jsonschema:"whether the provider currently responds"`
	FallbackActive bool   `json:"fallback_active" jsonschema:"true when the hash-based static embedder is serving"`
}

// NewServer creates the MCP server and registers its tools.
func NewServer(engine *search.Engine, embedder embed.Embedder, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine:   engine,
		embedder: embedder,
		config:   cfg,
		logger:   logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "aihero",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Search the indexed documentation with hybrid keyword and semantic retrieval. Returns ranked chunks with per-source scores and matched terms.",
	}, s.searchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Check whether the documentation index is built and which embedding model is active. Use before searching to verify readiness.",
	}, s.indexStatusHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", 2))
}

func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query must be a non-empty string")
	}

	start := time.Now()
	results, err := s.engine.Search(ctx, input.Query, search.SearchOptions{
		Limit:       input.Limit,
		KeywordOnly: input.KeywordOnly,
	})
	if err != nil {
		s.logger.Error("mcp_search_failed",
			slog.String("query", input.Query),
			slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err)
	}

	out := SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, toResultOutput(r))
	}

	s.logger.Info("mcp_search_complete",
		slog.String("query", input.Query),
		slog.Int("results", len(out.Results)),
		slog.Duration("elapsed", time.Since(start)))
	return nil, out, nil
}

func (s *Server) indexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	stats := s.engine.Stats()

	out := &IndexStatusOutput{
		Ready:      stats.Ready,
		ChunkCount: stats.ChunkCount,
	}
	if !stats.BuiltAt.IsZero() {
		out.BuiltAt = stats.BuiltAt.Format(time.RFC3339)
	}

	if s.embedder != nil {
		out.Embedder = EmbedderInfo{
			Model:          s.embedder.ModelName(),
			Dimensions:     s.embedder.Dimensions(),
			Available:      s.embedder.Available(ctx),
			FallbackActive: s.embedder.ModelName() == "static",
		}
	}
	return nil, out, nil
}

func toResultOutput(r *search.SearchResult) SearchResultOutput {
	snippet := r.Chunk.Text
	if runes := []rune(snippet); len(runes) > snippetLength {
		snippet = string(runes[:snippetLength]) + "..."
	}
	return SearchResultOutput{
		Path:         r.Chunk.Path,
		Title:        r.Chunk.Title,
		Snippet:      snippet,
		Start:        r.Chunk.Start,
		Score:        r.Score,
		KeywordScore: r.KeywordScore,
		VectorScore:  r.VectorScore,
		Source:       string(r.Source),
		MatchedTerms: r.MatchedTerms,
	}
}

// Serve runs the server over the given transport until the context is
// cancelled. Only stdio is supported.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport %q (supported: stdio)", transport)
	}
}
