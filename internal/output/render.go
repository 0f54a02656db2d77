package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AnefuIII/aihero/internal/search"
)

// resultSnippetLength bounds the text shown per result.
const resultSnippetLength = 240

// Renderer writes formatted CLI output.
type Renderer struct {
	out    io.Writer
	styles Styles
	json   bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithJSON switches the renderer to machine-readable JSON output.
func WithJSON() Option {
	return func(r *Renderer) { r.json = true }
}

// WithColor forces colored output regardless of TTY detection.
func WithColor(enabled bool) Option {
	return func(r *Renderer) {
		if enabled {
			r.styles = colorStyles()
		} else {
			r.styles = plainStyles()
		}
	}
}

// NewRenderer creates a renderer for the given writer. Colors are
// enabled automatically when the writer is a terminal.
func NewRenderer(out io.Writer, opts ...Option) *Renderer {
	r := &Renderer{out: out, styles: plainStyles()}
	if isTerminal(out) {
		r.styles = colorStyles()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SearchResults renders a ranked result list.
func (r *Renderer) SearchResults(query string, results []*search.SearchResult, elapsed time.Duration) error {
	if r.json {
		return r.writeJSON(map[string]any{
			"query":      query,
			"results":    jsonResults(results),
			"elapsed_ms": elapsed.Milliseconds(),
		})
	}

	if len(results) == 0 {
		r.println(r.styles.Warning.Render(fmt.Sprintf("No results for %q.", query)))
		return nil
	}

	r.println(r.styles.Label.Render(fmt.Sprintf("%d results for %q (%s)", len(results), query, elapsed.Round(time.Millisecond))))
	r.println("")

	for i, res := range results {
		title := res.Chunk.Title
		if title == "" {
			title = res.Chunk.Path
		}
		r.println(fmt.Sprintf("%s %s %s",
			r.styles.Title.Render(fmt.Sprintf("%d. %s", i+1, title)),
			r.styles.Score.Render(fmt.Sprintf("(%.3f)", res.Score)),
			r.styles.Source.Render("["+string(res.Source)+"]")))
		r.println("   " + r.styles.Path.Render(fmt.Sprintf("%s @%d", res.Chunk.Path, res.Chunk.Start)))

		if len(res.MatchedTerms) > 0 {
			r.println("   " + r.styles.Label.Render("matched: "+strings.Join(res.MatchedTerms, ", ")))
		}
		r.println("   " + r.styles.Snippet.Render(snippet(res.Chunk.Text)))
		r.println("")
	}
	return nil
}

// BuildSummary renders the outcome of an index build.
func (r *Renderer) BuildSummary(documents, chunks int, model string, elapsed time.Duration) error {
	if r.json {
		return r.writeJSON(map[string]any{
			"documents":  documents,
			"chunks":     chunks,
			"model":      model,
			"elapsed_ms": elapsed.Milliseconds(),
		})
	}

	r.println(r.styles.Success.Render("Index built."))
	r.println(fmt.Sprintf("  %s %d", r.styles.Label.Render("documents:"), documents))
	r.println(fmt.Sprintf("  %s %d", r.styles.Label.Render("chunks:   "), chunks))
	r.println(fmt.Sprintf("  %s %s", r.styles.Label.Render("model:    "), model))
	r.println(fmt.Sprintf("  %s %s", r.styles.Label.Render("elapsed:  "), elapsed.Round(time.Millisecond)))
	return nil
}

// Status renders index readiness information.
func (r *Renderer) Status(stats *search.EngineStats) error {
	if r.json {
		return r.writeJSON(stats)
	}

	if !stats.Ready {
		r.println(r.styles.Warning.Render("Index not built. Run 'aihero index' first."))
		return nil
	}

	r.println(r.styles.Success.Render("Index ready."))
	r.println(fmt.Sprintf("  %s %d", r.styles.Label.Render("chunks:    "), stats.ChunkCount))
	r.println(fmt.Sprintf("  %s %s", r.styles.Label.Render("model:     "), stats.Model))
	r.println(fmt.Sprintf("  %s %d", r.styles.Label.Render("dimensions:"), stats.Dimensions))
	if !stats.BuiltAt.IsZero() {
		r.println(fmt.Sprintf("  %s %s", r.styles.Label.Render("built at:  "), stats.BuiltAt.Format(time.RFC3339)))
	}
	return nil
}

// Warning renders a warning line.
func (r *Renderer) Warning(msg string) {
	r.println(r.styles.Warning.Render(msg))
}

// Error renders an error line.
func (r *Renderer) Error(msg string) {
	r.println(r.styles.Error.Render("error: " + msg))
}

func (r *Renderer) println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

func (r *Renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// snippet collapses whitespace and truncates long chunk text.
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if runes := []rune(text); len(runes) > resultSnippetLength {
		return string(runes[:resultSnippetLength]) + "..."
	}
	return text
}

type jsonResult struct {
	Path         string   `json:"path"`
	Title        string   `json:"title,omitempty"`
	Start        int      `json:"start"`
	Score        float64  `json:"score"`
	KeywordScore float64  `json:"keyword_score,omitempty"`
	VectorScore  float64  `json:"vector_score,omitempty"`
	Source       string   `json:"source"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
	Text         string   `json:"text"`
}

func jsonResults(results []*search.SearchResult) []jsonResult {
	out := make([]jsonResult, 0, len(results))
	for _, r := range results {
		out = append(out, jsonResult{
			Path:         r.Chunk.Path,
			Title:        r.Chunk.Title,
			Start:        r.Chunk.Start,
			Score:        r.Score,
			KeywordScore: r.KeywordScore,
			VectorScore:  r.VectorScore,
			Source:       string(r.Source),
			MatchedTerms: r.MatchedTerms,
			Text:         r.Chunk.Text,
		})
	}
	return out
}
