package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"

	aerrors "github.com/AnefuIII/aihero/internal/errors"
)

const (
	// TextTokenizerName is the name of the registered documentation tokenizer.
	TextTokenizerName = "aihero_text_tokenizer"

	// TextStopFilterName is the name of the registered stop word filter.
	TextStopFilterName = "aihero_text_stop"

	// TextAnalyzerName is the name of the registered analyzer.
	TextAnalyzerName = "aihero_text"
)

func init() {
	_ = registry.RegisterTokenizer(TextTokenizerName, textTokenizerConstructor)
	_ = registry.RegisterTokenFilter(TextStopFilterName, textStopFilterConstructor)
}

// BleveKeywordIndex wraps Bleve v2 for keyword search over chunk text and titles.
type BleveKeywordIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// bleveChunk is the document shape indexed into Bleve. Content and title are
// indexed but not stored; seq is stored but not indexed so hits can be
// tie-broken by ingestion order without a metadata lookup.
type bleveChunk struct {
	Content string `json:"content"`
	Title   string `json:"title"`
	Seq     int    `json:"seq"`
}

// NewKeywordIndex creates or opens a keyword index at path.
// An empty path creates an in-memory index (tests).
func NewKeywordIndex(path string) (*BleveKeywordIndex, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, aerrors.New(aerrors.ErrCodeInternal, "create index mapping", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, aerrors.New(aerrors.ErrCodeFileNotFound,
				fmt.Sprintf("create index directory %s", filepath.Dir(path)), mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil {
			// An existing but unreadable index is corrupt, not absent.
			return nil, aerrors.New(aerrors.ErrCodeCorruptIndex,
				fmt.Sprintf("open keyword index at %s", path), err)
		}
	}
	if err != nil {
		return nil, aerrors.New(aerrors.ErrCodeCorruptIndex, "create/open keyword index", err)
	}

	return &BleveKeywordIndex{index: idx, path: path}, nil
}

// createIndexMapping builds the Bleve mapping: content and title analyzed
// with the documentation analyzer, seq stored verbatim.
func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(TextAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": TextTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			TextStopFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("add custom analyzer: %w", err)
	}
	indexMapping.DefaultAnalyzer = TextAnalyzerName

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = TextAnalyzerName
	textField.Store = false
	textField.IncludeInAll = false

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = TextAnalyzerName
	titleField.Store = false
	titleField.IncludeInAll = false

	seqField := bleve.NewNumericFieldMapping()
	seqField.Index = false
	seqField.Store = true
	seqField.IncludeInAll = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("content", textField)
	docMapping.AddFieldMappingsAt("title", titleField)
	docMapping.AddFieldMappingsAt("seq", seqField)
	indexMapping.DefaultMapping = docMapping

	return indexMapping, nil
}

// Index adds chunks to the index.
func (b *BleveKeywordIndex) Index(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("keyword index is closed")
	}

	batch := b.index.NewBatch()
	for _, c := range chunks {
		doc := bleveChunk{Content: c.Text, Title: c.Title, Seq: c.Seq}
		if err := batch.Index(c.ID, doc); err != nil {
			return fmt.Errorf("index chunk %s: %w", c.ID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("execute index batch: %w", err)
	}
	return nil
}

// Search returns chunks matching the query. Chunks containing none of the
// query terms are never returned. Equal scores are broken by ingestion order.
func (b *BleveKeywordIndex) Search(ctx context.Context, queryStr string, limit int) ([]*KeywordResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("keyword index is closed")
	}
	if strings.TrimSpace(queryStr) == "" {
		return []*KeywordResult{}, nil
	}

	contentQuery := bleve.NewMatchQuery(queryStr)
	contentQuery.SetField("content")
	titleQuery := bleve.NewMatchQuery(queryStr)
	titleQuery.SetField("title")
	query := bleve.NewDisjunctionQuery(contentQuery, titleQuery)

	req := bleve.NewSearchRequest(query)
	req.Size = limit
	req.Fields = []string{"seq"}
	req.IncludeLocations = true

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, aerrors.New(aerrors.ErrCodeSearchFailed, "keyword search", err)
	}

	results := make([]*KeywordResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		results = append(results, &KeywordResult{
			ID:           hit.ID,
			Seq:          seqFromHit(hit),
			Score:        hit.Score,
			MatchedTerms: extractMatchedTerms(hit),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Seq < results[j].Seq
	})

	return results, nil
}

// Count returns the number of indexed chunks.
func (b *BleveKeywordIndex) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0
	}
	n, _ := b.index.DocCount()
	return int(n)
}

// Close closes the index. Bleve persists on-disk indexes automatically.
func (b *BleveKeywordIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

// seqFromHit reads the stored ingestion ordinal from a hit.
func seqFromHit(hit *search.DocumentMatch) int {
	if v, ok := hit.Fields["seq"]; ok {
		if f, ok := v.(float64); ok {
			return int(f)
		}
	}
	return 0
}

// extractMatchedTerms collects the analyzed query terms found in a hit.
func extractMatchedTerms(hit *search.DocumentMatch) []string {
	terms := make(map[string]struct{})
	for _, locations := range hit.Locations {
		for term := range locations {
			terms[term] = struct{}{}
		}
	}

	result := make([]string, 0, len(terms))
	for term := range terms {
		result = append(result, term)
	}
	sort.Strings(result)
	return result
}

// Verify interface implementation
var _ KeywordIndex = (*BleveKeywordIndex)(nil)

func textTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveTextTokenizer{}, nil
}

// bleveTextTokenizer implements analysis.Tokenizer using TokenizeText.
type bleveTextTokenizer struct{}

func (t *bleveTextTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeText(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0

	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), token)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)

		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}

	return result
}

func textStopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &bleveTextStopFilter{
		stopWords: BuildStopWordMap(DefaultStopWords),
	}, nil
}

// bleveTextStopFilter drops common English words.
type bleveTextStopFilter struct {
	stopWords map[string]struct{}
}

func (f *bleveTextStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		term := strings.ToLower(string(token.Term))
		if _, isStop := f.stopWords[term]; !isStop {
			result = append(result, token)
		}
	}
	return result
}
