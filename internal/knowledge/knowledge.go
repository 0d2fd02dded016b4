// Package knowledge retrieves domain context for the assembler. The
// retriever scores documents against the query by keyword and entity
// overlap; a zero-relevance result is a valid outcome, not an error.
package knowledge

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"schoolwijzer/internal/cache"
)

// Snippet is a relevance-scored text bundle returned for a query.
type Snippet struct {
	Text      string   // Retrieved context, empty when nothing matched
	Relevance float64  // 0 to 10; 0 means no usable context
	Entities  []string // Entity keywords that matched the query
}

// Retriever answers a raw user query with domain context.
type Retriever interface {
	Query(ctx context.Context, text string) (Snippet, error)
}

// Document is one entry in the domain corpus.
type Document struct {
	ID       string
	Content  string
	Entities []string // Lowercase keywords identifying the document's subject
}

// KeywordRetriever scores the corpus by term overlap with the query.
// Results are memoized through the shared TTL cache.
type KeywordRetriever struct {
	docs   []Document
	cache  *cache.Cache[Snippet]
	logger *slog.Logger
}

// NewKeywordRetriever creates a retriever over docs. A nil cache disables
// memoization; docs defaults to the built-in corpus when empty.
func NewKeywordRetriever(docs []Document, c *cache.Cache[Snippet], logger *slog.Logger) *KeywordRetriever {
	if len(docs) == 0 {
		docs = defaultCorpus()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &KeywordRetriever{
		docs:   docs,
		cache:  c,
		logger: logger,
	}
}

// Query scores every document against text and returns the best match.
// A query that matches nothing yields a zero-relevance Snippet and nil error.
func (r *KeywordRetriever) Query(ctx context.Context, text string) (Snippet, error) {
	if err := ctx.Err(); err != nil {
		return Snippet{}, err
	}

	key := cache.Key("knowledge.Query", strings.ToLower(strings.TrimSpace(text)))
	if r.cache != nil {
		if snip, ok := r.cache.Get(key); ok {
			return snip, nil
		}
	}

	start := time.Now()
	terms := tokenize(text)

	var best Snippet
	for _, doc := range r.docs {
		score, matched := scoreDocument(doc, terms)
		if score > best.Relevance {
			best = Snippet{
				Text:      doc.Content,
				Relevance: score,
				Entities:  matched,
			}
		}
	}

	r.logger.Debug("knowledge query scored",
		"terms", len(terms),
		"relevance", best.Relevance,
		"elapsed", time.Since(start),
	)

	if r.cache != nil {
		r.cache.SetDefault(key, best)
	}
	return best, nil
}

// scoreDocument computes an overlap score on a 0-10 scale. Each matched
// entity contributes heavily; plain content-term overlap fills in the rest.
func scoreDocument(doc Document, terms map[string]bool) (float64, []string) {
	if len(terms) == 0 {
		return 0, nil
	}

	var matched []string
	for _, ent := range doc.Entities {
		if termMatch(terms, ent) {
			matched = append(matched, ent)
		}
	}

	content := strings.ToLower(doc.Content)
	overlap := 0
	for term := range terms {
		if strings.Contains(content, term) {
			overlap++
		}
	}

	// Entities dominate: three entity hits saturate the entity share.
	entityScore := float64(len(matched)) / 3.0
	if entityScore > 1 {
		entityScore = 1
	}
	contentScore := float64(overlap) / float64(len(terms))

	score := (entityScore*0.7 + contentScore*0.3) * 10
	if score > 10 {
		score = 10
	}
	return score, matched
}

// termMatch reports whether the entity keyword appears among the query
// terms. Multi-word entities match when every word is present.
func termMatch(terms map[string]bool, entity string) bool {
	for _, w := range strings.Fields(entity) {
		if !terms[w] {
			return false
		}
	}
	return true
}

// tokenize lowercases and splits text into terms, dropping stopwords and
// single-rune fragments.
func tokenize(text string) map[string]bool {
	terms := make(map[string]bool)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		if len([]rune(w)) < 2 || stopwords[w] {
			continue
		}
		terms[w] = true
	}
	return terms
}

// Dutch function words that carry no retrieval signal.
var stopwords = map[string]bool{
	"de": true, "het": true, "een": true, "en": true, "van": true,
	"in": true, "op": true, "te": true, "is": true, "ik": true,
	"je": true, "me": true, "mijn": true, "voor": true, "naar": true,
	"wat": true, "hoe": true, "wie": true, "waar": true, "dat": true,
	"dit": true, "met": true, "bij": true, "aan": true, "als": true,
	"the": true, "to": true, "of": true, "and": true, "for": true,
}
