// Package retrieval serves authority-ordered context bundles from the
// knowledge graph.
//
// Matching is defined behind the Matcher interface with two implementations:
// KeywordMatcher, a deterministic case-insensitive containment test used in
// tests and offline runs, and EmbeddingMatcher, which scores records by
// cosine similarity against a query embedding. The active matcher is
// selected by configuration, not hardwired.
//
// Results are grouped by authority category and iterated decisions-first:
// for any two artifact kinds the higher-authority one always surfaces with
// higher precedence.
package retrieval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/muninhq/munin/pkg/artifact"
	"github.com/muninhq/munin/pkg/authority"
	"github.com/muninhq/munin/pkg/graph"
	"github.com/muninhq/munin/pkg/vector"
)

// Query carries the text form and, when the embedding matcher is active,
// the pre-computed query embedding.
type Query struct {
	Text      string
	Embedding []float32
}

// Match is one retrieved artifact.
//
// Similarity is 0 for the keyword matcher: the field exists for
// embedding-based ranking and is populated only by EmbeddingMatcher.
type Match struct {
	ID         string          `json:"id"`
	Data       artifact.Record `json:"data"`
	Similarity float64         `json:"similarity"`
}

// Result maps authority categories to their matches. Iterate with
// authority.Categories() for authority order; Go maps do not preserve it.
type Result map[authority.Category][]Match

// Total returns the number of matches across all categories.
func (r Result) Total() int {
	n := 0
	for _, matches := range r {
		n += len(matches)
	}
	return n
}

// Matcher decides whether a record matches a query and with what score.
type Matcher interface {
	// Match returns the record's score and whether it matches at all.
	Match(query Query, rec artifact.Record) (float64, bool)
}

// KeywordMatcher matches by case-insensitive containment of the query text
// in the record's serialized form. Scores are always 0.
type KeywordMatcher struct{}

// Match implements Matcher.
func (KeywordMatcher) Match(query Query, rec artifact.Record) (float64, bool) {
	q := strings.ToLower(strings.TrimSpace(query.Text))
	if q == "" {
		return 0, false
	}
	return 0, strings.Contains(strings.ToLower(rec.SearchText()), q)
}

// EmbeddingMatcher matches by cosine similarity between the query embedding
// and the record's embedding. Records without embeddings never match.
type EmbeddingMatcher struct {
	// MinScore is the minimum cosine similarity to count as a match.
	MinScore float64
}

// Match implements Matcher.
func (m EmbeddingMatcher) Match(query Query, rec artifact.Record) (float64, bool) {
	vec := rec.Vector()
	if len(vec) == 0 || len(query.Embedding) == 0 {
		return 0, false
	}
	s := vector.CosineSimilarity(query.Embedding, vec)
	return s, s >= m.MinScore
}

// NewMatcher returns the matcher for a configured mode: "keyword" or
// "embedding".
func NewMatcher(mode string, minScore float64) (Matcher, error) {
	switch mode {
	case "keyword":
		return KeywordMatcher{}, nil
	case "embedding":
		return EmbeddingMatcher{MinScore: minScore}, nil
	default:
		return nil, fmt.Errorf("unknown retrieval mode %q", mode)
	}
}

// Engine runs authority-aware queries against a graph.
type Engine struct {
	matcher Matcher
}

// NewEngine creates an Engine with the given matcher. A nil matcher
// defaults to KeywordMatcher.
func NewEngine(matcher Matcher) *Engine {
	if matcher == nil {
		matcher = KeywordMatcher{}
	}
	return &Engine{matcher: matcher}
}

// RetrieveWithAuthority returns matches grouped by authority category,
// each category capped at topK and sorted by descending similarity
// (stable on id, so keyword results are deterministic).
func (e *Engine) RetrieveWithAuthority(g *graph.Graph, query Query, topK int) Result {
	if topK <= 0 {
		topK = 5
	}

	result := make(Result)
	for _, node := range g.Nodes() {
		score, ok := e.matcher.Match(query, node.Record)
		if !ok {
			continue
		}
		category := authority.CategoryOf(node.Record)
		result[category] = append(result[category], Match{
			ID:         node.ID,
			Data:       node.Record,
			Similarity: score,
		})
	}

	for category, matches := range result {
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].Similarity != matches[j].Similarity {
				return matches[i].Similarity > matches[j].Similarity
			}
			return matches[i].ID < matches[j].ID
		})
		if len(matches) > topK {
			matches = matches[:topK]
		}
		result[category] = matches
	}

	return result
}
