package retrieval

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muninhq/munin/pkg/artifact"
	"github.com/muninhq/munin/pkg/authority"
	"github.com/muninhq/munin/pkg/graph"
)

// corpusGraph holds one artifact of every kind, all mentioning "ingest".
func corpusGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	require.True(t, g.AddNode(&artifact.Decision{ID: "dec-1", Statement: "Move ingest to streaming"}))
	require.True(t, g.AddNode(&artifact.Question{ID: "q-answered", Text: "How fast is ingest?", Status: artifact.QuestionAnswered}))
	require.True(t, g.AddNode(&artifact.Question{ID: "q-pending", Text: "Does ingest need backpressure?", Status: artifact.QuestionPending}))
	require.True(t, g.AddNode(&artifact.Assessment{ID: "assessment-architecture", Type: artifact.AssessmentArchitecture, Summary: "ingest lacks retries"}))
	require.True(t, g.AddNode(&artifact.RoadmapItem{ID: "roadmap-ingest", Name: "Streaming Ingest", Horizon: artifact.HorizonNow}))
	require.True(t, g.AddNode(&artifact.Gap{ID: "gap-1", Description: "ingest has no backpressure", Severity: "high"}))
	require.True(t, g.AddNode(&artifact.Chunk{ID: "chunk-1", Content: "the ingest pipeline batches writes", SourcePath: "docs/a.md"}))
	require.True(t, g.AddNode(&artifact.Chunk{ID: "chunk-other", Content: "billing exports run nightly", SourcePath: "docs/b.md"}))
	return g
}

func TestKeywordMatcher(t *testing.T) {
	m := KeywordMatcher{}
	rec := &artifact.Decision{ID: "dec-1", Statement: "Move Ingest to Streaming"}

	score, ok := m.Match(Query{Text: "ingest"}, rec)
	assert.True(t, ok, "matching is case-insensitive")
	assert.Zero(t, score, "keyword matches carry no score")

	_, ok = m.Match(Query{Text: "billing"}, rec)
	assert.False(t, ok)

	_, ok = m.Match(Query{Text: "   "}, rec)
	assert.False(t, ok, "an empty query matches nothing")
}

func TestEmbeddingMatcher(t *testing.T) {
	m := EmbeddingMatcher{MinScore: 0.5}
	query := Query{Text: "ignored", Embedding: []float32{1, 0}}

	score, ok := m.Match(query, &artifact.Chunk{ID: "c", Embedding: []float32{1, 0}})
	assert.True(t, ok)
	assert.InDelta(t, 1.0, score, 0.001)

	_, ok = m.Match(query, &artifact.Chunk{ID: "c", Embedding: []float32{0, 1}})
	assert.False(t, ok, "orthogonal vector is below the floor")

	_, ok = m.Match(query, &artifact.Question{ID: "q", Text: "no embedding"})
	assert.False(t, ok, "records without embeddings never match")

	_, ok = m.Match(Query{Text: "no embedding"}, &artifact.Chunk{ID: "c", Embedding: []float32{1, 0}})
	assert.False(t, ok, "queries without embeddings never match")
}

func TestNewMatcher(t *testing.T) {
	m, err := NewMatcher("keyword", 0)
	require.NoError(t, err)
	assert.IsType(t, KeywordMatcher{}, m)

	m, err = NewMatcher("embedding", 0.4)
	require.NoError(t, err)
	require.IsType(t, EmbeddingMatcher{}, m)
	assert.Equal(t, 0.4, m.(EmbeddingMatcher).MinScore)

	_, err = NewMatcher("semantic", 0)
	assert.Error(t, err)
}

func TestRetrieveWithAuthority(t *testing.T) {
	g := corpusGraph(t)
	engine := NewEngine(nil)

	result := engine.RetrieveWithAuthority(g, Query{Text: "ingest"}, 5)

	// Every category except chunks has exactly one match; the chunk about
	// billing is excluded.
	for _, category := range authority.Categories() {
		require.Len(t, result[category], 1, "category %s", category)
	}
	assert.Equal(t, "dec-1", result[authority.CategoryDecisions][0].ID)
	assert.Equal(t, "q-answered", result[authority.CategoryAnsweredQuestions][0].ID)
	assert.Equal(t, "q-pending", result[authority.CategoryPendingQuestions][0].ID)
	assert.Equal(t, "chunk-1", result[authority.CategoryChunks][0].ID)
	assert.Equal(t, 7, result.Total())
}

func TestRetrieveWithAuthorityTopK(t *testing.T) {
	g := graph.New()
	for i := 0; i < 10; i++ {
		require.True(t, g.AddNode(&artifact.Chunk{
			ID:      fmt.Sprintf("chunk-%02d", i),
			Content: "ingest pipeline notes",
		}))
	}

	engine := NewEngine(KeywordMatcher{})
	result := engine.RetrieveWithAuthority(g, Query{Text: "ingest"}, 3)

	matches := result[authority.CategoryChunks]
	require.Len(t, matches, 3)

	// Keyword scores are all zero, so the cap keeps the lowest ids.
	assert.Equal(t, "chunk-00", matches[0].ID)
	assert.Equal(t, "chunk-01", matches[1].ID)
	assert.Equal(t, "chunk-02", matches[2].ID)
}

func TestRetrieveWithAuthorityDefaultTopK(t *testing.T) {
	g := graph.New()
	for i := 0; i < 10; i++ {
		require.True(t, g.AddNode(&artifact.Chunk{
			ID:      fmt.Sprintf("chunk-%02d", i),
			Content: "ingest pipeline notes",
		}))
	}

	result := NewEngine(nil).RetrieveWithAuthority(g, Query{Text: "ingest"}, 0)
	assert.Len(t, result[authority.CategoryChunks], 5)
}

func TestRetrieveWithAuthorityEmbeddingRanking(t *testing.T) {
	g := graph.New()
	require.True(t, g.AddNode(&artifact.Chunk{ID: "chunk-far", Content: "a", Embedding: []float32{0.6, 0.8}}))
	require.True(t, g.AddNode(&artifact.Chunk{ID: "chunk-near", Content: "b", Embedding: []float32{1, 0}}))
	require.True(t, g.AddNode(&artifact.Chunk{ID: "chunk-out", Content: "c", Embedding: []float32{0, 1}}))

	engine := NewEngine(EmbeddingMatcher{MinScore: 0.5})
	result := engine.RetrieveWithAuthority(g, Query{Embedding: []float32{1, 0}}, 5)

	matches := result[authority.CategoryChunks]
	require.Len(t, matches, 2)
	assert.Equal(t, "chunk-near", matches[0].ID, "higher similarity surfaces first")
	assert.Equal(t, "chunk-far", matches[1].ID)
	assert.Greater(t, matches[0].Similarity, matches[1].Similarity)
}

func TestRetrieveWithAuthorityNoMatches(t *testing.T) {
	g := corpusGraph(t)
	result := NewEngine(nil).RetrieveWithAuthority(g, Query{Text: "kubernetes"}, 5)
	assert.Zero(t, result.Total())
}
