package authority

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muninhq/munin/pkg/artifact"
	"github.com/muninhq/munin/pkg/graph"
)

func TestRank(t *testing.T) {
	tests := []struct {
		name string
		rec  artifact.Record
		want int
	}{
		{"decision", &artifact.Decision{ID: "dec-1"}, RankDecision},
		{"answered question", &artifact.Question{ID: "q-1", Status: artifact.QuestionAnswered}, RankAnsweredQuestion},
		{"assessment", &artifact.Assessment{ID: "assessment-architecture"}, RankAssessment},
		{"roadmap item", &artifact.RoadmapItem{ID: "roadmap-a"}, RankRoadmapItem},
		{"gap", &artifact.Gap{ID: "gap-1"}, RankGap},
		{"chunk", &artifact.Chunk{ID: "chunk-1"}, RankChunk},
		{"pending question", &artifact.Question{ID: "q-2", Status: artifact.QuestionPending}, RankPendingQuestion},
		{"obsolete question", &artifact.Question{ID: "q-3", Status: artifact.QuestionObsolete}, RankPendingQuestion},
		{"deferred question", &artifact.Question{ID: "q-4", Status: artifact.QuestionDeferred}, RankPendingQuestion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rank(tt.rec))
		})
	}
}

func TestCategoriesMatchRankOrder(t *testing.T) {
	categories := Categories()
	require.Len(t, categories, 7)
	assert.Equal(t, CategoryDecisions, categories[0])
	assert.Equal(t, CategoryPendingQuestions, categories[6])

	// One representative record per category, in rank order.
	ranked := []artifact.Record{
		&artifact.Decision{ID: "d"},
		&artifact.Question{ID: "qa", Status: artifact.QuestionAnswered},
		&artifact.Assessment{ID: "a"},
		&artifact.RoadmapItem{ID: "r"},
		&artifact.Gap{ID: "g"},
		&artifact.Chunk{ID: "c"},
		&artifact.Question{ID: "qp", Status: artifact.QuestionPending},
	}
	for i, rec := range ranked {
		assert.Equal(t, i+1, Rank(rec))
		assert.Equal(t, categories[i], CategoryOf(rec))
	}
}

func TestSupersedingDecision(t *testing.T) {
	newGraph := func(t *testing.T) *graph.Graph {
		g := graph.New()
		require.True(t, g.AddNode(&artifact.Chunk{ID: "chunk-1", Content: "old claim"}))
		require.True(t, g.AddNode(&artifact.Decision{ID: "dec-a", Statement: "newer ruling"}))
		require.True(t, g.AddNode(&artifact.Decision{ID: "dec-b", Statement: "another ruling"}))
		return g
	}

	t.Run("returns the overriding decision", func(t *testing.T) {
		g := newGraph(t)
		require.NoError(t, g.AddEdge("dec-a", "chunk-1", graph.EdgeOverrides, 0.8, nil))

		dec, ok := SupersedingDecision(g, "chunk-1")
		require.True(t, ok)
		assert.Equal(t, "dec-a", dec.ID)
	})

	t.Run("strongest edge wins", func(t *testing.T) {
		g := newGraph(t)
		require.NoError(t, g.AddEdge("dec-a", "chunk-1", graph.EdgeOverrides, 0.71, nil))
		require.NoError(t, g.AddEdge("dec-b", "chunk-1", graph.EdgeOverrides, 0.93, nil))

		dec, ok := SupersedingDecision(g, "chunk-1")
		require.True(t, ok)
		assert.Equal(t, "dec-b", dec.ID)
	})

	t.Run("ties break on lower decision id", func(t *testing.T) {
		g := newGraph(t)
		require.NoError(t, g.AddEdge("dec-b", "chunk-1", graph.EdgeOverrides, 0.8, nil))
		require.NoError(t, g.AddEdge("dec-a", "chunk-1", graph.EdgeOverrides, 0.8, nil))

		dec, ok := SupersedingDecision(g, "chunk-1")
		require.True(t, ok)
		assert.Equal(t, "dec-a", dec.ID)
	})

	t.Run("no override", func(t *testing.T) {
		g := newGraph(t)
		_, ok := SupersedingDecision(g, "chunk-1")
		assert.False(t, ok)
	})

	t.Run("missing or non-chunk node", func(t *testing.T) {
		g := newGraph(t)
		_, ok := SupersedingDecision(g, "ghost")
		assert.False(t, ok)
		_, ok = SupersedingDecision(g, "dec-a")
		assert.False(t, ok)
	})
}
