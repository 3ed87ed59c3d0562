// Package inference materializes semantic edges from embedding similarity.
//
// For every chunk that carries an embedding, the inferencer computes cosine
// similarity against the embeddings of every roadmap item and every decision,
// and creates typed edges when fixed thresholds are crossed:
//
//	roadmap item / chunk, s >= 0.75          -> SUPPORTED_BY
//	roadmap item / chunk, 0.65 <= s < 0.75   -> MENTIONED_IN
//	decision / chunk,     s >= 0.70          -> OVERRIDES
//
// Thresholds are checked in order, so at most one roadmap-item/chunk edge is
// created per pair per pass: the first qualifying type wins.
//
// The full edge set is recomputed on every sync pass rather than
// incrementally. Complexity is O(R*C + D*C) for R roadmap items, D decisions,
// and C chunks, which is acceptable at moderate corpus sizes; revisit if the
// corpus grows by orders of magnitude.
package inference

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/muninhq/munin/pkg/artifact"
	"github.com/muninhq/munin/pkg/graph"
	"github.com/muninhq/munin/pkg/vector"
)

// Config holds the similarity thresholds for edge materialization.
//
// Higher thresholds produce fewer but more confident edges. The defaults
// are the calibrated production values; tests may tighten or relax them.
type Config struct {
	// SupportThreshold is the minimum similarity for a SUPPORTED_BY edge
	// between a roadmap item and a chunk.
	SupportThreshold float64

	// MentionThreshold is the minimum similarity for a MENTIONED_IN edge.
	// Pairs at or above SupportThreshold get SUPPORTED_BY instead.
	MentionThreshold float64

	// OverrideThreshold is the minimum similarity for an OVERRIDES edge
	// between a decision and a chunk.
	OverrideThreshold float64
}

// DefaultConfig returns the calibrated production thresholds.
func DefaultConfig() *Config {
	return &Config{
		SupportThreshold:  0.75,
		MentionThreshold:  0.65,
		OverrideThreshold: 0.70,
	}
}

// Validate checks threshold sanity.
func (c *Config) Validate() error {
	for name, v := range map[string]float64{
		"support":  c.SupportThreshold,
		"mention":  c.MentionThreshold,
		"override": c.OverrideThreshold,
	} {
		if v < -1 || v > 1 {
			return fmt.Errorf("%s threshold %.2f outside [-1, 1]", name, v)
		}
	}
	if c.MentionThreshold > c.SupportThreshold {
		return fmt.Errorf("mention threshold %.2f above support threshold %.2f",
			c.MentionThreshold, c.SupportThreshold)
	}
	return nil
}

// Result summarizes one inference pass.
type Result struct {
	SupportedBy   int // roadmap item -> chunk edges created
	MentionedIn   int // roadmap item -> chunk edges created
	Overrides     int // decision -> chunk edges created
	SkippedChunks int // chunks without embeddings
}

// Total returns the number of edges created in the pass.
func (r *Result) Total() int {
	return r.SupportedBy + r.MentionedIn + r.Overrides
}

// Inferencer recomputes semantic edges over a graph.
type Inferencer struct {
	config *Config
	logger *slog.Logger
}

// New creates an Inferencer. A nil config uses DefaultConfig(); a nil logger
// uses slog.Default().
func New(config *Config, logger *slog.Logger) *Inferencer {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Inferencer{config: config, logger: logger}
}

type embedded struct {
	id  string
	vec []float32
}

// Run clears previously inferred edges and recomputes the full semantic
// edge set for the graph.
//
// Roadmap item and decision embeddings are cached once per pass to avoid
// repeated index lookups inside the chunk loop. Nodes without embeddings
// are skipped, never aborting the batch.
func (inf *Inferencer) Run(g *graph.Graph) (*Result, error) {
	g.ClearEdges(graph.InferredEdgeTypes()...)

	items := collectEmbedded(g, artifact.KindRoadmapItem)
	decisions := collectEmbedded(g, artifact.KindDecision)

	result := &Result{}
	for chunkID, rec := range g.NodesByKind(artifact.KindChunk) {
		chunkVec := rec.Vector()
		if len(chunkVec) == 0 {
			result.SkippedChunks++
			continue
		}

		for _, item := range items {
			s := vector.CosineSimilarity(item.vec, chunkVec)
			var edgeType graph.EdgeType
			switch {
			case s >= inf.config.SupportThreshold:
				edgeType = graph.EdgeSupportedBy
			case s >= inf.config.MentionThreshold:
				edgeType = graph.EdgeMentionedIn
			default:
				continue
			}
			if err := g.AddEdge(item.id, chunkID, edgeType, s, edgeMeta(s)); err != nil {
				return result, fmt.Errorf("inferring %s edge %s -> %s: %w", edgeType, item.id, chunkID, err)
			}
			if edgeType == graph.EdgeSupportedBy {
				result.SupportedBy++
			} else {
				result.MentionedIn++
			}
		}

		for _, dec := range decisions {
			s := vector.CosineSimilarity(dec.vec, chunkVec)
			if s < inf.config.OverrideThreshold {
				continue
			}
			if err := g.AddEdge(dec.id, chunkID, graph.EdgeOverrides, s, edgeMeta(s)); err != nil {
				return result, fmt.Errorf("inferring OVERRIDES edge %s -> %s: %w", dec.id, chunkID, err)
			}
			result.Overrides++
		}
	}

	inf.logger.Info("semantic edge inference complete",
		"supported_by", result.SupportedBy,
		"mentioned_in", result.MentionedIn,
		"overrides", result.Overrides,
		"chunks_skipped", result.SkippedChunks)

	return result, nil
}

// collectEmbedded snapshots (id, embedding) pairs for one kind, dropping
// records without embeddings. Sorted by id for deterministic edge order.
func collectEmbedded(g *graph.Graph, kind artifact.Kind) []embedded {
	index := g.NodesByKind(kind)
	out := make([]embedded, 0, len(index))
	for id, rec := range index {
		if vec := rec.Vector(); len(vec) > 0 {
			out = append(out, embedded{id: id, vec: vec})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func edgeMeta(similarity float64) map[string]any {
	return map[string]any{"method": "embedding_similarity", "similarity": similarity}
}
