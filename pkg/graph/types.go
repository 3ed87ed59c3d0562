// Package graph provides the unified knowledge graph at the heart of Munin.
//
// The graph is a directed graph of typed nodes (one per knowledge artifact)
// and typed, weighted edges. It is the sole owner of node and edge storage:
// every other component refers to artifacts by id only, never by reference,
// which makes cyclic relationships (decision -> chunk -> ... -> decision)
// safe to store and traverse.
//
// Alongside the node map the graph maintains a per-kind entity index so that
// "all decisions" or "all chunks" is a map lookup rather than a scan.
//
// Example Usage:
//
//	g := graph.New()
//
//	g.AddNode(&artifact.Decision{ID: "dec-1", Statement: "Use Go"})
//	g.AddNode(&artifact.Chunk{ID: "chunk-1", Content: "We evaluated Rust..."})
//
//	err := g.AddEdge("dec-1", "chunk-1", graph.EdgeOverrides, 0.82, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for id := range g.NodesByKind(artifact.KindDecision) {
//		fmt.Println(id)
//	}
package graph

import (
	"errors"

	"github.com/muninhq/munin/pkg/artifact"
)

// Common errors returned by graph operations.
var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidID   = errors.New("invalid id")
	ErrInvalidData = errors.New("invalid data")
	ErrInvalidEdge = errors.New("invalid edge")
	ErrMalformed   = errors.New("malformed graph data")
)

// EdgeType identifies the relationship an edge asserts.
type EdgeType string

const (
	// EdgeResolves connects a decision to the question it settles.
	EdgeResolves EdgeType = "RESOLVES"

	// EdgeImpacts connects a decision to a roadmap item it affects.
	EdgeImpacts EdgeType = "IMPACTS"

	// EdgeIdentifiesGap connects an assessment to a gap it surfaced.
	EdgeIdentifiesGap EdgeType = "IDENTIFIES_GAP"

	// EdgeAboutItem connects a question to the roadmap item it concerns.
	EdgeAboutItem EdgeType = "ABOUT_ITEM"

	// EdgeSupportedBy connects a roadmap item to a chunk whose content
	// strongly supports it (cosine similarity >= 0.75).
	EdgeSupportedBy EdgeType = "SUPPORTED_BY"

	// EdgeMentionedIn connects a roadmap item to a chunk that mentions it
	// (cosine similarity in [0.65, 0.75)).
	EdgeMentionedIn EdgeType = "MENTIONED_IN"

	// EdgeOverrides asserts that a decision supersedes a chunk's claim
	// without deleting the chunk. Only decision -> chunk edges may carry
	// this type; AddEdge enforces the invariant.
	EdgeOverrides EdgeType = "OVERRIDES"
)

// InferredEdgeTypes are the edge types materialized by the semantic edge
// inferencer. They are cleared and recomputed on every sync pass.
func InferredEdgeTypes() []EdgeType {
	return []EdgeType{EdgeSupportedBy, EdgeMentionedIn, EdgeOverrides}
}

// Node is one artifact in the graph.
type Node struct {
	ID     string
	Kind   artifact.Kind
	Record artifact.Record
}

// Edge is a directed, typed, weighted relationship between two nodes.
// At most one edge exists per ordered (From, To) pair; re-adding replaces
// the previous type, weight, and metadata.
type Edge struct {
	From     string
	To       string
	Type     EdgeType
	Weight   float64
	Metadata map[string]any
}

type edgeKey struct {
	from string
	to   string
}
