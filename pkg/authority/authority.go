// Package authority implements Munin's fixed authority hierarchy.
//
// Every artifact kind maps to an ordinal rank used to resolve conflicting
// information: when two artifacts disagree, the one with the lower rank
// number wins. The ranking is a pure function of the artifact's kind (plus
// status, for questions) and never changes at runtime.
//
// Decisions annotate precedence rather than delete conflicting evidence:
// an OVERRIDES edge marks a chunk as superseded while the chunk itself stays
// in the graph, preserving an audit trail. SupersedingDecision lets
// consumers flag superseded content at read time.
package authority

import (
	"github.com/muninhq/munin/pkg/artifact"
	"github.com/muninhq/munin/pkg/graph"
)

// Ranks, 1 = highest authority.
const (
	RankDecision         = 1
	RankAnsweredQuestion = 2
	RankAssessment       = 3
	RankRoadmapItem      = 4
	RankGap              = 5
	RankChunk            = 6
	RankPendingQuestion  = 7
)

// Category is an authority bucket in retrieval results.
type Category string

const (
	CategoryDecisions         Category = "decisions"
	CategoryAnsweredQuestions Category = "answered_questions"
	CategoryAssessments       Category = "assessments"
	CategoryRoadmapItems      Category = "roadmap_items"
	CategoryGaps              Category = "gaps"
	CategoryChunks            Category = "chunks"
	CategoryPendingQuestions  Category = "pending_questions"
)

// Categories returns all categories in authority order, decisions first.
func Categories() []Category {
	return []Category{
		CategoryDecisions,
		CategoryAnsweredQuestions,
		CategoryAssessments,
		CategoryRoadmapItems,
		CategoryGaps,
		CategoryChunks,
		CategoryPendingQuestions,
	}
}

// Rank returns the authority rank of a record. Lower is more authoritative.
// Questions split by status: answered questions rank 2, everything else
// (pending, obsolete, deferred) ranks 7.
func Rank(rec artifact.Record) int {
	switch r := rec.(type) {
	case *artifact.Decision:
		return RankDecision
	case *artifact.Question:
		if r.Answered() {
			return RankAnsweredQuestion
		}
		return RankPendingQuestion
	case *artifact.Assessment:
		return RankAssessment
	case *artifact.RoadmapItem:
		return RankRoadmapItem
	case *artifact.Gap:
		return RankGap
	case *artifact.Chunk:
		return RankChunk
	default:
		return RankPendingQuestion
	}
}

// CategoryOf returns the authority bucket a record is surfaced under.
func CategoryOf(rec artifact.Record) Category {
	switch r := rec.(type) {
	case *artifact.Decision:
		return CategoryDecisions
	case *artifact.Question:
		if r.Answered() {
			return CategoryAnsweredQuestions
		}
		return CategoryPendingQuestions
	case *artifact.Assessment:
		return CategoryAssessments
	case *artifact.RoadmapItem:
		return CategoryRoadmapItems
	case *artifact.Gap:
		return CategoryGaps
	default:
		return CategoryChunks
	}
}

// SupersedingDecision walks the predecessors of a chunk looking for an
// OVERRIDES edge and returns the originating decision, if any.
//
// When several decisions override the same chunk the strongest edge wins;
// ties break on the lower decision id so the result is deterministic.
//
// Returns (nil, false) when the chunk does not exist, is not a chunk, or
// has no overriding decision.
func SupersedingDecision(g *graph.Graph, chunkID string) (*artifact.Decision, bool) {
	node, err := g.GetNode(chunkID)
	if err != nil || node.Kind != artifact.KindChunk {
		return nil, false
	}

	var best *artifact.Decision
	var bestWeight float64
	for _, edge := range g.Incoming(chunkID) {
		if edge.Type != graph.EdgeOverrides {
			continue
		}
		src, err := g.GetNode(edge.From)
		if err != nil {
			continue
		}
		dec, ok := src.Record.(*artifact.Decision)
		if !ok {
			continue
		}
		if best == nil || edge.Weight > bestWeight ||
			(edge.Weight == bestWeight && dec.ID < best.ID) {
			best = dec
			bestWeight = edge.Weight
		}
	}

	if best == nil {
		return nil, false
	}
	return best, true
}
