// Package ingest implements the sync orchestrator: one idempotent procedure
// that pulls from the five external sources and merges them into the
// knowledge graph without duplication.
//
// Stages run in a fixed order, leaves first so edge targets exist before
// their sources:
//
//	roadmap items -> questions -> decisions -> assessments (architecture,
//	then competitive) -> chunks -> semantic edges -> persist
//
// For each source only artifacts whose id is not already indexed are added.
// Existing nodes are left untouched even when the external record changed:
// provenance is append-only, and a changed record only propagates through a
// full rebuild. Each stage is isolated - a failure (missing assessment file,
// embedding service down) is caught, logged, and recorded without stopping
// later stages - and the resulting graph, however partial, is always
// persisted at the end.
//
// Relational edges are created during integration: RESOLVES when a decision
// names the question it settles, IMPACTS when a decision implication names a
// roadmap item, ABOUT_ITEM when a question names related roadmap items, and
// IDENTIFIES_GAP from each assessment to its gaps. Semantic edges are left
// to the inferencer stage.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/muninhq/munin/pkg/artifact"
	"github.com/muninhq/munin/pkg/embed"
	"github.com/muninhq/munin/pkg/graph"
	"github.com/muninhq/munin/pkg/inference"
	"github.com/muninhq/munin/pkg/source"
)

// RoadmapSource yields parsed roadmap items.
type RoadmapSource interface {
	Items() ([]*artifact.RoadmapItem, error)
}

// QuestionSource yields question records.
type QuestionSource interface {
	Questions() ([]*artifact.Question, error)
}

// DecisionSource yields decision records.
type DecisionSource interface {
	Decisions() ([]*artifact.Decision, error)
}

// AssessmentSource yields one typed assessment envelope plus its gaps.
type AssessmentSource interface {
	Assessment(artifact.AssessmentType) (*artifact.Assessment, []*artifact.Gap, error)
}

// ChunkSource yields all chunk records from the vector store.
type ChunkSource interface {
	All() ([]*artifact.Chunk, error)
}

// Config wires an Orchestrator. Any source may be nil, in which case its
// stage is skipped; Embedder may be nil, in which case decisions and roadmap
// items are integrated without embeddings (and grow no semantic edges).
type Config struct {
	DataDir     string
	Roadmap     RoadmapSource
	Questions   QuestionSource
	Decisions   DecisionSource
	Assessments AssessmentSource
	Chunks      ChunkSource
	Embedder    embed.Embedder
	Inference   *inference.Config
	Logger      *slog.Logger
}

// StageError records a caught, non-fatal failure in one sync stage.
type StageError struct {
	Stage string
	Err   error
}

func (e StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

// Report summarizes one sync pass.
type Report struct {
	RoadmapAdded     int
	QuestionsAdded   int
	DecisionsAdded   int
	AssessmentsAdded int
	GapsAdded        int
	ChunksAdded      int
	RelationalEdges  int
	Inference        *inference.Result
	StageErrors      []StageError
	Persisted        bool
}

// NodesAdded returns the total number of nodes created in the pass.
func (r *Report) NodesAdded() int {
	return r.RoadmapAdded + r.QuestionsAdded + r.DecisionsAdded +
		r.AssessmentsAdded + r.GapsAdded + r.ChunksAdded
}

// Orchestrator runs idempotent sync passes against a graph.
type Orchestrator struct {
	config     Config
	inferencer *inference.Inferencer
	logger     *slog.Logger
}

// New creates an Orchestrator from config.
func New(config Config) *Orchestrator {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		config:     config,
		inferencer: inference.New(config.Inference, logger),
		logger:     logger,
	}
}

// Sync runs one full pass over all configured sources, merging new
// artifacts into g, recomputing semantic edges, and persisting the result
// to the data directory.
//
// Running Sync twice against unchanged sources yields identical node and
// edge counts. The returned error is non-nil only when the final persist
// fails; per-stage failures are recorded in the report and logged.
func (o *Orchestrator) Sync(ctx context.Context, g *graph.Graph) (*Report, error) {
	report := &Report{}

	o.runStage(report, "roadmap", func() error { return o.syncRoadmap(ctx, g, report) })
	o.runStage(report, "questions", func() error { return o.syncQuestions(g, report) })
	o.runStage(report, "decisions", func() error { return o.syncDecisions(ctx, g, report) })
	o.runStage(report, "assessment:architecture", func() error {
		return o.syncAssessment(g, artifact.AssessmentArchitecture, report)
	})
	o.runStage(report, "assessment:competitive", func() error {
		return o.syncAssessment(g, artifact.AssessmentCompetitive, report)
	})
	o.runStage(report, "chunks", func() error { return o.syncChunks(g, report) })
	o.runStage(report, "semantic_edges", func() error {
		result, err := o.inferencer.Run(g)
		report.Inference = result
		return err
	})

	// The graph is persisted even when stages failed: a partial graph on
	// disk beats losing the stages that succeeded.
	if err := graph.Save(g, o.config.DataDir); err != nil {
		return report, fmt.Errorf("persisting graph: %w", err)
	}
	report.Persisted = true

	o.logger.Info("sync pass complete",
		"nodes_added", report.NodesAdded(),
		"relational_edges", report.RelationalEdges,
		"stage_errors", len(report.StageErrors),
		"total_nodes", g.NodeCount(),
		"total_edges", g.EdgeCount())

	return report, nil
}

func (o *Orchestrator) runStage(report *Report, name string, fn func() error) {
	o.logger.Debug("sync stage starting", "stage", name)
	if err := fn(); err != nil {
		o.logger.Warn("sync stage failed", "stage", name, "error", err)
		report.StageErrors = append(report.StageErrors, StageError{Stage: name, Err: err})
	}
}

func (o *Orchestrator) syncRoadmap(ctx context.Context, g *graph.Graph, report *Report) error {
	if o.config.Roadmap == nil {
		return nil
	}
	items, err := o.config.Roadmap.Items()
	if err != nil {
		return err
	}

	fresh := make([]*artifact.RoadmapItem, 0, len(items))
	for _, item := range items {
		if !g.HasNode(item.ID) {
			fresh = append(fresh, item)
		}
	}

	embedErr := o.embedRoadmapItems(ctx, fresh)

	for _, item := range fresh {
		if g.AddNode(item) {
			report.RoadmapAdded++
		}
	}
	return embedErr
}

// embedRoadmapItems fills embeddings for items that lack one, in a single
// batched call. A failure leaves the items unembedded (they are still
// integrated, just without semantic edges) and is reported as the stage's
// error.
func (o *Orchestrator) embedRoadmapItems(ctx context.Context, items []*artifact.RoadmapItem) error {
	if o.config.Embedder == nil {
		return nil
	}
	var texts []string
	var pending []*artifact.RoadmapItem
	for _, item := range items {
		if len(item.Embedding) == 0 {
			texts = append(texts, item.EmbeddingText())
			pending = append(pending, item)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	vecs, err := o.config.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d roadmap items: %w", len(pending), err)
	}
	for i, item := range pending {
		item.Embedding = vecs[i]
	}
	return nil
}

func (o *Orchestrator) syncQuestions(g *graph.Graph, report *Report) error {
	if o.config.Questions == nil {
		return nil
	}
	questions, err := o.config.Questions.Questions()
	if err != nil {
		return err
	}

	lookup := roadmapLookup(g)
	for _, q := range questions {
		if g.AddNode(q) {
			report.QuestionsAdded++
		}
		for _, name := range q.RelatedItems {
			itemID, ok := lookup[normalizeName(name)]
			if !ok {
				itemID, ok = lookup[source.Slugify(name)]
			}
			if !ok {
				continue
			}
			if err := g.AddEdge(q.ID, itemID, graph.EdgeAboutItem, 1.0, nil); err == nil {
				report.RelationalEdges++
			}
		}
	}
	return nil
}

func (o *Orchestrator) syncDecisions(ctx context.Context, g *graph.Graph, report *Report) error {
	if o.config.Decisions == nil {
		return nil
	}
	decisions, err := o.config.Decisions.Decisions()
	if err != nil {
		return err
	}

	fresh := make([]*artifact.Decision, 0, len(decisions))
	for _, d := range decisions {
		if !g.HasNode(d.ID) {
			fresh = append(fresh, d)
		}
	}

	embedErr := o.embedDecisions(ctx, fresh)

	items := roadmapItemRefs(g)
	for _, d := range fresh {
		if g.AddNode(d) {
			report.DecisionsAdded++
		}
	}

	// Relational edges cover all decisions from the source, not just fresh
	// ones, so a question or roadmap item that arrived after the decision
	// still gets linked on the next pass. AddEdge overwrites, so this stays
	// idempotent.
	for _, d := range decisions {
		if d.ResolvesQuestion != "" && g.HasNode(d.ResolvesQuestion) {
			if err := g.AddEdge(d.ID, d.ResolvesQuestion, graph.EdgeResolves, 1.0, nil); err == nil {
				report.RelationalEdges++
			}
		}
		for _, implication := range d.Implications {
			lowered := strings.ToLower(implication)
			for _, item := range items {
				if !strings.Contains(lowered, item.name) {
					continue
				}
				if err := g.AddEdge(d.ID, item.id, graph.EdgeImpacts, 1.0, nil); err == nil {
					report.RelationalEdges++
				}
			}
		}
	}
	return embedErr
}

func (o *Orchestrator) embedDecisions(ctx context.Context, decisions []*artifact.Decision) error {
	if o.config.Embedder == nil {
		return nil
	}
	var texts []string
	var pending []*artifact.Decision
	for _, d := range decisions {
		if len(d.Embedding) == 0 {
			texts = append(texts, d.EmbeddingText())
			pending = append(pending, d)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	vecs, err := o.config.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d decisions: %w", len(pending), err)
	}
	for i, d := range pending {
		d.Embedding = vecs[i]
	}
	return nil
}

func (o *Orchestrator) syncAssessment(g *graph.Graph, atype artifact.AssessmentType, report *Report) error {
	if o.config.Assessments == nil {
		return nil
	}
	assessment, gaps, err := o.config.Assessments.Assessment(atype)
	if err != nil {
		return err
	}

	if g.AddNode(assessment) {
		report.AssessmentsAdded++
	}
	for _, gap := range gaps {
		if g.AddNode(gap) {
			report.GapsAdded++
		}
		if err := g.AddEdge(assessment.ID, gap.ID, graph.EdgeIdentifiesGap, 1.0, nil); err == nil {
			report.RelationalEdges++
		}
	}
	return nil
}

func (o *Orchestrator) syncChunks(g *graph.Graph, report *Report) error {
	if o.config.Chunks == nil {
		return nil
	}
	chunks, err := o.config.Chunks.All()
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if g.AddNode(chunk) {
			report.ChunksAdded++
		}
	}
	return nil
}

type itemRef struct {
	name string // normalized display name
	id   string
}

// roadmapItemRefs lists roadmap items with normalized names, one entry per
// item, for substring matching against decision implications.
func roadmapItemRefs(g *graph.Graph) []itemRef {
	var out []itemRef
	for id, rec := range g.NodesByKind(artifact.KindRoadmapItem) {
		if item, ok := rec.(*artifact.RoadmapItem); ok {
			out = append(out, itemRef{name: normalizeName(item.Name), id: id})
		}
	}
	return out
}

// roadmapLookup maps normalized item names and slugs to node ids for exact
// related-item resolution on questions.
func roadmapLookup(g *graph.Graph) map[string]string {
	out := make(map[string]string)
	for id, rec := range g.NodesByKind(artifact.KindRoadmapItem) {
		if item, ok := rec.(*artifact.RoadmapItem); ok {
			out[normalizeName(item.Name)] = id
			out[source.Slugify(item.Name)] = id
		}
	}
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
