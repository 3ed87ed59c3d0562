// Package artifact defines the six knowledge artifact types stored in the
// Munin graph.
//
// Every artifact is a tagged record keyed by a stable external id. The kind
// tag replaces duck-typed payloads: consumers switch on Kind() or type-assert
// to the concrete record instead of probing property maps at runtime.
//
// Artifact kinds and where they come from:
//   - Chunk: produced by the chunking collaborator, carries an embedding
//   - Decision: recorded decisions from the decision store
//   - Question: open/answered questions from the question store
//   - Assessment: architecture or competitive analysis envelopes
//   - RoadmapItem: parsed from the roadmap text
//   - Gap: identified by assessments
//
// Example Usage:
//
//	dec := &artifact.Decision{
//		ID:        "dec-001",
//		Statement: "Adopt event sourcing for the audit trail",
//		Owner:     "platform",
//		Status:    "accepted",
//	}
//
//	fmt.Println(dec.Kind()) // "decision"
//	fmt.Println(dec.Key())  // "dec-001"
package artifact

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies one of the six artifact types.
type Kind string

const (
	KindChunk       Kind = "chunk"
	KindDecision    Kind = "decision"
	KindQuestion    Kind = "question"
	KindAssessment  Kind = "assessment"
	KindRoadmapItem Kind = "roadmap_item"
	KindGap         Kind = "gap"
)

// Kinds returns all artifact kinds in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindChunk,
		KindDecision,
		KindQuestion,
		KindAssessment,
		KindRoadmapItem,
		KindGap,
	}
}

// Valid reports whether k is one of the six known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindChunk, KindDecision, KindQuestion, KindAssessment, KindRoadmapItem, KindGap:
		return true
	}
	return false
}

// QuestionStatus is the lifecycle state of a Question.
type QuestionStatus string

const (
	QuestionPending  QuestionStatus = "pending"
	QuestionAnswered QuestionStatus = "answered"
	QuestionObsolete QuestionStatus = "obsolete"
	QuestionDeferred QuestionStatus = "deferred"
)

// Horizon is the planning horizon of a RoadmapItem.
type Horizon string

const (
	HorizonNow    Horizon = "now"
	HorizonNext   Horizon = "next"
	HorizonLater  Horizon = "later"
	HorizonFuture Horizon = "future"
)

// Horizons returns all horizons in planning order.
func Horizons() []Horizon {
	return []Horizon{HorizonNow, HorizonNext, HorizonLater, HorizonFuture}
}

// AssessmentType distinguishes the two assessment envelopes.
type AssessmentType string

const (
	AssessmentArchitecture AssessmentType = "architecture"
	AssessmentCompetitive  AssessmentType = "competitive"
)

// Record is implemented by all six artifact types.
//
// Records are plain data: the graph stores them by value of their Key() and
// never hands out references between artifacts. Relationships are always
// expressed as ids through graph edges.
type Record interface {
	// Key returns the stable external id.
	Key() string

	// Kind returns the artifact kind tag.
	Kind() Kind

	// SearchText returns the serialized form used for keyword matching and
	// topic filtering. It concatenates the human-readable fields; embeddings
	// and raw payload bytes are excluded.
	SearchText() string

	// Vector returns the record's embedding, or nil when it has none.
	// Questions, assessments, and gaps never carry embeddings.
	Vector() []float32
}

// Chunk is a source excerpt produced by the chunking collaborator.
type Chunk struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Lens       string    `json:"lens"`
	SourcePath string    `json:"source_path"`
	Index      int       `json:"index"`
	TokenCount int       `json:"token_count"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

func (c *Chunk) Key() string { return c.ID }
func (c *Chunk) Kind() Kind { return KindChunk }
func (c *Chunk) SearchText() string {
	return strings.Join([]string{c.Content, c.Lens, c.SourcePath}, " ")
}
func (c *Chunk) Vector() []float32 { return c.Embedding }

// Decision is a recorded decision from the decision store.
type Decision struct {
	ID               string    `json:"id"`
	Statement        string    `json:"statement"`
	Rationale        string    `json:"rationale"`
	Implications     []string  `json:"implications,omitempty"`
	Owner            string    `json:"owner"`
	Status           string    `json:"status"`
	ResolvesQuestion string    `json:"resolves_question,omitempty"`
	CreatedAt        string    `json:"created_at,omitempty"`
	UpdatedAt        string    `json:"updated_at,omitempty"`
	Embedding        []float32 `json:"embedding,omitempty"`
}

func (d *Decision) Key() string { return d.ID }
func (d *Decision) Kind() Kind { return KindDecision }
func (d *Decision) SearchText() string {
	parts := []string{d.Statement, d.Rationale, d.Owner, d.Status}
	parts = append(parts, d.Implications...)
	return strings.Join(parts, " ")
}
func (d *Decision) Vector() []float32 { return d.Embedding }

// EmbeddingText returns the text sent to the embedding service for a
// decision: the statement plus rationale.
func (d *Decision) EmbeddingText() string {
	if d.Rationale == "" {
		return d.Statement
	}
	return d.Statement + "\n" + d.Rationale
}

// Question is an open or resolved question from the question store.
type Question struct {
	ID           string         `json:"id"`
	Text         string         `json:"text"`
	Audience     string         `json:"audience"`
	Category     string         `json:"category"`
	Priority     string         `json:"priority"`
	Status       QuestionStatus `json:"status"`
	RelatedItems []string       `json:"related_items,omitempty"`
}

func (q *Question) Key() string { return q.ID }
func (q *Question) Kind() Kind { return KindQuestion }
func (q *Question) SearchText() string {
	parts := []string{q.Text, q.Audience, q.Category, q.Priority, string(q.Status)}
	parts = append(parts, q.RelatedItems...)
	return strings.Join(parts, " ")
}
func (q *Question) Vector() []float32 { return nil }

// Answered reports whether the question has been resolved. Obsolete and
// deferred questions rank with pending ones in the authority hierarchy.
func (q *Question) Answered() bool { return q.Status == QuestionAnswered }

// Assessment is a typed analysis envelope (architecture or competitive).
// Raw preserves the collaborator's payload verbatim for audit.
type Assessment struct {
	ID      string          `json:"id"`
	Type    AssessmentType  `json:"type"`
	Summary string          `json:"summary"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

func (a *Assessment) Key() string { return a.ID }
func (a *Assessment) Kind() Kind { return KindAssessment }
func (a *Assessment) SearchText() string {
	return strings.Join([]string{string(a.Type), a.Summary}, " ")
}
func (a *Assessment) Vector() []float32 { return nil }

// RoadmapItem is one planned item parsed from the roadmap text.
type RoadmapItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Horizon     Horizon   `json:"horizon"`
	DependsOn   []string  `json:"depends_on,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

func (r *RoadmapItem) Key() string { return r.ID }
func (r *RoadmapItem) Kind() Kind { return KindRoadmapItem }
func (r *RoadmapItem) SearchText() string {
	parts := []string{r.Name, r.Description, string(r.Horizon)}
	parts = append(parts, r.DependsOn...)
	return strings.Join(parts, " ")
}
func (r *RoadmapItem) Vector() []float32 { return r.Embedding }

// EmbeddingText returns the text sent to the embedding service for a
// roadmap item: the name plus description.
func (r *RoadmapItem) EmbeddingText() string {
	if r.Description == "" {
		return r.Name
	}
	return r.Name + "\n" + r.Description
}

// Gap is a shortfall identified by an assessment.
type Gap struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	Severity     string `json:"severity"`
	AssessmentID string `json:"assessment_id"`
}

func (g *Gap) Key() string { return g.ID }
func (g *Gap) Kind() Kind { return KindGap }
func (g *Gap) SearchText() string {
	return strings.Join([]string{g.Description, g.Severity}, " ")
}
func (g *Gap) Vector() []float32 { return nil }

// New returns a zero value of the record type for the given kind.
// Used by persistence to decode typed payloads.
func New(kind Kind) (Record, error) {
	switch kind {
	case KindChunk:
		return &Chunk{}, nil
	case KindDecision:
		return &Decision{}, nil
	case KindQuestion:
		return &Question{}, nil
	case KindAssessment:
		return &Assessment{}, nil
	case KindRoadmapItem:
		return &RoadmapItem{}, nil
	case KindGap:
		return &Gap{}, nil
	default:
		return nil, fmt.Errorf("unknown artifact kind %q", kind)
	}
}

// Decode unmarshals a typed record from its JSON form.
func Decode(kind Kind, data []byte) (Record, error) {
	rec, err := New(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decoding %s record: %w", kind, err)
	}
	if rec.Key() == "" {
		return nil, fmt.Errorf("decoding %s record: missing id", kind)
	}
	return rec, nil
}

// Summary returns a short one-line description of a record, used by the
// text brief and CLI output.
func Summary(rec Record) string {
	switch r := rec.(type) {
	case *Chunk:
		return truncate(r.Content, 120) + " (" + r.SourcePath + "#" + strconv.Itoa(r.Index) + ")"
	case *Decision:
		return r.Statement
	case *Question:
		return "[" + string(r.Status) + "] " + r.Text
	case *Assessment:
		return "[" + string(r.Type) + "] " + truncate(r.Summary, 160)
	case *RoadmapItem:
		return "[" + string(r.Horizon) + "] " + r.Name + ": " + truncate(r.Description, 120)
	case *Gap:
		return "[" + r.Severity + "] " + r.Description
	default:
		return rec.Key()
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
