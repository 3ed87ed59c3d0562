package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/muninhq/munin/pkg/artifact"
)

// Graph is the in-memory knowledge graph engine.
//
// Concurrency: Munin assumes a single active writer session, but the engine
// keeps an RWMutex so that read paths (retrieval, traversal) are safe even
// when a caller overlaps them with a sync by mistake. There is no guard
// against concurrent writers across processes.
//
// Records handed to AddNode are treated as immutable after insertion; the
// graph returns them without copying.
type Graph struct {
	mu sync.RWMutex

	nodes  map[string]*Node
	byKind map[artifact.Kind]map[string]artifact.Record

	edges    map[edgeKey]*Edge
	outgoing map[string]map[string]struct{}
	incoming map[string]map[string]struct{}
}

// New creates an empty graph.
func New() *Graph {
	g := &Graph{
		nodes:    make(map[string]*Node),
		byKind:   make(map[artifact.Kind]map[string]artifact.Record),
		edges:    make(map[edgeKey]*Edge),
		outgoing: make(map[string]map[string]struct{}),
		incoming: make(map[string]map[string]struct{}),
	}
	for _, kind := range artifact.Kinds() {
		g.byKind[kind] = make(map[string]artifact.Record)
	}
	return g
}

// AddNode inserts an artifact into the graph and the per-kind index.
//
// The upsert is idempotent: if a node with the same id already exists the
// call is a no-op and returns false, even when the record's fields differ.
// Sync never updates previously-seen nodes; a changed external record only
// propagates through a full rebuild. This keeps provenance append-only.
//
// Returns true when the node was newly created.
func (g *Graph) AddNode(rec artifact.Record) bool {
	if rec == nil || rec.Key() == "" || !rec.Kind().Valid() {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[rec.Key()]; exists {
		return false
	}

	g.nodes[rec.Key()] = &Node{ID: rec.Key(), Kind: rec.Kind(), Record: rec}
	g.byKind[rec.Kind()][rec.Key()] = rec
	return true
}

// GetNode returns the node with the given id.
func (g *Graph) GetNode(id string) (*Node, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	node, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %q: %w", id, ErrNotFound)
	}
	return node, nil
}

// HasNode reports whether a node with the given id exists.
func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// AddEdge creates or replaces the directed edge between two existing nodes.
//
// There are no multi-edges: the graph holds at most one edge per ordered
// (from, to) pair, and re-adding replaces the stored type, weight, and
// metadata.
//
// The OVERRIDES invariant is enforced here: such edges must originate from
// a decision node and terminate on a chunk node, otherwise ErrInvalidEdge
// is returned.
func (g *Graph) AddEdge(from, to string, edgeType EdgeType, weight float64, metadata map[string]any) error {
	if from == "" || to == "" {
		return ErrInvalidID
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	src, ok := g.nodes[from]
	if !ok {
		return fmt.Errorf("%w: source %q does not exist", ErrInvalidEdge, from)
	}
	dst, ok := g.nodes[to]
	if !ok {
		return fmt.Errorf("%w: target %q does not exist", ErrInvalidEdge, to)
	}

	if edgeType == EdgeOverrides {
		if src.Kind != artifact.KindDecision || dst.Kind != artifact.KindChunk {
			return fmt.Errorf("%w: OVERRIDES requires decision -> chunk, got %s -> %s",
				ErrInvalidEdge, src.Kind, dst.Kind)
		}
	}

	key := edgeKey{from: from, to: to}
	g.edges[key] = &Edge{From: from, To: to, Type: edgeType, Weight: weight, Metadata: metadata}

	if g.outgoing[from] == nil {
		g.outgoing[from] = make(map[string]struct{})
	}
	g.outgoing[from][to] = struct{}{}

	if g.incoming[to] == nil {
		g.incoming[to] = make(map[string]struct{})
	}
	g.incoming[to][from] = struct{}{}

	return nil
}

// EdgeBetween returns the edge from one node to another, if present.
func (g *Graph) EdgeBetween(from, to string) (*Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edge, ok := g.edges[edgeKey{from: from, to: to}]
	return edge, ok
}

// Outgoing returns all edges originating at the given node.
func (g *Graph) Outgoing(id string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	targets := g.outgoing[id]
	edges := make([]*Edge, 0, len(targets))
	for to := range targets {
		edges = append(edges, g.edges[edgeKey{from: id, to: to}])
	}
	sortEdges(edges)
	return edges
}

// Incoming returns all edges terminating at the given node.
func (g *Graph) Incoming(id string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	sources := g.incoming[id]
	edges := make([]*Edge, 0, len(sources))
	for from := range sources {
		edges = append(edges, g.edges[edgeKey{from: from, to: id}])
	}
	sortEdges(edges)
	return edges
}

// NodesByKind returns the entity index for one artifact kind: a map from
// id to record. The returned map is a copy; the records are shared.
func (g *Graph) NodesByKind(kind artifact.Kind) map[string]artifact.Record {
	g.mu.RLock()
	defer g.mu.RUnlock()

	index := g.byKind[kind]
	out := make(map[string]artifact.Record, len(index))
	for id, rec := range index {
		out[id] = rec
	}
	return out
}

// Nodes returns all nodes, sorted by id for deterministic iteration.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]*Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Edges returns all edges, sorted by (from, to) for deterministic iteration.
func (g *Graph) Edges() []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges := make([]*Edge, 0, len(g.edges))
	for _, edge := range g.edges {
		edges = append(edges, edge)
	}
	sortEdges(edges)
	return edges
}

// ClearEdges removes every edge whose type is in the given set. The semantic
// edge inferencer calls this at the start of each pass so that inferred
// edges are recomputed from scratch rather than accreted.
func (g *Graph) ClearEdges(types ...EdgeType) int {
	drop := make(map[EdgeType]struct{}, len(types))
	for _, t := range types {
		drop[t] = struct{}{}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for key, edge := range g.edges {
		if _, ok := drop[edge.Type]; !ok {
			continue
		}
		delete(g.edges, key)
		delete(g.outgoing[key.from], key.to)
		delete(g.incoming[key.to], key.from)
		removed++
	}
	return removed
}

// NodeCount returns the total number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the total number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

func sortEdges(edges []*Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
}
