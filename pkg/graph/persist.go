// Persistence for the knowledge graph.
//
// The on-disk layout is directory-scoped:
//
//	<dir>/graph.json          - node-link serialization of the whole graph
//	<dir>/{kind}_nodes.json   - per-kind entity index (map id -> record)
//
// graph.json is the source of truth on load; the per-kind files are a
// denormalized view rewritten on every save for collaborators that only
// care about one artifact kind.
//
// A missing graph.json is a normal startup state and yields a fresh empty
// graph; malformed data fails loudly rather than silently substituting an
// empty graph.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/muninhq/munin/pkg/artifact"
)

// GraphFile is the name of the node-link serialization inside the data dir.
const GraphFile = "graph.json"

// IndexFile returns the per-kind index file name, e.g. "decision_nodes.json".
func IndexFile(kind artifact.Kind) string {
	return string(kind) + "_nodes.json"
}

type exportNode struct {
	ID       string          `json:"id"`
	NodeType artifact.Kind   `json:"node_type"`
	Record   json.RawMessage `json:"record"`
}

type exportEdge struct {
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	EdgeType EdgeType       `json:"edge_type"`
	Weight   float64        `json:"weight"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type graphExport struct {
	Directed bool         `json:"directed"`
	Nodes    []exportNode `json:"nodes"`
	Edges    []exportEdge `json:"edges"`
}

// Save writes the whole graph and all per-kind indices to dir, creating the
// directory if needed. Each file is written to a temp file and renamed into
// place so a crash mid-save never leaves a truncated file behind.
func Save(g *Graph, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	export := graphExport{Directed: true}
	for _, node := range g.Nodes() {
		raw, err := json.Marshal(node.Record)
		if err != nil {
			return fmt.Errorf("encoding node %q: %w", node.ID, err)
		}
		export.Nodes = append(export.Nodes, exportNode{
			ID:       node.ID,
			NodeType: node.Kind,
			Record:   raw,
		})
	}
	for _, edge := range g.Edges() {
		export.Edges = append(export.Edges, exportEdge{
			Source:   edge.From,
			Target:   edge.To,
			EdgeType: edge.Type,
			Weight:   edge.Weight,
			Metadata: edge.Metadata,
		})
	}

	if err := writeJSON(filepath.Join(dir, GraphFile), export); err != nil {
		return err
	}

	for _, kind := range artifact.Kinds() {
		index := g.NodesByKind(kind)
		if err := writeJSON(filepath.Join(dir, IndexFile(kind)), index); err != nil {
			return err
		}
	}

	return nil
}

// Load reads a graph previously written by Save.
//
// A missing graph file returns a fresh empty graph and no error. Any other
// failure (unreadable file, invalid JSON, unknown node type, dangling edge)
// wraps ErrMalformed: stale or corrupt state is worse than a visible
// failure.
func Load(dir string) (*Graph, error) {
	data, err := os.ReadFile(filepath.Join(dir, GraphFile))
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", GraphFile, err)
	}

	var export graphExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrMalformed, GraphFile, err)
	}

	g := New()
	for _, en := range export.Nodes {
		rec, err := artifact.Decode(en.NodeType, en.Record)
		if err != nil {
			return nil, fmt.Errorf("%w: node %q: %v", ErrMalformed, en.ID, err)
		}
		if rec.Key() != en.ID {
			return nil, fmt.Errorf("%w: node %q record carries id %q", ErrMalformed, en.ID, rec.Key())
		}
		g.AddNode(rec)
	}
	for _, ee := range export.Edges {
		if err := g.AddEdge(ee.Source, ee.Target, ee.EdgeType, ee.Weight, ee.Metadata); err != nil {
			return nil, fmt.Errorf("%w: edge %s -> %s: %v", ErrMalformed, ee.Source, ee.Target, err)
		}
	}

	return g, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
