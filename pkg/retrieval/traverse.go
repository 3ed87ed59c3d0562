package retrieval

import (
	"strings"

	"github.com/muninhq/munin/pkg/artifact"
	"github.com/muninhq/munin/pkg/graph"
)

// Neighborhood groups nodes discovered by a traversal by artifact kind.
type Neighborhood map[artifact.Kind][]*graph.Node

// Size returns the number of nodes across all kinds.
func (n Neighborhood) Size() int {
	total := 0
	for _, nodes := range n {
		total += len(nodes)
	}
	return total
}

// Explore performs a breadth-first traversal from the seed node ids,
// following both outgoing and incoming edges up to maxHops, and groups the
// discovered nodes (seeds included) by kind.
//
// When topic terms are given, nodes whose serialized content matches none of
// them (case-insensitive containment) are filtered from the result; they
// are still traversed through, so a non-matching intermediate node does not
// cut off its neighborhood.
//
// The graph is not acyclic - override and resolve relationships can form
// cycles - so a visited set prevents revisits. Traversal terminates when the
// hop budget is exhausted or the frontier is empty. Unknown seed ids are
// ignored.
func Explore(g *graph.Graph, seeds []string, topics []string, maxHops int) Neighborhood {
	if maxHops < 0 {
		maxHops = 0
	}

	terms := make([]string, 0, len(topics))
	for _, t := range topics {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			terms = append(terms, t)
		}
	}

	visited := make(map[string]struct{})
	frontier := make([]string, 0, len(seeds))
	for _, id := range seeds {
		if !g.HasNode(id) {
			continue
		}
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}
		frontier = append(frontier, id)
	}

	result := make(Neighborhood)
	collect := func(id string) {
		node, err := g.GetNode(id)
		if err != nil {
			return
		}
		if matchesTopics(node, terms) {
			result[node.Kind] = append(result[node.Kind], node)
		}
	}

	for _, id := range frontier {
		collect(id)
	}

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, edge := range g.Outgoing(id) {
				if _, seen := visited[edge.To]; seen {
					continue
				}
				visited[edge.To] = struct{}{}
				collect(edge.To)
				next = append(next, edge.To)
			}
			for _, edge := range g.Incoming(id) {
				if _, seen := visited[edge.From]; seen {
					continue
				}
				visited[edge.From] = struct{}{}
				collect(edge.From)
				next = append(next, edge.From)
			}
		}
		frontier = next
	}

	return result
}

func matchesTopics(node *graph.Node, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	text := strings.ToLower(node.Record.SearchText())
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
