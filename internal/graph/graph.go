// Package graph provides a sparse directed graph with reachability queries.
package graph

import (
	"sort"
)

// Edge kinds used by the dependency graph.
const (
	KindDirect     = "direct"     // variant -> used direct dependency
	KindTransitive = "transitive" // dependency -> dependency its classes require
)

// Edge represents a directed edge.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind"`
}

// Graph is a sparse directed graph. Nodes keep insertion order and each
// (from, to) pair holds at most one edge.
type Graph struct {
	nodes   []string
	nodeIdx map[string]int
	out     [][]int
	kinds   map[string]map[string]string // from -> to -> kind
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodeIdx: make(map[string]int),
		kinds:   make(map[string]map[string]string),
	}
}

// AddNode adds id unless present and returns its index.
func (g *Graph) AddNode(id string) int {
	if idx, ok := g.nodeIdx[id]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, id)
	g.nodeIdx[id] = idx
	g.out = append(g.out, nil)
	return idx
}

// AddEdge adds an edge from src to dst, creating both nodes as needed.
// Re-adding an edge only replaces its kind.
func (g *Graph) AddEdge(src, dst, kind string) {
	from := g.AddNode(src)
	to := g.AddNode(dst)

	targets := g.kinds[src]
	if targets == nil {
		targets = make(map[string]string)
		g.kinds[src] = targets
	}
	if _, exists := targets[dst]; !exists {
		g.out[from] = append(g.out[from], to)
	}
	targets[dst] = kind
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int {
	total := 0
	for _, targets := range g.out {
		total += len(targets)
	}
	return total
}

// AllNodes returns all node IDs in insertion order.
func (g *Graph) AllNodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Neighbors returns the successors of id in insertion order.
func (g *Graph) Neighbors(id string) []string {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return nil
	}
	out := make([]string, len(g.out[idx]))
	for i, target := range g.out[idx] {
		out[i] = g.nodes[target]
	}
	return out
}

// EdgeKind returns the kind of the edge from -> to, or "" when absent.
func (g *Graph) EdgeKind(from, to string) string {
	return g.kinds[from][to]
}

// Edges returns every edge sorted by (from, to).
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.NumEdges())
	for _, from := range g.nodes {
		for _, to := range g.Neighbors(from) {
			edges = append(edges, Edge{From: from, To: to, Kind: g.EdgeKind(from, to)})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// Stats summarizes the graph.
type Stats struct {
	TotalNodes      int     `json:"totalNodes"`
	TotalEdges      int     `json:"totalEdges"`
	DirectEdges     int     `json:"directEdges"`
	TransitiveEdges int     `json:"transitiveEdges"`
	AvgOutDegree    float64 `json:"avgOutDegree"`
}

// Stats returns statistics about the graph.
func (g *Graph) Stats() Stats {
	stats := Stats{
		TotalNodes: g.NumNodes(),
		TotalEdges: g.NumEdges(),
	}

	for _, targets := range g.kinds {
		for _, kind := range targets {
			switch kind {
			case KindDirect:
				stats.DirectEdges++
			case KindTransitive:
				stats.TransitiveEdges++
			}
		}
	}

	if stats.TotalNodes > 0 {
		stats.AvgOutDegree = float64(stats.TotalEdges) / float64(stats.TotalNodes)
	}

	return stats
}
