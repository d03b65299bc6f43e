// Package centrality computes PageRank, closeness, and betweenness over the
// similarity graph. Nodes are all documents, including isolated ones; edge
// weights are similarities. The scores feed the search result rankings.
package centrality

import (
	"context"
	"fmt"
	"sort"

	"github.com/bibliograph/bibliograph/internal/store"
)

// Graph is the undirected similarity graph in adjacency form. Adj is
// symmetric; isolated documents appear in Nodes with no adjacency entry.
type Graph struct {
	Nodes []int64
	Adj   map[int64]map[int64]float64
	edges int
}

// Load reads the whole graph from the store: every edge plus every document
// id, so documents without edges still receive scores.
func Load(ctx context.Context, st store.CentralityStore) (*Graph, error) {
	edges, err := st.AllEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading edges: %w", err)
	}
	ids, err := st.AllDocumentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading document ids: %w", err)
	}

	g := &Graph{
		Adj:   make(map[int64]map[int64]float64),
		edges: len(edges),
	}
	seen := make(map[int64]bool, len(ids))
	for _, e := range edges {
		g.addEdge(e.DocA, e.DocB, e.Similarity)
		seen[e.DocA] = true
		seen[e.DocB] = true
	}
	for _, id := range ids {
		seen[id] = true
	}

	g.Nodes = make([]int64, 0, len(seen))
	for id := range seen {
		g.Nodes = append(g.Nodes, id)
	}
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i] < g.Nodes[j] })
	return g, nil
}

// NewGraph builds an in-memory graph directly, used by tests and tools that
// already hold the edge list.
func NewGraph(nodes []int64, edges []store.Edge) *Graph {
	g := &Graph{
		Adj:   make(map[int64]map[int64]float64),
		edges: len(edges),
	}
	seen := make(map[int64]bool, len(nodes))
	for _, e := range edges {
		g.addEdge(e.DocA, e.DocB, e.Similarity)
		seen[e.DocA] = true
		seen[e.DocB] = true
	}
	for _, id := range nodes {
		seen[id] = true
	}
	g.Nodes = make([]int64, 0, len(seen))
	for id := range seen {
		g.Nodes = append(g.Nodes, id)
	}
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i] < g.Nodes[j] })
	return g
}

func (g *Graph) addEdge(a, b int64, sim float64) {
	if g.Adj[a] == nil {
		g.Adj[a] = make(map[int64]float64)
	}
	if g.Adj[b] == nil {
		g.Adj[b] = make(map[int64]float64)
	}
	g.Adj[a][b] = sim
	g.Adj[b][a] = sim
}

// EdgeCount returns the number of undirected edges loaded.
func (g *Graph) EdgeCount() int { return g.edges }
