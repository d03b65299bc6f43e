package centrality

import (
	"log/slog"
	"math"
)

// PageRank runs the power iteration on the undirected graph, treating each
// edge as a pair of opposing directed edges. A node's outgoing mass is
// split among its neighbors in proportion to edge weight. Iteration stops
// when the L1 delta drops under tolerance or after maxIter rounds; the
// returned flag reports whether it converged. Final scores are normalized
// to sum to one.
func PageRank(g *Graph, damping float64, maxIter int, tolerance float64) (scores map[int64]float64, iterations int, converged bool) {
	n := len(g.Nodes)
	if n == 0 {
		return map[int64]float64{}, 0, true
	}

	rank := make(map[int64]float64, n)
	outWeight := make(map[int64]float64, n)
	for _, v := range g.Nodes {
		rank[v] = 1.0 / float64(n)
		total := 0.0
		for _, w := range g.Adj[v] {
			total += w
		}
		outWeight[v] = total
	}

	logger := slog.Default().With("component", "centrality")
	base := (1 - damping) / float64(n)

	for i := 0; i < maxIter; i++ {
		iterations = i + 1
		next := make(map[int64]float64, n)
		delta := 0.0

		for _, v := range g.Nodes {
			sum := 0.0
			for u, w := range g.Adj[v] {
				if ow := outWeight[u]; ow > 0 {
					sum += rank[u] * w / ow
				}
			}
			r := base + damping*sum
			next[v] = r
			delta += math.Abs(r - rank[v])
		}
		rank = next

		if iterations%10 == 0 {
			logger.Debug("pagerank progress", "iteration", iterations, "delta", delta)
		}
		if delta < tolerance {
			converged = true
			break
		}
	}

	total := 0.0
	for _, r := range rank {
		total += r
	}
	if total > 0 {
		for v := range rank {
			rank[v] /= total
		}
	}
	return rank, iterations, converged
}
