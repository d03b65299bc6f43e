package centrality

import (
	"context"
)

// Betweenness computes betweenness centrality with Brandes' algorithm: one
// BFS and dependency back-propagation per source, accumulated over all
// sources. Each worker accumulates into a private map; partial sums are
// added together at the end. Scores are normalized by 2/((N-1)(N-2)) for
// graphs with more than two nodes, counting every document as a node.
func Betweenness(ctx context.Context, g *Graph, workers int) (map[int64]float64, error) {
	partials, err := forEachSource(ctx, g, workers, func(source int64, acc map[int64]float64) {
		brandesPass(g, source, acc)
	})
	if err != nil {
		return nil, err
	}

	scores := make(map[int64]float64, len(g.Nodes))
	for _, v := range g.Nodes {
		scores[v] = 0
	}
	for _, part := range partials {
		for v, s := range part {
			scores[v] += s
		}
	}

	if n := len(g.Nodes); n > 2 {
		norm := 2.0 / (float64(n-1) * float64(n-2))
		for v := range scores {
			scores[v] *= norm
		}
	}
	return scores, nil
}

// brandesPass runs one source's contribution: BFS counting shortest paths
// (sigma) and recording predecessors, then a reverse-order sweep that
// back-propagates path dependencies (delta) onto intermediate nodes.
func brandesPass(g *Graph, source int64, acc map[int64]float64) {
	sigma := map[int64]float64{source: 1}
	dist := map[int64]int{source: 0}
	pred := make(map[int64][]int64)

	queue := []int64{source}
	stack := make([]int64, 0, len(queue))

	for head := 0; head < len(queue); head++ {
		v := queue[head]
		stack = append(stack, v)

		for w := range g.Adj[v] {
			dw, seen := dist[w]
			if !seen {
				dw = dist[v] + 1
				dist[w] = dw
				queue = append(queue, w)
			}
			if dw == dist[v]+1 {
				sigma[w] += sigma[v]
				pred[w] = append(pred[w], v)
			}
		}
	}

	delta := make(map[int64]float64, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		w := stack[i]
		for _, v := range pred[w] {
			delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
		}
		if w != source {
			acc[w] += delta[w]
		}
	}
}
