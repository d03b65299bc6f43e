package centrality

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Closeness computes closeness centrality for every node: the inverse of
// the mean BFS hop distance to the nodes it can reach. Nodes that reach
// nothing score zero. Sources are fanned out across workers; each worker
// fills a private map and the maps are merged afterwards.
func Closeness(ctx context.Context, g *Graph, workers int) (map[int64]float64, error) {
	partials, err := forEachSource(ctx, g, workers, func(source int64, acc map[int64]float64) {
		acc[source] = closenessOf(g, source)
	})
	if err != nil {
		return nil, err
	}

	scores := make(map[int64]float64, len(g.Nodes))
	for _, part := range partials {
		for v, s := range part {
			scores[v] = s
		}
	}
	return scores, nil
}

func closenessOf(g *Graph, source int64) float64 {
	dist := map[int64]int{source: 0}
	queue := []int64{source}
	sum := 0

	for head := 0; head < len(queue); head++ {
		v := queue[head]
		for w := range g.Adj[v] {
			if _, seen := dist[w]; seen {
				continue
			}
			dist[w] = dist[v] + 1
			sum += dist[w]
			queue = append(queue, w)
		}
	}

	if len(dist) <= 1 {
		return 0
	}
	avg := float64(sum) / float64(len(dist)-1)
	if avg <= 0 {
		return 0
	}
	return 1 / avg
}

// forEachSource splits the node list into contiguous ranges and runs fn for
// every source node, one range per worker. Each worker gets its own
// accumulator map; the caller merges them.
func forEachSource(ctx context.Context, g *Graph, workers int, fn func(source int64, acc map[int64]float64)) ([]map[int64]float64, error) {
	n := len(g.Nodes)
	if n == 0 {
		return nil, nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	partials := make([]map[int64]float64, workers)
	chunk := (n + workers - 1) / workers

	group, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		if lo >= n {
			break
		}
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		acc := make(map[int64]float64)
		partials[w] = acc

		group.Go(func() error {
			for _, source := range g.Nodes[lo:hi] {
				if err := gctx.Err(); err != nil {
					return err
				}
				fn(source, acc)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return partials, nil
}
