package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/bibliograph/bibliograph/internal/centrality"
	"github.com/bibliograph/bibliograph/internal/store"
)

// ringGraph builds a ring of n nodes with chords every stride nodes, giving
// every node degree >= 2 and realistic shortest-path structure.
func ringGraph(n, stride int) *centrality.Graph {
	nodes := make([]int64, n)
	for i := range nodes {
		nodes[i] = int64(i + 1)
	}
	var edges []store.Edge
	addEdge := func(a, b int64) {
		if a > b {
			a, b = b, a
		}
		edges = append(edges, store.Edge{DocA: a, DocB: b, Distance: 0.4, Similarity: 0.6})
	}
	for i := 0; i < n; i++ {
		addEdge(nodes[i], nodes[(i+1)%n])
		if stride > 1 {
			addEdge(nodes[i], nodes[(i+stride)%n])
		}
	}
	return centrality.NewGraph(nodes, edges)
}

func BenchmarkPageRank(b *testing.B) {
	sizes := []int{100, 1000, 5000}
	for _, n := range sizes {
		g := ringGraph(n, 7)
		b.Run(fmt.Sprintf("nodes_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				_, _, _ = centrality.PageRank(g, 0.85, 100, 1e-6)
			}
		})
	}
}

func BenchmarkCloseness(b *testing.B) {
	sizes := []int{100, 500}
	for _, n := range sizes {
		g := ringGraph(n, 7)
		b.Run(fmt.Sprintf("nodes_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := centrality.Closeness(context.Background(), g, 4); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkBetweenness(b *testing.B) {
	sizes := []int{100, 300}
	for _, n := range sizes {
		g := ringGraph(n, 7)
		b.Run(fmt.Sprintf("nodes_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := centrality.Betweenness(context.Background(), g, 4); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkBetweennessWorkers holds the graph fixed and varies parallelism.
func BenchmarkBetweennessWorkers(b *testing.B) {
	g := ringGraph(300, 7)
	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("workers_%d", workers), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := centrality.Betweenness(context.Background(), g, workers); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
