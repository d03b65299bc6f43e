// Package graph builds the document similarity graph: one undirected edge
// per pair of documents whose weighted Jaccard distance falls under the
// configured threshold.
package graph

// WeightedJaccard returns the weighted Jaccard distance between two sparse
// term-count vectors. Only shared terms contribute: the sum of count
// differences over the sum of count maxima. Vectors with no shared terms
// are maximally distant.
func WeightedJaccard(a, b map[int64]int) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}

	var num, den float64
	shared := false
	for termID, ca := range a {
		cb, ok := b[termID]
		if !ok {
			continue
		}
		shared = true
		if ca > cb {
			num += float64(ca - cb)
			den += float64(ca)
		} else {
			num += float64(cb - ca)
			den += float64(cb)
		}
	}
	if !shared || den == 0 {
		return 1.0
	}
	return num / den
}
