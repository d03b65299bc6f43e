package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/bibliograph/bibliograph/internal/store"
)

// ---------------------------------------------------------------------------
// GraphStore
// ---------------------------------------------------------------------------

func (s *Store) TruncateEdges(ctx context.Context) error {
	if _, err := s.client.DB.ExecContext(ctx, `TRUNCATE similarity_edges`); err != nil {
		return fmt.Errorf("truncating edges: %w", err)
	}
	return nil
}

func (s *Store) InsertEdges(ctx context.Context, edges []store.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("similarity_edges", "doc_a", "doc_b", "distance", "similarity"))
		if err != nil {
			return fmt.Errorf("preparing edge copy: %w", err)
		}
		for _, e := range edges {
			if _, err := stmt.ExecContext(ctx, e.DocA, e.DocB, e.Distance, e.Similarity); err != nil {
				stmt.Close()
				return fmt.Errorf("copying edge row: %w", err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("flushing edge copy: %w", err)
		}
		return stmt.Close()
	})
}

func (s *Store) EdgeStats(ctx context.Context) (store.EdgeStats, error) {
	var stats store.EdgeStats
	err := s.client.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(MIN(distance), 0), COALESCE(AVG(distance), 0), COALESCE(MAX(distance), 0),
		       COALESCE(MIN(similarity), 0), COALESCE(AVG(similarity), 0), COALESCE(MAX(similarity), 0)
		FROM similarity_edges`,
	).Scan(
		&stats.Edges,
		&stats.MinDistance, &stats.AvgDistance, &stats.MaxDistance,
		&stats.MinSimilarity, &stats.AvgSimilarity, &stats.MaxSimilarity,
	)
	if err != nil {
		return store.EdgeStats{}, fmt.Errorf("reading edge stats: %w", err)
	}
	return stats, nil
}

// ---------------------------------------------------------------------------
// CentralityStore
// ---------------------------------------------------------------------------

func (s *Store) AllDocumentIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.client.DB.QueryContext(ctx, `SELECT id FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("reading document ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) AllEdges(ctx context.Context) ([]store.Edge, error) {
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT doc_a, doc_b, distance, similarity FROM similarity_edges`,
	)
	if err != nil {
		return nil, fmt.Errorf("reading edges: %w", err)
	}
	defer rows.Close()

	var edges []store.Edge
	for rows.Next() {
		var e store.Edge
		if err := rows.Scan(&e.DocA, &e.DocB, &e.Distance, &e.Similarity); err != nil {
			return nil, fmt.Errorf("scanning edge row: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *Store) ReplaceCentrality(ctx context.Context, scores []store.CentralityScore) error {
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `TRUNCATE centrality_scores`); err != nil {
			return fmt.Errorf("truncating centrality scores: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("centrality_scores", "doc_id", "pagerank", "closeness", "betweenness"))
		if err != nil {
			return fmt.Errorf("preparing centrality copy: %w", err)
		}
		for _, sc := range scores {
			if _, err := stmt.ExecContext(ctx, sc.DocID, sc.PageRank, sc.Closeness, sc.Betweenness); err != nil {
				stmt.Close()
				return fmt.Errorf("copying centrality row: %w", err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("flushing centrality copy: %w", err)
		}
		return stmt.Close()
	})
}
