package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/bibliograph/bibliograph/internal/store"
)

// ---------------------------------------------------------------------------
// SearchStore
// ---------------------------------------------------------------------------

func (s *Store) MatchTitles(ctx context.Context, sub string) ([]store.TitleRow, error) {
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT id, title FROM documents WHERE LOWER(title) LIKE $1 ORDER BY id`,
		"%"+sub+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("matching titles: %w", err)
	}
	return scanTitleRows(rows)
}

func (s *Store) ListTitles(ctx context.Context) ([]store.TitleRow, error) {
	rows, err := s.client.DB.QueryContext(ctx, `SELECT id, title FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing titles: %w", err)
	}
	return scanTitleRows(rows)
}

func scanTitleRows(rows *sql.Rows) ([]store.TitleRow, error) {
	defer rows.Close()
	var out []store.TitleRow
	for rows.Next() {
		var r store.TitleRow
		if err := rows.Scan(&r.DocID, &r.Title); err != nil {
			return nil, fmt.Errorf("scanning title row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) TopTermCounts(ctx context.Context, term string) ([]store.DocCount, error) {
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT doc_id, cnt FROM top_terms WHERE term = $1 ORDER BY doc_id`,
		term,
	)
	if err != nil {
		return nil, fmt.Errorf("querying top terms: %w", err)
	}
	return scanDocCounts(rows)
}

func (s *Store) PostingCounts(ctx context.Context, term string) ([]store.DocCount, error) {
	rows, err := s.client.DB.QueryContext(ctx, `
		SELECT p.doc_id, p.cnt
		FROM postings p
		JOIN terms t ON t.id = p.term_id
		WHERE t.term = $1
		ORDER BY p.doc_id`,
		term,
	)
	if err != nil {
		return nil, fmt.Errorf("querying postings: %w", err)
	}
	return scanDocCounts(rows)
}

func scanDocCounts(rows *sql.Rows) ([]store.DocCount, error) {
	defer rows.Close()
	var out []store.DocCount
	for rows.Next() {
		var r store.DocCount
		if err := rows.Scan(&r.DocID, &r.Count); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) TopTermsByTermIDs(ctx context.Context, termIDs []int64) ([]store.TermDocCount, error) {
	if len(termIDs) == 0 {
		return nil, nil
	}
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT term_id, doc_id, cnt FROM top_terms WHERE term_id = ANY($1)`,
		pq.Array(termIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("joining top terms: %w", err)
	}
	return scanTermDocCounts(rows)
}

func (s *Store) PostingsByTermIDs(ctx context.Context, termIDs []int64) ([]store.TermDocCount, error) {
	if len(termIDs) == 0 {
		return nil, nil
	}
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT term_id, doc_id, cnt FROM postings WHERE term_id = ANY($1)`,
		pq.Array(termIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("joining postings: %w", err)
	}
	return scanTermDocCounts(rows)
}

func scanTermDocCounts(rows *sql.Rows) ([]store.TermDocCount, error) {
	defer rows.Close()
	var out []store.TermDocCount
	for rows.Next() {
		var r store.TermDocCount
		if err := rows.Scan(&r.TermID, &r.DocID, &r.Count); err != nil {
			return nil, fmt.Errorf("scanning term-doc row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetDocumentsMeta(ctx context.Context, ids []int64) (map[int64]store.DocumentMeta, error) {
	if len(ids) == 0 {
		return map[int64]store.DocumentMeta{}, nil
	}
	rows, err := s.client.DB.QueryContext(ctx, `
		SELECT d.id, d.external_id, d.title, d.author, d.language, d.token_count, d.cover_url, d.created_at,
		       c.pagerank, c.closeness, c.betweenness
		FROM documents d
		LEFT JOIN centrality_scores c ON c.doc_id = d.id
		WHERE d.id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("reading document metadata: %w", err)
	}
	defer rows.Close()

	metas := make(map[int64]store.DocumentMeta, len(ids))
	for rows.Next() {
		var (
			meta                    store.DocumentMeta
			author, language, cover sql.NullString
			pr, cl, bt              sql.NullFloat64
		)
		err := rows.Scan(
			&meta.ID, &meta.ExternalID, &meta.Title, &author, &language,
			&meta.TokenCount, &cover, &meta.CreatedAt, &pr, &cl, &bt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning metadata row: %w", err)
		}
		meta.Author = author.String
		meta.Language = language.String
		meta.CoverURL = cover.String
		if pr.Valid {
			meta.Centrality = &store.CentralityScore{
				DocID:       meta.ID,
				PageRank:    pr.Float64,
				Closeness:   cl.Float64,
				Betweenness: bt.Float64,
			}
		}
		metas[meta.ID] = meta
	}
	return metas, rows.Err()
}

func (s *Store) StreamTexts(ctx context.Context, fn func(docID int64, content string) error) error {
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT doc_id, content FROM document_texts ORDER BY doc_id`,
	)
	if err != nil {
		return fmt.Errorf("streaming texts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			docID   int64
			content string
		)
		if err := rows.Scan(&docID, &content); err != nil {
			return fmt.Errorf("scanning text row: %w", err)
		}
		if err := fn(docID, content); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) Neighbors(ctx context.Context, docID int64, limit int) ([]store.Neighbor, error) {
	query := `
		SELECT CASE WHEN doc_a = $1 THEN doc_b ELSE doc_a END AS other,
		       distance, similarity
		FROM similarity_edges
		WHERE doc_a = $1 OR doc_b = $1
		ORDER BY similarity DESC, other ASC`
	args := []any{docID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.client.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reading neighbors of %d: %w", docID, err)
	}
	defer rows.Close()

	var out []store.Neighbor
	for rows.Next() {
		var n store.Neighbor
		if err := rows.Scan(&n.DocID, &n.Distance, &n.Similarity); err != nil {
			return nil, fmt.Errorf("scanning neighbor row: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) TopByCentrality(ctx context.Context, metric string, limit int) ([]store.DocumentMeta, error) {
	var column string
	switch metric {
	case store.MetricPageRank:
		column = "pagerank"
	case store.MetricCloseness:
		column = "closeness"
	case store.MetricBetweenness:
		column = "betweenness"
	default:
		return nil, fmt.Errorf("unknown centrality metric %q", metric)
	}

	query := fmt.Sprintf(`
		SELECT d.id, d.external_id, d.title, d.author, d.language, d.token_count, d.cover_url, d.created_at,
		       c.pagerank, c.closeness, c.betweenness
		FROM centrality_scores c
		JOIN documents d ON d.id = c.doc_id
		ORDER BY c.%s DESC, d.id ASC
		LIMIT $1`, column)

	rows, err := s.client.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("reading top documents by %s: %w", metric, err)
	}
	defer rows.Close()

	var out []store.DocumentMeta
	for rows.Next() {
		var (
			meta                    store.DocumentMeta
			author, language, cover sql.NullString
			score                   store.CentralityScore
		)
		err := rows.Scan(
			&meta.ID, &meta.ExternalID, &meta.Title, &author, &language,
			&meta.TokenCount, &cover, &meta.CreatedAt,
			&score.PageRank, &score.Closeness, &score.Betweenness,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning leaderboard row: %w", err)
		}
		meta.Author = author.String
		meta.Language = language.String
		meta.CoverURL = cover.String
		score.DocID = meta.ID
		meta.Centrality = &score
		out = append(out, meta)
	}
	return out, rows.Err()
}
