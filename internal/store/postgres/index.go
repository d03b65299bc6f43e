package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/bibliograph/bibliograph/internal/store"
)

// postingChunk bounds the parameter count of one multi-row upsert; three
// placeholders per row keeps well clear of the protocol's 65535 limit.
const postingChunk = 2000

// ---------------------------------------------------------------------------
// IndexStore
// ---------------------------------------------------------------------------

func (s *Store) UpsertTerms(ctx context.Context, terms []string) (map[string]int64, error) {
	if len(terms) == 0 {
		return map[string]int64{}, nil
	}

	_, err := s.client.DB.ExecContext(ctx, `
		INSERT INTO terms (term)
		SELECT unnest($1::text[])
		ON CONFLICT (term) DO NOTHING`,
		pq.Array(terms),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting terms: %w", err)
	}

	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT id, term FROM terms WHERE term = ANY($1)`,
		pq.Array(terms),
	)
	if err != nil {
		return nil, fmt.Errorf("resolving term ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]int64, len(terms))
	for rows.Next() {
		var (
			id   int64
			term string
		)
		if err := rows.Scan(&id, &term); err != nil {
			return nil, fmt.Errorf("scanning term row: %w", err)
		}
		ids[term] = id
	}
	return ids, rows.Err()
}

func (s *Store) UpsertPostings(ctx context.Context, docID int64, counts map[int64]int) error {
	if len(counts) == 0 {
		return nil
	}

	type row struct {
		termID int64
		count  int
	}
	pending := make([]row, 0, len(counts))
	for termID, count := range counts {
		pending = append(pending, row{termID, count})
	}

	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(pending); start += postingChunk {
			end := start + postingChunk
			if end > len(pending) {
				end = len(pending)
			}
			chunk := pending[start:end]

			var sb strings.Builder
			args := make([]any, 0, len(chunk)*3)
			sb.WriteString(`INSERT INTO postings (term_id, doc_id, cnt) VALUES `)
			for i, r := range chunk {
				if i > 0 {
					sb.WriteByte(',')
				}
				fmt.Fprintf(&sb, "($%d,$%d,$%d)", i*3+1, i*3+2, i*3+3)
				args = append(args, r.termID, docID, r.count)
			}
			sb.WriteString(` ON CONFLICT (term_id, doc_id) DO UPDATE SET cnt = EXCLUDED.cnt`)

			if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
				return fmt.Errorf("upserting postings for document %d: %w", docID, err)
			}
		}
		return nil
	})
}

func (s *Store) ReplaceTopTerms(ctx context.Context, rows []store.TopTerm) error {
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `TRUNCATE top_terms`); err != nil {
			return fmt.Errorf("truncating top terms: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("top_terms", "doc_id", "term_id", "term", "cnt", "rnk"))
		if err != nil {
			return fmt.Errorf("preparing top-terms copy: %w", err)
		}
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.DocID, r.TermID, r.Term, r.Count, r.Rank); err != nil {
				stmt.Close()
				return fmt.Errorf("copying top-term row: %w", err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("flushing top-terms copy: %w", err)
		}
		return stmt.Close()
	})
}

func (s *Store) ForEachPosting(ctx context.Context, fn func(store.Posting) error) error {
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT term_id, doc_id, cnt FROM postings ORDER BY doc_id, term_id`,
	)
	if err != nil {
		return fmt.Errorf("reading postings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p store.Posting
		if err := rows.Scan(&p.TermID, &p.DocID, &p.Count); err != nil {
			return fmt.Errorf("scanning posting row: %w", err)
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) AllTerms(ctx context.Context) ([]store.Term, error) {
	rows, err := s.client.DB.QueryContext(ctx, `SELECT id, term FROM terms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}
	defer rows.Close()

	var terms []store.Term
	for rows.Next() {
		var t store.Term
		if err := rows.Scan(&t.ID, &t.Text); err != nil {
			return nil, fmt.Errorf("scanning term row: %w", err)
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}
