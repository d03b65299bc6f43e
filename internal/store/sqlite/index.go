package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bibliograph/bibliograph/internal/store"
)

// ---------------------------------------------------------------------------
// IndexStore
// ---------------------------------------------------------------------------

func (s *Store) UpsertTerms(ctx context.Context, terms []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(terms))
	if len(terms) == 0 {
		return ids, nil
	}

	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		insert, err := tx.PrepareContext(ctx,
			`INSERT INTO terms (term) VALUES (?) ON CONFLICT (term) DO NOTHING`,
		)
		if err != nil {
			return fmt.Errorf("preparing term insert: %w", err)
		}
		defer insert.Close()

		for _, t := range terms {
			if _, err := insert.ExecContext(ctx, t); err != nil {
				return fmt.Errorf("inserting term %q: %w", t, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for start := 0; start < len(terms); start += idChunk {
		end := start + idChunk
		if end > len(terms) {
			end = len(terms)
		}
		chunk := terms[start:end]

		args := make([]any, len(chunk))
		for i, t := range chunk {
			args[i] = t
		}
		rows, err := s.client.DB.QueryContext(ctx,
			`SELECT id, term FROM terms WHERE term IN (`+placeholders(len(chunk))+`)`,
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("resolving term ids: %w", err)
		}
		for rows.Next() {
			var (
				id   int64
				term string
			)
			if err := rows.Scan(&id, &term); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning term row: %w", err)
			}
			ids[term] = id
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return ids, nil
}

func (s *Store) UpsertPostings(ctx context.Context, docID int64, counts map[int64]int) error {
	if len(counts) == 0 {
		return nil
	}
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO postings (term_id, doc_id, cnt) VALUES (?, ?, ?)
			ON CONFLICT (term_id, doc_id) DO UPDATE SET cnt = excluded.cnt`,
		)
		if err != nil {
			return fmt.Errorf("preparing posting upsert: %w", err)
		}
		defer stmt.Close()

		for termID, count := range counts {
			if _, err := stmt.ExecContext(ctx, termID, docID, count); err != nil {
				return fmt.Errorf("upserting posting for document %d: %w", docID, err)
			}
		}
		return nil
	})
}

func (s *Store) ReplaceTopTerms(ctx context.Context, rows []store.TopTerm) error {
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM top_terms`); err != nil {
			return fmt.Errorf("clearing top terms: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO top_terms (doc_id, term_id, term, cnt, rnk) VALUES (?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return fmt.Errorf("preparing top-term insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.DocID, r.TermID, r.Term, r.Count, r.Rank); err != nil {
				return fmt.Errorf("inserting top-term row: %w", err)
			}
		}
		return nil
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
