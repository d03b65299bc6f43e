// Package postgres implements the store interfaces on PostgreSQL via lib/pq.
// Bulk writes go through COPY; derived tables are rebuilt inside a single
// transaction so readers only ever observe a complete snapshot.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bibliograph/bibliograph/internal/store"
	apperrors "github.com/bibliograph/bibliograph/pkg/errors"
	"github.com/bibliograph/bibliograph/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
  id           BIGSERIAL PRIMARY KEY,
  external_id  BIGINT UNIQUE NOT NULL,
  title        TEXT NOT NULL,
  author       TEXT,
  language     TEXT,
  token_count  INT NOT NULL,
  cover_url    TEXT,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS document_texts (
  doc_id  BIGINT PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
  content TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS terms (
  id   BIGSERIAL PRIMARY KEY,
  term TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS postings (
  term_id BIGINT NOT NULL REFERENCES terms(id) ON DELETE CASCADE,
  doc_id  BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
  cnt     INT NOT NULL,
  PRIMARY KEY (term_id, doc_id)
);

CREATE TABLE IF NOT EXISTS top_terms (
  doc_id  BIGINT NOT NULL,
  term_id BIGINT NOT NULL,
  term    TEXT NOT NULL,
  cnt     INT NOT NULL,
  rnk     INT NOT NULL,
  PRIMARY KEY (doc_id, term_id)
);

CREATE TABLE IF NOT EXISTS similarity_edges (
  doc_a      BIGINT NOT NULL,
  doc_b      BIGINT NOT NULL,
  distance   DOUBLE PRECISION NOT NULL,
  similarity DOUBLE PRECISION NOT NULL,
  PRIMARY KEY (doc_a, doc_b)
);

CREATE TABLE IF NOT EXISTS centrality_scores (
  doc_id      BIGINT PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
  pagerank    DOUBLE PRECISION NOT NULL,
  closeness   DOUBLE PRECISION NOT NULL,
  betweenness DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS postings_doc_idx   ON postings (doc_id);
CREATE INDEX IF NOT EXISTS top_terms_doc_idx  ON top_terms (doc_id);
CREATE INDEX IF NOT EXISTS top_terms_term_idx ON top_terms (term);
CREATE INDEX IF NOT EXISTS edges_doc_b_idx    ON similarity_edges (doc_b);
CREATE INDEX IF NOT EXISTS documents_title_idx ON documents (LOWER(title));
`

// Store implements store.Store on PostgreSQL.
type Store struct {
	client *postgres.Client
	logger *slog.Logger
}

// New creates the store and ensures the schema exists.
func New(ctx context.Context, client *postgres.Client) (*Store, error) {
	s := &Store{
		client: client,
		logger: slog.Default().With("component", "postgres-store"),
	}
	if _, err := client.DB.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ---------------------------------------------------------------------------
// DocumentStore
// ---------------------------------------------------------------------------

func (s *Store) UpsertDocument(ctx context.Context, doc store.Document) (int64, error) {
	var id int64
	err := s.client.DB.QueryRowContext(ctx, `
		INSERT INTO documents (external_id, title, author, language, token_count, cover_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (external_id) DO UPDATE
		  SET title = EXCLUDED.title,
		      author = EXCLUDED.author,
		      language = EXCLUDED.language,
		      token_count = EXCLUDED.token_count,
		      cover_url = EXCLUDED.cover_url
		RETURNING id`,
		doc.ExternalID, doc.Title, doc.Author, doc.Language, doc.TokenCount, doc.CoverURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting document %d: %w", doc.ExternalID, err)
	}
	return id, nil
}

func (s *Store) SaveText(ctx context.Context, docID int64, content string) error {
	_, err := s.client.DB.ExecContext(ctx, `
		INSERT INTO document_texts (doc_id, content)
		VALUES ($1, $2)
		ON CONFLICT (doc_id) DO UPDATE SET content = EXCLUDED.content`,
		docID, content,
	)
	if err != nil {
		return fmt.Errorf("saving text for document %d: %w", docID, err)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id int64) (store.Document, error) {
	var (
		doc                     store.Document
		author, language, cover sql.NullString
	)
	err := s.client.DB.QueryRowContext(ctx, `
		SELECT id, external_id, title, author, language, token_count, cover_url, created_at
		FROM documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.ExternalID, &doc.Title, &author, &language, &doc.TokenCount, &cover, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Document{}, fmt.Errorf("document %d: %w", id, apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("reading document %d: %w", id, err)
	}
	doc.Author = author.String
	doc.Language = language.String
	doc.CoverURL = cover.String
	return doc, nil
}
