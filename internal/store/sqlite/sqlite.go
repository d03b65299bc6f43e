// Package sqlite implements the store interfaces on an embedded SQLite
// database via the pure-Go modernc.org/sqlite driver. It mirrors the
// PostgreSQL backend's semantics; bulk paths use prepared statements inside
// one transaction since SQLite has no COPY or array parameters.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bibliograph/bibliograph/internal/store"
	apperrors "github.com/bibliograph/bibliograph/pkg/errors"
	"github.com/bibliograph/bibliograph/pkg/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  external_id  INTEGER UNIQUE NOT NULL,
  title        TEXT NOT NULL,
  author       TEXT,
  language     TEXT,
  token_count  INTEGER NOT NULL,
  cover_url    TEXT,
  created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS document_texts (
  doc_id  INTEGER PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
  content TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS terms (
  id   INTEGER PRIMARY KEY AUTOINCREMENT,
  term TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS postings (
  term_id INTEGER NOT NULL REFERENCES terms(id) ON DELETE CASCADE,
  doc_id  INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
  cnt     INTEGER NOT NULL,
  PRIMARY KEY (term_id, doc_id)
);

CREATE TABLE IF NOT EXISTS top_terms (
  doc_id  INTEGER NOT NULL,
  term_id INTEGER NOT NULL,
  term    TEXT NOT NULL,
  cnt     INTEGER NOT NULL,
  rnk     INTEGER NOT NULL,
  PRIMARY KEY (doc_id, term_id)
);

CREATE TABLE IF NOT EXISTS similarity_edges (
  doc_a      INTEGER NOT NULL,
  doc_b      INTEGER NOT NULL,
  distance   REAL NOT NULL,
  similarity REAL NOT NULL,
  PRIMARY KEY (doc_a, doc_b)
);

CREATE TABLE IF NOT EXISTS centrality_scores (
  doc_id      INTEGER PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
  pagerank    REAL NOT NULL,
  closeness   REAL NOT NULL,
  betweenness REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS postings_doc_idx   ON postings (doc_id);
CREATE INDEX IF NOT EXISTS top_terms_doc_idx  ON top_terms (doc_id);
CREATE INDEX IF NOT EXISTS top_terms_term_idx ON top_terms (term);
CREATE INDEX IF NOT EXISTS edges_doc_b_idx    ON similarity_edges (doc_b);
`

// idChunk bounds IN-list length; SQLite's default variable limit is 999 in
// older builds, so stay under it.
const idChunk = 500

// Store implements store.Store on embedded SQLite.
type Store struct {
	client *sqlite.Client
	logger *slog.Logger
}

// New creates the store and ensures the schema exists.
func New(ctx context.Context, client *sqlite.Client) (*Store, error) {
	s := &Store{
		client: client,
		logger: slog.Default().With("component", "sqlite-store"),
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
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE
		  SET title = excluded.title,
		      author = excluded.author,
		      language = excluded.language,
		      token_count = excluded.token_count,
		      cover_url = excluded.cover_url
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
		VALUES (?, ?)
		ON CONFLICT (doc_id) DO UPDATE SET content = excluded.content`,
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
		FROM documents WHERE id = ?`,
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

// chunkInt64 splits ids into idChunk-sized groups for IN lists.
func chunkInt64(ids []int64) [][]int64 {
	var chunks [][]int64
	for start := 0; start < len(ids); start += idChunk {
		end := start + idChunk
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// placeholders returns "?,?,...,?" with n markers.
func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	b := make([]byte, 0, n*2-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
