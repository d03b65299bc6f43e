// Package ingest turns raw corpus files into documents ready for indexing.
// It resolves metadata sidecars, enforces the minimum-length acceptance gate,
// and publishes accepted documents to Kafka for the indexer.
package ingest

import "time"

// Metadata describes a document before it is stored. It comes from the
// pg_<id>_meta.json sidecar when one exists, else from the filename.
type Metadata struct {
	ExternalID int64  `json:"external_id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Language   string `json:"language"`
	CoverURL   string `json:"cover_url"`
}

// RawDocument is a fully read corpus file: resolved metadata plus the
// normalized text and its token count.
type RawDocument struct {
	Metadata
	Text       string
	TokenCount int
	Path       string
}

// DocumentEvent is the Kafka message payload published for each accepted
// document on the document-ingest topic.
type DocumentEvent struct {
	ExternalID int64     `json:"external_id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Language   string    `json:"language"`
	CoverURL   string    `json:"cover_url"`
	Text       string    `json:"text"`
	TokenCount int       `json:"token_count"`
	IngestedAt time.Time `json:"ingested_at"`
}
