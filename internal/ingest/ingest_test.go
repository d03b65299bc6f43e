package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/bibliograph/bibliograph/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

// TestResolveMetadata covers sidecar parsing, the filename fallback, and the
// missing-id rejection.
func TestResolveMetadata(t *testing.T) {
	dir := t.TempDir()

	t.Run("sidecar wins", func(t *testing.T) {
		path := writeFile(t, dir, "pg_1342_pride_and_prejudice.txt", "x")
		writeFile(t, dir, "pg_1342_meta.json",
			`{"title":"Pride and Prejudice","author":"Jane Austen","language":"en","cover_url":"http://example.com/c.jpg"}`)

		meta, ok := ResolveMetadata(path)
		if !ok {
			t.Fatal("expected metadata")
		}
		if meta.ExternalID != 1342 {
			t.Errorf("external id = %d, want 1342", meta.ExternalID)
		}
		if meta.Title != "Pride and Prejudice" || meta.Author != "Jane Austen" {
			t.Errorf("sidecar fields not used: %+v", meta)
		}
		if meta.CoverURL != "http://example.com/c.jpg" {
			t.Errorf("cover url = %q", meta.CoverURL)
		}
	})

	t.Run("corrupt sidecar falls back to filename", func(t *testing.T) {
		sub := t.TempDir()
		path := writeFile(t, sub, "pg_84_frankenstein.txt", "x")
		writeFile(t, sub, "pg_84_meta.json", `{not json`)

		meta, ok := ResolveMetadata(path)
		if !ok {
			t.Fatal("expected metadata")
		}
		if meta.Title != "frankenstein" {
			t.Errorf("fallback title = %q, want %q", meta.Title, "frankenstein")
		}
		if meta.Author != "Unknown" || meta.Language != "unknown" {
			t.Errorf("fallback defaults wrong: %+v", meta)
		}
	})

	t.Run("multi word slug", func(t *testing.T) {
		sub := t.TempDir()
		path := writeFile(t, sub, "pg_2701_moby_dick_or_the_whale.txt", "x")
		meta, ok := ResolveMetadata(path)
		if !ok {
			t.Fatal("expected metadata")
		}
		if meta.Title != "moby dick or the whale" {
			t.Errorf("slug title = %q", meta.Title)
		}
	})

	t.Run("sidecar with missing fields gets defaults", func(t *testing.T) {
		sub := t.TempDir()
		path := writeFile(t, sub, "pg_11_alice.txt", "x")
		writeFile(t, sub, "pg_11_meta.json", `{"title":"Alice in Wonderland"}`)

		meta, ok := ResolveMetadata(path)
		if !ok {
			t.Fatal("expected metadata")
		}
		if meta.Author != "Unknown" || meta.Language != "unknown" {
			t.Errorf("missing sidecar fields not defaulted: %+v", meta)
		}
	})

	t.Run("no external id", func(t *testing.T) {
		sub := t.TempDir()
		path := writeFile(t, sub, "notes.txt", "x")
		if _, ok := ResolveMetadata(path); ok {
			t.Error("expected rejection for file without pg_ prefix")
		}
	})
}

// TestReadDocument verifies normalization and the token count of a read file.
func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pg_5_les_miserables.txt", "Les Misérables! The war began.")

	doc, err := ReadDocument(path)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if doc.ExternalID != 5 {
		t.Errorf("external id = %d, want 5", doc.ExternalID)
	}
	if !strings.Contains(doc.Text, "les miserables") {
		t.Errorf("text not normalized: %q", doc.Text)
	}
	// Tokens longer than two characters: les, miserables, the, war, began.
	if doc.TokenCount != 5 {
		t.Errorf("token count = %d, want 5", doc.TokenCount)
	}
}

// TestReadDocumentRejected verifies the typed rejection for unusable names.
func TestReadDocumentRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "readme.txt", "hello")

	_, err := ReadDocument(path)
	if !errors.Is(err, apperrors.ErrDocumentRejected) {
		t.Errorf("got %v, want ErrDocumentRejected", err)
	}
}

// TestValidator verifies the minimum-token acceptance gate.
func TestValidator(t *testing.T) {
	v := Validator{MinTokenCount: 100}

	if err := v.Validate(RawDocument{TokenCount: 100}); err != nil {
		t.Errorf("document at threshold rejected: %v", err)
	}
	err := v.Validate(RawDocument{Metadata: Metadata{ExternalID: 7}, TokenCount: 99})
	if !errors.Is(err, apperrors.ErrDocumentRejected) {
		t.Errorf("got %v, want ErrDocumentRejected", err)
	}
}

// TestListDocumentFiles verifies filtering and ordering of the corpus scan.
func TestListDocumentFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pg_2_b.txt", "x")
	writeFile(t, dir, "pg_1_a.txt", "x")
	writeFile(t, dir, "pg_1_meta.json", "{}")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := ListDocumentFiles(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("file count = %d, want 2", len(files))
	}
	if filepath.Base(files[0]) != "pg_1_a.txt" || filepath.Base(files[1]) != "pg_2_b.txt" {
		t.Errorf("files not sorted: %v", files)
	}
}
