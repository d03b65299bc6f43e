package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bibliograph/bibliograph/internal/corpus"
	apperrors "github.com/bibliograph/bibliograph/pkg/errors"
)

// ListDocumentFiles returns the corpus .txt files under dir in name order.
// Sidecar and other non-text files are ignored.
func ListDocumentFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// ReadDocument loads one corpus file: metadata resolution, text
// normalization, and token counting. Files whose names carry no external id
// are rejected with ErrDocumentRejected.
func ReadDocument(path string) (RawDocument, error) {
	meta, ok := ResolveMetadata(path)
	if !ok {
		return RawDocument{}, apperrors.New(
			apperrors.ErrDocumentRejected, 422,
			fmt.Sprintf("no external id in filename %s", filepath.Base(path)),
		)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RawDocument{}, fmt.Errorf("reading %s: %w", path, err)
	}

	text := corpus.Normalize(string(data))
	return RawDocument{
		Metadata:   meta,
		Text:       text,
		TokenCount: corpus.TokenCount(text),
		Path:       path,
	}, nil
}
