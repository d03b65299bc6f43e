package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// fileNamePattern extracts the external id from names like pg_1342_pride.txt.
var fileNamePattern = regexp.MustCompile(`^pg_(\d+)_`)

// sidecar is the JSON shape of a pg_<id>_meta.json file.
type sidecar struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Language string `json:"language"`
	CoverURL string `json:"cover_url"`
}

// ResolveMetadata determines a document's metadata from its file path. It
// reads the pg_<id>_meta.json sidecar next to the file when one exists and
// parses; otherwise it falls back to a title derived from the filename.
// ok is false when the filename carries no parseable external id, in which
// case the file cannot be ingested.
func ResolveMetadata(path string) (meta Metadata, ok bool) {
	base := filepath.Base(path)
	m := fileNamePattern.FindStringSubmatch(base)
	if m == nil {
		return Metadata{}, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Metadata{}, false
	}

	sidecarPath := filepath.Join(filepath.Dir(path), fmt.Sprintf("pg_%d_meta.json", id))
	if data, err := os.ReadFile(sidecarPath); err == nil {
		var sc sidecar
		if err := json.Unmarshal(data, &sc); err == nil {
			return Metadata{
				ExternalID: id,
				Title:      orDefault(sc.Title, "Unknown"),
				Author:     orDefault(sc.Author, "Unknown"),
				Language:   orDefault(sc.Language, "unknown"),
				CoverURL:   sc.CoverURL,
			}, true
		}
	}

	return Metadata{
		ExternalID: id,
		Title:      titleFromFilename(base, id),
		Author:     "Unknown",
		Language:   "unknown",
	}, true
}

// titleFromFilename recovers a readable title from the filename slug, e.g.
// pg_1342_pride_and_prejudice.txt becomes "pride and prejudice".
func titleFromFilename(base string, id int64) string {
	slug := strings.TrimSuffix(base, filepath.Ext(base))
	slug = strings.TrimPrefix(slug, fmt.Sprintf("pg_%d_", id))
	title := strings.TrimSpace(strings.ReplaceAll(slug, "_", " "))
	if title == "" {
		return "Unknown"
	}
	return title
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
