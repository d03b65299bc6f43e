// Package memory implements the store interfaces with in-process maps. It
// backs unit tests and small local runs; semantics mirror the SQL backends,
// including upsert-by-pair postings and truncate-and-rewrite derived tables.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bibliograph/bibliograph/internal/store"
	apperrors "github.com/bibliograph/bibliograph/pkg/errors"
)

type Memory struct {
	mu sync.RWMutex

	nextDocID  int64
	nextTermID int64

	docs       map[int64]store.Document
	byExternal map[int64]int64
	texts      map[int64]string

	termIDs  map[string]int64
	termText map[int64]string

	postings map[int64]map[int64]int // docID -> termID -> count
	topTerms []store.TopTerm
	edges    []store.Edge
	scores   map[int64]store.CentralityScore
}

func New() *Memory {
	return &Memory{
		docs:       make(map[int64]store.Document),
		byExternal: make(map[int64]int64),
		texts:      make(map[int64]string),
		termIDs:    make(map[string]int64),
		termText:   make(map[int64]string),
		postings:   make(map[int64]map[int64]int),
		scores:     make(map[int64]store.CentralityScore),
	}
}

// ---------------------------------------------------------------------------
// DocumentStore
// ---------------------------------------------------------------------------

func (m *Memory) UpsertDocument(ctx context.Context, doc store.Document) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byExternal[doc.ExternalID]; ok {
		existing := m.docs[id]
		doc.ID = id
		doc.CreatedAt = existing.CreatedAt
		m.docs[id] = doc
		return id, nil
	}

	m.nextDocID++
	doc.ID = m.nextDocID
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	m.docs[doc.ID] = doc
	m.byExternal[doc.ExternalID] = doc.ID
	return doc.ID, nil
}

func (m *Memory) SaveText(ctx context.Context, docID int64, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts[docID] = content
	return nil
}

func (m *Memory) GetDocument(ctx context.Context, id int64) (store.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return store.Document{}, apperrors.ErrDocumentNotFound
	}
	return doc, nil
}

// ---------------------------------------------------------------------------
// IndexStore
// ---------------------------------------------------------------------------

func (m *Memory) UpsertTerms(ctx context.Context, terms []string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make(map[string]int64, len(terms))
	for _, t := range terms {
		id, ok := m.termIDs[t]
		if !ok {
			m.nextTermID++
			id = m.nextTermID
			m.termIDs[t] = id
			m.termText[id] = t
		}
		ids[t] = id
	}
	return ids, nil
}

func (m *Memory) UpsertPostings(ctx context.Context, docID int64, counts map[int64]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.postings[docID]
	if !ok {
		row = make(map[int64]int, len(counts))
		m.postings[docID] = row
	}
	for termID, count := range counts {
		row[termID] = count
	}
	return nil
}

func (m *Memory) ReplaceTopTerms(ctx context.Context, rows []store.TopTerm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topTerms = append([]store.TopTerm(nil), rows...)
	return nil
}

func (m *Memory) ForEachPosting(ctx context.Context, fn func(store.Posting) error) error {
	for _, p := range m.snapshotPostings() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) snapshotPostings() []store.Posting {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docIDs := make([]int64, 0, len(m.postings))
	for id := range m.postings {
		docIDs = append(docIDs, id)
	}
	sort.Slice(docIDs, func(i, j int) bool { return docIDs[i] < docIDs[j] })

	var out []store.Posting
	for _, docID := range docIDs {
		row := m.postings[docID]
		termIDs := make([]int64, 0, len(row))
		for id := range row {
			termIDs = append(termIDs, id)
		}
		sort.Slice(termIDs, func(i, j int) bool { return termIDs[i] < termIDs[j] })
		for _, termID := range termIDs {
			out = append(out, store.Posting{TermID: termID, DocID: docID, Count: row[termID]})
		}
	}
	return out
}

func (m *Memory) AllTerms(ctx context.Context) ([]store.Term, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	terms := make([]store.Term, 0, len(m.termIDs))
	for text, id := range m.termIDs {
		terms = append(terms, store.Term{ID: id, Text: text})
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].ID < terms[j].ID })
	return terms, nil
}

// ---------------------------------------------------------------------------
// GraphStore
// ---------------------------------------------------------------------------

func (m *Memory) TruncateEdges(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = nil
	return nil
}

func (m *Memory) InsertEdges(ctx context.Context, edges []store.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, edges...)
	return nil
}

func (m *Memory) EdgeStats(ctx context.Context) (store.EdgeStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := store.EdgeStats{Edges: int64(len(m.edges))}
	if len(m.edges) == 0 {
		return stats, nil
	}
	stats.MinDistance, stats.MinSimilarity = 1, 1
	var distSum, simSum float64
	for _, e := range m.edges {
		distSum += e.Distance
		simSum += e.Similarity
		if e.Distance < stats.MinDistance {
			stats.MinDistance = e.Distance
		}
		if e.Distance > stats.MaxDistance {
			stats.MaxDistance = e.Distance
		}
		if e.Similarity < stats.MinSimilarity {
			stats.MinSimilarity = e.Similarity
		}
		if e.Similarity > stats.MaxSimilarity {
			stats.MaxSimilarity = e.Similarity
		}
	}
	stats.AvgDistance = distSum / float64(len(m.edges))
	stats.AvgSimilarity = simSum / float64(len(m.edges))
	return stats, nil
}

// ---------------------------------------------------------------------------
// CentralityStore
// ---------------------------------------------------------------------------

func (m *Memory) AllDocumentIDs(ctx context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) AllEdges(ctx context.Context) ([]store.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]store.Edge(nil), m.edges...), nil
}

func (m *Memory) ReplaceCentrality(ctx context.Context, scores []store.CentralityScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = make(map[int64]store.CentralityScore, len(scores))
	for _, s := range scores {
		m.scores[s.DocID] = s
	}
	return nil
}

// ---------------------------------------------------------------------------
// SearchStore
// ---------------------------------------------------------------------------

func (m *Memory) MatchTitles(ctx context.Context, sub string) ([]store.TitleRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []store.TitleRow
	for _, doc := range m.docs {
		if strings.Contains(strings.ToLower(doc.Title), sub) {
			rows = append(rows, store.TitleRow{DocID: doc.ID, Title: doc.Title})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DocID < rows[j].DocID })
	return rows, nil
}

func (m *Memory) ListTitles(ctx context.Context) ([]store.TitleRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]store.TitleRow, 0, len(m.docs))
	for _, doc := range m.docs {
		rows = append(rows, store.TitleRow{DocID: doc.ID, Title: doc.Title})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DocID < rows[j].DocID })
	return rows, nil
}

func (m *Memory) TopTermCounts(ctx context.Context, term string) ([]store.DocCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []store.DocCount
	for _, tt := range m.topTerms {
		if tt.Term == term {
			rows = append(rows, store.DocCount{DocID: tt.DocID, Count: tt.Count})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DocID < rows[j].DocID })
	return rows, nil
}

func (m *Memory) PostingCounts(ctx context.Context, term string) ([]store.DocCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	termID, ok := m.termIDs[term]
	if !ok {
		return nil, nil
	}
	var rows []store.DocCount
	for docID, row := range m.postings {
		if count, ok := row[termID]; ok {
			rows = append(rows, store.DocCount{DocID: docID, Count: count})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DocID < rows[j].DocID })
	return rows, nil
}

func (m *Memory) TopTermsByTermIDs(ctx context.Context, termIDs []int64) ([]store.TermDocCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := idSet(termIDs)
	var rows []store.TermDocCount
	for _, tt := range m.topTerms {
		if _, ok := wanted[tt.TermID]; ok {
			rows = append(rows, store.TermDocCount{TermID: tt.TermID, DocID: tt.DocID, Count: tt.Count})
		}
	}
	return rows, nil
}

func (m *Memory) PostingsByTermIDs(ctx context.Context, termIDs []int64) ([]store.TermDocCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := idSet(termIDs)
	var rows []store.TermDocCount
	for docID, row := range m.postings {
		for termID, count := range row {
			if _, ok := wanted[termID]; ok {
				rows = append(rows, store.TermDocCount{TermID: termID, DocID: docID, Count: count})
			}
		}
	}
	return rows, nil
}

func (m *Memory) GetDocumentsMeta(ctx context.Context, ids []int64) (map[int64]store.DocumentMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metas := make(map[int64]store.DocumentMeta, len(ids))
	for _, id := range ids {
		doc, ok := m.docs[id]
		if !ok {
			continue
		}
		meta := store.DocumentMeta{Document: doc}
		if score, ok := m.scores[id]; ok {
			s := score
			meta.Centrality = &s
		}
		metas[id] = meta
	}
	return metas, nil
}

func (m *Memory) StreamTexts(ctx context.Context, fn func(docID int64, content string) error) error {
	m.mu.RLock()
	ids := make([]int64, 0, len(m.texts))
	for id := range m.texts {
		ids = append(ids, id)
	}
	texts := make(map[int64]string, len(m.texts))
	for id, content := range m.texts {
		texts[id] = content
	}
	m.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(id, texts[id]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Neighbors(ctx context.Context, docID int64, limit int) ([]store.Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []store.Neighbor
	for _, e := range m.edges {
		switch docID {
		case e.DocA:
			rows = append(rows, store.Neighbor{DocID: e.DocB, Distance: e.Distance, Similarity: e.Similarity})
		case e.DocB:
			rows = append(rows, store.Neighbor{DocID: e.DocA, Distance: e.Distance, Similarity: e.Similarity})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Similarity != rows[j].Similarity {
			return rows[i].Similarity > rows[j].Similarity
		}
		return rows[i].DocID < rows[j].DocID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *Memory) TopByCentrality(ctx context.Context, metric string, limit int) ([]store.DocumentMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var metas []store.DocumentMeta
	for id, score := range m.scores {
		doc, ok := m.docs[id]
		if !ok {
			continue
		}
		s := score
		metas = append(metas, store.DocumentMeta{Document: doc, Centrality: &s})
	}
	value := func(meta store.DocumentMeta) float64 {
		switch metric {
		case store.MetricCloseness:
			return meta.Centrality.Closeness
		case store.MetricBetweenness:
			return meta.Centrality.Betweenness
		default:
			return meta.Centrality.PageRank
		}
	}
	sort.Slice(metas, func(i, j int) bool {
		vi, vj := value(metas[i]), value(metas[j])
		if vi != vj {
			return vi > vj
		}
		return metas[i].ID < metas[j].ID
	})
	if limit > 0 && len(metas) > limit {
		metas = metas[:limit]
	}
	return metas, nil
}

// ---------------------------------------------------------------------------

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
