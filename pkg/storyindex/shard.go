// Package storyindex implements C7: one full-text index over stories
// whose canonical date falls in a given shard (spec.md §4.7). It is
// grounded on the teacher's search-engine stack choice
// (`github.com/blevesearch/bleve/v2`), generalized from a package-name
// full-text index to a story index with numeric fast fields for dedup
// lookups.
package storyindex

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/progscrape/progscrape-sub000/pkg/lock"
	"github.com/progscrape/progscrape-sub000/pkg/lock/local"
	"github.com/progscrape/progscrape-sub000/pkg/storyerr"
)

// Outcome reports what an insert/reinsert operation did (spec.md §4.7).
type Outcome int

const (
	NewStory Outcome = iota
	MergedWithExistingStory
	NotFound
)

const writerKey = "writer"

// Shard wraps one shard's bleve index along with the writer-exclusivity
// lock. Only OpenWriter/Commit/Rollback take that lock; lookups and
// searches take no lock and read bleve's current snapshot, so they run
// alongside a live writer.
type Shard struct {
	path   string
	index  bleve.Index
	locker lock.RWLocker
}

// Open opens (creating if absent) the bleve index rooted at path.
func Open(path string) (*Shard, error) {
	var (
		idx bleve.Index
		err error
	)

	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		idx, err = bleve.New(path, buildMapping())
	} else {
		idx, err = bleve.Open(path)
	}

	if err != nil {
		return nil, storyerr.New(storyerr.StorageBackendError, fmt.Errorf("storyindex: open %s: %w", path, err))
	}

	return &Shard{path: path, index: idx, locker: local.NewRWLocker()}, nil
}

// Close releases the underlying bleve index.
func (s *Shard) Close() error {
	if err := s.index.Close(); err != nil {
		return storyerr.New(storyerr.StorageBackendError, fmt.Errorf("storyindex: close %s: %w", s.path, err))
	}

	return nil
}

// Writer buffers inserts/reinserts for one shard and is committed or
// rolled back as a unit (spec.md §4.7, "Writer lifecycle").
type Writer struct {
	shard *Shard
	batch *bleve.Batch
}

// OpenWriter acquires the shard's exclusive writer lock; at most one live
// writer per shard at a time.
func (s *Shard) OpenWriter(ctx context.Context) (*Writer, error) {
	if err := s.locker.Lock(ctx, writerKey, 0); err != nil {
		return nil, storyerr.New(storyerr.StorageBackendError, fmt.Errorf("storyindex: lock writer for %s: %w", s.path, err))
	}

	return &Writer{shard: s, batch: s.index.NewBatch()}, nil
}

// Insert buffers doc as a new document.
func (w *Writer) Insert(doc Document) (Outcome, error) {
	if err := w.batch.Index(doc.ID, doc); err != nil {
		return NotFound, storyerr.New(storyerr.StorageBackendError, fmt.Errorf("storyindex: insert %s: %w", doc.ID, err))
	}

	return NewStory, nil
}

// Reinsert buffers doc as a full replacement of any existing document with
// the same id — bleve's Batch.Index upserts by id, so a bare index
// operation is sufficient (spec.md §4.7: "delete any doc with the same id,
// then insert").
func (w *Writer) Reinsert(doc Document) (Outcome, error) {
	if err := w.batch.Index(doc.ID, doc); err != nil {
		return NotFound, storyerr.New(storyerr.StorageBackendError, fmt.Errorf("storyindex: reinsert %s: %w", doc.ID, err))
	}

	return MergedWithExistingStory, nil
}

// Commit applies the buffered batch and releases the writer lock. Bleve's
// index.Batch call publishes a new searchable snapshot atomically, serving
// the role of C7's "reload the shared Searcher" step.
func (w *Writer) Commit(ctx context.Context) error {
	defer w.shard.locker.Unlock(ctx, writerKey) //nolint:errcheck

	if err := w.shard.index.Batch(w.batch); err != nil {
		return storyerr.New(storyerr.StorageBackendError, fmt.Errorf("storyindex: commit %s: %w", w.shard.path, err))
	}

	return nil
}

// Rollback discards the buffered batch without touching the index.
func (w *Writer) Rollback(ctx context.Context) error {
	defer w.shard.locker.Unlock(ctx, writerKey) //nolint:errcheck

	w.batch.Reset()

	return nil
}

// LookupByID runs a term query on id, the delete/merge-target probe used
// by ingestion.
func (s *Shard) LookupByID(id string) (Document, bool, error) {
	q := bleve.NewDocIDQuery([]string{id})

	hits, err := s.runQuery(q, 1, nil)
	if err != nil {
		return Document{}, false, err
	}

	if len(hits) == 0 {
		return Document{}, false, nil
	}

	return hits[0].Doc, true, nil
}

// LookupByNormalizedURL implements spec.md §4.7's dedup probe: find a
// document whose url_norm_hash equals hash and whose date falls within
// ±window of date.
func (s *Shard) LookupByNormalizedURL(hash int64, date time.Time, window time.Duration) (Document, bool, error) {
	hf := float64(hash)
	rangeQ := bleve.NewNumericRangeInclusiveQuery(&hf, &hf, boolPtr(true), boolPtr(true))
	rangeQ.SetField("url_norm_hash")

	hits, err := s.runQuery(rangeQ, 256, nil)
	if err != nil {
		return Document{}, false, err
	}

	minDate := date.Add(-window).Unix()
	maxDate := date.Add(window).Unix()

	for _, h := range hits {
		if h.Doc.Date >= minDate && h.Doc.Date <= maxDate {
			return h.Doc, true, nil
		}
	}

	return Document{}, false, nil
}

// Tweak adjusts a hit's raw bleve relevance score into the final ranking
// score used by the query planner (spec.md §4.10).
type Tweak func(doc Document, baseScore float64) float64

// Hit pairs a document with its final (tweaked) score.
type Hit struct {
	Doc   Document
	Score float64
}

// Search runs q and returns up to limit hits: the top limit by bleve's
// relevance score, in that relevance order, each with its Score set by
// tweak. The hits are not re-selected or re-sorted by the tweaked score.
func (s *Shard) Search(q query.Query, limit int, tweak Tweak) ([]Hit, error) {
	return s.runQuery(q, limit, tweak)
}

func (s *Shard) runQuery(q query.Query, limit int, tweak Tweak) ([]Hit, error) {
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"*"}

	result, err := s.index.Search(req)
	if err != nil {
		return nil, storyerr.New(storyerr.StorageBackendError, fmt.Errorf("storyindex: search %s: %w", s.path, err))
	}

	hits := make([]Hit, 0, len(result.Hits))

	for _, dh := range result.Hits {
		doc := fieldsToDocument(dh.ID, dh.Fields)

		score := dh.Score
		if tweak != nil {
			score = tweak(doc, dh.Score)
		}

		hits = append(hits, Hit{Doc: doc, Score: score})
	}

	return hits, nil
}

// AllIDsByDate returns up to limit documents ordered by date ascending.
func (s *Shard) AllIDsByDate(limit int) ([]Document, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), limit, 0, false)
	req.Fields = []string{"*"}
	req.SortBy([]string{"date"})

	result, err := s.index.Search(req)
	if err != nil {
		return nil, storyerr.New(storyerr.StorageBackendError, fmt.Errorf("storyindex: all_ids_by_date %s: %w", s.path, err))
	}

	docs := make([]Document, 0, len(result.Hits))
	for _, dh := range result.Hits {
		docs = append(docs, fieldsToDocument(dh.ID, dh.Fields))
	}

	return docs, nil
}

// RecentByDate returns up to limit documents ordered by date descending,
// the primitive the front-page algorithm uses per shard (spec.md §4.10).
func (s *Shard) RecentByDate(limit int) ([]Document, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), limit, 0, false)
	req.Fields = []string{"*"}
	req.SortBy([]string{"-date"})

	result, err := s.index.Search(req)
	if err != nil {
		return nil, storyerr.New(storyerr.StorageBackendError, fmt.Errorf("storyindex: recent_by_date %s: %w", s.path, err))
	}

	docs := make([]Document, 0, len(result.Hits))
	for _, dh := range result.Hits {
		docs = append(docs, fieldsToDocument(dh.ID, dh.Fields))
	}

	return docs, nil
}

// MostRecentStory returns the max date across the shard's documents.
func (s *Shard) MostRecentStory() (time.Time, bool, error) {
	docs, err := s.RecentByDate(1)
	if err != nil {
		return time.Time{}, false, err
	}

	if len(docs) == 0 {
		return time.Time{}, false, nil
	}

	return time.Unix(docs[0].Date, 0).UTC(), true, nil
}

// TotalDocs reports the shard's live document count.
func (s *Shard) TotalDocs() (uint64, error) {
	n, err := s.index.DocCount()
	if err != nil {
		return 0, storyerr.New(storyerr.StorageBackendError, fmt.Errorf("storyindex: doc_count %s: %w", s.path, err))
	}

	return n, nil
}

func boolPtr(b bool) *bool { return &b }

func fieldsToDocument(id string, fields map[string]any) Document {
	doc := Document{ID: id}

	if v, ok := fields["url"].(string); ok {
		doc.URL = v
	}

	if v, ok := fields["url_norm"].(string); ok {
		doc.URLNorm = v
	}

	if v, ok := fields["url_norm_hash"].(float64); ok {
		doc.URLNormHash = int64(v)
	}

	if v, ok := fields["host"].(string); ok {
		doc.Host = v
	}

	if v, ok := fields["title"].(string); ok {
		doc.Title = v
	}

	if v, ok := fields["date"].(float64); ok {
		doc.Date = int64(v)
	}

	if v, ok := fields["score"].(float64); ok {
		doc.Score = v
	}

	doc.Tags = stringSliceField(fields["tags"])
	doc.ScrapeIDs = stringSliceField(fields["scrape_ids"])

	return doc
}

func stringSliceField(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))

		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}
