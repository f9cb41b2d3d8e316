package shardedindex

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/progscrape/progscrape-sub000/pkg/scorer"
	"github.com/progscrape/progscrape-sub000/pkg/scrape"
	"github.com/progscrape/progscrape-sub000/pkg/shard"
	"github.com/progscrape/progscrape-sub000/pkg/storyerr"
	"github.com/progscrape/progscrape-sub000/pkg/storyid"
	"github.com/progscrape/progscrape-sub000/pkg/storyindex"
)

const dedupWindowDays = 30

// target is the insert position a pre-aggregated collection resolves to:
// either a brand-new story (docID == "") or a merge target in an existing
// shard document (spec.md §4.8.1 step 3).
type target struct {
	shard      shard.Shard
	collection *scrape.Collection
	docID      string
}

// InsertScrapes implements spec.md §4.8.1: persist raw scrapes, pre-
// aggregate same-URL submissions in this batch, resolve each against the
// existing index (current shard then the prior month), and commit all
// touched shards in ascending order.
func (idx *Index) InsertScrapes(ctx context.Context, records []scrape.Record) error {
	if err := idx.store.InsertBatch(ctx, records); err != nil {
		return err
	}

	collections := preaggregate(records)

	targets := make([]target, 0, len(collections))

	for _, c := range collections {
		t, err := idx.resolveTarget(c)
		if err != nil {
			return err
		}

		targets = append(targets, t)
	}

	return idx.commitTargets(ctx, targets)
}

// preaggregate groups records sharing the same normalized URL into one
// ScrapeCollection each, collapsing same-article submissions that arrive
// in the same batch (spec.md §4.8.1 step 2).
func preaggregate(records []scrape.Record) []*scrape.Collection {
	byURL := map[string]*scrape.Collection{}

	var order []string

	for _, r := range records {
		key := r.URL().Norm.Canonical

		if c, ok := byURL[key]; ok {
			c.MergeAll(scrape.NewFromRecord(r))

			continue
		}

		byURL[key] = scrape.NewFromRecord(r)
		order = append(order, key)
	}

	out := make([]*scrape.Collection, 0, len(order))
	for _, key := range order {
		out = append(out, byURL[key])
	}

	return out
}

// resolveTarget implements spec.md §4.8.1 step 3: look in the collection's
// current shard, then the previous month, for an existing story with the
// same normalized-URL hash within ±30 days.
func (idx *Index) resolveTarget(c *scrape.Collection) (target, error) {
	extracted := c.Extract(idx.tagger, idx.extractCfg)
	shardCurrent := shard.FromDate(extracted.Date)

	for _, sh := range []shard.Shard{shardCurrent, shardCurrent.SubMonths(1)} {
		s, err := idx.getOrOpenShard(sh)
		if err != nil {
			return target{}, err
		}

		doc, ok, err := s.LookupByNormalizedURL(extracted.URL.Norm.Hash, extracted.Date, dedupWindowDays*24*time.Hour)
		if err != nil {
			return target{}, err
		}

		if ok {
			return target{shard: sh, collection: c, docID: doc.ID}, nil
		}
	}

	return target{shard: shardCurrent, collection: c}, nil
}

// commitTargets batches targets by shard, opens one writer per shard,
// resolves each (new insert vs merge-and-reinsert), and commits all
// writers in ascending shard order, rolling every one back if any step
// before commit fails (spec.md §4.8.1 steps 4-5).
func (idx *Index) commitTargets(ctx context.Context, targets []target) error {
	byShard := map[shard.Shard][]target{}
	for _, t := range targets {
		byShard[t.shard] = append(byShard[t.shard], t)
	}

	shards := make([]shard.Shard, 0, len(byShard))
	for sh := range byShard {
		shards = append(shards, sh)
	}

	sort.Slice(shards, func(i, j int) bool { return shards[i] < shards[j] })

	writers := make(map[shard.Shard]*storyindex.Writer, len(shards))

	rollbackAll := func() {
		for _, w := range writers {
			_ = w.Rollback(ctx)
		}
	}

	for _, sh := range shards {
		s, err := idx.getOrOpenShard(sh)
		if err != nil {
			rollbackAll()

			return err
		}

		w, err := s.OpenWriter(ctx)
		if err != nil {
			rollbackAll()

			return err
		}

		writers[sh] = w

		for _, t := range byShard[sh] {
			if err := idx.applyTarget(ctx, s, w, t); err != nil {
				rollbackAll()

				return err
			}
		}
	}

	for _, sh := range shards {
		if err := writers[sh].Commit(ctx); err != nil {
			return err
		}
	}

	idx.invalidateMostRecent()

	return nil
}

func (idx *Index) applyTarget(ctx context.Context, s *storyindex.Shard, w *storyindex.Writer, t target) error {
	if t.docID == "" {
		extracted := t.collection.Extract(idx.tagger, idx.extractCfg)
		doc := idx.buildDocument(extracted)
		_, err := w.Insert(doc)

		return err
	}

	existingDoc, ok, err := s.LookupByID(t.docID)
	if err != nil {
		return err
	}

	if !ok {
		return storyerr.New(storyerr.NotMappable, fmt.Errorf("shardedindex: merge target %s vanished", t.docID))
	}

	merged, err := idx.reconstituteAndMerge(ctx, t.shard, existingDoc, t.collection)
	if err != nil {
		return err
	}

	extracted := merged.Extract(idx.tagger, idx.extractCfg)
	doc := idx.buildDocument(extracted)
	doc.ID = t.docID
	_, err = w.Reinsert(doc)

	return err
}

// reconstitute reloads the scrapes named by an existing index document's
// scrape_ids from the raw scrape store (spec.md §4.8.1 step 4, second
// branch; also used standalone by Reinsert).
func (idx *Index) reconstitute(ctx context.Context, sh shard.Shard, doc storyindex.Document) (*scrape.Collection, error) {
	records := make([]scrape.Record, 0, len(doc.ScrapeIDs))

	for _, raw := range doc.ScrapeIDs {
		id, err := storyid.ParseScrapeID(raw)
		if err != nil {
			return nil, storyerr.New(storyerr.NotMappable, fmt.Errorf("shardedindex: parse scrape id %q: %w", raw, err))
		}

		rec, err := idx.store.FetchNear(ctx, id, sh, neighborWindow)
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return scrape.NewFromRecords(records), nil
}

// reconstituteAndMerge reloads doc's backing scrapes and merges incoming
// into them.
func (idx *Index) reconstituteAndMerge(ctx context.Context, sh shard.Shard, doc storyindex.Document, incoming *scrape.Collection) (*scrape.Collection, error) {
	existing, err := idx.reconstitute(ctx, sh, doc)
	if err != nil {
		return nil, err
	}

	existing.MergeAll(incoming)

	return existing, nil
}

func (idx *Index) buildDocument(extracted scrape.ExtractedStory) storyindex.Document {
	ids := make([]string, len(extracted.ScrapeIDs))
	for i, id := range extracted.ScrapeIDs {
		ids[i] = id.String()
	}

	base := idx.scorer.Base(scorer.Story{
		Title:   extracted.Title,
		Host:    extracted.URL.Host,
		URLHash: extracted.URL.Norm.Hash,
		Sources: extracted.Sources(),
		Ranks:   extracted.Ranks(),
	})

	identifier := storyid.NewFromDate(extracted.Date, extracted.URL.Norm.Canonical)

	return storyindex.Document{
		ID:          identifier.String(),
		URL:         extracted.URL.Raw,
		URLNorm:     extracted.URL.Norm.Canonical,
		URLNormHash: extracted.URL.Norm.Hash,
		Host:        extracted.URL.Host,
		Title:       extracted.Title,
		Date:        extracted.Date.Unix(),
		Score:       base,
		Tags:        extracted.Tags,
		ScrapeIDs:   ids,
	}
}

// InsertScrapeCollections is spec.md §4.8.2's fast path: skips the dedup
// probe entirely and inserts one document per collection in its earliest-
// date shard. Raw scrapes backing the collections are still persisted to
// C3 first.
func (idx *Index) InsertScrapeCollections(ctx context.Context, collections []*scrape.Collection) error {
	var records []scrape.Record

	for _, c := range collections {
		for _, r := range c.Scrapes {
			records = append(records, r)
		}
	}

	if err := idx.store.InsertBatch(ctx, records); err != nil {
		return err
	}

	targets := make([]target, 0, len(collections))
	for _, c := range collections {
		targets = append(targets, target{shard: shard.FromDate(c.Earliest), collection: c})
	}

	return idx.commitTargets(ctx, targets)
}

// Reinsert implements spec.md §4.8.3: for each StoryIdentifier, reload its
// scrapes from C3 and re-extract/re-score/reinsert, used after tagger or
// scorer configuration changes.
func (idx *Index) Reinsert(ctx context.Context, ids []storyid.StoryIdentifier) error {
	byShard := map[shard.Shard][]storyid.StoryIdentifier{}
	for _, id := range ids {
		byShard[id.Shard()] = append(byShard[id.Shard()], id)
	}

	shards := make([]shard.Shard, 0, len(byShard))
	for sh := range byShard {
		shards = append(shards, sh)
	}

	sort.Slice(shards, func(i, j int) bool { return shards[i] < shards[j] })

	for _, sh := range shards {
		if err := idx.reinsertShard(ctx, sh, byShard[sh]); err != nil {
			return err
		}
	}

	return nil
}

func (idx *Index) reinsertShard(ctx context.Context, sh shard.Shard, ids []storyid.StoryIdentifier) error {
	s, err := idx.getOrOpenShard(sh)
	if err != nil {
		return err
	}

	w, err := s.OpenWriter(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		doc, ok, err := s.LookupByID(id.String())
		if err != nil {
			_ = w.Rollback(ctx)

			return err
		}

		if !ok {
			continue
		}

		collection, err := idx.reconstitute(ctx, sh, doc)
		if err != nil {
			_ = w.Rollback(ctx)

			return err
		}

		extracted := collection.Extract(idx.tagger, idx.extractCfg)
		newDoc := idx.buildDocument(extracted)
		newDoc.ID = id.String()

		if _, err := w.Reinsert(newDoc); err != nil {
			_ = w.Rollback(ctx)

			return err
		}
	}

	if err := w.Commit(ctx); err != nil {
		return err
	}

	idx.invalidateMostRecent()

	return nil
}
