// Package shardedindex implements C8 (the sharded index owning and
// routing to per-shard indexes), C9 (bounded top-K result collection, via
// pkg/storycollector), and C10 (the query planner), per spec.md §4.8-§4.10.
package shardedindex

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/progscrape/progscrape-sub000/pkg/config"
	"github.com/progscrape/progscrape-sub000/pkg/scorer"
	"github.com/progscrape/progscrape-sub000/pkg/scrapestore"
	"github.com/progscrape/progscrape-sub000/pkg/shard"
	"github.com/progscrape/progscrape-sub000/pkg/storyindex"
	"github.com/progscrape/progscrape-sub000/pkg/tagger"
)

// neighborWindow is how many months on either side of a story's shard are
// searched when fetching its member scrapes back from the raw scrape store
// (scrape reconstitution and hydration), since those scrapes can be
// persisted in any nearby shard. The dedup probe does not use it: it looks
// only at the current shard and the one before.
const neighborWindow = 2

// Index is C8: it owns the Shard -> IndexShard map, the known shard
// range, the cached most-recent-story date, and a reference to the raw
// scrape store.
type Index struct {
	root       string
	store      *scrapestore.Store
	tagger     *tagger.Tagger
	scorer     *scorer.Scorer
	extractCfg config.ExtractConfig

	mu              sync.RWMutex
	shards          map[shard.Shard]*storyindex.Shard
	shardRange      shard.Range
	mostRecent      time.Time
	mostRecentValid bool
}

// New builds a sharded index rooted at root, backed by store for raw
// scrapes and tg/sc/extractCfg for the extract-and-score pipeline.
func New(root string, store *scrapestore.Store, tg *tagger.Tagger, sc *scorer.Scorer, extractCfg config.ExtractConfig) *Index {
	return &Index{
		root:       root,
		store:      store,
		tagger:     tg,
		scorer:     sc,
		extractCfg: extractCfg,
		shards:     map[shard.Shard]*storyindex.Shard{},
		shardRange: shard.NewEmptyRange(),
	}
}

func (idx *Index) shardPath(sh shard.Shard) string {
	return filepath.Join(idx.root, sh.String(), "index")
}

// getOrOpenShard lazily opens sh's on-disk index (spec.md §4.8, "owns a
// mapping Shard -> IndexShard (lazily populated)").
func (idx *Index) getOrOpenShard(sh shard.Shard) (*storyindex.Shard, error) {
	idx.mu.RLock()
	s, ok := idx.shards[sh]
	idx.mu.RUnlock()

	if ok {
		return s, nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if s, ok := idx.shards[sh]; ok {
		return s, nil
	}

	s, err := storyindex.Open(idx.shardPath(sh))
	if err != nil {
		return nil, err
	}

	idx.shards[sh] = s
	idx.shardRange = idx.shardRange.Expand(sh)
	idx.mostRecentValid = false

	return s, nil
}

func (idx *Index) invalidateMostRecent() {
	idx.mu.Lock()
	idx.mostRecentValid = false
	idx.mu.Unlock()
}

// ShardRange reports the known [min, max] extent of shards touched so
// far.
func (idx *Index) ShardRange() shard.Range {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.shardRange
}

// MostRecentStory returns the max date across every known shard,
// newest-shard-first, caching the result until the next successful
// commit invalidates it (spec.md §4.8).
func (idx *Index) MostRecentStory(ctx context.Context) (time.Time, error) {
	idx.mu.RLock()
	if idx.mostRecentValid {
		t := idx.mostRecent
		idx.mu.RUnlock()

		return t, nil
	}

	r := idx.shardRange
	idx.mu.RUnlock()

	if r.Empty() {
		return time.Time{}, nil
	}

	for sh := r.Max; sh >= r.Min; sh = sh.SubMonths(1) {
		if err := ctx.Err(); err != nil {
			return time.Time{}, err
		}

		s, err := idx.getOrOpenShard(sh)
		if err != nil {
			return time.Time{}, err
		}

		date, ok, err := s.MostRecentStory()
		if err != nil {
			return time.Time{}, err
		}

		if ok {
			idx.mu.Lock()
			idx.mostRecent, idx.mostRecentValid = date, true
			idx.mu.Unlock()

			return date, nil
		}
	}

	return time.Time{}, nil
}

// Close closes every opened shard index.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var firstErr error

	for sh, s := range idx.shards {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shardedindex: close shard %s: %w", sh, err)
		}
	}

	return firstErr
}
