package scrapestore_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progscrape/progscrape-sub000/pkg/scrape"
	"github.com/progscrape/progscrape-sub000/pkg/scrapestore"
	"github.com/progscrape/progscrape-sub000/pkg/shard"
	"github.com/progscrape/progscrape-sub000/pkg/storyerr"
	"github.com/progscrape/progscrape-sub000/pkg/storyid"
	"github.com/progscrape/progscrape-sub000/pkg/storyurl"
)

func mustURL(t *testing.T, raw string) storyurl.URL {
	t.Helper()

	u, err := storyurl.New(raw)
	require.NoError(t, err)

	return u
}

func newStore(t *testing.T) *scrapestore.Store {
	t.Helper()

	dir := t.TempDir()
	s := scrapestore.New(dir, zerolog.Nop())

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestInsertAndFetchRoundTrip(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	date := time.Date(2020, time.January, 5, 0, 0, 0, 0, time.UTC)
	id := storyid.New(storyid.HackerNews, "1")
	u := mustURL(t, "http://example.com/a")

	rec := scrape.HackerNews{
		Common: scrape.Common{ID: id, Date: date, RawTitle: "hello", URL: u},
		Points: 10,
	}

	require.NoError(t, s.InsertBatch(ctx, []scrape.Record{rec}))

	got, err := s.Fetch(ctx, id, date)
	require.NoError(t, err)

	hn, ok := got.(scrape.HackerNews)
	require.True(t, ok)
	assert.Equal(t, uint32(10), hn.Points)
	assert.Equal(t, "hello", hn.RawTitle())
}

func TestInsertUpsertsOnConflict(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	date := time.Date(2020, time.January, 5, 0, 0, 0, 0, time.UTC)
	id := storyid.New(storyid.HackerNews, "1")
	u := mustURL(t, "http://example.com/a")

	first := scrape.HackerNews{Common: scrape.Common{ID: id, Date: date, RawTitle: "v1", URL: u}, Points: 1}
	second := scrape.HackerNews{Common: scrape.Common{ID: id, Date: date, RawTitle: "v2", URL: u}, Points: 2}

	require.NoError(t, s.InsertBatch(ctx, []scrape.Record{first}))
	require.NoError(t, s.InsertBatch(ctx, []scrape.Record{second}))

	got, err := s.Fetch(ctx, id, date)
	require.NoError(t, err)

	hn, ok := got.(scrape.HackerNews)
	require.True(t, ok)
	assert.Equal(t, uint32(2), hn.Points)
}

func TestFetchNotFound(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	_, err := s.Fetch(ctx, storyid.New(storyid.HackerNews, "missing"), time.Now())
	assert.True(t, storyerr.Is(err, storyerr.NotFound))
}

func TestInsertBatchPartitionsByShard(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	jan := time.Date(2020, time.January, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2020, time.February, 5, 0, 0, 0, 0, time.UTC)
	u := mustURL(t, "http://example.com/a")

	janRec := scrape.HackerNews{Common: scrape.Common{ID: storyid.New(storyid.HackerNews, "1"), Date: jan, RawTitle: "jan", URL: u}}
	febRec := scrape.HackerNews{Common: scrape.Common{ID: storyid.New(storyid.HackerNews, "2"), Date: feb, RawTitle: "feb", URL: u}}

	require.NoError(t, s.InsertBatch(ctx, []scrape.Record{janRec, febRec}))

	janStats, err := s.Stats(ctx, shard.FromDate(jan))
	require.NoError(t, err)
	assert.Equal(t, 1, janStats.Count)

	febStats, err := s.Stats(ctx, shard.FromDate(feb))
	require.NoError(t, err)
	assert.Equal(t, 1, febStats.Count)
}

func TestFetchBatchGroupsByKnownShard(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	jan := time.Date(2020, time.January, 5, 0, 0, 0, 0, time.UTC)
	u := mustURL(t, "http://example.com/a")

	id1 := storyid.New(storyid.HackerNews, "1")
	id2 := storyid.New(storyid.HackerNews, "2")

	rec1 := scrape.HackerNews{Common: scrape.Common{ID: id1, Date: jan, RawTitle: "a", URL: u}}
	rec2 := scrape.HackerNews{Common: scrape.Common{ID: id2, Date: jan, RawTitle: "b", URL: u}}

	require.NoError(t, s.InsertBatch(ctx, []scrape.Record{rec1, rec2}))

	sh := shard.FromDate(jan)
	got, err := s.FetchBatch(ctx, []scrapestore.ShardedID{{Shard: sh, ID: id1}, {Shard: sh, ID: id2}})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestIterateReportsDecodeErrorsWithoutAborting(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	date := time.Date(2020, time.January, 5, 0, 0, 0, 0, time.UTC)
	u := mustURL(t, "http://example.com/a")

	rec := scrape.HackerNews{Common: scrape.Common{ID: storyid.New(storyid.HackerNews, "1"), Date: date, RawTitle: "ok", URL: u}}
	require.NoError(t, s.InsertBatch(ctx, []scrape.Record{rec}))

	var visited int

	err := s.Iterate(ctx, shard.FromDate(date), func(r scrape.Record) error {
		visited++

		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, visited)
}

func TestStatsComputesEarliestAndLatest(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	u := mustURL(t, "http://example.com/a")
	d1 := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2020, time.January, 20, 0, 0, 0, 0, time.UTC)

	rec1 := scrape.HackerNews{Common: scrape.Common{ID: storyid.New(storyid.HackerNews, "1"), Date: d1, RawTitle: "a", URL: u}}
	rec2 := scrape.HackerNews{Common: scrape.Common{ID: storyid.New(storyid.HackerNews, "2"), Date: d2, RawTitle: "b", URL: u}}

	require.NoError(t, s.InsertBatch(ctx, []scrape.Record{rec1, rec2}))

	stats, err := s.Stats(ctx, shard.FromDate(d1))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, d1, stats.Earliest)
	assert.Equal(t, d2, stats.Latest)
}

func TestShardsListsOnlyShardsWithData(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	u := mustURL(t, "http://example.com/a")
	d := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	rec := scrape.HackerNews{Common: scrape.Common{ID: storyid.New(storyid.HackerNews, "1"), Date: d, RawTitle: "a", URL: u}}

	require.NoError(t, s.InsertBatch(ctx, []scrape.Record{rec}))

	shards, err := s.Shards()
	require.NoError(t, err)
	require.Len(t, shards, 1)
	assert.Equal(t, shard.FromDate(d), shards[0])
}

func TestShardsOnEmptyStoreReturnsEmpty(t *testing.T) {
	t.Parallel()

	s := newStore(t)

	shards, err := s.Shards()
	require.NoError(t, err)
	assert.Empty(t, shards)
}
