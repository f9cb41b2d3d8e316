package storyindex_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progscrape/progscrape-sub000/pkg/storyindex"
)

func openShard(t *testing.T) *storyindex.Shard {
	t.Helper()

	sh, err := storyindex.Open(filepath.Join(t.TempDir(), "index"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = sh.Close() })

	return sh
}

func insertDoc(t *testing.T, sh *storyindex.Shard, doc storyindex.Document) {
	t.Helper()

	ctx := context.Background()

	w, err := sh.OpenWriter(ctx)
	require.NoError(t, err)

	_, err = w.Insert(doc)
	require.NoError(t, err)
	require.NoError(t, w.Commit(ctx))
}

func TestInsertAndLookupByID(t *testing.T) {
	t.Parallel()

	sh := openShard(t)

	doc := storyindex.Document{
		ID: "abc", URL: "http://example.com/a", URLNorm: "example.com/a",
		URLNormHash: 12345, Host: "example.com", Title: "Hello world",
		Date: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC).Unix(),
		Score: 1.5, Tags: []string{"rust"}, ScrapeIDs: []string{"hacker_news-1"},
	}
	insertDoc(t, sh, doc)

	got, ok, err := sh.LookupByID("abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hello world", got.Title)
	assert.ElementsMatch(t, []string{"rust"}, got.Tags)
}

func TestLookupByNormalizedURLWithinWindow(t *testing.T) {
	t.Parallel()

	sh := openShard(t)

	date := time.Date(2020, time.January, 15, 0, 0, 0, 0, time.UTC)
	doc := storyindex.Document{
		ID: "abc", URLNormHash: 999, Title: "t",
		Date: date.Unix(),
	}
	insertDoc(t, sh, doc)

	query := date.Add(10 * 24 * time.Hour)
	got, ok, err := sh.LookupByNormalizedURL(999, query, 30*24*time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", got.ID)

	_, ok, err = sh.LookupByNormalizedURL(999, date.Add(60*24*time.Hour), 30*24*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReinsertReplacesDocument(t *testing.T) {
	t.Parallel()

	sh := openShard(t)
	ctx := context.Background()

	insertDoc(t, sh, storyindex.Document{ID: "abc", Title: "v1", Date: 100})

	w, err := sh.OpenWriter(ctx)
	require.NoError(t, err)

	outcome, err := w.Reinsert(storyindex.Document{ID: "abc", Title: "v2", Date: 100})
	require.NoError(t, err)
	assert.Equal(t, storyindex.MergedWithExistingStory, outcome)
	require.NoError(t, w.Commit(ctx))

	got, ok, err := sh.LookupByID("abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", got.Title)
}

func TestRollbackDiscardsBatch(t *testing.T) {
	t.Parallel()

	sh := openShard(t)
	ctx := context.Background()

	w, err := sh.OpenWriter(ctx)
	require.NoError(t, err)

	_, err = w.Insert(storyindex.Document{ID: "abc", Title: "v1", Date: 100})
	require.NoError(t, err)
	require.NoError(t, w.Rollback(ctx))

	_, ok, err := sh.LookupByID("abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTotalDocsAndMostRecentStory(t *testing.T) {
	t.Parallel()

	sh := openShard(t)

	d1 := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2020, time.January, 20, 0, 0, 0, 0, time.UTC)

	insertDoc(t, sh, storyindex.Document{ID: "a", Title: "a", Date: d1.Unix()})
	insertDoc(t, sh, storyindex.Document{ID: "b", Title: "b", Date: d2.Unix()})

	n, err := sh.TotalDocs()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	recent, ok, err := sh.MostRecentStory()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, d2.Unix(), recent.Unix())
}

func TestAllIDsByDateAscending(t *testing.T) {
	t.Parallel()

	sh := openShard(t)

	d1 := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2020, time.January, 20, 0, 0, 0, 0, time.UTC)

	insertDoc(t, sh, storyindex.Document{ID: "b", Title: "b", Date: d2.Unix()})
	insertDoc(t, sh, storyindex.Document{ID: "a", Title: "a", Date: d1.Unix()})

	docs, err := sh.AllIDsByDate(10)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
}

func TestSearchByTag(t *testing.T) {
	t.Parallel()

	sh := openShard(t)

	insertDoc(t, sh, storyindex.Document{ID: "a", Title: "a", Tags: []string{"rust"}, Date: 1})
	insertDoc(t, sh, storyindex.Document{ID: "b", Title: "b", Tags: []string{"go"}, Date: 1})

	q := bleve.NewTermQuery("rust")
	q.SetField("tags")

	hits, err := sh.Search(q, 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].Doc.ID)
}
