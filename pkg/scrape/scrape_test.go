package scrape_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progscrape/progscrape-sub000/pkg/config"
	"github.com/progscrape/progscrape-sub000/pkg/scrape"
	"github.com/progscrape/progscrape-sub000/pkg/storyid"
	"github.com/progscrape/progscrape-sub000/pkg/storyurl"
)

func mustURL(t *testing.T, raw string) storyurl.URL {
	t.Helper()

	u, err := storyurl.New(raw)
	require.NoError(t, err)

	return u
}

func TestHackerNewsMergeTakesMaxAndMinDate(t *testing.T) {
	t.Parallel()

	u := mustURL(t, "http://example.com")
	early := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	later := early.Add(2 * time.Hour)

	a := scrape.HackerNews{
		Common:   scrape.Common{ID: storyid.New(storyid.HackerNews, "1"), Date: later, RawTitle: "New title", URL: u},
		Points:   10,
		Comments: 2,
	}
	b := scrape.HackerNews{
		Common:   scrape.Common{ID: storyid.New(storyid.HackerNews, "1"), Date: early, RawTitle: "Old title", URL: u},
		Points:   20,
		Comments: 1,
	}

	merged, err := a.Merge(b)
	require.NoError(t, err)

	hn, ok := merged.(scrape.HackerNews)
	require.True(t, ok)
	assert.Equal(t, uint32(20), hn.Points)
	assert.Equal(t, uint32(2), hn.Comments)
	assert.Equal(t, early, hn.Date())
	assert.Equal(t, "New title", hn.RawTitle())
}

func TestMergeVariantMismatch(t *testing.T) {
	t.Parallel()

	u := mustURL(t, "http://example.com")
	now := time.Now()

	hn := scrape.HackerNews{Common: scrape.Common{ID: storyid.New(storyid.HackerNews, "1"), Date: now, URL: u}}
	lob := scrape.Lobsters{Common: scrape.Common{ID: storyid.New(storyid.Lobsters, "1"), Date: now, URL: u}}

	_, err := hn.Merge(lob)
	assert.ErrorIs(t, err, scrape.ErrVariantMismatch)
}

func TestHackerNewsExtractCoreTagsFromTitle(t *testing.T) {
	t.Parallel()

	u := mustURL(t, "http://example.com")
	now := time.Now()
	cfg := config.DefaultExtractConfig()

	hn := scrape.HackerNews{
		Common: scrape.Common{
			ID: storyid.New(storyid.HackerNews, "1"), Date: now,
			RawTitle: "Show HN: my new thing [video]", URL: u,
		},
		Position: 3,
	}

	core := hn.ExtractCore(cfg)
	assert.ElementsMatch(t, []string{"show", "video"}, core.Tags)
	require.NotNil(t, core.Rank)
	assert.Equal(t, 2, *core.Rank)
}

func TestLobstersExtractCoreDropsDenylistedTags(t *testing.T) {
	t.Parallel()

	u := mustURL(t, "http://example.com")
	now := time.Now()
	cfg := config.DefaultExtractConfig()
	cfg.LobstersTagDenylist["meta"] = true

	lob := scrape.Lobsters{
		Common: scrape.Common{ID: storyid.New(storyid.Lobsters, "1"), Date: now, RawTitle: "t", URL: u},
		Tags:   []string{"rust", "meta"},
	}

	core := lob.ExtractCore(cfg)
	assert.Equal(t, []string{"rust"}, core.Tags)
}

func TestCollectionTitleChoiceByPriority(t *testing.T) {
	t.Parallel()

	u := mustURL(t, "http://example.com")
	now := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

	hn := scrape.HackerNews{
		Common: scrape.Common{ID: storyid.New(storyid.HackerNews, "1"), Date: now, RawTitle: "I love Rust", URL: u},
	}
	reddit := scrape.Reddit{
		Common: scrape.Common{
			ID: storyid.NewWithSubSource(storyid.Reddit, "rust", "r1"), Date: now,
			RawTitle: "I love rust", URL: u,
		},
	}

	coll := scrape.NewFromRecord(hn)
	coll.MergeAll(scrape.NewFromRecord(reddit))

	extracted := coll.Extract(nil, config.DefaultExtractConfig())
	assert.Equal(t, "I love Rust", extracted.Title)
	assert.Len(t, extracted.ScrapeIDs, 2)
	assert.True(t, extracted.Sources()[storyid.HackerNews])
	assert.True(t, extracted.Sources()[storyid.Reddit])
}

func TestCollectionEarliestIsMinDate(t *testing.T) {
	t.Parallel()

	u := mustURL(t, "http://example.com")
	dec31 := time.Date(2019, time.December, 31, 0, 0, 0, 0, time.UTC)
	jan1 := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

	hn := scrape.HackerNews{Common: scrape.Common{ID: storyid.New(storyid.HackerNews, "1"), Date: dec31, RawTitle: "t", URL: u}}
	reddit := scrape.Reddit{
		Common: scrape.Common{ID: storyid.NewWithSubSource(storyid.Reddit, "rust", "r1"), Date: jan1, RawTitle: "t", URL: u},
	}

	coll := scrape.NewFromRecord(hn)
	warnings := coll.MergeAll(scrape.NewFromRecord(reddit))
	assert.Empty(t, warnings)
	assert.Equal(t, dec31, coll.Earliest)
}
