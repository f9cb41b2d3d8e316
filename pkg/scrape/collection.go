package scrape

import (
	"fmt"
	"sort"
	"time"

	"github.com/progscrape/progscrape-sub000/pkg/config"
	"github.com/progscrape/progscrape-sub000/pkg/storyid"
	"github.com/progscrape/progscrape-sub000/pkg/storyurl"
	"github.com/progscrape/progscrape-sub000/pkg/tagger"
)

// Collection is C6: the unordered set of scrapes that all describe the
// same story (spec.md §3, §4.6). Invariant: every member shares the same
// effective normalized URL — the key under which the collection is looked
// up; Collection itself does not enforce this, callers must only merge
// same-URL collections.
type Collection struct {
	Scrapes  map[storyid.ScrapeID]Record
	Earliest time.Time
}

// NewFromRecord builds a single-member collection.
func NewFromRecord(r Record) *Collection {
	return &Collection{
		Scrapes:  map[storyid.ScrapeID]Record{r.ID(): r},
		Earliest: r.Date(),
	}
}

// NewFromRecords builds a collection from many records, deriving Earliest
// as the min date across all of them.
func NewFromRecords(records []Record) *Collection {
	c := &Collection{Scrapes: map[storyid.ScrapeID]Record{}}

	for i, r := range records {
		c.Scrapes[r.ID()] = r
		if i == 0 || r.Date().Before(c.Earliest) {
			c.Earliest = r.Date()
		}
	}

	return c
}

// MergeAll merges every member of other into c: matching ScrapeIds are
// merged via the variant's Merge; new ids are inserted. Variant-mismatch
// errors are collected as warnings rather than aborting the merge (spec.md
// §4.2: "must be a no-op with a warning").
func (c *Collection) MergeAll(other *Collection) []error {
	var warnings []error

	for id, rec := range other.Scrapes {
		existing, ok := c.Scrapes[id]
		if !ok {
			c.Scrapes[id] = rec
			c.touchEarliest(rec.Date())

			continue
		}

		merged, err := existing.Merge(rec)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("scrape: merge %s: %w", id, err))

			continue
		}

		c.Scrapes[id] = merged
		c.touchEarliest(merged.Date())
	}

	return warnings
}

func (c *Collection) touchEarliest(d time.Time) {
	if c.Earliest.IsZero() || d.Before(c.Earliest) {
		c.Earliest = d
	}
}

// ExtractedStory is C6's extract() output: the chosen title/url, the
// aggregate tag set, and the per-scrape extracted core views (spec.md
// §4.6).
type ExtractedStory struct {
	Title     string
	URL       storyurl.URL
	Date      time.Time
	Tags      []string
	ScrapeIDs []storyid.ScrapeID
	Cores     map[storyid.ScrapeID]ExtractedCore
}

// Sources reports which top-level sources are present, for the scorer's
// source-count/image-host/long-title signals.
func (e ExtractedStory) Sources() map[storyid.Source]bool {
	out := map[storyid.Source]bool{}
	for id := range e.Cores {
		out[id.Source] = true
	}

	return out
}

// Ranks reports each source's best (lowest) extracted rank, for the
// scorer's position-bonus signal.
func (e ExtractedStory) Ranks() map[storyid.Source]int {
	out := map[storyid.Source]int{}

	for id, core := range e.Cores {
		if core.Rank == nil {
			continue
		}

		if existing, ok := out[id.Source]; !ok || *core.Rank < existing {
			out[id.Source] = *core.Rank
		}
	}

	return out
}

// Extract implements C6's extract(): it runs ExtractCore on every member,
// picks the preferred title by source priority, unions the per-source tags
// with the tagger's title-derived tags, and returns the ExtractedStory
// (spec.md §4.6).
func (c *Collection) Extract(tg *tagger.Tagger, extractCfg config.ExtractConfig) ExtractedStory {
	cores := make(map[storyid.ScrapeID]ExtractedCore, len(c.Scrapes))

	ids := make([]storyid.ScrapeID, 0, len(c.Scrapes))
	for id := range c.Scrapes {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	bestPriority := 100
	bestTitle := "Unknown title"
	bestURL := storyurl.URL{}

	tagSet := tagger.NewTagSet()

	for _, id := range ids {
		rec := c.Scrapes[id]
		core := rec.ExtractCore(extractCfg)
		cores[id] = core

		for _, tag := range core.Tags {
			tagSet.Tag(tag)
		}

		priority := id.Source.TitlePriority()
		switch {
		case priority < bestPriority:
			bestPriority, bestTitle, bestURL = priority, core.Title, core.URL
		case priority == bestPriority && len(core.Title) < len(bestTitle):
			bestTitle, bestURL = core.Title, core.URL
		}
	}

	if tg != nil {
		tg.Tag(bestTitle, tagSet)
	}

	return ExtractedStory{
		Title:     bestTitle,
		URL:       bestURL,
		Date:      c.Earliest,
		Tags:      tagSet.Collect(),
		ScrapeIDs: ids,
		Cores:     cores,
	}
}
