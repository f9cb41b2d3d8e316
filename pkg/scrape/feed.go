package scrape

import (
	"fmt"
	"time"

	"github.com/progscrape/progscrape-sub000/pkg/config"
	"github.com/progscrape/progscrape-sub000/pkg/storyid"
	"github.com/progscrape/progscrape-sub000/pkg/storyurl"
)

// Feed is the scrape variant for a generic RSS/Atom feed (spec.md §3).
type Feed struct {
	Common
	Tags []string
}

func (f Feed) ID() storyid.ScrapeID { return f.id() }
func (f Feed) Date() time.Time      { return f.date() }
func (f Feed) RawTitle() string     { return f.rawTitle() }
func (f Feed) URL() storyurl.URL    { return f.url() }
func (Feed) sealed()                {}

// Merge takes the min date and the newer title; a feed carries no counters.
func (f Feed) Merge(other Record) (Record, error) {
	o, ok := other.(Feed)
	if !ok {
		return f, fmt.Errorf("%w: Feed vs %T", ErrVariantMismatch, other)
	}

	merged := f
	merged.Common = mergeCommon(f.Common, o.Common)

	return merged, nil
}

// ExtractCore passes the feed's tags through unchanged.
func (f Feed) ExtractCore(_ config.ExtractConfig) ExtractedCore {
	return ExtractedCore{
		SourceID: f.Common.ID.String(),
		Title:    f.Common.RawTitle,
		URL:      f.Common.URL,
		Date:     f.Common.Date,
		Tags:     f.Tags,
		Rank:     nil,
	}
}
