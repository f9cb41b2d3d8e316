package scrape

import (
	"fmt"
	"time"

	"github.com/progscrape/progscrape-sub000/pkg/config"
	"github.com/progscrape/progscrape-sub000/pkg/storyid"
	"github.com/progscrape/progscrape-sub000/pkg/storyurl"
)

// Lobsters is the scrape variant for lobste.rs (spec.md §3).
type Lobsters struct {
	Common
	Tags        []string
	Position    uint32
	NumComments uint32
	Score       uint32
}

func (l Lobsters) ID() storyid.ScrapeID { return l.id() }
func (l Lobsters) Date() time.Time      { return l.date() }
func (l Lobsters) RawTitle() string     { return l.rawTitle() }
func (l Lobsters) URL() storyurl.URL    { return l.url() }
func (Lobsters) sealed()                {}

// Merge takes the max of score/num_comments, the min date, and the newer
// title; tags and position are not merged.
func (l Lobsters) Merge(other Record) (Record, error) {
	o, ok := other.(Lobsters)
	if !ok {
		return l, fmt.Errorf("%w: Lobsters vs %T", ErrVariantMismatch, other)
	}

	merged := l
	merged.Common = mergeCommon(l.Common, o.Common)

	if o.Score > merged.Score {
		merged.Score = o.Score
	}

	if o.NumComments > merged.NumComments {
		merged.NumComments = o.NumComments
	}

	return merged, nil
}

// ExtractCore drops any tag on cfg's denylist (spec.md §4.2).
func (l Lobsters) ExtractCore(cfg config.ExtractConfig) ExtractedCore {
	var tags []string

	for _, tag := range l.Tags {
		if cfg.LobstersTagDenylist[tag] {
			continue
		}

		tags = append(tags, tag)
	}

	var rank *int

	if l.Position >= 1 {
		r := int(l.Position - 1)
		rank = &r
	}

	return ExtractedCore{
		SourceID: l.Common.ID.String(),
		Title:    l.Common.RawTitle,
		URL:      l.Common.URL,
		Date:     l.Common.Date,
		Tags:     tags,
		Rank:     rank,
	}
}
