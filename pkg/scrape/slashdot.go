package scrape

import (
	"fmt"
	"time"

	"github.com/progscrape/progscrape-sub000/pkg/config"
	"github.com/progscrape/progscrape-sub000/pkg/storyid"
	"github.com/progscrape/progscrape-sub000/pkg/storyurl"
)

// Slashdot is the scrape variant for slashdot.org (spec.md §3).
type Slashdot struct {
	Common
	Tags        []string
	NumComments uint32
}

func (s Slashdot) ID() storyid.ScrapeID { return s.id() }
func (s Slashdot) Date() time.Time      { return s.date() }
func (s Slashdot) RawTitle() string     { return s.rawTitle() }
func (s Slashdot) URL() storyurl.URL    { return s.url() }
func (Slashdot) sealed()                {}

// Merge takes the max of num_comments, the min date, and the newer title;
// tags are not merged.
func (s Slashdot) Merge(other Record) (Record, error) {
	o, ok := other.(Slashdot)
	if !ok {
		return s, fmt.Errorf("%w: Slashdot vs %T", ErrVariantMismatch, other)
	}

	merged := s
	merged.Common = mergeCommon(s.Common, o.Common)

	if o.NumComments > merged.NumComments {
		merged.NumComments = o.NumComments
	}

	return merged, nil
}

// ExtractCore keeps only tags on cfg's allowlist (spec.md §4.2). Slashdot
// never contributes a rank.
func (s Slashdot) ExtractCore(cfg config.ExtractConfig) ExtractedCore {
	var tags []string

	for _, tag := range s.Tags {
		if cfg.SlashdotTagAllowlist[tag] {
			tags = append(tags, tag)
		}
	}

	return ExtractedCore{
		SourceID: s.Common.ID.String(),
		Title:    s.Common.RawTitle,
		URL:      s.Common.URL,
		Date:     s.Common.Date,
		Tags:     tags,
		Rank:     nil,
	}
}
