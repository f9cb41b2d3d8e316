package scrape

import (
	"fmt"
	"strings"
	"time"

	"github.com/progscrape/progscrape-sub000/pkg/config"
	"github.com/progscrape/progscrape-sub000/pkg/storyid"
	"github.com/progscrape/progscrape-sub000/pkg/storyurl"
)

// HackerNews is the scrape variant for news.ycombinator.com (spec.md §3).
type HackerNews struct {
	Common
	Points   uint32
	Comments uint32
	Position uint32
}

func (h HackerNews) ID() storyid.ScrapeID { return h.id() }
func (h HackerNews) Date() time.Time      { return h.date() }
func (h HackerNews) RawTitle() string     { return h.rawTitle() }
func (h HackerNews) URL() storyurl.URL    { return h.url() }
func (HackerNews) sealed()                {}

// Merge takes the max of points/comments, the min date, and the newer
// title. Position is never merged: it is a rank observed at the earliest
// scrape time (original "HackerNewsStory::merge").
func (h HackerNews) Merge(other Record) (Record, error) {
	o, ok := other.(HackerNews)
	if !ok {
		return h, fmt.Errorf("%w: HackerNews vs %T", ErrVariantMismatch, other)
	}

	merged := h
	merged.Common = mergeCommon(h.Common, o.Common)

	if o.Points > merged.Points {
		merged.Points = o.Points
	}

	if o.Comments > merged.Comments {
		merged.Comments = o.Comments
	}

	return merged, nil
}

// ExtractCore applies HN's title-derived tag heuristics: "Show HN"/"Ask
// HN" prefixes and "[pdf]"/"[video]" suffixes (spec.md §4.2).
func (h HackerNews) ExtractCore(_ config.ExtractConfig) ExtractedCore {
	var tags []string

	if strings.HasPrefix(h.Common.RawTitle, "Show HN") {
		tags = append(tags, "show")
	}

	if strings.HasPrefix(h.Common.RawTitle, "Ask HN") {
		tags = append(tags, "ask")
	}

	if strings.HasSuffix(h.Common.RawTitle, "[pdf]") {
		tags = append(tags, "pdf")
	}

	if strings.HasSuffix(h.Common.RawTitle, "[video]") {
		tags = append(tags, "video")
	}

	var rank *int

	if h.Position >= 1 {
		r := int(h.Position - 1)
		rank = &r
	}

	return ExtractedCore{
		SourceID: h.Common.ID.String(),
		Title:    h.Common.RawTitle,
		URL:      h.Common.URL,
		Date:     h.Common.Date,
		Tags:     tags,
		Rank:     rank,
	}
}
