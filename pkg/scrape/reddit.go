package scrape

import (
	"fmt"
	"strings"
	"time"

	"github.com/progscrape/progscrape-sub000/pkg/config"
	"github.com/progscrape/progscrape-sub000/pkg/storyid"
	"github.com/progscrape/progscrape-sub000/pkg/storyurl"
)

// Reddit is the scrape variant for reddit.com (spec.md §3). Its ScrapeId
// carries the subreddit as a subsource.
type Reddit struct {
	Common
	Subreddit   string
	Flair       string
	Position    uint32
	Upvotes     uint32
	Downvotes   uint32
	NumComments uint32
	Score       uint32
	UpvoteRatio float64
}

func (r Reddit) ID() storyid.ScrapeID { return r.id() }
func (r Reddit) Date() time.Time      { return r.date() }
func (r Reddit) RawTitle() string     { return r.rawTitle() }
func (r Reddit) URL() storyurl.URL    { return r.url() }
func (Reddit) sealed()                {}

// Merge takes the max of every counter, the min date, and the newer title.
func (r Reddit) Merge(other Record) (Record, error) {
	o, ok := other.(Reddit)
	if !ok {
		return r, fmt.Errorf("%w: Reddit vs %T", ErrVariantMismatch, other)
	}

	merged := r
	merged.Common = mergeCommon(r.Common, o.Common)

	if o.Position > merged.Position {
		merged.Position = o.Position
	}

	if o.Upvotes > merged.Upvotes {
		merged.Upvotes = o.Upvotes
	}

	if o.Downvotes > merged.Downvotes {
		merged.Downvotes = o.Downvotes
	}

	if o.NumComments > merged.NumComments {
		merged.NumComments = o.NumComments
	}

	if o.Score > merged.Score {
		merged.Score = o.Score
	}

	if o.UpvoteRatio > merged.UpvoteRatio {
		merged.UpvoteRatio = o.UpvoteRatio
	}

	return merged, nil
}

// ExtractCore contributes the subreddit and/or lowercased flair as tags,
// per subreddit configuration (spec.md §4.2).
func (r Reddit) ExtractCore(cfg config.ExtractConfig) ExtractedCore {
	var tags []string

	if sc, ok := cfg.RedditSubreddits[r.Subreddit]; ok {
		if sc.FlairIsTag {
			tags = append(tags, strings.ToLower(r.Flair))
		}

		if sc.IsTag {
			tags = append(tags, r.Subreddit)
		}
	}

	var rank *int

	if r.Position >= 1 {
		rk := int(r.Position - 1)
		rank = &rk
	}

	return ExtractedCore{
		SourceID: r.Common.ID.String(),
		Title:    r.Common.RawTitle,
		URL:      r.Common.URL,
		Date:     r.Common.Date,
		Tags:     tags,
		Rank:     rank,
	}
}
