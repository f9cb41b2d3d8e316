// Package scrape implements C2 (the per-source scrape record variants and
// their merge/extract operations) and C6 (scrape collections, the
// per-story aggregate of scrapes that all describe the same URL; spec.md
// §4.2, §4.6).
package scrape

import (
	"errors"
	"fmt"
	"time"

	"github.com/progscrape/progscrape-sub000/pkg/config"
	"github.com/progscrape/progscrape-sub000/pkg/storyid"
	"github.com/progscrape/progscrape-sub000/pkg/storyurl"
)

// ErrVariantMismatch is returned when Merge is called on records of
// different source variants; per spec.md §4.2 this "must be a no-op with a
// warning" rather than a panic.
var ErrVariantMismatch = errors.New("scrape: cannot merge records of different variants")

// Common holds the fields every variant shares (spec.md §3).
type Common struct {
	ID       storyid.ScrapeID
	Date     time.Time
	RawTitle string
	URL      storyurl.URL
}

func (c Common) id() storyid.ScrapeID { return c.ID }
func (c Common) date() time.Time      { return c.Date }
func (c Common) rawTitle() string     { return c.RawTitle }
func (c Common) url() storyurl.URL    { return c.URL }

func mergeCommon(a, b Common) Common {
	date := a.Date
	title := a.RawTitle

	if b.Date.Before(date) {
		date = b.Date
	}
	// The newer-dated scrape's title wins (spec.md §4.2: "titles take the
	// newer one").
	if b.Date.After(a.Date) {
		title = b.RawTitle
	}

	return Common{ID: a.ID, Date: date, RawTitle: title, URL: a.URL}
}

// Core is the common view every Record exposes, independent of variant.
type Core interface {
	ID() storyid.ScrapeID
	Date() time.Time
	RawTitle() string
	URL() storyurl.URL
}

// ExtractedCore is the per-scrape output of ExtractCore: a cleaned-up
// title, the source-specific tags it contributes, and an optional rank
// used by the scorer's position bonus (spec.md §4.2).
type ExtractedCore struct {
	SourceID string
	Title    string
	URL      storyurl.URL
	Date     time.Time
	Tags     []string
	Rank     *int
}

// Record is a closed sum of per-source scrape variants (spec.md §3, §9:
// "prefer a tagged-variant representation... avoid open dynamic
// dispatch"). The unexported sealed method restricts implementations to
// this package.
type Record interface {
	Core
	// Merge combines this record with other, which must be the same
	// concrete variant and carry the same ScrapeId. Counters take the
	// element-wise max; dates take the min; titles take the newer one.
	Merge(other Record) (Record, error)
	// ExtractCore produces the source-cleaned title/tags view used by C6's
	// extract step.
	ExtractCore(cfg config.ExtractConfig) ExtractedCore
	sealed()
}
