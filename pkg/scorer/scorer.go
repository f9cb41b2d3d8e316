// Package scorer implements C5: a deterministic numeric score for an
// extracted story, blending fixed signals with an age-decay function
// applied at query time (spec.md §4.5).
package scorer

import (
	"strings"
	"time"

	"github.com/progscrape/progscrape-sub000/pkg/config"
	"github.com/progscrape/progscrape-sub000/pkg/storyid"
)

// Story is the minimal view of an extracted story the scorer needs.
// pkg/shardedindex builds it from a scrape.ExtractedStory, so scorer has no
// dependency on scrape (and scrape none on scorer).
type Story struct {
	Title   string
	Host    string
	URLHash int64
	Sources map[storyid.Source]bool
	Ranks   map[storyid.Source]int
}

// Scorer computes base scores and the query-time age-decay adjustment.
type Scorer struct {
	cfg config.ScorerConfig
}

// New builds a Scorer from its tuning configuration.
func New(cfg config.ScorerConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

const millisToHours = 60.0 * 60.0 * 1000.0

// AgeScore is the piecewise-linear decay function of spec.md §4.5, clamped
// to age >= 0. With all three hour scores strictly negative it is strictly
// decreasing over age in [0, 60 days] (Testable Property 5).
func (s *Scorer) AgeScore(age time.Duration) float64 {
	b1 := time.Duration(s.cfg.AgeBreakpointDays[0] * 24 * float64(time.Hour))
	b2 := time.Duration(s.cfg.AgeBreakpointDays[1] * 24 * float64(time.Hour))
	h0, h1, h2 := s.cfg.HourScores[0], s.cfg.HourScores[1], s.cfg.HourScores[2]

	fractionalHours := float64(age.Milliseconds()) / millisToHours
	if fractionalHours < 0 {
		fractionalHours = 0
	}

	b1Hours := b1.Hours()
	b2Hours := b2.Hours()

	switch {
	case age < b1:
		return fractionalHours * h0
	case age < b2:
		return b1Hours*h0 + (fractionalHours-b1Hours)*h1
	default:
		return b1Hours*h0 + (b2Hours-b1Hours)*h1 + (fractionalHours-b2Hours)*h2
	}
}

// Base computes the stored base score for a story: everything except the
// age-decay term, which is applied only at query time (spec.md §4.5).
func (s *Scorer) Base(story Story) float64 {
	var total float64

	total += float64(story.URLHash%6000000) / 1000000.0

	sourceCount := 0
	for _, src := range []storyid.Source{storyid.HackerNews, storyid.Reddit, storyid.Lobsters, storyid.Slashdot} {
		if story.Sources[src] {
			sourceCount++
		}
	}

	total += float64(sourceCount) * 5.0

	if len(story.Title) > 130 && story.Sources[storyid.Reddit] {
		total -= 5.0
	}

	if len(story.Title) > 250 {
		total -= 15.0
	}

	host := strings.ToLower(story.Host)
	if strings.Contains(host, "gfycat") || strings.Contains(host, "imgur") || strings.Contains(host, "i.reddit.com") {
		if story.Sources[storyid.HackerNews] {
			total -= 5.0
		} else {
			total -= 10.0
		}
	}

	for src, rank := range story.Ranks {
		table := s.cfg.PositionBonus[src.String()]
		if rank >= 0 && rank < len(table) {
			total += table[rank]
		}
	}

	return total
}

// Final applies the age-decay adjustment to a story's stored base score
// (spec.md §4.5: "final = stored + age_score(now - date)").
func (s *Scorer) Final(stored float64, now, date time.Time) float64 {
	return stored + s.AgeScore(now.Sub(date))
}
