package scorer_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/progscrape/progscrape-sub000/pkg/config"
	"github.com/progscrape/progscrape-sub000/pkg/scorer"
	"github.com/progscrape/progscrape-sub000/pkg/storyid"
)

func testConfig() config.ScorerConfig {
	return config.ScorerConfig{
		AgeBreakpointDays: [2]float64{1, 30},
		HourScores:        [3]float64{-5, -3, -0.1},
	}
}

// TestAgeScoreMonotonicallyDecreasing ports scorer.rs's test_age_score
// (Testable Property 5).
func TestAgeScoreMonotonicallyDecreasing(t *testing.T) {
	t.Parallel()

	s := scorer.New(testConfig())

	lastScore := math.Inf(1)

	for h := 0; h < 60*24; h++ {
		score := s.AgeScore(time.Duration(h) * time.Hour)
		assert.Less(t, score, lastScore, "hour %d", h)
		lastScore = score
	}
}

func TestAgeScoreClampsNegativeAge(t *testing.T) {
	t.Parallel()

	s := scorer.New(testConfig())

	assert.InDelta(t, 0.0, s.AgeScore(-5*time.Hour), 1e-9)
}

func TestBaseScoreSourceCount(t *testing.T) {
	t.Parallel()

	s := scorer.New(testConfig())

	single := scorer.Story{
		Title:   "short",
		Host:    "example.com",
		URLHash: 0,
		Sources: map[storyid.Source]bool{storyid.HackerNews: true},
	}
	double := scorer.Story{
		Title:   "short",
		Host:    "example.com",
		URLHash: 0,
		Sources: map[storyid.Source]bool{storyid.HackerNews: true, storyid.Reddit: true},
	}

	assert.Less(t, s.Base(single), s.Base(double))
}

func TestBaseScoreLongTitlePenalty(t *testing.T) {
	t.Parallel()

	s := scorer.New(testConfig())

	short := scorer.Story{Title: "short title", Host: "example.com", Sources: map[storyid.Source]bool{}}
	long := scorer.Story{
		Title:   repeatChar(300),
		Host:    "example.com",
		Sources: map[storyid.Source]bool{},
	}

	assert.Less(t, s.Base(long), s.Base(short))
}

func TestBaseScoreImageHostPenalty(t *testing.T) {
	t.Parallel()

	s := scorer.New(testConfig())

	plain := scorer.Story{Title: "t", Host: "example.com", Sources: map[storyid.Source]bool{}}
	withHN := scorer.Story{Title: "t", Host: "i.imgur.com", Sources: map[storyid.Source]bool{storyid.HackerNews: true}}
	withoutHN := scorer.Story{Title: "t", Host: "i.imgur.com", Sources: map[storyid.Source]bool{}}

	assert.Less(t, s.Base(withHN), s.Base(plain))
	assert.Less(t, s.Base(withoutHN), s.Base(withHN))
}

func TestFinalAppliesAgeDecayOnly(t *testing.T) {
	t.Parallel()

	s := scorer.New(testConfig())

	now := time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC)
	date := now.Add(-48 * time.Hour)

	stored := 10.0
	final := s.Final(stored, now, date)

	assert.Equal(t, stored+s.AgeScore(now.Sub(date)), final)
}

func repeatChar(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}

	return string(b)
}
