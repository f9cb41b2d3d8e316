package config

// ScorerConfig tunes the age-decay curve and the source-specific position
// bonuses used by C5 (spec.md §4.5).
type ScorerConfig struct {
	// AgeBreakpointDays is [b1, b2] in the piecewise age_score function.
	AgeBreakpointDays [2]float64 `yaml:"age_breakpoint_days"`
	// HourScores is [h0, h1, h2], the three slopes (per hour) of age_score.
	HourScores [3]float64 `yaml:"hour_scores"`
	// PositionBonus maps a source name (as in storyid.Source.String()) to a
	// table of per-rank bonuses, highest rank (0) first. A rank beyond the
	// table's length receives no bonus.
	PositionBonus map[string][]float64 `yaml:"position_bonus"`
}

// DefaultScorerConfig mirrors the example scoring setup used in the
// concrete scenario walkthroughs (spec.md §8, scenario 6).
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		AgeBreakpointDays: [2]float64{1, 30},
		HourScores:        [3]float64{-5, -3, -0.1},
		PositionBonus:     map[string][]float64{},
	}
}
