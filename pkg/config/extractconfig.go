// Package config holds the YAML-loadable tuning tables for the tagger,
// scorer, and per-source extraction rules (spec.md §4.2, §4.4, §4.5). These
// are data tables rather than flags, so they load from files instead of CLI
// arguments (cmd/progscrape takes one --config flag naming the YAML file).
package config

// RedditSubredditConfig controls how a subreddit's stories are tagged
// (original "SubredditConfig": FlairIsTag).
type RedditSubredditConfig struct {
	IsTag      bool `yaml:"is_tag"`
	FlairIsTag bool `yaml:"flair_is_tag"`
}

// ExtractConfig carries the per-source rules C2's ExtractCore needs: the
// Lobsters tag denylist, the Slashdot tag allowlist, and the Reddit
// subreddit-to-tag mapping (spec.md §4.2).
type ExtractConfig struct {
	LobstersTagDenylist  map[string]bool                  `yaml:"lobsters_tag_denylist"`
	SlashdotTagAllowlist map[string]bool                  `yaml:"slashdot_tag_allowlist"`
	RedditSubreddits     map[string]RedditSubredditConfig `yaml:"reddit_subreddits"`
}

// DefaultExtractConfig returns an empty-but-usable configuration; every
// lookup against a nil/missing map key returns false, matching the Rust
// HashSet::contains behavior on an absent entry.
func DefaultExtractConfig() ExtractConfig {
	return ExtractConfig{
		LobstersTagDenylist:  map[string]bool{},
		SlashdotTagAllowlist: map[string]bool{},
		RedditSubreddits:     map[string]RedditSubredditConfig{},
	}
}
