package storyid

import "fmt"

// Source identifies which community site a ScrapeRecord came from
// (spec.md §3, §6).
type Source int

const (
	// HackerNews is news.ycombinator.com.
	HackerNews Source = iota
	// Lobsters is lobste.rs.
	Lobsters
	// Reddit is reddit.com.
	Reddit
	// Slashdot is slashdot.org.
	Slashdot
	// Feed is a generic RSS/Atom feed.
	Feed
	// Other is any source without a dedicated variant.
	Other
)

// sourceNames must stay in the wire form spelled out in spec.md §6.
var sourceNames = [...]string{
	HackerNews: "hacker_news",
	Lobsters:   "lobsters",
	Reddit:     "reddit",
	Slashdot:   "slashdot",
	Feed:       "feed",
	Other:      "other",
}

// String returns the wire form of the source, used in ScrapeId strings.
func (s Source) String() string {
	if int(s) < 0 || int(s) >= len(sourceNames) {
		return "other"
	}

	return sourceNames[s]
}

// TitlePriority orders sources for ScrapeCollection's title-choice algorithm
// (spec.md §4.6): lower wins.
func (s Source) TitlePriority() int {
	switch s {
	case HackerNews:
		return 0
	case Lobsters:
		return 1
	case Slashdot:
		return 2
	case Reddit:
		return 3
	default:
		return 99
	}
}

// MarshalText renders a Source's wire form, so it can be used as a JSON
// object key (e.g. Story.CommentLinks is a map[Source]string).
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a Source's wire form, the inverse of MarshalText.
func (s *Source) UnmarshalText(text []byte) error {
	parsed, err := ParseSource(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// ParseSource parses a source's wire form.
func ParseSource(s string) (Source, error) {
	for i, name := range sourceNames {
		if name == s {
			return Source(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownSource, s)
}
