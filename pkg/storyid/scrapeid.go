package storyid

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSource is returned when a Source string doesn't match a known
// variant.
var ErrUnknownSource = errors.New("storyid: unknown source")

// ErrInvalidScrapeID is returned when a ScrapeID's string form can't be
// parsed (spec.md §3, §6).
var ErrInvalidScrapeID = errors.New("storyid: invalid scrape id")

// ScrapeID uniquely identifies one submission on one source
// (spec.md §3: "(source, optional subsource, source-local id)").
type ScrapeID struct {
	Source    Source
	SubSource string // e.g. a subreddit; empty when the source has none
	LocalID   string
}

// New builds a ScrapeID with no subsource.
func New(source Source, localID string) ScrapeID {
	return ScrapeID{Source: source, LocalID: localID}
}

// NewWithSubSource builds a ScrapeID carrying a subsource (e.g. Reddit's
// subreddit).
func NewWithSubSource(source Source, subSource, localID string) ScrapeID {
	return ScrapeID{Source: source, SubSource: subSource, LocalID: localID}
}

// String renders the wire form: "source-id" or "source-subsource-id"
// (spec.md §3, §6).
func (id ScrapeID) String() string {
	if id.SubSource != "" {
		return fmt.Sprintf("%s-%s-%s", id.Source, id.SubSource, id.LocalID)
	}

	return fmt.Sprintf("%s-%s", id.Source, id.LocalID)
}

// MarshalText renders a ScrapeID the same way String does, so a ScrapeID
// can be used as a JSON object key (encoding/json requires map keys to
// implement encoding.TextMarshaler) or in any other text-based encoding.
func (id ScrapeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses a ScrapeID's wire form, the inverse of MarshalText.
func (id *ScrapeID) UnmarshalText(text []byte) error {
	parsed, err := ParseScrapeID(string(text))
	if err != nil {
		return err
	}

	*id = parsed

	return nil
}

// ParseScrapeID parses a ScrapeID wire form. Since the source prefix itself
// may contain no dashes ("hacker_news", "lobsters", ...) we split on the
// first remaining dash after stripping a matched source name.
func ParseScrapeID(s string) (ScrapeID, error) {
	for src := HackerNews; src <= Other; src++ {
		prefix := src.String() + "-"
		if !strings.HasPrefix(s, prefix) {
			continue
		}

		rest := s[len(prefix):]
		if rest == "" {
			return ScrapeID{}, fmt.Errorf("%w: %q", ErrInvalidScrapeID, s)
		}

		// Only Reddit scrapes carry a subsource (the subreddit); every other
		// source's local id is taken verbatim, dashes and all.
		if src == Reddit {
			if idx := strings.IndexByte(rest, '-'); idx >= 0 {
				return ScrapeID{Source: src, SubSource: rest[:idx], LocalID: rest[idx+1:]}, nil
			}
		}

		return ScrapeID{Source: src, LocalID: rest}, nil
	}

	return ScrapeID{}, fmt.Errorf("%w: %q", ErrInvalidScrapeID, s)
}
