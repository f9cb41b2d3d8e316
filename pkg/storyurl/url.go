package storyurl

import (
	"fmt"
	"net/url"
	"strings"
)

// URL is the normalized wrapper around a story's URL (spec.md §3,
// "StoryUrl"): the raw string, the lowercased host without its wwwN.
// prefix, and the canonical Norm used as the dedup key.
type URL struct {
	Raw  string
	Host string
	Norm Norm
}

// New parses and normalizes rawURL into a URL.
func New(rawURL string) (URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return URL{}, fmt.Errorf("storyurl: error parsing url %q: %w", rawURL, err)
	}

	norm, err := NormalizeParsed(u)
	if err != nil {
		return URL{}, err
	}

	host := strings.ToLower(wwwPrefixRe.ReplaceAllString(u.Hostname(), ""))

	return URL{Raw: rawURL, Host: host, Norm: norm}, nil
}
