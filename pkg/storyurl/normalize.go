// Package storyurl implements the URL normalizer (spec.md §4.1, C1) and the
// StoryUrl/StoryUrlNorm wrapper types (spec.md §3).
//
// The canonicalization rules are ported from the original implementation's
// token_stream/url_normalization_string (datasci/urlnormalizer.rs): emit the
// host (minus a wwwN? prefix), each non-empty path segment (stripping a
// short trailing "extension" from the last one), surviving non-tracking
// query pairs sorted lexicographically, and a hash-bang fragment's
// remainder.
package storyurl

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ErrHostRequired is returned when a URL has no host and therefore cannot
// be accepted as a story URL (spec.md §4.1, "Failure").
var ErrHostRequired = errors.New("storyurl: url has no host")

var (
	wwwPrefixRe  = regexp.MustCompile(`(?i)^www?[0-9]*\.`)
	extensionRe  = regexp.MustCompile(`^[A-Za-z]+[0-9]?$`)
	ignoredQuery = map[string]bool{
		"utm_source":   true,
		"utm_medium":   true,
		"utm_campaign": true,
		"utm_term":     true,
		"utm_content":  true,
		"utm_expid":    true,
		"gclid":        true,
		"fbclid":       true,
		"_ga":          true,
		"_gl":          true,
		"mc_cid":       true,
		"mc_eid":       true,
		"msclkid":      true,
	}
)

// Norm is the canonical, hashable representation of a URL
// (spec.md §3, "StoryUrlNorm").
type Norm struct {
	Tokens    []string
	Canonical string
	// Hash is the low 63 bits of a deterministic 64-bit hash of Canonical,
	// stored signed because the index's fast field is a signed i64
	// (spec.md §3).
	Hash int64
}

// Tokenize produces the canonical token stream for a parsed URL
// (spec.md §4.1, rules 1-5).
func Tokenize(u *url.URL) ([]string, error) {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, ErrHostRequired
	}

	var tokens []string

	tokens = append(tokens, wwwPrefixRe.ReplaceAllString(host, ""))

	tokens = append(tokens, pathTokens(u.EscapedPath())...)
	tokens = append(tokens, queryTokens(u.RawQuery)...)

	if frag := u.Fragment; strings.HasPrefix(frag, "!") {
		tokens = append(tokens, frag[1:])
	}

	out := tokens[:0]

	for _, t := range tokens {
		if t != "" {
			out = append(out, t)
		}
	}

	return out, nil
}

func pathTokens(path string) []string {
	segments := strings.Split(path, "/")

	var nonEmpty []string

	for _, seg := range segments {
		if seg != "" {
			nonEmpty = append(nonEmpty, seg)
		}
	}

	if len(nonEmpty) == 0 {
		return nil
	}

	last := nonEmpty[len(nonEmpty)-1]
	if idx := strings.LastIndexByte(last, '.'); idx >= 0 {
		suffix := last[idx+1:]
		if len(suffix) <= 6 && extensionRe.MatchString(suffix) {
			nonEmpty[len(nonEmpty)-1] = last[:idx]
		}
	}

	return nonEmpty
}

func queryTokens(rawQuery string) []string {
	if rawQuery == "" {
		return nil
	}

	type pair struct{ k, v string }

	var pairs []pair

	for _, bit := range strings.Split(rawQuery, "&") {
		if bit == "" {
			continue
		}

		k, v, _ := strings.Cut(bit, "=")
		if ignoredQuery[k] {
			continue
		}

		pairs = append(pairs, pair{k: k, v: v})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}

		return pairs[i].v < pairs[j].v
	})

	out := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		out = append(out, p.k, p.v)
	}

	return out
}

// Normalize parses rawURL and returns its canonical Norm.
func Normalize(rawURL string) (Norm, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Norm{}, fmt.Errorf("storyurl: error parsing url %q: %w", rawURL, err)
	}

	return NormalizeParsed(u)
}

// NormalizeParsed canonicalizes an already-parsed URL.
func NormalizeParsed(u *url.URL) (Norm, error) {
	tokens, err := Tokenize(u)
	if err != nil {
		return Norm{}, err
	}

	canonical := strings.Join(tokens, ":")
	if len(tokens) > 0 {
		canonical += ":"
	}

	return Norm{
		Tokens:    tokens,
		Canonical: canonical,
		Hash:      hashCanonical(canonical),
	}, nil
}

// hashCanonical returns the low 63 bits of xxhash64(canonical), as a signed
// int64 (spec.md §3: "the low 63 bits of a deterministic non-cryptographic
// hash of the token string").
func hashCanonical(canonical string) int64 {
	h := xxhash.Sum64String(canonical)

	return int64(h &^ (1 << 63))
}
