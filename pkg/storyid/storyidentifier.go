package storyid

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/progscrape/progscrape-sub000/pkg/shard"
)

// ErrInvalidStoryIdentifier is returned when a base64-encoded
// StoryIdentifier can't be decoded or parsed (spec.md §3, §6).
var ErrInvalidStoryIdentifier = errors.New("storyid: invalid story identifier")

// StoryIdentifier is a story's durable, round-trippable key:
// (year, month, day, normalized-url string) (spec.md §3).
type StoryIdentifier struct {
	Year    int
	Month   time.Month
	Day     int
	URLNorm string
}

// NewFromDate builds a StoryIdentifier from a date and a normalized URL
// canonical string.
func NewFromDate(d time.Time, urlNorm string) StoryIdentifier {
	d = d.UTC()

	return StoryIdentifier{Year: d.Year(), Month: d.Month(), Day: d.Day(), URLNorm: urlNorm}
}

// Shard returns the shard this identifier's (year, month) falls in.
func (id StoryIdentifier) Shard() shard.Shard {
	return shard.FromYearMonth(id.Year, id.Month)
}

// raw renders the pre-encoding "Y:M:D:norm" string (spec.md §6).
func (id StoryIdentifier) raw() string {
	return fmt.Sprintf("%d:%d:%d:%s", id.Year, int(id.Month), id.Day, id.URLNorm)
}

// Base64 returns the URL-safe, unpadded base64 wire form of the identifier.
func (id StoryIdentifier) Base64() string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.raw()))
}

// String is an alias for Base64, satisfying fmt.Stringer.
func (id StoryIdentifier) String() string {
	return id.Base64()
}

// ParseBase64 decodes and parses a StoryIdentifier's base64 wire form.
func ParseBase64(s string) (StoryIdentifier, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return StoryIdentifier{}, fmt.Errorf("%w: %w", ErrInvalidStoryIdentifier, err)
	}

	parts := strings.SplitN(string(raw), ":", 4)
	if len(parts) != 4 {
		return StoryIdentifier{}, fmt.Errorf("%w: %q", ErrInvalidStoryIdentifier, s)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return StoryIdentifier{}, fmt.Errorf("%w: %w", ErrInvalidStoryIdentifier, err)
	}

	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return StoryIdentifier{}, fmt.Errorf("%w: %w", ErrInvalidStoryIdentifier, err)
	}

	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return StoryIdentifier{}, fmt.Errorf("%w: %w", ErrInvalidStoryIdentifier, err)
	}

	return StoryIdentifier{Year: year, Month: time.Month(month), Day: day, URLNorm: parts[3]}, nil
}
