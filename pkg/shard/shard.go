// Package shard defines the year-month partitioning unit shared by the
// story index and the raw scrape store (spec.md §3, "Shard").
package shard

import (
	"fmt"
	"time"
)

// Shard is a totally ordered ordinal encoding of (year, month) as
// year*12 + (month-1), stored as an int32. Shards compare with the regular
// integer operators.
type Shard int32

// Min and Max bound the range of shards this module can represent.
const (
	Min Shard = -1 << 30
	Max Shard = 1<<30 - 1
)

// FromDate returns the shard containing d, using d's UTC year and month.
func FromDate(d time.Time) Shard {
	d = d.UTC()

	return Shard(int32(d.Year())*12 + int32(d.Month()) - 1)
}

// FromYearMonth returns the shard for an explicit (year, month) pair.
func FromYearMonth(year int, month time.Month) Shard {
	return Shard(int32(year)*12 + int32(month) - 1)
}

// Year returns the shard's year.
func (s Shard) Year() int {
	return int(s) / 12
}

// Month returns the shard's month.
func (s Shard) Month() time.Month {
	m := int(s) % 12
	if m < 0 {
		m += 12
	}

	return time.Month(m + 1)
}

// PlusMonths returns the shard n months after s (n may be negative).
func (s Shard) PlusMonths(n int) Shard {
	return Shard(int32(s) + int32(n))
}

// SubMonths returns the shard n months before s.
func (s Shard) SubMonths(n int) Shard {
	return s.PlusMonths(-n)
}

// String renders the shard as "YYYY-MM", the on-disk directory name
// (spec.md §6).
func (s Shard) String() string {
	return fmt.Sprintf("%04d-%02d", s.Year(), int(s.Month()))
}

// Parse parses a "YYYY-MM" string back into a Shard.
func Parse(s string) (Shard, error) {
	var year, month int

	if _, err := fmt.Sscanf(s, "%04d-%02d", &year, &month); err != nil {
		return 0, fmt.Errorf("error parsing shard %q: %w", s, err)
	}

	if month < 1 || month > 12 {
		return 0, fmt.Errorf("error parsing shard %q: month %d out of range", s, month)
	}

	return FromYearMonth(year, time.Month(month)), nil
}

// Range describes the known [Min, Max] extent of shards present on disk.
// A Range from NewEmptyRange represents "nothing written yet"; the zero
// value is not empty (it holds shard 0 only).
type Range struct {
	Min, Max Shard

	empty bool
}

// NewEmptyRange returns a Range with no shards in it.
func NewEmptyRange() Range {
	return Range{empty: true}
}

// Empty reports whether the range has no shards.
func (r Range) Empty() bool {
	return r.empty
}

// Expand grows the range to include s, returning the updated range.
func (r Range) Expand(s Shard) Range {
	if r.empty {
		return Range{Min: s, Max: s}
	}

	if s < r.Min {
		r.Min = s
	}

	if s > r.Max {
		r.Max = s
	}

	return r
}

// Contains reports whether s falls within the known range.
func (r Range) Contains(s Shard) bool {
	if r.empty {
		return false
	}

	return s >= r.Min && s <= r.Max
}
