// Package storycollector implements C9: a bounded top-K container ordered
// by score, used to merge results from multiple shards (spec.md §4.9).
package storycollector

import "sort"

// Item pairs a score with the caller's payload.
type Item[T any] struct {
	Score float64
	Value T

	seq int
}

// Collector retains at most K items, ranked by score descending; NaN
// scores sort as least. Ties are broken by insertion order (spec.md §4.9).
type Collector[T any] struct {
	k     int
	items []Item[T]
	next  int
}

// New creates a collector bounded to k items.
func New[T any](k int) *Collector[T] {
	return &Collector[T]{k: k}
}

// WouldAccept is a cheap admission test: does score clear the current
// lowest-ranked retained item, or is the collector not yet full?
func (c *Collector[T]) WouldAccept(score float64) bool {
	if len(c.items) < c.k {
		return true
	}

	return less(c.worst(), score)
}

// Accept offers (score, value) to the collector; it is kept if it beats
// the current worst retained item or the collector isn't full yet.
func (c *Collector[T]) Accept(score float64, value T) bool {
	item := Item[T]{Score: score, Value: value, seq: c.next}
	c.next++

	if len(c.items) < c.k {
		c.items = append(c.items, item)

		return true
	}

	worstIdx := c.worstIndex()
	if !less(c.items[worstIdx].Score, score) {
		return false
	}

	c.items[worstIdx] = item

	return true
}

// ToSorted returns a copy of the retained items in descending score order
// (ties broken by original insertion order); the collector is unchanged.
func (c *Collector[T]) ToSorted() []Item[T] {
	out := make([]Item[T], len(c.items))
	copy(out, c.items)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].seq < out[j].seq
		}

		return greater(out[i].Score, out[j].Score)
	})

	return out
}

// Len reports how many items are currently retained.
func (c *Collector[T]) Len() int { return len(c.items) }

func (c *Collector[T]) worst() float64 {
	return c.items[c.worstIndex()].Score
}

func (c *Collector[T]) worstIndex() int {
	worst := 0

	for i := 1; i < len(c.items); i++ {
		if less(c.items[i].Score, c.items[worst].Score) {
			worst = i
		}
	}

	return worst
}

// less orders scores with NaN as least, matching spec.md §4.9's
// "NaNs ordered as least".
func less(a, b float64) bool {
	if isNaN(a) {
		return !isNaN(b)
	}

	if isNaN(b) {
		return false
	}

	return a < b
}

func greater(a, b float64) bool {
	return less(b, a)
}

func isNaN(f float64) bool {
	return f != f //nolint:staticcheck // explicit self-comparison NaN test, standard idiom
}
