package storycollector_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/progscrape/progscrape-sub000/pkg/storycollector"
)

func TestAcceptsUntilFull(t *testing.T) {
	t.Parallel()

	c := storycollector.New[string](2)

	assert.True(t, c.WouldAccept(1))
	assert.True(t, c.Accept(1, "a"))
	assert.True(t, c.Accept(2, "b"))
	assert.Equal(t, 2, c.Len())
}

func TestRejectsWorseThanWorstWhenFull(t *testing.T) {
	t.Parallel()

	c := storycollector.New[string](2)
	c.Accept(5, "a")
	c.Accept(3, "b")

	assert.False(t, c.WouldAccept(1))
	assert.False(t, c.Accept(1, "c"))
	assert.Equal(t, 2, c.Len())
}

func TestReplacesWorstWhenBetter(t *testing.T) {
	t.Parallel()

	c := storycollector.New[string](2)
	c.Accept(5, "a")
	c.Accept(3, "b")

	assert.True(t, c.Accept(4, "c"))

	sorted := c.ToSorted()
	assert.Equal(t, []string{"a", "c"}, []string{sorted[0].Value, sorted[1].Value})
}

func TestToSortedDescendingByScore(t *testing.T) {
	t.Parallel()

	c := storycollector.New[int](5)
	c.Accept(1, 1)
	c.Accept(3, 3)
	c.Accept(2, 2)

	sorted := c.ToSorted()
	values := []int{sorted[0].Value, sorted[1].Value, sorted[2].Value}
	assert.Equal(t, []int{3, 2, 1}, values)
}

func TestNaNOrderedAsLeast(t *testing.T) {
	t.Parallel()

	c := storycollector.New[string](1)
	c.Accept(math.NaN(), "nan")

	assert.True(t, c.WouldAccept(0))
	assert.True(t, c.Accept(0, "zero"))

	sorted := c.ToSorted()
	assert.Equal(t, "zero", sorted[0].Value)
}

func TestTiesBrokenByInsertionOrder(t *testing.T) {
	t.Parallel()

	c := storycollector.New[string](3)
	c.Accept(1, "first")
	c.Accept(1, "second")
	c.Accept(1, "third")

	sorted := c.ToSorted()
	assert.Equal(t, []string{"first", "second", "third"}, []string{sorted[0].Value, sorted[1].Value, sorted[2].Value})
}
