package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopK_ExtractsInDescendingOrder(t *testing.T) {
	h := NewTopK(0)
	for _, c := range []Candidate{
		{ID: "a", Score: 0.2},
		{ID: "b", Score: 0.9},
		{ID: "c", Score: 0.5},
		{ID: "d", Score: 0.7},
	} {
		h.Push(c)
	}

	var got []string
	for {
		c, ok := h.Pop()
		if !ok {
			break
		}
		got = append(got, c.ID)
	}
	assert.Equal(t, []string{"b", "d", "c", "a"}, got)
}

func TestTopK_EqualScoresBreakByID(t *testing.T) {
	h := NewTopK(4)
	h.Push(Candidate{ID: "z", Score: 0.5})
	h.Push(Candidate{ID: "a", Score: 0.5})
	h.Push(Candidate{ID: "m", Score: 0.5})

	first, ok := h.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", first.ID)
	second, _ := h.Pop()
	assert.Equal(t, "m", second.ID)
	third, _ := h.Pop()
	assert.Equal(t, "z", third.ID)
}

func TestTopK_PopEmpty(t *testing.T) {
	h := NewTopK(0)
	_, ok := h.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())
}

func TestTopK_InterleavedPushPop(t *testing.T) {
	h := NewTopK(0)
	h.Push(Candidate{ID: "a", Score: 0.3})
	h.Push(Candidate{ID: "b", Score: 0.6})

	c, ok := h.Pop()
	require.True(t, ok)
	assert.Equal(t, "b", c.ID)

	h.Push(Candidate{ID: "c", Score: 0.9})
	c, _ = h.Pop()
	assert.Equal(t, "c", c.ID)
	c, _ = h.Pop()
	assert.Equal(t, "a", c.ID)
}
