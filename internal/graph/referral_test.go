package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillloop/skillloop-server/internal/model"
)

func edges(pairs ...[2]string) []model.Referral {
	out := make([]model.Referral, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, model.Referral{ReferrerID: p[0], RefereeID: p[1]})
	}
	return out
}

func TestReach_CycleTerminates(t *testing.T) {
	g := New(edges([2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "A"}))

	res := g.Reach("A", 5)
	assert.Equal(t, 3, res.NodeCount)
	assert.Equal(t, 2, res.Reach)
	assert.Equal(t, map[int]int{0: 1, 1: 1, 2: 1}, res.Levels)
	assert.Equal(t, 2, res.MaxDepth)
}

func TestReach_LevelDistribution(t *testing.T) {
	g := New(edges(
		[2]string{"root", "a"},
		[2]string{"root", "b"},
		[2]string{"a", "c"},
		[2]string{"b", "d"},
		[2]string{"c", "e"},
	))

	res := g.Reach("root", 10)
	assert.Equal(t, 6, res.NodeCount)
	assert.Equal(t, map[int]int{0: 1, 1: 2, 2: 2, 3: 1}, res.Levels)
	assert.Equal(t, 3, res.MaxDepth)
}

func TestReach_MaxDepthStopsExpansion(t *testing.T) {
	g := New(edges(
		[2]string{"a", "b"},
		[2]string{"b", "c"},
		[2]string{"c", "d"},
	))

	res := g.Reach("a", 2)
	// d sits at depth 3 and must not be enqueued.
	assert.Equal(t, 3, res.NodeCount)
	assert.Equal(t, map[int]int{0: 1, 1: 1, 2: 1}, res.Levels)
}

func TestReach_IsolatedStart(t *testing.T) {
	g := New(edges([2]string{"x", "y"}))

	res := g.Reach("lonely", 3)
	assert.Equal(t, 1, res.NodeCount)
	assert.Equal(t, 0, res.Reach)
	assert.Equal(t, map[int]int{0: 1}, res.Levels)
}

func TestReach_DiamondCountsOnce(t *testing.T) {
	g := New(edges(
		[2]string{"a", "b"},
		[2]string{"a", "c"},
		[2]string{"b", "d"},
		[2]string{"c", "d"},
	))

	res := g.Reach("a", 5)
	assert.Equal(t, 4, res.NodeCount)
	assert.Equal(t, map[int]int{0: 1, 1: 2, 2: 1}, res.Levels)
}

func TestFindPath_ReturnsChain(t *testing.T) {
	g := New(edges(
		[2]string{"a", "b"},
		[2]string{"b", "c"},
		[2]string{"c", "d"},
	))

	path := g.FindPath("a", "d")
	assert.Equal(t, []string{"a", "b", "c", "d"}, path)
}

func TestFindPath_BacktracksDeadEnds(t *testing.T) {
	// a -> dead ends first, then the live branch.
	g := New(edges(
		[2]string{"a", "dead"},
		[2]string{"a", "b"},
		[2]string{"b", "target"},
	))

	path := g.FindPath("a", "target")
	require.NotNil(t, path)
	assert.Equal(t, []string{"a", "b", "target"}, path)
}

func TestFindPath_Unreachable(t *testing.T) {
	g := New(edges([2]string{"a", "b"}))
	assert.Nil(t, g.FindPath("a", "zzz"))
}

func TestFindPath_CycleSafe(t *testing.T) {
	g := New(edges(
		[2]string{"a", "b"},
		[2]string{"b", "a"},
		[2]string{"b", "c"},
	))
	path := g.FindPath("a", "c")
	assert.Equal(t, []string{"a", "b", "c"}, path)
}

func TestFindPath_StartEqualsTarget(t *testing.T) {
	g := New(nil)
	assert.Equal(t, []string{"self"}, g.FindPath("self", "self"))
}
