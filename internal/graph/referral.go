// Package graph analyzes the referral network. Edges are loaded from
// the store as a flat list and traversed in memory; the edge set is
// append-only and may contain cycles, so every traversal carries a
// visited set.
package graph

import "github.com/skillloop/skillloop-server/internal/model"

// Graph is a directed adjacency view over referral edges.
type Graph struct {
	adj map[string][]string
}

// New builds the adjacency map from referral edges.
func New(edges []model.Referral) *Graph {
	adj := make(map[string][]string, len(edges))
	for _, e := range edges {
		if e.ReferrerID == "" || e.RefereeID == "" {
			continue
		}
		adj[e.ReferrerID] = append(adj[e.ReferrerID], e.RefereeID)
	}
	return &Graph{adj: adj}
}

// ReachResult summarizes a breadth-first pass from one node.
type ReachResult struct {
	// Reach counts nodes reachable from the start, excluding the start.
	Reach int `json:"reach"`
	// NodeCount is Reach plus the start node itself.
	NodeCount int `json:"nodeCount"`
	// Levels maps depth to the number of nodes first seen at that
	// depth. Depth 0 is the start node.
	Levels map[int]int `json:"levelDistribution"`
	// MaxDepth is the deepest level reached.
	MaxDepth int `json:"maxDepth"`
}

// Reach runs a level-order traversal from startID, expanding no node at
// depth >= maxDepth. Each node is enqueued at most once; cycles cannot
// loop or double-count.
func (g *Graph) Reach(startID string, maxDepth int) ReachResult {
	type item struct {
		id    string
		depth int
	}

	visited := map[string]struct{}{startID: {}}
	queue := []item{{id: startID, depth: 0}}
	levels := map[int]int{}
	maxSeen := 0

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		levels[cur.depth]++
		if cur.depth > maxSeen {
			maxSeen = cur.depth
		}
		if cur.depth >= maxDepth {
			continue
		}
		for _, next := range g.adj[cur.id] {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, item{id: next, depth: cur.depth + 1})
		}
	}

	return ReachResult{
		Reach:     len(visited) - 1,
		NodeCount: len(visited),
		Levels:    levels,
		MaxDepth:  maxSeen,
	}
}

// FindPath runs a depth-first search with explicit backtracking and
// returns the first referral chain found from startID to targetID, both
// endpoints included. The path is not necessarily shortest. Returns nil
// when the target is unreachable.
func (g *Graph) FindPath(startID, targetID string) []string {
	visited := map[string]struct{}{}
	var path []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		if id == targetID {
			path = append(path, id)
			return true
		}
		visited[id] = struct{}{}
		path = append(path, id)
		for _, next := range g.adj[id] {
			if _, seen := visited[next]; seen {
				continue
			}
			if dfs(next) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}

	if dfs(startID) {
		return path
	}
	return nil
}
