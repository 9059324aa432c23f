package match

import "container/heap"

// Candidate is one scored pool member held by the selection heap.
type Candidate struct {
	ID    string
	Score float64
}

// TopK incrementally keeps candidates ordered by score so callers can
// extract the best few without sorting the whole pool. Ties on equal
// score break by ascending ID; the extraction order is therefore fully
// deterministic for identical inputs.
type TopK struct {
	h candidateHeap
}

// NewTopK returns an empty selection heap. sizeHint may be 0.
func NewTopK(sizeHint int) *TopK {
	t := &TopK{h: make(candidateHeap, 0, sizeHint)}
	heap.Init(&t.h)
	return t
}

// Push inserts a candidate in O(log n).
func (t *TopK) Push(c Candidate) {
	heap.Push(&t.h, c)
}

// Pop removes and returns the highest-scored candidate in O(log n).
// The second return is false when the heap is empty.
func (t *TopK) Pop() (Candidate, bool) {
	if t.h.Len() == 0 {
		return Candidate{}, false
	}
	return heap.Pop(&t.h).(Candidate), true
}

// Len reports the number of pending candidates.
func (t *TopK) Len() int { return t.h.Len() }

type candidateHeap []Candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score > h[j].Score
	}
	return h[i].ID < h[j].ID
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(Candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
