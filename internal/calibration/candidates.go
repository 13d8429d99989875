package calibration

import (
	"container/heap"
	"sort"
)

// Candidate is one evaluated point of the search space.
type Candidate struct {
	Values    [][]float64 `json:"values"`
	Score     float64     `json:"score"`
	Iteration int         `json:"iteration"`
}

// candidateHeap orders candidates worst-first so the leaderboard can evict
// its weakest entry cheaply.
type candidateHeap []Candidate

// Len returns the number of candidates on the heap.
func (h candidateHeap) Len() int { return len(h) }

// Less compares two candidates, higher scores first.
func (h candidateHeap) Less(i, j int) bool { return h[i].Score > h[j].Score }

// Swap swaps two candidates in the heap.
func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// Push adds a candidate to the heap.
func (h *candidateHeap) Push(x any) { *h = append(*h, x.(Candidate)) }

// Pop removes and returns the worst candidate from the heap.
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// Leaderboard keeps the best k candidates seen during a search.
type Leaderboard struct {
	heap     candidateHeap
	capacity int
}

// NewLeaderboard creates a leaderboard holding at most capacity candidates.
func NewLeaderboard(capacity int) *Leaderboard {
	if capacity < 1 {
		capacity = 1
	}
	return &Leaderboard{capacity: capacity}
}

// Add records a candidate, evicting the worst when over capacity.
func (l *Leaderboard) Add(c Candidate) {
	heap.Push(&l.heap, c)
	if l.heap.Len() > l.capacity {
		heap.Pop(&l.heap)
	}
}

// Len returns the number of candidates on the board.
func (l *Leaderboard) Len() int {
	return l.heap.Len()
}

// Best returns the lowest-scoring candidate on the board.
func (l *Leaderboard) Best() (Candidate, bool) {
	if l.heap.Len() == 0 {
		return Candidate{}, false
	}
	best := l.heap[0]
	for _, c := range l.heap[1:] {
		if c.Score < best.Score {
			best = c
		}
	}
	return best, true
}

// Sorted returns the board's candidates, best first.
func (l *Leaderboard) Sorted() []Candidate {
	out := make([]Candidate, len(l.heap))
	copy(out, l.heap)
	sort.Slice(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out
}
