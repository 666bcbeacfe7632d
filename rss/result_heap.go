package rss

type rankedRecord struct {
	record ScoreRecord
	// Position of instance in order of first encounter
	order int
}

// recordHeap is a min-heap of records by score, ties broken by order of first encounter.
// Push/Pop follow container/heap but take *rankedRecord directly, no interface{} round trip.

type recordHeap []*rankedRecord

func (h recordHeap) Len() int { return len(h) }
func (h recordHeap) Less(i, j int) bool {
	if h[i].record.Score != h[j].record.Score {
		return h[i].record.Score < h[j].record.Score
	}
	return h[i].order < h[j].order
}
func (h recordHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// Push pushes the element x onto the heap.
// The complexity is O(log n) where n = h.Len().
func (h *recordHeap) Push(x *rankedRecord) {
	*h = append(*h, x)
	h.up(h.Len() - 1)
}

// Pop removes and returns the minimum element (according to Less) from the heap.
// The complexity is O(log n) where n = h.Len().
func (h *recordHeap) Pop() *rankedRecord {
	n := h.Len() - 1
	h.Swap(0, n)
	h.down(0, n)
	last := (*h)[n]
	*h = (*h)[:n]
	return last
}

func (h recordHeap) up(j int) {
	for {
		i := (j - 1) / 2
		if i == j || !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		j = i
	}
}

func (h recordHeap) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h.Less(j2, j1) {
			j = j2
		}
		if !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		i = j
	}
	return i > i0
}
