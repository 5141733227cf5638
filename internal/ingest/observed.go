package ingest

import (
	"container/heap"
	"sync"
)

// observedCacheSize bounds the number of distinct VAA sequence numbers
// remembered for deduplication.
const observedCacheSize = 1000

// seqHeap is a min-heap of sequence numbers, letting ObservedVAASeqs find
// and drop the smallest entry in O(log n) on overflow.
type seqHeap []uint64

func (h seqHeap) Len() int            { return len(h) }
func (h seqHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h seqHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *seqHeap) Push(x interface{}) { *h = append(*h, x.(uint64)) }
func (h *seqHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// ObservedVAASeqs is a bounded, deduplicating set of VAA sequence numbers.
// On overflow it evicts the numerically smallest sequence. That only drops
// stale entries when upstream sequence numbers are non-decreasing; under
// reordering a recently evicted sequence can be re-admitted.
type ObservedVAASeqs struct {
	mu      sync.Mutex
	members map[uint64]bool
	order   seqHeap
}

// NewObservedVAASeqs returns an empty dedup set bounded at
// observedCacheSize entries.
func NewObservedVAASeqs() *ObservedVAASeqs {
	return &ObservedVAASeqs{members: make(map[uint64]bool)}
}

// Contains reports whether seq has already been observed.
func (o *ObservedVAASeqs) Contains(seq uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.members[seq]
}

// Insert records seq as observed, evicting the smallest known sequence if
// the set would otherwise exceed observedCacheSize. Inserting an
// already-known sequence is a no-op.
func (o *ObservedVAASeqs) Insert(seq uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.members[seq] {
		return
	}

	heap.Push(&o.order, seq)
	o.members[seq] = true

	if len(o.order) > observedCacheSize {
		smallest := heap.Pop(&o.order).(uint64)
		delete(o.members, smallest)
	}
}

// Len reports the number of currently remembered sequences.
func (o *ObservedVAASeqs) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.members)
}
