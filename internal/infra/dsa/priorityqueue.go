// Package dsa provides the small data-structure building blocks the
// retry/dead-letter path needs. Only the starvation-aware priority queue is
// implemented here; the package has no hash ring or bloom filter.
package dsa

import (
	"container/heap"
	"sync"
	"time"
)

// HeapItem is one entry in the priority queue: a caller-supplied Key,
// numeric Priority (lower value = more urgent), SubmittedAt timestamp for
// FIFO tie-breaking and starvation boosting, and an opaque Value payload.
type HeapItem struct {
	Key         string
	Priority    int
	SubmittedAt time.Time
	Value       any

	index int // maintained by container/heap
}

// PriorityQueueConfig tunes starvation prevention: an item's effective
// priority improves by one level for every BoostInterval it has waited,
// capped at MaxBoost levels.
type PriorityQueueConfig struct {
	BoostInterval time.Duration
	MaxBoost      int
}

// DefaultPriorityQueueConfig returns sane defaults: a 5-minute boost
// interval, capped at 2 levels.
func DefaultPriorityQueueConfig() PriorityQueueConfig {
	return PriorityQueueConfig{BoostInterval: 5 * time.Minute, MaxBoost: 2}
}

// PriorityQueue is a concurrency-safe min-heap with starvation prevention
// and FIFO tie-breaking on equal effective priority.
type PriorityQueue struct {
	mu     sync.Mutex
	items  innerHeap
	config PriorityQueueConfig
	now    func() time.Time // overridable clock, for deterministic tests
}

// NewPriorityQueue creates an empty priority queue.
func NewPriorityQueue(cfg PriorityQueueConfig) *PriorityQueue {
	return &PriorityQueue{config: cfg, now: time.Now}
}

// effectivePriority applies the starvation boost: priority decreases (more
// urgent) by one level per BoostInterval elapsed, capped at MaxBoost.
func (pq *PriorityQueue) effectivePriority(it HeapItem) int {
	if pq.config.BoostInterval <= 0 {
		return it.Priority
	}
	waited := pq.now().Sub(it.SubmittedAt)
	boost := int(waited / pq.config.BoostInterval)
	if boost > pq.config.MaxBoost {
		boost = pq.config.MaxBoost
	}
	if boost < 0 {
		boost = 0
	}
	return it.Priority - boost
}

// Push adds an item to the queue.
func (pq *PriorityQueue) Push(item HeapItem) {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	pq.items.effective = pq.effectivePriority
	heap.Push(&pq.items, item)
}

// Pop removes and returns the item with the lowest effective priority,
// breaking ties by earliest SubmittedAt (FIFO).
func (pq *PriorityQueue) Pop() (HeapItem, bool) {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	if pq.items.Len() == 0 {
		return HeapItem{}, false
	}
	pq.items.effective = pq.effectivePriority
	heap.Init(&pq.items)
	it := heap.Pop(&pq.items).(HeapItem)
	return it, true
}

// Peek returns the next item without removing it.
func (pq *PriorityQueue) Peek() (HeapItem, bool) {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	if pq.items.Len() == 0 {
		return HeapItem{}, false
	}
	pq.items.effective = pq.effectivePriority
	heap.Init(&pq.items)
	return pq.items.list[0], true
}

// Len returns the number of items currently queued.
func (pq *PriorityQueue) Len() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return pq.items.Len()
}

// innerHeap implements container/heap.Interface. effective is re-assigned
// before every Init/Push/Pop so ordering always reflects the current clock.
type innerHeap struct {
	list      []HeapItem
	effective func(HeapItem) int
}

func (h innerHeap) Len() int { return len(h.list) }

func (h innerHeap) Less(i, j int) bool {
	pi, pj := h.effective(h.list[i]), h.effective(h.list[j])
	if pi != pj {
		return pi < pj
	}
	return h.list[i].SubmittedAt.Before(h.list[j].SubmittedAt)
}

func (h innerHeap) Swap(i, j int) {
	h.list[i], h.list[j] = h.list[j], h.list[i]
	h.list[i].index = i
	h.list[j].index = j
}

func (h *innerHeap) Push(x any) {
	it := x.(HeapItem)
	it.index = len(h.list)
	h.list = append(h.list, it)
}

func (h *innerHeap) Pop() any {
	old := h.list
	n := len(old)
	it := old[n-1]
	h.list = old[:n-1]
	return it
}
