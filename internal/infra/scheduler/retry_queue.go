// Package scheduler provides the retry/backoff primitive the ledger uses
// for transient storage failures (errors for which domain.IsTransient
// reports true). It reuses
// the min-heap-backed retry queue (internal/infra/dsa.PriorityQueue) for
// O(log n) scheduling with exponential backoff and starvation prevention;
// the node-affinity hash ring this was originally paired with is dropped
// since the reward engine runs as a single logical writer, not a
// multi-node task scheduler.
package scheduler

import (
	"sync"
	"time"

	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/infra/dsa"
)

// RetryConfig configures the retry queue behavior.
type RetryConfig struct {
	MaxRetries    int           // Maximum retry attempts before dead-lettering
	BaseDelay     time.Duration // Initial backoff delay (doubles each retry)
	MaxDelay      time.Duration // Cap on backoff delay
	BoostInterval time.Duration // Starvation prevention: boost every N
}

// DefaultRetryConfig returns production retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    5,
		BaseDelay:     1 * time.Second,
		MaxDelay:      60 * time.Second,
		BoostInterval: 5 * time.Minute,
	}
}

// RetryEntry tracks a failed work item's retry state. Priority 0 is most
// urgent (claims outrank ordinary event credits, matching 's
// "claim failures ... client retries" being user-visible).
type RetryEntry struct {
	Kind      domain.DeadLetterKind
	UserID    string
	Payload   string
	Priority  int
	Attempt   int       // Current retry attempt (0 = first try)
	NextRetry time.Time // Earliest time this can be retried
	FailedAt  time.Time // When the last failure occurred
	Error     string    // Last failure reason
}

// RetryQueue schedules retries with exponential backoff and starvation
// prevention, backed by dsa.PriorityQueue.
type RetryQueue struct {
	mu     sync.Mutex
	config RetryConfig
	heap   *dsa.PriorityQueue

	totalRetries   int64
	totalExhausted int64 // items that exceeded MaxRetries -> dead-lettered
}

// NewRetryQueue creates a retry queue backed by a DSA priority queue.
func NewRetryQueue(cfg RetryConfig) *RetryQueue {
	return &RetryQueue{
		config: cfg,
		heap: dsa.NewPriorityQueue(dsa.PriorityQueueConfig{
			BoostInterval: cfg.BoostInterval,
			MaxBoost:      2,
		}),
	}
}

// ScheduleRetry adds a failed work item to the retry queue with exponential
// backoff. Returns false once the item has exceeded MaxRetries — the caller
// must then park it in the dead-letter store (domain.DeadLetter).
func (rq *RetryQueue) ScheduleRetry(entry RetryEntry) bool {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	entry.Attempt++
	if entry.Attempt > rq.config.MaxRetries {
		rq.totalExhausted++
		return false
	}

	delay := rq.config.BaseDelay
	for i := 1; i < entry.Attempt; i++ {
		delay *= 2
		if delay > rq.config.MaxDelay {
			delay = rq.config.MaxDelay
			break
		}
	}

	entry.NextRetry = time.Now().Add(delay)
	entry.FailedAt = time.Now()

	retryPriority := entry.Priority + entry.Attempt

	rq.heap.Push(dsa.HeapItem{
		Key:         entry.UserID,
		Priority:    retryPriority,
		SubmittedAt: entry.FailedAt,
		Value:       entry,
	})

	rq.totalRetries++
	return true
}

// NextReady returns the next work item ready to be retried, if any.
func (rq *RetryQueue) NextReady() (*RetryEntry, bool) {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	item, ok := rq.heap.Peek()
	if !ok {
		return nil, false
	}

	entry, ok := item.Value.(RetryEntry)
	if !ok {
		rq.heap.Pop()
		return nil, false
	}

	if time.Now().Before(entry.NextRetry) {
		return nil, false
	}

	rq.heap.Pop()
	return &entry, true
}

// DrainReady drains all ready-to-retry work items, in priority order.
func (rq *RetryQueue) DrainReady() []RetryEntry {
	var ready []RetryEntry
	for {
		entry, ok := rq.NextReady()
		if !ok {
			break
		}
		ready = append(ready, *entry)
	}
	return ready
}

// Len returns the number of work items pending retry.
func (rq *RetryQueue) Len() int {
	return rq.heap.Len()
}

// RetryStats holds retry queue statistics.
type RetryStats struct {
	PendingRetries int   `json:"pending_retries"`
	TotalRetries   int64 `json:"total_retries"`
	TotalExhausted int64 `json:"total_exhausted"`
}

// RetryStats returns current retry queue statistics.
func (rq *RetryQueue) RetryStats() RetryStats {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	return RetryStats{
		PendingRetries: rq.heap.Len(),
		TotalRetries:   rq.totalRetries,
		TotalExhausted: rq.totalExhausted,
	}
}
