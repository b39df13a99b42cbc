package scheduler

import (
	"testing"
	"time"

	"github.com/finova-network/reward-engine/internal/domain"
)

func TestRetryQueueScheduleAndDrain(t *testing.T) {
	rq := NewRetryQueue(RetryConfig{
		MaxRetries:    3,
		BaseDelay:     1 * time.Millisecond,
		MaxDelay:      100 * time.Millisecond,
		BoostInterval: 5 * time.Minute,
	})

	entry := RetryEntry{Kind: domain.DeadLetterEvent, UserID: "u1", Error: "timeout"}

	if ok := rq.ScheduleRetry(entry); !ok {
		t.Fatal("expected ScheduleRetry to succeed for first retry")
	}
	if rq.Len() != 1 {
		t.Fatalf("expected 1 pending retry, got %d", rq.Len())
	}

	time.Sleep(5 * time.Millisecond)

	ready := rq.DrainReady()
	if len(ready) != 1 {
		t.Fatalf("expected 1 ready retry, got %d", len(ready))
	}
	if ready[0].UserID != "u1" {
		t.Errorf("got user %q, want u1", ready[0].UserID)
	}
	if ready[0].Attempt != 1 {
		t.Errorf("attempt = %d, want 1", ready[0].Attempt)
	}
}

func TestRetryQueueMaxRetriesExhausted(t *testing.T) {
	rq := NewRetryQueue(RetryConfig{
		MaxRetries:    2,
		BaseDelay:     1 * time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BoostInterval: 5 * time.Minute,
	})

	entry := RetryEntry{Kind: domain.DeadLetterEvent, UserID: "u-exhaust"}

	if ok := rq.ScheduleRetry(entry); !ok {
		t.Fatal("retry 1 should succeed")
	}
	entry.Attempt = 1
	if ok := rq.ScheduleRetry(entry); !ok {
		t.Fatal("retry 2 should succeed")
	}
	entry.Attempt = 2
	if ok := rq.ScheduleRetry(entry); ok {
		t.Fatal("retry 3 should fail (exceeds MaxRetries=2)")
	}

	stats := rq.RetryStats()
	if stats.TotalExhausted != 1 {
		t.Errorf("exhausted = %d, want 1", stats.TotalExhausted)
	}
}

func TestRetryQueueExponentialBackoff(t *testing.T) {
	rq := NewRetryQueue(RetryConfig{
		MaxRetries:    5,
		BaseDelay:     10 * time.Millisecond,
		MaxDelay:      1 * time.Second,
		BoostInterval: 5 * time.Minute,
	})

	entry := RetryEntry{Kind: domain.DeadLetterClaim, UserID: "backoff-test"}
	rq.ScheduleRetry(entry)

	if _, ready := rq.NextReady(); ready {
		t.Error("item should not be ready immediately (10ms backoff)")
	}

	time.Sleep(15 * time.Millisecond)
	if _, ready := rq.NextReady(); !ready {
		t.Error("item should be ready after 15ms (10ms backoff)")
	}
}

func TestRetryQueuePriorityOrdering(t *testing.T) {
	rq := NewRetryQueue(RetryConfig{
		MaxRetries:    5,
		BaseDelay:     1 * time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BoostInterval: 5 * time.Minute,
	})

	rq.ScheduleRetry(RetryEntry{Kind: domain.DeadLetterEvent, UserID: "low", Priority: 4})
	rq.ScheduleRetry(RetryEntry{Kind: domain.DeadLetterClaim, UserID: "high", Priority: 0})

	time.Sleep(5 * time.Millisecond)

	ready := rq.DrainReady()
	if len(ready) != 2 {
		t.Fatalf("expected 2 ready, got %d", len(ready))
	}
	if ready[0].UserID != "high" {
		t.Errorf("first item should be 'high' (priority 0), got %q", ready[0].UserID)
	}
}

func TestRetryQueueEmptyQueue(t *testing.T) {
	rq := NewRetryQueue(DefaultRetryConfig())

	if _, ok := rq.NextReady(); ok {
		t.Error("empty queue should return not ready")
	}
	if ready := rq.DrainReady(); len(ready) != 0 {
		t.Errorf("empty drain should return 0 items, got %d", len(ready))
	}
}

func TestRetryQueueStats(t *testing.T) {
	rq := NewRetryQueue(RetryConfig{
		MaxRetries:    1,
		BaseDelay:     1 * time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BoostInterval: 5 * time.Minute,
	})

	rq.ScheduleRetry(RetryEntry{Kind: domain.DeadLetterEvent, UserID: "s1"})
	rq.ScheduleRetry(RetryEntry{Kind: domain.DeadLetterEvent, UserID: "s2", Attempt: 1})

	stats := rq.RetryStats()
	if stats.PendingRetries != 1 {
		t.Errorf("pending = %d, want 1", stats.PendingRetries)
	}
	if stats.TotalRetries != 1 {
		t.Errorf("total retries = %d, want 1", stats.TotalRetries)
	}
	if stats.TotalExhausted != 1 {
		t.Errorf("exhausted = %d, want 1", stats.TotalExhausted)
	}
}
