package domain

import "time"

// DeadLetterKind distinguishes what kind of work item exhausted its retry
// budget: on final failure the event is parked in a dead-letter store
// with full context.
type DeadLetterKind string

const (
	DeadLetterEvent DeadLetterKind = "EVENT"
	DeadLetterClaim DeadLetterKind = "CLAIM"
	DeadLetterPropagation DeadLetterKind = "PROPAGATION"
)

// DeadLetter is a parked work item, grounded on the pack's gas-bank
// DeadLetter record shape (id + kind + payload + failure context).
type DeadLetter struct {
	ID         string
	Kind       DeadLetterKind
	UserID     string
	Payload    string // JSON-encoded original request
	Attempts   int
	LastError  string
	FailedAt   time.Time
}
