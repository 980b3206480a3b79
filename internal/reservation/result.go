package reservation

import (
	"fmt"
	"strings"
	"time"
)

// Action is the outcome class of one reconciliation pass.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSynced  Action = "synced"
	ActionSkipped Action = "skipped"
	ActionError   Action = "error"
)

// Result is produced by every single-record reconciliation.
type Result struct {
	Success          bool     `json:"success"`
	Action           Action   `json:"action"`
	Message          string   `json:"message"`
	UpdatedFields    []string `json:"updated_fields"`
	ReservationID    int64    `json:"reservation_id,omitempty"`
	BookingReference string   `json:"booking_reference,omitempty"`
	Errors           []string `json:"errors,omitempty"`
}

// Failed builds an error result.
func Failed(ref, message string, errs ...string) Result {
	return Result{
		Action:           ActionError,
		Message:          message,
		BookingReference: ref,
		Errors:           errs,
	}
}

// BatchSummary aggregates the results of one import run.
type BatchSummary struct {
	Success  bool     `json:"success"`
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Synced   int      `json:"synced"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
	Messages []string `json:"messages"`
}

// Total is the number of records that resolved to a bucket.
func (b BatchSummary) Total() int {
	return b.Created + b.Updated + b.Synced + b.Skipped
}

// Add files r into exactly one bucket. Errors count as skipped and add one
// line to Errors.
func (b *BatchSummary) Add(r Result) {
	switch r.Action {
	case ActionCreated:
		b.Created++
	case ActionUpdated:
		b.Updated++
	case ActionSynced:
		b.Synced++
	default:
		b.Skipped++
		msg := r.Message
		if r.BookingReference != "" {
			msg = fmt.Sprintf("%s: %s", r.BookingReference, msg)
		}
		if len(r.Errors) > 0 {
			msg = fmt.Sprintf("%s (%s)", msg, strings.Join(r.Errors, "; "))
		}
		b.Errors = append(b.Errors, msg)
	}
}

// Merge folds another summary in. Success is true if either succeeded.
func (b *BatchSummary) Merge(o BatchSummary) {
	b.Success = b.Success || o.Success
	b.Created += o.Created
	b.Updated += o.Updated
	b.Synced += o.Synced
	b.Skipped += o.Skipped
	b.Errors = append(b.Errors, o.Errors...)
	b.Messages = append(b.Messages, o.Messages...)
}

// String renders the counters in one line.
func (b BatchSummary) String() string {
	return fmt.Sprintf("%d created, %d updated, %d synced, %d skipped", b.Created, b.Updated, b.Synced, b.Skipped)
}

// ImportRun is the persisted record of one platform import.
type ImportRun struct {
	ID         int64        `json:"id"`
	Platform   string       `json:"platform"`
	Summary    BatchSummary `json:"summary"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}
