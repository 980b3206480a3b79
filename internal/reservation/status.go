package reservation

// Status is the canonical reservation status vocabulary.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusApproved  Status = "approved"
)

var canonicalStatuses = map[Status]struct{}{
	StatusPending:   {},
	StatusConfirmed: {},
	StatusCancelled: {},
	StatusCompleted: {},
	StatusApproved:  {},
}

// Valid reports whether s belongs to the canonical set.
func (s Status) Valid() bool {
	_, ok := canonicalStatuses[s]
	return ok
}

// Statuses returns the canonical set in a stable order.
func Statuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusApproved}
}
