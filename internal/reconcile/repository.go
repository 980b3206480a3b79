package reconcile

import (
	"context"

	"github.com/example/bookingsync/internal/reservation"
)

// ApplyFunc computes the record to persist from the current one (nil when
// no record exists for the dedup key). It may be called more than once per
// upsert and must not keep state between calls.
type ApplyFunc func(existing *reservation.Reservation) (reservation.Reservation, error)

// Repository persists reservations. Every call is atomic.
type Repository interface {
	// FindByDedupKey returns internaltypes.ErrNotFound when absent.
	FindByDedupKey(ctx context.Context, platform, ref string) (reservation.Reservation, error)
	Get(ctx context.Context, id int64) (reservation.Reservation, error)
	Create(ctx context.Context, r reservation.Reservation) (int64, error)
	Update(ctx context.Context, r reservation.Reservation) error

	// UpsertByDedupKey reads the record for (platform, ref) under a lock,
	// runs apply and writes its output, all in one transaction. created
	// reports whether a new row was inserted.
	UpsertByDedupKey(ctx context.Context, platform, ref string, apply ApplyFunc) (rec reservation.Reservation, created bool, err error)
}

// Notifier is told about newly created reservations.
type Notifier interface {
	ReservationCreated(ctx context.Context, r reservation.Reservation) error
}
