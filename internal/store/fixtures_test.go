package store

import (
	"github.com/example/bookingsync/internal/mapping"
	"github.com/example/bookingsync/internal/reservation"
)

func mappedFixture(ref string) mapping.Mapped {
	fields := reservation.Fields{
		reservation.FieldBookingReference: ref,
		reservation.FieldGuestEmail:       "guest@example.com",
		reservation.FieldStatus:           string(reservation.StatusConfirmed),
	}
	return mapping.Mapped{Fields: fields, RawStatus: "accepted", Snapshot: mapping.Snapshot(fields, "accepted")}
}
