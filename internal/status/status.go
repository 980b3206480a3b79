package status

import (
	"strings"

	"github.com/example/bookingsync/internal/hooks"
	"github.com/example/bookingsync/internal/reservation"
)

// platformStatuses maps platform-specific tokens (lower case) to canonical ones.
var platformStatuses = map[string]map[string]reservation.Status{
	"airbnb": {
		"accepted":          reservation.StatusConfirmed,
		"confirmed":         reservation.StatusConfirmed,
		"pending":           reservation.StatusPending,
		"inquiry":           reservation.StatusPending,
		"request":           reservation.StatusPending,
		"awaiting_payment":  reservation.StatusPending,
		"denied":            reservation.StatusCancelled,
		"declined":          reservation.StatusCancelled,
		"expired":           reservation.StatusCancelled,
		"cancelled":         reservation.StatusCancelled,
		"canceled_by_guest": reservation.StatusCancelled,
		"canceled_by_host":  reservation.StatusCancelled,
		"completed":         reservation.StatusCompleted,
		"checked_out":       reservation.StatusCompleted,
	},
	"vrbo": {
		"booked":      reservation.StatusConfirmed,
		"reserved":    reservation.StatusConfirmed,
		"confirmed":   reservation.StatusConfirmed,
		"tentative":   reservation.StatusPending,
		"inquiry":     reservation.StatusPending,
		"quote":       reservation.StatusPending,
		"approved":    reservation.StatusApproved,
		"declined":    reservation.StatusCancelled,
		"cancelled":   reservation.StatusCancelled,
		"stayed":      reservation.StatusCompleted,
		"checked_out": reservation.StatusCompleted,
	},
	"booking_com": {
		"new":         reservation.StatusConfirmed,
		"ok":          reservation.StatusConfirmed,
		"modified":    reservation.StatusConfirmed,
		"confirmed":   reservation.StatusConfirmed,
		"request":     reservation.StatusPending,
		"cancelled":   reservation.StatusCancelled,
		"no_show":     reservation.StatusCancelled,
		"checked_out": reservation.StatusCompleted,
		"completed":   reservation.StatusCompleted,
	},
}

// Normalizer translates raw platform status tokens into the canonical set.
// It is a total function: every input yields exactly one canonical status.
type Normalizer struct {
	hooks *hooks.Hooks
}

func NewNormalizer(h *hooks.Hooks) *Normalizer {
	return &Normalizer{hooks: h}
}

// Normalize returns the canonical status for raw as reported by platform.
func (n *Normalizer) Normalize(platform, raw string) reservation.Status {
	token := strings.ToLower(strings.TrimSpace(raw))
	out := lookup(reservation.NormalizePlatform(platform), token)
	if n != nil {
		out = Coerce(n.hooks.FinalStatus(platform, raw, out))
	}
	return out
}

// Normalize uses the built-in tables without hooks.
func Normalize(platform, raw string) reservation.Status {
	return (*Normalizer)(nil).Normalize(platform, raw)
}

// Table returns a copy of the mapping table for platform.
func Table(platform string) map[string]reservation.Status {
	src := platformStatuses[reservation.NormalizePlatform(platform)]
	out := make(map[string]reservation.Status, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func lookup(platform, token string) reservation.Status {
	if token == "" {
		return reservation.StatusPending
	}
	candidate := reservation.Status(token)
	if table, ok := platformStatuses[platform]; ok {
		if mapped, ok := table[token]; ok {
			candidate = mapped
		}
	}
	return Coerce(candidate)
}

// Coerce forces s into the canonical set; unknown values become pending.
func Coerce(s reservation.Status) reservation.Status {
	s = reservation.Status(strings.ToLower(strings.TrimSpace(string(s))))
	if s == "canceled" {
		s = reservation.StatusCancelled
	}
	if !s.Valid() {
		return reservation.StatusPending
	}
	return s
}
