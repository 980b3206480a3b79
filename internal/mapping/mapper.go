// Package mapping turns heterogeneous platform payloads into canonical
// reservation fields.
package mapping

import (
	"strings"

	"github.com/example/bookingsync/internal/hooks"
	"github.com/example/bookingsync/internal/reservation"
	"github.com/example/bookingsync/internal/status"
)

// Mapped is the output of one mapping pass.
type Mapped struct {
	Fields    reservation.Fields
	Snapshot  map[string]string
	RawStatus string
}

// BookingReference returns the mapped reference, not yet normalized.
func (m Mapped) BookingReference() string {
	return m.Fields.Get(reservation.FieldBookingReference)
}

type Option func(*Mapper)

// WithPhoneSanitizer replaces the built-in character filter.
func WithPhoneSanitizer(p PhoneSanitizer) Option {
	return func(m *Mapper) { m.phone = p }
}

// WithHooks routes status normalization through h.
func WithHooks(h *hooks.Hooks) Option {
	return func(m *Mapper) { m.statuses = status.NewNormalizer(h) }
}

// WithFallback enables the flattened synonym lookup for the given platforms.
func WithFallback(platforms ...string) Option {
	return func(m *Mapper) {
		for _, p := range platforms {
			m.fallback[reservation.NormalizePlatform(p)] = true
		}
	}
}

type Mapper struct {
	phone    PhoneSanitizer
	statuses *status.Normalizer
	fallback map[string]bool
}

// New returns a Mapper. The generic platform uses the fallback by default.
func New(opts ...Option) *Mapper {
	m := &Mapper{
		statuses: status.NewNormalizer(nil),
		fallback: map[string]bool{PlatformGeneric: true},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map reads the canonical fields of record using platform's path table.
func (m *Mapper) Map(platform string, record map[string]any) Mapped {
	platform = reservation.NormalizePlatform(platform)
	table := TableFor(platform)

	raw := make(map[string]string, len(table))
	for field, candidates := range table {
		raw[field] = FirstOf(record, candidates, "")
	}
	if m.fallback[platform] {
		fillFromFlat(raw, Flatten(record))
	}

	fields := reservation.Fields{
		reservation.FieldBookingReference: raw[reservation.FieldBookingReference],
		reservation.FieldGuestName:        guestName(raw),
		reservation.FieldGuestEmail:       strings.ToLower(raw[reservation.FieldGuestEmail]),
		reservation.FieldGuestPhone:       m.sanitizePhone(raw[reservation.FieldGuestPhone]),
		reservation.FieldPropertyName:     raw[reservation.FieldPropertyName],
		reservation.FieldPropertyID:       raw[reservation.FieldPropertyID],
		reservation.FieldDoorCode:         raw[reservation.FieldDoorCode],
		reservation.FieldCheckinDate:      NormalizeDate(raw[reservation.FieldCheckinDate]),
		reservation.FieldCheckoutDate:     NormalizeDate(raw[reservation.FieldCheckoutDate]),
	}

	// A blank token stays blank so updates leave the stored status alone.
	rawStatus := raw[reservation.FieldStatus]
	if rawStatus != "" {
		fields[reservation.FieldStatus] = string(m.statuses.Normalize(platform, rawStatus))
	} else {
		fields[reservation.FieldStatus] = ""
	}

	return Mapped{
		Fields:    fields,
		Snapshot:  Snapshot(fields, rawStatus),
		RawStatus: rawStatus,
	}
}

func guestName(raw map[string]string) string {
	name := strings.TrimSpace(raw[fieldFirstName] + " " + raw[fieldLastName])
	if name == "" {
		name = raw[fieldFullName]
	}
	return name
}

func (m *Mapper) sanitizePhone(raw string) string {
	if raw == "" {
		return ""
	}
	if m.phone != nil {
		return m.phone.SanitizePhone(raw)
	}
	return SanitizePhone(raw)
}
