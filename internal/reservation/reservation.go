package reservation

import (
	"encoding/json"
	"strings"
	"time"
)

// TimestampLayout is the fixed representation for check-in/check-out values.
const TimestampLayout = "2006-01-02 15:04:05"

// Canonical field keys.
const (
	FieldBookingReference = "booking_reference"
	FieldGuestName        = "guest_name"
	FieldGuestEmail       = "guest_email"
	FieldGuestPhone       = "guest_phone"
	FieldPropertyName     = "property_name"
	FieldPropertyID       = "property_id"
	FieldDoorCode         = "door_code"
	FieldCheckinDate      = "checkin_date"
	FieldCheckoutDate     = "checkout_date"
	FieldStatus           = "status"

	// SnapshotRawStatus holds the unmapped status token inside a snapshot.
	SnapshotRawStatus = "raw_status"
)

// FieldNames lists the canonical fields in storage order.
var FieldNames = []string{
	FieldBookingReference,
	FieldGuestName,
	FieldGuestEmail,
	FieldGuestPhone,
	FieldPropertyName,
	FieldPropertyID,
	FieldDoorCode,
	FieldCheckinDate,
	FieldCheckoutDate,
	FieldStatus,
}

// Fields is a canonical field set keyed by the Field* constants.
type Fields map[string]string

// Get returns the trimmed value for key.
func (f Fields) Get(key string) string {
	if f == nil {
		return ""
	}
	return strings.TrimSpace(f[key])
}

// NonEmpty returns the keys with a non-blank value, in FieldNames order.
func (f Fields) NonEmpty() []string {
	var out []string
	for _, k := range FieldNames {
		if f.Get(k) != "" {
			out = append(out, k)
		}
	}
	return out
}

func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// PlatformSnapshot is the point-in-time audit record for one platform.
type PlatformSnapshot struct {
	LastSynced   time.Time         `json:"last_synced"`
	Snapshot     map[string]string `json:"snapshot"`
	SyncedFields []string          `json:"synced_fields,omitempty"`
}

// SyncState holds one snapshot slot per platform key.
type SyncState map[string]PlatformSnapshot

func (s SyncState) Marshal() ([]byte, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

func UnmarshalSyncState(b []byte) (SyncState, error) {
	s := SyncState{}
	if len(b) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Reservation is the canonical persisted record.
type Reservation struct {
	ID               int64     `json:"id"`
	Platform         string    `json:"platform"`
	BookingReference string    `json:"booking_reference"`
	GuestName        string    `json:"guest_name"`
	GuestEmail       string    `json:"guest_email"`
	GuestPhone       string    `json:"guest_phone"`
	PropertyName     string    `json:"property_name"`
	PropertyID       string    `json:"property_id"`
	DoorCode         string    `json:"door_code"`
	CheckinDate      string    `json:"checkin_date"`
	CheckoutDate     string    `json:"checkout_date"`
	Status           Status    `json:"status"`
	SyncState        SyncState `json:"sync_state"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Field returns the value stored under a canonical key.
func (r *Reservation) Field(key string) string {
	switch key {
	case FieldBookingReference:
		return r.BookingReference
	case FieldGuestName:
		return r.GuestName
	case FieldGuestEmail:
		return r.GuestEmail
	case FieldGuestPhone:
		return r.GuestPhone
	case FieldPropertyName:
		return r.PropertyName
	case FieldPropertyID:
		return r.PropertyID
	case FieldDoorCode:
		return r.DoorCode
	case FieldCheckinDate:
		return r.CheckinDate
	case FieldCheckoutDate:
		return r.CheckoutDate
	case FieldStatus:
		return string(r.Status)
	}
	return ""
}

// SetField writes value under a canonical key. Unknown keys are ignored.
func (r *Reservation) SetField(key, value string) {
	switch key {
	case FieldBookingReference:
		r.BookingReference = value
	case FieldGuestName:
		r.GuestName = value
	case FieldGuestEmail:
		r.GuestEmail = value
	case FieldGuestPhone:
		r.GuestPhone = value
	case FieldPropertyName:
		r.PropertyName = value
	case FieldPropertyID:
		r.PropertyID = value
	case FieldDoorCode:
		r.DoorCode = value
	case FieldCheckinDate:
		r.CheckinDate = value
	case FieldCheckoutDate:
		r.CheckoutDate = value
	case FieldStatus:
		r.Status = Status(value)
	}
}

// Fields returns the canonical field view of the record.
func (r *Reservation) Fields() Fields {
	out := make(Fields, len(FieldNames))
	for _, k := range FieldNames {
		out[k] = r.Field(k)
	}
	return out
}

// NormalizeReference trims a booking reference and drops characters that are
// not safe to use in URLs, log lines or SQL identifiers.
func NormalizeReference(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-', r == '_', r == '.', r == ':', r == '/', r == '#':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePlatform lower-cases and trims a platform key.
func NormalizePlatform(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
