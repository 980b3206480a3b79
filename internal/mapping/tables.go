package mapping

import "github.com/example/bookingsync/internal/reservation"

// Name-part pseudo fields. guest_name is assembled from these.
const (
	fieldFirstName = "first_name"
	fieldLastName  = "last_name"
	fieldFullName  = "full_name"
)

// Table maps each canonical (or name-part) field to its candidate paths, in
// priority order.
type Table map[string][]Path

func paths(exprs ...string) []Path {
	out := make([]Path, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, P(e))
	}
	return out
}

var airbnbTable = Table{
	reservation.FieldBookingReference: paths("confirmation_code", "reservation.confirmation_code", "code", "id"),
	fieldFirstName:                    paths("guest.first_name", "guest.firstName", "guest_first_name"),
	fieldLastName:                     paths("guest.last_name", "guest.lastName", "guest_last_name"),
	fieldFullName:                     paths("guest.full_name", "guest.name", "guest_name"),
	reservation.FieldGuestEmail:       paths("guest.email", "guest_email", "email"),
	reservation.FieldGuestPhone:       paths("guest.phone", "guest.phone_numbers.0", "guest_phone", "phone"),
	reservation.FieldPropertyName:     paths("listing.name", "listing_name", "property.name"),
	reservation.FieldPropertyID:       paths("listing.id", "listing_id", "property.id"),
	reservation.FieldDoorCode:         paths("door_code", "access.door_code", "check_in_instructions.door_code"),
	reservation.FieldCheckinDate:      paths("start_date", "check_in", "checkin_date", "arrival_date"),
	reservation.FieldCheckoutDate:     paths("end_date", "check_out", "checkout_date", "departure_date"),
	reservation.FieldStatus:           paths("status", "reservation_status", "status_type"),
}

var vrboTable = Table{
	reservation.FieldBookingReference: paths("reservationId", "reservation_id", "confirmationNumber", "confirmation_number", "id"),
	fieldFirstName:                    paths("traveler.firstName", "traveler.first_name", "guest.firstName"),
	fieldLastName:                     paths("traveler.lastName", "traveler.last_name", "guest.lastName"),
	fieldFullName:                     paths("traveler.name", "traveler.fullName", "guest.name", "guestName"),
	reservation.FieldGuestEmail:       paths("traveler.email", "guest.email", "email"),
	reservation.FieldGuestPhone:       paths("traveler.phone", "traveler.phoneNumber", "guest.phone", "phone"),
	reservation.FieldPropertyName:     paths("property.name", "propertyName", "unit.name", "listing.name"),
	reservation.FieldPropertyID:       paths("property.id", "propertyId", "unit.id", "listingId"),
	reservation.FieldDoorCode:         paths("doorCode", "door_code", "access.code"),
	reservation.FieldCheckinDate:      paths("arrivalDate", "arrival_date", "checkIn", "stay.arrival"),
	reservation.FieldCheckoutDate:     paths("departureDate", "departure_date", "checkOut", "stay.departure"),
	reservation.FieldStatus:           paths("status", "reservationStatus", "bookingStatus"),
}

var bookingComTable = Table{
	reservation.FieldBookingReference: paths("reservation_id", "reservation.id", "booking_id", "id"),
	fieldFirstName:                    paths("booker.first_name", "customer.first_name", "guest.first_name"),
	fieldLastName:                     paths("booker.last_name", "customer.last_name", "guest.last_name"),
	fieldFullName:                     paths("booker.name", "customer.name", "guest.name", "guest_name"),
	reservation.FieldGuestEmail:       paths("booker.email", "customer.email", "guest.email"),
	reservation.FieldGuestPhone:       paths("booker.telephone", "booker.phone", "customer.telephone", "customer.phone"),
	reservation.FieldPropertyName:     paths("hotel_name", "property.name", "hotel.name"),
	reservation.FieldPropertyID:       paths("hotel_id", "property.id", "hotel.id"),
	reservation.FieldDoorCode:         paths("door_code", "access_code"),
	reservation.FieldCheckinDate:      paths("checkin", "arrival_date", "check_in", "room_reservations.0.checkin"),
	reservation.FieldCheckoutDate:     paths("checkout", "departure_date", "check_out", "room_reservations.0.checkout"),
	reservation.FieldStatus:           paths("status", "reservation_status"),
}

// genericTable covers the common shapes seen across smaller channel managers.
var genericTable = Table{
	reservation.FieldBookingReference: paths("booking_reference", "confirmation_code", "reservation_id", "reservationId", "booking_id", "reference", "id"),
	fieldFirstName:                    paths("guest.first_name", "guest.firstName", "traveler.firstName", "customer.first_name", "first_name"),
	fieldLastName:                     paths("guest.last_name", "guest.lastName", "traveler.lastName", "customer.last_name", "last_name"),
	fieldFullName:                     paths("guest.name", "guest.full_name", "traveler.name", "customer.name", "guest_name", "name"),
	reservation.FieldGuestEmail:       paths("guest.email", "traveler.email", "customer.email", "guest_email", "email"),
	reservation.FieldGuestPhone:       paths("guest.phone", "traveler.phone", "customer.phone", "guest_phone", "phone"),
	reservation.FieldPropertyName:     paths("property.name", "listing.name", "property_name", "listing_name"),
	reservation.FieldPropertyID:       paths("property.id", "listing.id", "property_id", "listing_id"),
	reservation.FieldDoorCode:         paths("door_code", "access.door_code", "access_code"),
	reservation.FieldCheckinDate:      paths("checkin_date", "check_in", "checkin", "arrival_date", "start_date"),
	reservation.FieldCheckoutDate:     paths("checkout_date", "check_out", "checkout", "departure_date", "end_date"),
	reservation.FieldStatus:           paths("status", "reservation_status", "state"),
}

// PlatformGeneric is the table used for platforms without a dedicated one.
const PlatformGeneric = "generic"

var tables = map[string]Table{
	"airbnb":        airbnbTable,
	"vrbo":          vrboTable,
	"booking_com":   bookingComTable,
	PlatformGeneric: genericTable,
}

// TableFor returns the path table for platform, falling back to generic.
func TableFor(platform string) Table {
	if t, ok := tables[reservation.NormalizePlatform(platform)]; ok {
		return t
	}
	return genericTable
}
