package mapping

import (
	"sort"
	"strconv"
	"strings"

	"github.com/example/bookingsync/internal/reservation"
)

// synonyms lists the leaf key names the fallback accepts per field, most
// specific first. Matching is case-insensitive and ignores '_' and '-'.
var synonyms = map[string][]string{
	reservation.FieldBookingReference: {"bookingreference", "confirmationcode", "reservationid", "bookingid", "confirmationnumber", "reference"},
	fieldFirstName:                    {"firstname", "givenname", "forename"},
	fieldLastName:                     {"lastname", "surname", "familyname"},
	fieldFullName:                     {"guestname", "fullname", "travelername", "customername"},
	reservation.FieldGuestEmail:       {"guestemail", "email", "emailaddress", "mail"},
	reservation.FieldGuestPhone:       {"guestphone", "phone", "phonenumber", "telephone", "mobile"},
	reservation.FieldPropertyName:     {"propertyname", "listingname", "unitname", "hotelname"},
	reservation.FieldPropertyID:       {"propertyid", "listingid", "unitid", "hotelid"},
	reservation.FieldDoorCode:         {"doorcode", "accesscode", "lockcode", "keycode"},
	reservation.FieldCheckinDate:      {"checkindate", "checkin", "arrivaldate", "arrival", "startdate"},
	reservation.FieldCheckoutDate:     {"checkoutdate", "checkout", "departuredate", "departure", "enddate"},
	reservation.FieldStatus:           {"status", "reservationstatus", "bookingstatus"},
}

// shallowFields only match at the top level or directly under an envelope
// key, so a nested guest.address never supplies a reference or status.
var shallowFields = map[string]bool{
	reservation.FieldBookingReference: true,
	reservation.FieldStatus:           true,
}

var envelopes = map[string]bool{"reservation": true, "booking": true, "data": true, "payload": true, "record": true}

func shallowKey(dotted string) bool {
	parts := strings.Split(dotted, ".")
	switch len(parts) {
	case 1:
		return true
	case 2:
		return envelopes[leafKey(parts[0])]
	}
	return false
}

// Flatten turns a nested record into dotted keys holding scalar strings.
// Array elements are addressed by index.
func Flatten(record map[string]any) map[string]string {
	out := make(map[string]string)
	flattenInto(out, "", record)
	return out
}

func flattenInto(out map[string]string, prefix string, v any) {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			flattenInto(out, joinKey(prefix, k), child)
		}
	case []any:
		for i, child := range node {
			flattenInto(out, joinKey(prefix, strconv.Itoa(i)), child)
		}
	default:
		if s, ok := scalarString(v); ok && s != "" && prefix != "" {
			out[prefix] = s
		}
	}
}

func joinKey(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + "." + k
}

func leafKey(dotted string) string {
	if i := strings.LastIndexByte(dotted, '.'); i >= 0 {
		dotted = dotted[i+1:]
	}
	return strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(dotted))
}

// fillFromFlat sets every still-empty entry of raw from flat, using the
// synonym lists. Shallower keys win over deeper ones, then lexical order.
func fillFromFlat(raw map[string]string, flat map[string]string) {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		di, dj := strings.Count(keys[i], "."), strings.Count(keys[j], ".")
		if di != dj {
			return di < dj
		}
		return keys[i] < keys[j]
	})

	for field, names := range synonyms {
		if raw[field] != "" {
			continue
		}
	search:
		for _, name := range names {
			for _, k := range keys {
				if shallowFields[field] && !shallowKey(k) {
					continue
				}
				if leafKey(k) == name {
					raw[field] = flat[k]
					break search
				}
			}
		}
	}
}
