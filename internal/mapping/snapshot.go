package mapping

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/example/bookingsync/internal/reservation"
)

var stripPolicy = bluemonday.StrictPolicy()

// Angle brackets stay escaped so stripped text can never be read back as markup.
var displayEntities = strings.NewReplacer("&amp;", "&", "&#39;", "'", "&#34;", `"`, "&quot;", `"`)

// SanitizeText strips markup, including entity-encoded markup, and collapses
// whitespace.
func SanitizeText(s string) string {
	s = displayEntities.Replace(stripPolicy.Sanitize(html.UnescapeString(s)))
	return strings.Join(strings.Fields(s), " ")
}

// Snapshot builds the audit copy of fields. rawStatus is stored as received
// (sanitized) under reservation.SnapshotRawStatus.
func Snapshot(fields reservation.Fields, rawStatus string) map[string]string {
	out := make(map[string]string, len(reservation.FieldNames)+1)
	for _, k := range reservation.FieldNames {
		out[k] = SanitizeText(fields[k])
	}
	out[reservation.SnapshotRawStatus] = SanitizeText(rawStatus)
	return out
}
