package mapping

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/example/bookingsync/internal/reservation"
)

// NormalizeDate parses raw permissively and re-emits it in the canonical
// timestamp layout (UTC). Blank or unparseable input yields "".
func NormalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(reservation.TimestampLayout)
}
