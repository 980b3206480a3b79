package internaltypes

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")

	// Reconciliation failure classes. Wrap with %w so callers can tell
	// "host unreachable" apart from "host returned nothing useful".
	ErrConfiguration = errors.New("configuration error")
	ErrTransport     = errors.New("transport error")
	ErrPayload       = errors.New("payload error")
	ErrPersistence   = errors.New("persistence error")
)
