// Package platform holds the read-only registry of supported booking
// platforms and their endpoints.
package platform

import (
	"fmt"
	"sort"

	"github.com/example/bookingsync/internal/config"
	"github.com/example/bookingsync/internal/internaltypes"
	"github.com/example/bookingsync/internal/reservation"
)

// DefaultReferenceParam carries the booking reference when the single
// endpoint has no %s placeholder.
const DefaultReferenceParam = "reservation_id"

type Platform struct {
	Key                string
	Label              string
	SingleEndpoint     string
	CollectionEndpoint string
	ReferenceParam     string

	token string
}

// Token returns the configured bearer token, possibly empty.
func (p Platform) Token() string { return p.token }

// HasCredentials reports whether a token is configured.
func (p Platform) HasCredentials() bool { return p.token != "" }

// Registry is built once at startup and never mutated.
type Registry struct {
	byKey map[string]Platform
	order []string
}

func NewRegistry(platforms []config.PlatformConfig) *Registry {
	r := &Registry{byKey: make(map[string]Platform, len(platforms))}
	for _, pc := range platforms {
		key := reservation.NormalizePlatform(pc.Key)
		if key == "" {
			continue
		}
		p := Platform{
			Key:                key,
			Label:              pc.Label,
			SingleEndpoint:     pc.ReservationEndpoint,
			CollectionEndpoint: pc.ReservationsEndpoint,
			ReferenceParam:     pc.ReferenceParam,
			token:              pc.APIToken,
		}
		if p.Label == "" {
			p.Label = key
		}
		if p.ReferenceParam == "" {
			p.ReferenceParam = DefaultReferenceParam
		}
		if _, dup := r.byKey[key]; !dup {
			r.order = append(r.order, key)
		}
		r.byKey[key] = p
	}
	return r
}

// Lookup resolves a platform key. Unknown keys are configuration errors.
func (r *Registry) Lookup(key string) (Platform, error) {
	key = reservation.NormalizePlatform(key)
	if key == "" {
		return Platform{}, fmt.Errorf("%w: platform is required", internaltypes.ErrConfiguration)
	}
	p, ok := r.byKey[key]
	if !ok {
		return Platform{}, fmt.Errorf("%w: unknown platform %q", internaltypes.ErrConfiguration, key)
	}
	return p, nil
}

// All returns the platforms in registration order.
func (r *Registry) All() []Platform {
	out := make([]Platform, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.byKey[k])
	}
	return out
}

// Keys returns the registered keys, sorted.
func (r *Registry) Keys() []string {
	keys := append([]string(nil), r.order...)
	sort.Strings(keys)
	return keys
}
