// Package hooks defines the optional transformation points of the sync
// pipeline. Implementations are injected through constructors; a nil Hooks
// or a nil member is a no-op.
package hooks

import (
	"net/http"

	"github.com/example/bookingsync/internal/reservation"
)

// Sources passed to PayloadTransformer.
const (
	SourceWebhook = "webhook"
	SourceImport  = "import"
	SourceSync    = "sync"
)

// Endpoint kinds passed to EndpointTransformer.
const (
	EndpointSingle     = "single"
	EndpointCollection = "collection"
)

// PayloadTransformer rewrites a raw record before mapping.
type PayloadTransformer interface {
	TransformPayload(platform, source string, payload map[string]any) map[string]any
}

// FieldTransformer rewrites mapped fields before persistence.
type FieldTransformer interface {
	TransformFields(platform string, fields reservation.Fields) reservation.Fields
}

// EndpointTransformer rewrites an outbound URL.
type EndpointTransformer interface {
	TransformEndpoint(platform, kind, rawURL string) string
}

// StatusOverrider gets the final word on a normalized status.
type StatusOverrider interface {
	OverrideStatus(platform, raw string, normalized reservation.Status) reservation.Status
}

// RequestDecorator adjusts an outbound request (headers, query args).
type RequestDecorator interface {
	DecorateRequest(platform string, req *http.Request)
}

type PayloadTransformerFunc func(platform, source string, payload map[string]any) map[string]any

func (f PayloadTransformerFunc) TransformPayload(platform, source string, payload map[string]any) map[string]any {
	return f(platform, source, payload)
}

type FieldTransformerFunc func(platform string, fields reservation.Fields) reservation.Fields

func (f FieldTransformerFunc) TransformFields(platform string, fields reservation.Fields) reservation.Fields {
	return f(platform, fields)
}

type EndpointTransformerFunc func(platform, kind, rawURL string) string

func (f EndpointTransformerFunc) TransformEndpoint(platform, kind, rawURL string) string {
	return f(platform, kind, rawURL)
}

type StatusOverriderFunc func(platform, raw string, normalized reservation.Status) reservation.Status

func (f StatusOverriderFunc) OverrideStatus(platform, raw string, normalized reservation.Status) reservation.Status {
	return f(platform, raw, normalized)
}

type RequestDecoratorFunc func(platform string, req *http.Request)

func (f RequestDecoratorFunc) DecorateRequest(platform string, req *http.Request) {
	f(platform, req)
}

// Hooks bundles the optional transformation points.
type Hooks struct {
	Payload  PayloadTransformer
	Fields   FieldTransformer
	Endpoint EndpointTransformer
	Status   StatusOverrider
	Request  RequestDecorator
}

func (h *Hooks) BeforeMap(platform, source string, payload map[string]any) map[string]any {
	if h == nil || h.Payload == nil {
		return payload
	}
	if out := h.Payload.TransformPayload(platform, source, payload); out != nil {
		return out
	}
	return payload
}

func (h *Hooks) AfterMap(platform string, fields reservation.Fields) reservation.Fields {
	if h == nil || h.Fields == nil {
		return fields
	}
	if out := h.Fields.TransformFields(platform, fields); out != nil {
		return out
	}
	return fields
}

func (h *Hooks) EndpointURL(platform, kind, rawURL string) string {
	if h == nil || h.Endpoint == nil {
		return rawURL
	}
	return h.Endpoint.TransformEndpoint(platform, kind, rawURL)
}

func (h *Hooks) FinalStatus(platform, raw string, normalized reservation.Status) reservation.Status {
	if h == nil || h.Status == nil {
		return normalized
	}
	return h.Status.OverrideStatus(platform, raw, normalized)
}

func (h *Hooks) Decorate(platform string, req *http.Request) {
	if h == nil || h.Request == nil {
		return
	}
	h.Request.DecorateRequest(platform, req)
}
