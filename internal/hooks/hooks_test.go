package hooks

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/bookingsync/internal/reservation"
)

func TestNilHooksAreNoops(t *testing.T) {
	var h *Hooks
	payload := map[string]any{"id": "X"}
	if got := h.BeforeMap("airbnb", SourceWebhook, payload); got["id"] != "X" {
		t.Fatalf("payload changed: %v", got)
	}
	fields := reservation.Fields{reservation.FieldGuestName: "Jane"}
	if got := h.AfterMap("airbnb", fields); got.Get(reservation.FieldGuestName) != "Jane" {
		t.Fatalf("fields changed: %v", got)
	}
	if got := h.EndpointURL("airbnb", EndpointSingle, "https://x/r"); got != "https://x/r" {
		t.Fatalf("endpoint changed: %s", got)
	}
	if got := h.FinalStatus("airbnb", "accepted", reservation.StatusConfirmed); got != reservation.StatusConfirmed {
		t.Fatalf("status changed: %s", got)
	}
	h.Decorate("airbnb", httptest.NewRequest(http.MethodGet, "/", nil))

	empty := &Hooks{}
	if got := empty.EndpointURL("vrbo", EndpointCollection, "https://y"); got != "https://y" {
		t.Fatalf("empty hooks changed endpoint: %s", got)
	}
}

func TestHooksApply(t *testing.T) {
	h := &Hooks{
		Payload: PayloadTransformerFunc(func(platform, source string, p map[string]any) map[string]any {
			if source != SourceImport {
				return nil
			}
			out := map[string]any{"source": source}
			for k, v := range p {
				out[k] = v
			}
			return out
		}),
		Fields: FieldTransformerFunc(func(platform string, f reservation.Fields) reservation.Fields {
			f[reservation.FieldPropertyName] = "Cabin"
			return f
		}),
		Endpoint: EndpointTransformerFunc(func(platform, kind, rawURL string) string {
			return rawURL + "?kind=" + kind
		}),
		Status: StatusOverriderFunc(func(platform, raw string, n reservation.Status) reservation.Status {
			if raw == "hold" {
				return reservation.StatusPending
			}
			return n
		}),
		Request: RequestDecoratorFunc(func(platform string, req *http.Request) {
			req.Header.Set("X-Partner", platform)
		}),
	}

	if got := h.BeforeMap("airbnb", SourceImport, map[string]any{"id": "1"}); got["source"] != SourceImport || got["id"] != "1" {
		t.Fatalf("unexpected payload %v", got)
	}
	// a nil result keeps the original payload
	if got := h.BeforeMap("airbnb", SourceWebhook, map[string]any{"id": "2"}); got["id"] != "2" || got["source"] != nil {
		t.Fatalf("unexpected payload %v", got)
	}
	if got := h.AfterMap("vrbo", reservation.Fields{}); got.Get(reservation.FieldPropertyName) != "Cabin" {
		t.Fatalf("unexpected fields %v", got)
	}
	if got := h.EndpointURL("vrbo", EndpointSingle, "https://api/r"); got != "https://api/r?kind=single" {
		t.Fatalf("unexpected endpoint %s", got)
	}
	if got := h.FinalStatus("vrbo", "hold", reservation.StatusConfirmed); got != reservation.StatusPending {
		t.Fatalf("unexpected status %s", got)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.Decorate("vrbo", req)
	if req.Header.Get("X-Partner") != "vrbo" {
		t.Fatalf("request not decorated")
	}
}
