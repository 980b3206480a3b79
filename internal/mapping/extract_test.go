package mapping

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func TestExtractSingle(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "reservation envelope", body: `{"reservation":{"id":"A"},"id":"outer"}`, want: "A"},
		{name: "data.reservation", body: `{"data":{"reservation":{"id":"B"}}}`, want: "B"},
		{name: "data list", body: `{"data":[{"id":"C"},{"id":"D"}]}`, want: "C"},
		{name: "result.reservation", body: `{"result":{"reservation":{"id":"E"}}}`, want: "E"},
		{name: "positional array", body: `[{"id":"F"}]`, want: "F"},
		{name: "raw body", body: `{"id":"G","status":"ok"}`, want: "G"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractSingle(decode(t, tc.body))
			if got == nil {
				t.Fatalf("expected a record")
			}
			if got["id"] != tc.want {
				t.Fatalf("expected id %q, got %v", tc.want, got["id"])
			}
		})
	}
}

func TestExtractSingleNoShape(t *testing.T) {
	for _, body := range []string{`{}`, `[]`, `"text"`, `42`, `null`, `["a","b"]`} {
		if got := ExtractSingle(decode(t, body)); got != nil {
			t.Fatalf("%s: expected nil, got %v", body, got)
		}
	}
}

func TestExtractCollection(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{name: "reservations key", body: `{"reservations":[{"id":1},{"id":2}]}`, want: 2},
		{name: "data array", body: `{"data":[{"id":1}]}`, want: 1},
		{name: "result.reservations", body: `{"result":{"reservations":[{"id":1},{"id":2},{"id":3}]}}`, want: 3},
		{name: "bare array", body: `[{"id":1},{"id":2}]`, want: 2},
		{name: "non-map elements dropped", body: `[{"id":1},"junk",3]`, want: 1},
		{name: "unknown object", body: `{"items":[{"id":1}]}`, want: 0},
		{name: "scalar", body: `"nope"`, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractCollection(decode(t, tc.body))
			if got == nil {
				t.Fatalf("expected a non-nil slice")
			}
			if len(got) != tc.want {
				t.Fatalf("expected %d records, got %d", tc.want, len(got))
			}
		})
	}
}

func TestDeepGetAndFirstOf(t *testing.T) {
	record := decode(t, `{
		"guest": {"email": "  ", "phones": ["+1 555", "+1 666"], "age": 42, "vip": true, "note": null},
		"traveler": {"email": "t@x.com"}
	}`).(map[string]any)

	if v, ok := DeepGet(record, P("guest.phones.1")); !ok || v != "+1 666" {
		t.Fatalf("array index: got %v %v", v, ok)
	}
	if _, ok := DeepGet(record, P("guest.phones.9")); ok {
		t.Fatalf("out of range index should not resolve")
	}
	if _, ok := DeepGet(record, P("guest.email.x")); ok {
		t.Fatalf("descending into a scalar should not resolve")
	}

	got := FirstOf(record, paths("customer.email", "guest.email", "traveler.email"), "def")
	if got != "t@x.com" {
		t.Fatalf("expected blank candidates to be skipped, got %q", got)
	}
	if got := FirstOf(record, paths("guest.age"), ""); got != "42" {
		t.Fatalf("expected number rendering, got %q", got)
	}
	if got := FirstOf(record, paths("guest.vip"), ""); got != "true" {
		t.Fatalf("expected bool rendering, got %q", got)
	}
	if got := FirstOf(record, paths("guest.note", "guest.phones"), "def"); got != "def" {
		t.Fatalf("null and arrays are not scalars, got %q", got)
	}
}
