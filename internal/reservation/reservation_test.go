package reservation

import "testing"

func TestNormalizeReference(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"  ABC123 ":        "ABC123",
		"HM-55_x.9":        "HM-55_x.9",
		"<script>1</script>": "script1/script",
		"ref with spaces":  "refwithspaces",
		"  \t ":            "",
		"BK:2026/01#7":     "BK:2026/01#7",
	}
	for input, expected := range cases {
		if got := NormalizeReference(input); got != expected {
			t.Fatalf("NormalizeReference(%q) expected %q got %q", input, expected, got)
		}
	}
}

func TestReservationFieldRoundTrip(t *testing.T) {
	var r Reservation
	for _, k := range FieldNames {
		r.SetField(k, k+"-value")
	}
	fields := r.Fields()
	for _, k := range FieldNames {
		if fields[k] != k+"-value" {
			t.Fatalf("field %s: expected %q, got %q", k, k+"-value", fields[k])
		}
	}
	r.SetField("unknown", "x")
	if r.Field("unknown") != "" {
		t.Fatalf("unknown field should read empty")
	}
}

func TestFieldsNonEmptyKeepsCanonicalOrder(t *testing.T) {
	f := Fields{
		FieldStatus:           "confirmed",
		FieldGuestEmail:       "a@x.com",
		FieldGuestPhone:       "   ",
		FieldBookingReference: "R1",
	}
	got := f.NonEmpty()
	want := []string{FieldBookingReference, FieldGuestEmail, FieldStatus}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestBatchSummaryAddAndMerge(t *testing.T) {
	var a BatchSummary
	a.Add(Result{Action: ActionCreated})
	a.Add(Result{Action: ActionSynced})
	a.Add(Result{Action: ActionError, Message: "db down", BookingReference: "X1", Errors: []string{"persistence error", "timeout"}})
	a.Add(Result{Action: ActionSkipped, Message: "missing booking reference"})

	if a.Total() != 4 {
		t.Fatalf("expected 4 records bucketed, got %d", a.Total())
	}
	if a.Skipped != 2 {
		t.Fatalf("expected errors to count as skipped, got %d", a.Skipped)
	}
	if len(a.Errors) != 2 || a.Errors[0] != "X1: db down (persistence error; timeout)" {
		t.Fatalf("unexpected errors: %v", a.Errors)
	}

	b := BatchSummary{Success: true, Updated: 3, Messages: []string{"vrbo ok"}}
	a.Merge(b)
	if !a.Success {
		t.Fatalf("merge should be successful when any part succeeded")
	}
	if a.Updated != 3 || a.Total() != 7 {
		t.Fatalf("unexpected merged counters: %+v", a)
	}
}

func TestSyncStateMarshalRoundTrip(t *testing.T) {
	state := SyncState{"airbnb": {Snapshot: map[string]string{"guest_email": "a@x.com"}, SyncedFields: []string{"guest_email"}}}
	b, err := state.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := UnmarshalSyncState(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["airbnb"].Snapshot["guest_email"] != "a@x.com" {
		t.Fatalf("unexpected snapshot: %+v", back)
	}

	empty, err := UnmarshalSyncState(nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty state, got %v %v", empty, err)
	}
}
