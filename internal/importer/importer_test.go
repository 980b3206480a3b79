package importer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/bookingsync/internal/config"
	"github.com/example/bookingsync/internal/hooks"
	"github.com/example/bookingsync/internal/internaltypes"
	"github.com/example/bookingsync/internal/platform"
	"github.com/example/bookingsync/internal/reconcile"
	"github.com/example/bookingsync/internal/reservation"
	"github.com/example/bookingsync/internal/store"
	"github.com/example/bookingsync/internal/transport"
)

type fakeFetcher struct {
	single     map[string]map[string]any
	collection map[string][]map[string]any
	err        error
	calls      int
	lastFilter transport.Filter
}

func (f *fakeFetcher) FetchReservation(_ context.Context, p platform.Platform, ref string) (map[string]any, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.single[p.Key+"/"+ref]
	if !ok {
		return nil, internaltypes.ErrPayload
	}
	return rec, nil
}

func (f *fakeFetcher) FetchReservations(_ context.Context, p platform.Platform, flt transport.Filter) ([]map[string]any, error) {
	f.calls++
	f.lastFilter = flt
	if f.err != nil {
		return nil, f.err
	}
	return f.collection[p.Key], nil
}

func newImporter(t *testing.T, f Fetcher, platforms ...config.PlatformConfig) (*Importer, *store.SQLite) {
	t.Helper()
	s, err := store.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	h := &hooks.Hooks{}
	proc := reconcile.NewProcessor(reconcile.NewEngine(s, nil, nil), nil, h)
	return New(platform.NewRegistry(platforms), f, proc, s, nil), s
}

func airbnb(token string) config.PlatformConfig {
	return config.PlatformConfig{Key: "airbnb", Label: "Airbnb", APIToken: token,
		ReservationEndpoint: "https://a.example/r/%s", ReservationsEndpoint: "https://a.example/r"}
}

func vrbo(token string) config.PlatformConfig {
	return config.PlatformConfig{Key: "vrbo", Label: "Vrbo", APIToken: token,
		ReservationEndpoint: "https://v.example/r", ReservationsEndpoint: "https://v.example/rs"}
}

func TestImportPlatformCreatesAndSkips(t *testing.T) {
	f := &fakeFetcher{collection: map[string][]map[string]any{
		"airbnb": {
			{"confirmation_code": "ABC123", "status": "accepted", "guest": map[string]any{"first_name": "Jane", "last_name": "Doe", "email": "j@doe.com"}},
			{"status": "accepted"},
		},
	}}
	im, s := newImporter(t, f, airbnb("tok"))
	ctx := context.Background()

	sum := im.ImportPlatform(ctx, "airbnb", transport.Filter{})
	if !sum.Success {
		t.Fatalf("expected success, got %+v", sum)
	}
	if sum.Created != 1 || sum.Skipped != 1 || sum.Updated != 0 || sum.Synced != 0 {
		t.Fatalf("unexpected counters %s", sum)
	}
	if len(sum.Errors) != 1 || !strings.Contains(sum.Errors[0], "record 2 skipped") {
		t.Fatalf("unexpected errors %v", sum.Errors)
	}

	r, err := s.FindByDedupKey(ctx, "airbnb", "ABC123")
	if err != nil {
		t.Fatalf("FindByDedupKey: %v", err)
	}
	if r.Status != reservation.StatusConfirmed || r.GuestName != "Jane Doe" || r.GuestEmail != "j@doe.com" {
		t.Fatalf("unexpected reservation %+v", r)
	}

	runs, err := s.ListImportRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListImportRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Platform != "airbnb" || runs[0].Summary.Created != 1 {
		t.Fatalf("unexpected runs %+v", runs)
	}

	again := im.ImportPlatform(ctx, "airbnb", transport.Filter{})
	if again.Created != 0 || again.Synced != 1 || again.Skipped != 1 {
		t.Fatalf("second import should be idempotent, got %s", again)
	}
}

func TestImportPlatformMissingToken(t *testing.T) {
	f := &fakeFetcher{}
	im, _ := newImporter(t, f, airbnb(""))

	sum := im.ImportPlatform(context.Background(), "airbnb", transport.Filter{})
	if sum.Success || len(sum.Errors) != 1 {
		t.Fatalf("expected configuration failure, got %+v", sum)
	}
	if f.calls != 0 {
		t.Fatalf("no request should be sent without a token")
	}
}

func TestImportPlatformUnknownAndFetchError(t *testing.T) {
	f := &fakeFetcher{err: errors.New("boom")}
	im, _ := newImporter(t, f, airbnb("tok"))

	if sum := im.ImportPlatform(context.Background(), "nope", transport.Filter{}); sum.Success || len(sum.Errors) != 1 {
		t.Fatalf("unknown platform should fail, got %+v", sum)
	}
	sum := im.ImportPlatform(context.Background(), "airbnb", transport.Filter{})
	if sum.Success || len(sum.Errors) != 1 || !strings.Contains(sum.Errors[0], "boom") {
		t.Fatalf("fetch failure should fail, got %+v", sum)
	}
}

func TestImportPlatformEmptyAndDefaultLimit(t *testing.T) {
	f := &fakeFetcher{}
	im, _ := newImporter(t, f, airbnb("tok"))
	im.DefaultLimit = 25

	sum := im.ImportPlatform(context.Background(), "airbnb", transport.Filter{})
	if !sum.Success || sum.Total() != 0 || len(sum.Messages) != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if f.lastFilter.Limit != 25 {
		t.Fatalf("expected default limit, got %d", f.lastFilter.Limit)
	}
}

func TestImportAllMerges(t *testing.T) {
	f := &fakeFetcher{collection: map[string][]map[string]any{
		"airbnb": {{"confirmation_code": "A1", "status": "accepted"}},
	}}
	im, _ := newImporter(t, f, airbnb("tok"), vrbo(""))

	sum := im.ImportAll(context.Background(), transport.Filter{})
	if !sum.Success {
		t.Fatalf("one platform succeeded, summary should too: %+v", sum)
	}
	if sum.Created != 1 || len(sum.Errors) != 1 {
		t.Fatalf("unexpected merge %+v", sum)
	}
}

func TestImportAllCancelled(t *testing.T) {
	im, _ := newImporter(t, &fakeFetcher{}, airbnb("tok"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum := im.ImportAll(ctx, transport.Filter{})
	if sum.Success || len(sum.Errors) != 1 {
		t.Fatalf("expected cancellation, got %+v", sum)
	}
}

func TestSyncReservation(t *testing.T) {
	f := &fakeFetcher{single: map[string]map[string]any{
		"vrbo/R-9": {"status": "booked", "traveler": map[string]any{"email": "GUEST@Example.com"}},
	}}
	im, s := newImporter(t, f, vrbo("tok"))
	ctx := context.Background()

	res := im.SyncReservation(ctx, "vrbo", " R-9 ")
	if !res.Success || res.Action != reservation.ActionCreated {
		t.Fatalf("expected created, got %+v", res)
	}
	r, err := s.FindByDedupKey(ctx, "vrbo", "R-9")
	if err != nil {
		t.Fatalf("FindByDedupKey: %v", err)
	}
	if r.GuestEmail != "guest@example.com" || r.Status != reservation.StatusConfirmed {
		t.Fatalf("unexpected reservation %+v", r)
	}
	if got := r.SyncState["vrbo"].Snapshot[reservation.FieldBookingReference]; got != "R-9" {
		t.Fatalf("snapshot should carry the requested reference, got %q", got)
	}

	if res := im.SyncReservation(ctx, "vrbo", "R-9"); res.Action != reservation.ActionSynced {
		t.Fatalf("expected synced, got %+v", res)
	}
	if res := im.SyncReservation(ctx, "vrbo", "MISSING"); res.Success || res.Action != reservation.ActionError {
		t.Fatalf("expected fetch failure, got %+v", res)
	}
	if res := im.SyncReservation(ctx, "vrbo", ""); res.Success {
		t.Fatalf("expected missing reference failure")
	}
}

func TestParseSince(t *testing.T) {
	got, err := ParseSince("2024-03-05")
	if err != nil || !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected %v %v", got, err)
	}
	if got, err := ParseSince(" "); err != nil || !got.IsZero() {
		t.Fatalf("blank should be zero, got %v %v", got, err)
	}
	if _, err := ParseSince("not a date"); !errors.Is(err, internaltypes.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
