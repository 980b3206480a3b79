package reconcile

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/example/bookingsync/internal/internaltypes"
	"github.com/example/bookingsync/internal/mapping"
	"github.com/example/bookingsync/internal/reservation"
)

type fakeRepo struct {
	mu      sync.Mutex
	rows    map[int64]reservation.Reservation
	nextID  int64
	upserts int
	failing error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[int64]reservation.Reservation{}}
}

func (f *fakeRepo) find(platform, ref string) *reservation.Reservation {
	for _, r := range f.rows {
		if r.Platform == platform && r.BookingReference == ref {
			r := r
			return &r
		}
	}
	return nil
}

func (f *fakeRepo) FindByDedupKey(_ context.Context, platform, ref string) (reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.find(platform, ref); r != nil {
		return *r, nil
	}
	return reservation.Reservation{}, internaltypes.ErrNotFound
}

func (f *fakeRepo) Get(_ context.Context, id int64) (reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return reservation.Reservation{}, internaltypes.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) Create(_ context.Context, r reservation.Reservation) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	f.rows[r.ID] = r
	return r.ID, nil
}

func (f *fakeRepo) Update(_ context.Context, r reservation.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[r.ID] = r
	return nil
}

func (f *fakeRepo) UpsertByDedupKey(_ context.Context, platform, ref string, apply ApplyFunc) (reservation.Reservation, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.failing != nil {
		return reservation.Reservation{}, false, f.failing
	}
	cur := f.find(platform, ref)
	rec, err := apply(cur)
	if err != nil {
		return reservation.Reservation{}, false, err
	}
	if cur == nil {
		f.nextID++
		rec.ID = f.nextID
		f.rows[rec.ID] = rec
		return rec, true, nil
	}
	rec.ID = cur.ID
	f.rows[rec.ID] = rec
	return rec, false, nil
}

type fakeNotifier struct {
	calls []reservation.Reservation
	err   error
}

func (n *fakeNotifier) ReservationCreated(_ context.Context, r reservation.Reservation) error {
	n.calls = append(n.calls, r)
	return n.err
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newEngine(repo Repository, n Notifier) *Engine {
	e := NewEngine(repo, n, nil)
	e.Now = func() time.Time { return fixedNow }
	return e
}

func mapped(fields reservation.Fields, rawStatus string) mapping.Mapped {
	return mapping.Mapped{Fields: fields, RawStatus: rawStatus, Snapshot: mapping.Snapshot(fields, rawStatus)}
}

func baseFields() reservation.Fields {
	return reservation.Fields{
		reservation.FieldBookingReference: "ABC123",
		reservation.FieldGuestName:        "Jane Doe",
		reservation.FieldGuestEmail:       "a@x.com",
		reservation.FieldCheckinDate:      "2024-07-01 00:00:00",
		reservation.FieldCheckoutDate:     "2024-07-05 00:00:00",
		reservation.FieldStatus:           "confirmed",
	}
}

func TestReconcileIdempotent(t *testing.T) {
	repo := newFakeRepo()
	n := &fakeNotifier{}
	e := newEngine(repo, n)
	ctx := context.Background()

	first := e.Reconcile(ctx, "airbnb", mapped(baseFields(), "accepted"), nil)
	if !first.Success || first.Action != reservation.ActionCreated {
		t.Fatalf("expected created, got %+v", first)
	}
	second := e.Reconcile(ctx, "airbnb", mapped(baseFields(), "accepted"), nil)
	if second.Action != reservation.ActionSynced {
		t.Fatalf("expected synced, got %+v", second)
	}
	if len(second.UpdatedFields) != 0 {
		t.Fatalf("expected no updated fields, got %v", second.UpdatedFields)
	}
	if first.ReservationID != second.ReservationID || len(repo.rows) != 1 {
		t.Fatalf("expected a single record, got %d", len(repo.rows))
	}
	if len(n.calls) != 1 {
		t.Fatalf("notifier must run only on create, ran %d times", len(n.calls))
	}
}

func TestReconcileCreateSnapshot(t *testing.T) {
	repo := newFakeRepo()
	e := newEngine(repo, nil)
	fields := baseFields()
	fields[reservation.FieldStatus] = ""

	res := e.Reconcile(context.Background(), " AirBnB ", mapped(fields, ""), nil)
	want := []string{"booking_reference", "guest_name", "guest_email", "checkin_date", "checkout_date", "status"}
	if !reflect.DeepEqual(res.UpdatedFields, want) {
		t.Fatalf("expected %v, got %v", want, res.UpdatedFields)
	}

	rec := repo.rows[res.ReservationID]
	if rec.Platform != "airbnb" || rec.Status != reservation.StatusPending {
		t.Fatalf("unexpected record %+v", rec)
	}
	snap, ok := rec.SyncState["airbnb"]
	if !ok || !snap.LastSynced.Equal(fixedNow) {
		t.Fatalf("expected snapshot slot, got %+v", rec.SyncState)
	}
	if snap.SyncedFields != nil {
		t.Fatalf("create must not record synced_fields, got %v", snap.SyncedFields)
	}
	if _, ok := snap.Snapshot[reservation.SnapshotRawStatus]; !ok {
		t.Fatalf("snapshot must include raw status")
	}
}

func TestReconcileNoClobberByBlank(t *testing.T) {
	repo := newFakeRepo()
	e := newEngine(repo, nil)
	ctx := context.Background()
	e.Reconcile(ctx, "vrbo", mapped(baseFields(), "booked"), nil)

	incoming := baseFields()
	incoming[reservation.FieldGuestEmail] = ""
	delete(incoming, reservation.FieldGuestName)
	res := e.Reconcile(ctx, "vrbo", mapped(incoming, "booked"), nil)

	rec := repo.rows[res.ReservationID]
	if rec.GuestEmail != "a@x.com" || rec.GuestName != "Jane Doe" {
		t.Fatalf("blank values clobbered stored data: %+v", rec)
	}
	for _, f := range res.UpdatedFields {
		if f == reservation.FieldGuestEmail {
			t.Fatalf("guest_email must not be reported as updated")
		}
	}
}

func TestReconcileFieldDiffPrecision(t *testing.T) {
	repo := newFakeRepo()
	e := newEngine(repo, nil)
	ctx := context.Background()
	e.Reconcile(ctx, "airbnb", mapped(baseFields(), "accepted"), nil)

	incoming := baseFields()
	incoming[reservation.FieldCheckoutDate] = "2024-07-06 00:00:00"
	res := e.Reconcile(ctx, "airbnb", mapped(incoming, "accepted"), nil)

	if res.Action != reservation.ActionUpdated {
		t.Fatalf("expected updated, got %s", res.Action)
	}
	if !reflect.DeepEqual(res.UpdatedFields, []string{reservation.FieldCheckoutDate}) {
		t.Fatalf("expected only checkout_date, got %v", res.UpdatedFields)
	}

	snap := repo.rows[res.ReservationID].SyncState["airbnb"]
	if !reflect.DeepEqual(snap.SyncedFields, incoming.NonEmpty()) {
		t.Fatalf("synced_fields should list the considered fields, got %v", snap.SyncedFields)
	}
}

func TestReconcileStatusRules(t *testing.T) {
	repo := newFakeRepo()
	e := newEngine(repo, nil)
	ctx := context.Background()
	first := e.Reconcile(ctx, "airbnb", mapped(baseFields(), "accepted"), nil)

	blank := baseFields()
	blank[reservation.FieldStatus] = ""
	res := e.Reconcile(ctx, "airbnb", mapped(blank, ""), nil)
	if res.Action != reservation.ActionSynced || repo.rows[first.ReservationID].Status != reservation.StatusConfirmed {
		t.Fatalf("blank status must be ignored, got %+v", res)
	}

	cancelled := baseFields()
	cancelled[reservation.FieldStatus] = "cancelled"
	res = e.Reconcile(ctx, "airbnb", mapped(cancelled, "cancelled"), nil)
	if !reflect.DeepEqual(res.UpdatedFields, []string{reservation.FieldStatus}) {
		t.Fatalf("expected status change only, got %v", res.UpdatedFields)
	}
}

func TestReconcileSnapshotSlotsPerPlatform(t *testing.T) {
	repo := newFakeRepo()
	e := newEngine(repo, nil)
	ctx := context.Background()
	res := e.Reconcile(ctx, "airbnb", mapped(baseFields(), "accepted"), nil)

	// Manually seed a second platform slot to check it survives.
	rec := repo.rows[res.ReservationID]
	rec.SyncState["vrbo"] = reservation.PlatformSnapshot{LastSynced: fixedNow.Add(-time.Hour)}
	repo.rows[rec.ID] = rec

	e.Now = func() time.Time { return fixedNow.Add(time.Hour) }
	e.Reconcile(ctx, "airbnb", mapped(baseFields(), "accepted"), nil)

	state := repo.rows[res.ReservationID].SyncState
	if len(state) != 2 {
		t.Fatalf("expected two slots, got %v", state)
	}
	if !state["airbnb"].LastSynced.Equal(fixedNow.Add(time.Hour)) {
		t.Fatalf("airbnb slot should be replaced")
	}
}

func TestReconcileMissingKeyHasNoSideEffects(t *testing.T) {
	repo := newFakeRepo()
	e := newEngine(repo, nil)
	ctx := context.Background()

	fields := baseFields()
	fields[reservation.FieldBookingReference] = "  ¿¿ "
	res := e.Reconcile(ctx, "airbnb", mapped(fields, ""), nil)
	if res.Success || res.Action != reservation.ActionError {
		t.Fatalf("expected error result, got %+v", res)
	}

	res = e.Reconcile(ctx, "", mapped(baseFields(), ""), nil)
	if res.Action != reservation.ActionError {
		t.Fatalf("expected error for missing platform, got %+v", res)
	}
	if repo.upserts != 0 {
		t.Fatalf("repository must not be called, got %d calls", repo.upserts)
	}
}

func TestReconcilePersistenceError(t *testing.T) {
	repo := newFakeRepo()
	repo.failing = errors.New("disk full")
	n := &fakeNotifier{}
	res := newEngine(repo, n).Reconcile(context.Background(), "airbnb", mapped(baseFields(), ""), nil)
	if res.Success || res.Action != reservation.ActionError || len(res.Errors) == 0 {
		t.Fatalf("expected persistence error, got %+v", res)
	}
	if len(n.calls) != 0 {
		t.Fatalf("notifier must not run on failure")
	}
}

func TestReconcileNotifierErrorIgnored(t *testing.T) {
	n := &fakeNotifier{err: errors.New("broker down")}
	res := newEngine(newFakeRepo(), n).Reconcile(context.Background(), "airbnb", mapped(baseFields(), ""), nil)
	if !res.Success || res.Action != reservation.ActionCreated {
		t.Fatalf("notifier failure must not change the result, got %+v", res)
	}
}

func TestReconcileConcurrentNoDuplicates(t *testing.T) {
	repo := newFakeRepo()
	e := newEngine(repo, nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Reconcile(context.Background(), "airbnb", mapped(baseFields(), ""), nil)
		}()
	}
	wg.Wait()
	if len(repo.rows) != 1 {
		t.Fatalf("expected one record, got %d", len(repo.rows))
	}
}
