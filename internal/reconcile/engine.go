// Package reconcile decides create versus update for mapped reservations and
// keeps the per-platform audit snapshot.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/bookingsync/internal/internaltypes"
	"github.com/example/bookingsync/internal/mapping"
	"github.com/example/bookingsync/internal/reservation"
)

var tracer = otel.Tracer("github.com/example/bookingsync/internal/reconcile")

type Engine struct {
	repo     Repository
	notifier Notifier
	log      *slog.Logger

	// Now is the clock used for last_synced.
	Now func() time.Time
}

// NewEngine returns an Engine. notifier and log may be nil.
func NewEngine(repo Repository, notifier Notifier, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		repo:     repo,
		notifier: notifier,
		log:      log,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile applies one mapped record. existing is optional; the record read
// under the repository lock always wins over it.
func (e *Engine) Reconcile(ctx context.Context, platform string, mapped mapping.Mapped, existing *reservation.Reservation) reservation.Result {
	platform = reservation.NormalizePlatform(platform)
	ref := reservation.NormalizeReference(mapped.BookingReference())

	ctx, span := tracer.Start(ctx, "reconcile.Reconcile", trace.WithAttributes(
		attribute.String("platform", platform),
		attribute.String("booking_reference", ref),
	))
	defer span.End()

	if platform == "" {
		span.SetStatus(codes.Error, "missing platform")
		return reservation.Failed(ref, "platform is required", internaltypes.ErrConfiguration.Error())
	}
	if ref == "" {
		span.SetStatus(codes.Error, "missing booking reference")
		return reservation.Failed("", "booking reference is missing", internaltypes.ErrConfiguration.Error())
	}

	fields := mapped.Fields.Clone()
	fields[reservation.FieldBookingReference] = ref
	now := e.Now()

	var updated, synced []string
	apply := func(cur *reservation.Reservation) (reservation.Reservation, error) {
		if cur == nil {
			updated, synced = createdFields(fields), nil
			return e.newRecord(platform, ref, fields, mapped.Snapshot, now), nil
		}
		if existing != nil && existing.ID != 0 && existing.ID != cur.ID {
			e.log.Warn("existing reservation does not match dedup key",
				slog.Int64("given_id", existing.ID), slog.Int64("locked_id", cur.ID),
				slog.String("platform", platform), slog.String("ref", ref))
		}
		var rec reservation.Reservation
		rec, updated = merge(*cur, fields)
		synced = fields.NonEmpty()
		rec.SyncState = cloneState(cur.SyncState)
		rec.SyncState[platform] = reservation.PlatformSnapshot{
			LastSynced:   now,
			Snapshot:     mapped.Snapshot,
			SyncedFields: synced,
		}
		return rec, nil
	}

	rec, created, err := e.repo.UpsertByDedupKey(ctx, platform, ref, apply)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		e.log.Error("reservation persist failed", slog.String("platform", platform), slog.String("ref", ref), slog.Any("error", err))
		return reservation.Failed(ref, fmt.Sprintf("failed to save reservation %s", ref), fmt.Errorf("%w: %v", internaltypes.ErrPersistence, err).Error())
	}

	res := reservation.Result{
		Success:          true,
		UpdatedFields:    updated,
		ReservationID:    rec.ID,
		BookingReference: ref,
	}
	switch {
	case created:
		res.Action = reservation.ActionCreated
		res.Message = fmt.Sprintf("Reservation %s created", ref)
		e.notify(ctx, rec)
	case len(updated) > 0:
		res.Action = reservation.ActionUpdated
		res.Message = fmt.Sprintf("Reservation %s updated (%d fields)", ref, len(updated))
	default:
		res.Action = reservation.ActionSynced
		res.Message = fmt.Sprintf("Reservation %s already in sync", ref)
	}
	if res.UpdatedFields == nil {
		res.UpdatedFields = []string{}
	}
	span.SetAttributes(attribute.String("action", string(res.Action)), attribute.Int64("reservation_id", rec.ID))
	return res
}

func (e *Engine) newRecord(platform, ref string, fields reservation.Fields, snapshot map[string]string, now time.Time) reservation.Reservation {
	rec := reservation.Reservation{Platform: platform}
	for _, k := range reservation.FieldNames {
		rec.SetField(k, fields.Get(k))
	}
	rec.BookingReference = ref
	if rec.Status == "" {
		rec.Status = reservation.StatusPending
	}
	rec.SyncState = reservation.SyncState{
		platform: {LastSynced: now, Snapshot: snapshot},
	}
	return rec
}

// createdFields lists every non-empty mapped field. status is always present
// because a new record always stores one.
func createdFields(fields reservation.Fields) []string {
	out := fields.NonEmpty()
	for _, k := range out {
		if k == reservation.FieldStatus {
			return out
		}
	}
	return append(out, reservation.FieldStatus)
}

// merge copies non-empty, changed incoming values onto rec. An empty status
// is ignored; a non-empty one is always written.
func merge(rec reservation.Reservation, fields reservation.Fields) (reservation.Reservation, []string) {
	var changed []string
	for _, k := range reservation.FieldNames {
		if k == reservation.FieldBookingReference {
			continue
		}
		in := fields.Get(k)
		if in == "" {
			continue
		}
		if in != rec.Field(k) {
			changed = append(changed, k)
		}
		rec.SetField(k, in)
	}
	return rec, changed
}

func cloneState(s reservation.SyncState) reservation.SyncState {
	out := make(reservation.SyncState, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (e *Engine) notify(ctx context.Context, rec reservation.Reservation) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.ReservationCreated(ctx, rec); err != nil {
		e.log.Warn("reservation notification failed", slog.Int64("id", rec.ID), slog.String("ref", rec.BookingReference), slog.Any("error", err))
	}
}
