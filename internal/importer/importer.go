// Package importer pulls reservations from platform APIs and feeds them
// through the reconciliation pipeline.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/example/bookingsync/internal/hooks"
	"github.com/example/bookingsync/internal/internaltypes"
	"github.com/example/bookingsync/internal/mapping"
	"github.com/example/bookingsync/internal/platform"
	"github.com/example/bookingsync/internal/reconcile"
	"github.com/example/bookingsync/internal/reservation"
	"github.com/example/bookingsync/internal/transport"
)

// Fetcher is the transport surface the importer needs.
type Fetcher interface {
	FetchReservation(ctx context.Context, p platform.Platform, ref string) (map[string]any, error)
	FetchReservations(ctx context.Context, p platform.Platform, f transport.Filter) ([]map[string]any, error)
}

// RunRecorder stores a summary of each platform import.
type RunRecorder interface {
	RecordImportRun(ctx context.Context, run reservation.ImportRun) (int64, error)
}

type Importer struct {
	registry  *platform.Registry
	client    Fetcher
	processor *reconcile.Processor
	runs      RunRecorder
	log       *slog.Logger

	// DefaultLimit applies when a Filter has no limit.
	DefaultLimit int
}

func New(registry *platform.Registry, client Fetcher, processor *reconcile.Processor, runs RunRecorder, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{registry: registry, client: client, processor: processor, runs: runs, log: log}
}

func (im *Importer) resolve(key string) (platform.Platform, error) {
	p, err := im.registry.Lookup(key)
	if err != nil {
		return platform.Platform{}, err
	}
	if !p.HasCredentials() {
		return platform.Platform{}, fmt.Errorf("%w: %s API token is not configured", internaltypes.ErrConfiguration, p.Label)
	}
	return p, nil
}

// ParseSince reads the calendar date of an updated-since filter. Blank input
// yields the zero time.
func ParseSince(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid since date %q", internaltypes.ErrConfiguration, raw)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// SyncReservation refreshes one reservation from its platform.
func (im *Importer) SyncReservation(ctx context.Context, key, ref string) reservation.Result {
	ref = reservation.NormalizeReference(ref)
	p, err := im.resolve(key)
	if err != nil {
		return reservation.Failed(ref, "platform is not ready for sync", err.Error())
	}
	if ref == "" {
		return reservation.Failed("", "booking reference is missing", internaltypes.ErrConfiguration.Error())
	}

	record, err := im.client.FetchReservation(ctx, p, ref)
	if err != nil {
		msg := fmt.Sprintf("failed to fetch reservation %s from %s", ref, p.Label)
		if errors.Is(err, internaltypes.ErrPayload) {
			msg = fmt.Sprintf("%s returned no usable data for %s", p.Label, ref)
		}
		im.log.Warn("reservation fetch failed", slog.String("platform", p.Key), slog.String("ref", ref), slog.Any("error", err))
		return reservation.Failed(ref, msg, err.Error())
	}

	mapped := im.processor.Map(p.Key, hooks.SourceSync, record)
	if mapped.BookingReference() == "" {
		// single endpoints often omit the reference they were asked for
		mapped.Fields[reservation.FieldBookingReference] = ref
		mapped.Snapshot = mapping.Snapshot(mapped.Fields, mapped.RawStatus)
	}
	return im.processor.Reconcile(ctx, p.Key, mapped, nil)
}

// ImportPlatform pulls one platform's collection endpoint and reconciles
// every record. One record's failure never aborts the batch.
func (im *Importer) ImportPlatform(ctx context.Context, key string, f transport.Filter) reservation.BatchSummary {
	started := time.Now().UTC()
	summary := reservation.BatchSummary{Errors: []string{}, Messages: []string{}}

	p, err := im.resolve(key)
	if err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		return summary
	}
	if f.Limit == 0 {
		f.Limit = im.DefaultLimit
	}

	records, err := im.client.FetchReservations(ctx, p, f)
	if err != nil {
		im.log.Warn("reservation import failed", slog.String("platform", p.Key), slog.Any("error", err))
		summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", p.Label, err))
		im.record(ctx, p.Key, summary, started)
		return summary
	}
	summary.Success = true
	if len(records) == 0 {
		summary.Messages = append(summary.Messages, fmt.Sprintf("%s: no reservations returned", p.Label))
		im.record(ctx, p.Key, summary, started)
		return summary
	}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: stopped after %d of %d records: %v", p.Label, i, len(records), err))
			break
		}
		res := im.processor.Process(ctx, p.Key, hooks.SourceImport, rec, nil)
		if res.Action == reservation.ActionError && res.BookingReference == "" {
			res.Message = fmt.Sprintf("record %d skipped: %s", i+1, res.Message)
		}
		summary.Add(res)
	}

	summary.Messages = append(summary.Messages, fmt.Sprintf("%s: %s", p.Label, summary.String()))
	im.log.Info("reservation import finished",
		slog.String("platform", p.Key),
		slog.Int("records", len(records)),
		slog.Int("created", summary.Created),
		slog.Int("updated", summary.Updated),
		slog.Int("synced", summary.Synced),
		slog.Int("skipped", summary.Skipped),
	)
	im.record(ctx, p.Key, summary, started)
	return summary
}

// ImportAll imports every registered platform in order and merges the
// summaries. The result succeeds if any platform did.
func (im *Importer) ImportAll(ctx context.Context, f transport.Filter) reservation.BatchSummary {
	total := reservation.BatchSummary{Errors: []string{}, Messages: []string{}}
	for _, p := range im.registry.All() {
		if ctx.Err() != nil {
			total.Errors = append(total.Errors, fmt.Sprintf("import cancelled before %s", p.Label))
			break
		}
		total.Merge(im.ImportPlatform(ctx, p.Key, f))
	}
	return total
}

func (im *Importer) record(ctx context.Context, key string, s reservation.BatchSummary, started time.Time) {
	if im.runs == nil {
		return
	}
	run := reservation.ImportRun{Platform: key, Summary: s, StartedAt: started, FinishedAt: time.Now().UTC()}
	if _, err := im.runs.RecordImportRun(context.WithoutCancel(ctx), run); err != nil {
		im.log.Warn("import run not recorded", slog.String("platform", key), slog.Any("error", err))
	}
}
