package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/bookingsync/internal/reservation"
	"github.com/example/bookingsync/internal/transport"
)

// Importer is the part of importer.Importer the poller drives.
type Importer interface {
	ImportAll(ctx context.Context, f transport.Filter) reservation.BatchSummary
}

// Scheduler runs a pull import of every platform on a fixed interval.
type Scheduler struct {
	Importer Importer
	Interval time.Duration
	Limit    int

	// Lookback sets the updated_since filter relative to each tick. Zero
	// imports without a date filter.
	Lookback time.Duration

	Log *slog.Logger
	Now func() time.Time

	mu      sync.Mutex
	running bool
}

func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	// kick immediately
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	// a slow import must not stack up behind itself
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger().Warn("previous import still running; tick skipped")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	f := transport.Filter{Limit: s.Limit}
	if s.Lookback > 0 {
		now := time.Now
		if s.Now != nil {
			now = s.Now
		}
		f.Since = now().UTC().Add(-s.Lookback)
	}

	sum := s.Importer.ImportAll(ctx, f)
	log := s.logger()
	if !sum.Success {
		log.Warn("scheduled import failed", slog.Any("errors", sum.Errors))
		return
	}
	log.Info("scheduled import finished",
		slog.String("summary", sum.String()),
		slog.Int("errors", len(sum.Errors)),
	)
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
