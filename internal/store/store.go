package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/bookingsync/internal/auth"
	"github.com/example/bookingsync/internal/db"
	"github.com/example/bookingsync/internal/migrate"
	"github.com/example/bookingsync/internal/reconcile"
	"github.com/example/bookingsync/internal/reservation"
)

// Store is everything the service persists.
type Store interface {
	reconcile.Repository
	auth.UserStore

	List(ctx context.Context, f ListFilter) ([]reservation.Reservation, error)
	RecordImportRun(ctx context.Context, run reservation.ImportRun) (int64, error)
	ListImportRuns(ctx context.Context, limit int) ([]reservation.ImportRun, error)
	Ping(ctx context.Context) error
}

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*SQLite)(nil)
)

// Options controls Open.
type Options struct {
	// Migrate applies pending Postgres migrations. SQLite always creates its
	// schema.
	Migrate bool
}

// Open picks the backend from databaseURL ("sqlite:<path>" or a Postgres
// URL). The returned func releases it.
func Open(ctx context.Context, databaseURL string, opts Options) (Store, func(), error) {
	if path, ok := sqlitePath(databaseURL); ok {
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}

	d, err := db.Open(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db open: %w", err)
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}
	if opts.Migrate {
		if _, err := migrate.Up(ctx, d); err != nil {
			d.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return NewPostgres(d), d.Close, nil
}

// IsSQLite reports whether databaseURL selects the embedded store.
func IsSQLite(databaseURL string) bool {
	_, ok := sqlitePath(databaseURL)
	return ok
}

func sqlitePath(databaseURL string) (string, bool) {
	path, ok := strings.CutPrefix(databaseURL, "sqlite:")
	if !ok {
		return "", false
	}
	path = strings.TrimPrefix(path, "//")
	return path, path != ""
}
