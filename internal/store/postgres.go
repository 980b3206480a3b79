// Package store implements reservation, user and import-run persistence on
// PostgreSQL and SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/example/bookingsync/internal/auth"
	"github.com/example/bookingsync/internal/db"
	"github.com/example/bookingsync/internal/reconcile"
	"github.com/example/bookingsync/internal/reservation"
)

const reservationColumns = `id,platform,booking_reference,guest_name,guest_email,guest_phone,property_name,property_id,door_code,checkin_date,checkout_date,status,sync_state,created_at,updated_at`

// ListFilter narrows List. Zero values are ignored.
type ListFilter struct {
	Platform string
	Status   string
	Limit    int
}

type Postgres struct{ db *db.DB }

func NewPostgres(d *db.DB) *Postgres { return &Postgres{db: d} }

func scanPGReservation(row db.Row) (reservation.Reservation, error) {
	var r reservation.Reservation
	var status string
	var state []byte
	err := row.Scan(&r.ID, &r.Platform, &r.BookingReference, &r.GuestName, &r.GuestEmail, &r.GuestPhone,
		&r.PropertyName, &r.PropertyID, &r.DoorCode, &r.CheckinDate, &r.CheckoutDate, &status, &state,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return reservation.Reservation{}, err
	}
	r.Status = reservation.Status(status)
	if r.SyncState, err = reservation.UnmarshalSyncState(state); err != nil {
		return reservation.Reservation{}, fmt.Errorf("decode sync_state of %d: %w", r.ID, err)
	}
	return r, nil
}

func (s *Postgres) FindByDedupKey(ctx context.Context, platform, ref string) (reservation.Reservation, error) {
	r, err := scanPGReservation(s.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE platform=$1 AND booking_reference=$2`, platform, ref))
	return r, db.WrapNotFound(err)
}

func (s *Postgres) Get(ctx context.Context, id int64) (reservation.Reservation, error) {
	r, err := scanPGReservation(s.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id=$1`, id))
	return r, db.WrapNotFound(err)
}

func (s *Postgres) List(ctx context.Context, f ListFilter) ([]reservation.Reservation, error) {
	var where []string
	var args []any
	if f.Platform != "" {
		args = append(args, f.Platform)
		where = append(where, fmt.Sprintf("platform=$%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	q := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, listLimit(f.Limit))
	q += fmt.Sprintf(` ORDER BY updated_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reservation.Reservation
	for rows.Next() {
		r, err := scanPGReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Postgres) Create(ctx context.Context, r reservation.Reservation) (int64, error) {
	state, err := r.SyncState.Marshal()
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.QueryRow(ctx, `
INSERT INTO reservations(platform,booking_reference,guest_name,guest_email,guest_phone,property_name,property_id,door_code,checkin_date,checkout_date,status,sync_state)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12::jsonb)
RETURNING id`,
		r.Platform, r.BookingReference, r.GuestName, r.GuestEmail, r.GuestPhone, r.PropertyName, r.PropertyID,
		r.DoorCode, r.CheckinDate, r.CheckoutDate, string(r.Status), string(state),
	).Scan(&id)
	return id, db.WrapNotFound(err)
}

func (s *Postgres) Update(ctx context.Context, r reservation.Reservation) error {
	state, err := r.SyncState.Marshal()
	if err != nil {
		return err
	}
	var id int64
	err = s.db.QueryRow(ctx, `
UPDATE reservations SET guest_name=$2,guest_email=$3,guest_phone=$4,property_name=$5,property_id=$6,door_code=$7,
	checkin_date=$8,checkout_date=$9,status=$10,sync_state=$11::jsonb,updated_at=now()
WHERE id=$1
RETURNING id`,
		r.ID, r.GuestName, r.GuestEmail, r.GuestPhone, r.PropertyName, r.PropertyID, r.DoorCode,
		r.CheckinDate, r.CheckoutDate, string(r.Status), string(state),
	).Scan(&id)
	return db.WrapNotFound(err)
}

// UpsertByDedupKey locks the row with SELECT ... FOR UPDATE. When no row
// exists the insert uses ON CONFLICT DO NOTHING; losing that race re-reads
// the winner's row under the lock and applies again as an update.
func (s *Postgres) UpsertByDedupKey(ctx context.Context, platform, ref string, apply reconcile.ApplyFunc) (reservation.Reservation, bool, error) {
	var out reservation.Reservation
	var created bool

	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		cur, err := lockByKey(ctx, tx, platform, ref)
		if err != nil {
			return err
		}
		if cur == nil {
			next, err := apply(nil)
			if err != nil {
				return err
			}
			next.Platform, next.BookingReference = platform, ref
			inserted, ok, err := insertIfAbsent(ctx, tx, next)
			if err != nil {
				return err
			}
			if ok {
				out, created = inserted, true
				return nil
			}
			if cur, err = lockByKey(ctx, tx, platform, ref); err != nil {
				return err
			}
			if cur == nil {
				return fmt.Errorf("reservation %s/%s conflicted but cannot be read", platform, ref)
			}
		}

		next, err := apply(cur)
		if err != nil {
			return err
		}
		next.ID, next.Platform, next.BookingReference = cur.ID, platform, ref
		next.CreatedAt = cur.CreatedAt
		if out, err = updateTx(ctx, tx, next); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return reservation.Reservation{}, false, err
	}
	return out, created, nil
}

func lockByKey(ctx context.Context, tx pgx.Tx, platform, ref string) (*reservation.Reservation, error) {
	r, err := scanPGReservation(tx.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE platform=$1 AND booking_reference=$2 FOR UPDATE`, platform, ref))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func insertIfAbsent(ctx context.Context, tx pgx.Tx, r reservation.Reservation) (reservation.Reservation, bool, error) {
	state, err := r.SyncState.Marshal()
	if err != nil {
		return r, false, err
	}
	err = tx.QueryRow(ctx, `
INSERT INTO reservations(platform,booking_reference,guest_name,guest_email,guest_phone,property_name,property_id,door_code,checkin_date,checkout_date,status,sync_state)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12::jsonb)
ON CONFLICT (platform, booking_reference) DO NOTHING
RETURNING id, created_at, updated_at`,
		r.Platform, r.BookingReference, r.GuestName, r.GuestEmail, r.GuestPhone, r.PropertyName, r.PropertyID,
		r.DoorCode, r.CheckinDate, r.CheckoutDate, string(r.Status), string(state),
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r, false, nil
	}
	if err != nil {
		return r, false, err
	}
	return r, true, nil
}

func updateTx(ctx context.Context, tx pgx.Tx, r reservation.Reservation) (reservation.Reservation, error) {
	state, err := r.SyncState.Marshal()
	if err != nil {
		return r, err
	}
	err = tx.QueryRow(ctx, `
UPDATE reservations SET guest_name=$2,guest_email=$3,guest_phone=$4,property_name=$5,property_id=$6,door_code=$7,
	checkin_date=$8,checkout_date=$9,status=$10,sync_state=$11::jsonb,updated_at=now()
WHERE id=$1
RETURNING updated_at`,
		r.ID, r.GuestName, r.GuestEmail, r.GuestPhone, r.PropertyName, r.PropertyID, r.DoorCode,
		r.CheckinDate, r.CheckoutDate, string(r.Status), string(state),
	).Scan(&r.UpdatedAt)
	return r, err
}

func (s *Postgres) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `INSERT INTO users(username, password_bcrypt) VALUES ($1,$2) RETURNING id`, username, passwordHash).Scan(&id)
	return id, db.WrapNotFound(err)
}

func (s *Postgres) UserByUsername(ctx context.Context, username string) (auth.User, error) {
	var u auth.User
	err := s.db.QueryRow(ctx, `SELECT id, username, password_bcrypt, created_at FROM users WHERE username=$1`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	return u, db.WrapNotFound(err)
}

func (s *Postgres) RecordImportRun(ctx context.Context, run reservation.ImportRun) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
INSERT INTO import_runs(platform,success,created,updated,synced,skipped,errors,started_at,finished_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id`,
		run.Platform, run.Summary.Success, run.Summary.Created, run.Summary.Updated, run.Summary.Synced,
		run.Summary.Skipped, joinErrors(run.Summary.Errors), run.StartedAt, run.FinishedAt,
	).Scan(&id)
	return id, db.WrapNotFound(err)
}

func (s *Postgres) ListImportRuns(ctx context.Context, limit int) ([]reservation.ImportRun, error) {
	rows, err := s.db.Query(ctx, `
SELECT id,platform,success,created,updated,synced,skipped,errors,started_at,finished_at
FROM import_runs
ORDER BY started_at DESC, id DESC
LIMIT $1`, listLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reservation.ImportRun
	for rows.Next() {
		var run reservation.ImportRun
		var errs string
		if err := rows.Scan(&run.ID, &run.Platform, &run.Summary.Success, &run.Summary.Created, &run.Summary.Updated,
			&run.Summary.Synced, &run.Summary.Skipped, &errs, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		run.Summary.Errors = splitErrors(errs)
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *Postgres) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

func listLimit(n int) int {
	if n <= 0 || n > 500 {
		return 100
	}
	return n
}

func joinErrors(errs []string) string { return strings.Join(errs, "\n") }

func splitErrors(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
