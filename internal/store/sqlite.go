package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/bookingsync/internal/auth"
	"github.com/example/bookingsync/internal/internaltypes"
	"github.com/example/bookingsync/internal/reconcile"
	"github.com/example/bookingsync/internal/reservation"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT UNIQUE NOT NULL,
	password_bcrypt TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reservations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	platform TEXT NOT NULL,
	booking_reference TEXT NOT NULL,
	guest_name TEXT NOT NULL DEFAULT '',
	guest_email TEXT NOT NULL DEFAULT '',
	guest_phone TEXT NOT NULL DEFAULT '',
	property_name TEXT NOT NULL DEFAULT '',
	property_id TEXT NOT NULL DEFAULT '',
	door_code TEXT NOT NULL DEFAULT '',
	checkin_date TEXT NOT NULL DEFAULT '',
	checkout_date TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	sync_state TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE (platform, booking_reference)
);

CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status);

CREATE TABLE IF NOT EXISTS import_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	platform TEXT NOT NULL,
	success INTEGER NOT NULL,
	created INTEGER NOT NULL DEFAULT 0,
	updated INTEGER NOT NULL DEFAULT 0,
	synced INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	errors TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
);
`

// sqlite has no native timestamp type; times are stored as RFC 3339 text.
const sqliteTime = time.RFC3339Nano

// SQLite is the embedded single-node store. All access goes through one
// connection, so transactions are serialized.
type SQLite struct {
	conn *sql.DB
	now  func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	// BEGIN IMMEDIATE takes the write lock before the dedup read, so other
	// processes sharing the file wait instead of racing the insert.
	conn, err := sql.Open("sqlite", path+"?_txlock=immediate&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{conn: conn, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *SQLite) Close() error { return s.conn.Close() }

func (s *SQLite) Ping(ctx context.Context) error { return s.conn.PingContext(ctx) }

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteReservation(row scanner) (reservation.Reservation, error) {
	var r reservation.Reservation
	var status, state, created, updated string
	err := row.Scan(&r.ID, &r.Platform, &r.BookingReference, &r.GuestName, &r.GuestEmail, &r.GuestPhone,
		&r.PropertyName, &r.PropertyID, &r.DoorCode, &r.CheckinDate, &r.CheckoutDate, &status, &state,
		&created, &updated)
	if err != nil {
		return reservation.Reservation{}, err
	}
	r.Status = reservation.Status(status)
	if r.SyncState, err = reservation.UnmarshalSyncState([]byte(state)); err != nil {
		return reservation.Reservation{}, fmt.Errorf("decode sync_state of %d: %w", r.ID, err)
	}
	r.CreatedAt, _ = time.Parse(sqliteTime, created)
	r.UpdatedAt, _ = time.Parse(sqliteTime, updated)
	return r, nil
}

func wrapSQLNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return internaltypes.ErrNotFound
	}
	return err
}

func (s *SQLite) FindByDedupKey(ctx context.Context, platform, ref string) (reservation.Reservation, error) {
	r, err := scanSQLiteReservation(s.conn.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE platform=? AND booking_reference=?`, platform, ref))
	return r, wrapSQLNotFound(err)
}

func (s *SQLite) Get(ctx context.Context, id int64) (reservation.Reservation, error) {
	r, err := scanSQLiteReservation(s.conn.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id=?`, id))
	return r, wrapSQLNotFound(err)
}

func (s *SQLite) List(ctx context.Context, f ListFilter) ([]reservation.Reservation, error) {
	var where []string
	var args []any
	if f.Platform != "" {
		where = append(where, "platform=?")
		args = append(args, f.Platform)
	}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, f.Status)
	}
	q := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY updated_at DESC, id DESC LIMIT ?`
	args = append(args, listLimit(f.Limit))

	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reservation.Reservation
	for rows.Next() {
		r, err := scanSQLiteReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLite) insert(ctx context.Context, x execer, r *reservation.Reservation) error {
	state, err := r.SyncState.Marshal()
	if err != nil {
		return err
	}
	now := s.now()
	res, err := x.ExecContext(ctx, `
INSERT INTO reservations(platform,booking_reference,guest_name,guest_email,guest_phone,property_name,property_id,door_code,checkin_date,checkout_date,status,sync_state,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.Platform, r.BookingReference, r.GuestName, r.GuestEmail, r.GuestPhone, r.PropertyName, r.PropertyID,
		r.DoorCode, r.CheckinDate, r.CheckoutDate, string(r.Status), string(state),
		now.Format(sqliteTime), now.Format(sqliteTime))
	if err != nil {
		return err
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	r.CreatedAt, r.UpdatedAt = now, now
	return nil
}

func (s *SQLite) update(ctx context.Context, x execer, r *reservation.Reservation) error {
	state, err := r.SyncState.Marshal()
	if err != nil {
		return err
	}
	now := s.now()
	res, err := x.ExecContext(ctx, `
UPDATE reservations SET guest_name=?,guest_email=?,guest_phone=?,property_name=?,property_id=?,door_code=?,
	checkin_date=?,checkout_date=?,status=?,sync_state=?,updated_at=?
WHERE id=?`,
		r.GuestName, r.GuestEmail, r.GuestPhone, r.PropertyName, r.PropertyID, r.DoorCode,
		r.CheckinDate, r.CheckoutDate, string(r.Status), string(state), now.Format(sqliteTime), r.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return internaltypes.ErrNotFound
	}
	r.UpdatedAt = now
	return nil
}

func (s *SQLite) Create(ctx context.Context, r reservation.Reservation) (int64, error) {
	if err := s.insert(ctx, s.conn, &r); err != nil {
		return 0, err
	}
	return r.ID, nil
}

func (s *SQLite) Update(ctx context.Context, r reservation.Reservation) error {
	return s.update(ctx, s.conn, &r)
}

// UpsertByDedupKey reads and writes inside one immediate transaction, so
// neither this handle's connection nor another process can interleave.
func (s *SQLite) UpsertByDedupKey(ctx context.Context, platform, ref string, apply reconcile.ApplyFunc) (reservation.Reservation, bool, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return reservation.Reservation{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	var cur *reservation.Reservation
	r, err := scanSQLiteReservation(tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE platform=? AND booking_reference=?`, platform, ref))
	switch {
	case err == nil:
		cur = &r
	case !errors.Is(err, sql.ErrNoRows):
		return reservation.Reservation{}, false, err
	}

	next, err := apply(cur)
	if err != nil {
		return reservation.Reservation{}, false, err
	}
	next.Platform, next.BookingReference = platform, ref

	created := cur == nil
	if created {
		err = s.insert(ctx, tx, &next)
	} else {
		next.ID, next.CreatedAt = cur.ID, cur.CreatedAt
		err = s.update(ctx, tx, &next)
	}
	if err != nil {
		return reservation.Reservation{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return reservation.Reservation{}, false, err
	}
	return next, created, nil
}

func (s *SQLite) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `INSERT INTO users(username, password_bcrypt, created_at) VALUES (?,?,?)`,
		username, passwordHash, s.now().Format(sqliteTime))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLite) UserByUsername(ctx context.Context, username string) (auth.User, error) {
	var u auth.User
	var created string
	err := s.conn.QueryRowContext(ctx, `SELECT id, username, password_bcrypt, created_at FROM users WHERE username=?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &created)
	if err != nil {
		return auth.User{}, wrapSQLNotFound(err)
	}
	u.CreatedAt, _ = time.Parse(sqliteTime, created)
	return u, nil
}

func (s *SQLite) RecordImportRun(ctx context.Context, run reservation.ImportRun) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `
INSERT INTO import_runs(platform,success,created,updated,synced,skipped,errors,started_at,finished_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		run.Platform, run.Summary.Success, run.Summary.Created, run.Summary.Updated, run.Summary.Synced,
		run.Summary.Skipped, joinErrors(run.Summary.Errors),
		run.StartedAt.UTC().Format(sqliteTime), run.FinishedAt.UTC().Format(sqliteTime))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLite) ListImportRuns(ctx context.Context, limit int) ([]reservation.ImportRun, error) {
	rows, err := s.conn.QueryContext(ctx, `
SELECT id,platform,success,created,updated,synced,skipped,errors,started_at,finished_at
FROM import_runs
ORDER BY started_at DESC, id DESC
LIMIT ?`, listLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reservation.ImportRun
	for rows.Next() {
		var run reservation.ImportRun
		var errs, started, finished string
		if err := rows.Scan(&run.ID, &run.Platform, &run.Summary.Success, &run.Summary.Created, &run.Summary.Updated,
			&run.Summary.Synced, &run.Summary.Skipped, &errs, &started, &finished); err != nil {
			return nil, err
		}
		run.Summary.Errors = splitErrors(errs)
		run.StartedAt, _ = time.Parse(sqliteTime, started)
		run.FinishedAt, _ = time.Parse(sqliteTime, finished)
		out = append(out, run)
	}
	return out, rows.Err()
}
