// Package snapshot keeps the last successfully fetched rooms and week
// bookings in sqlite so a failed reload can still show something.
package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"roombook/internal/model"
)

// Store wraps sql.DB for snapshots.
type Store struct {
	*sql.DB
	now func() time.Time
}

// Open opens the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{DB: db, now: time.Now}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			capacity INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS week_snapshots (
			room_id TEXT NOT NULL,
			week TEXT NOT NULL,
			saved_at TEXT NOT NULL,
			PRIMARY KEY (room_id, week)
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT NOT NULL,
			room_id TEXT NOT NULL,
			week TEXT NOT NULL,
			title TEXT,
			start_at TEXT NOT NULL,
			end_at TEXT NOT NULL,
			purpose TEXT,
			creator TEXT,
			PRIMARY KEY (id, room_id, week)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_room_week ON bookings(room_id, week)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveRooms replaces the stored room list.
func (s *Store) SaveRooms(ctx context.Context, rooms []model.Room) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rooms`); err != nil {
		return fmt.Errorf("clear rooms: %w", err)
	}
	for i, r := range rooms {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rooms (id, title, capacity, position) VALUES (?, ?, ?, ?)`,
			r.ID, r.Title, r.Capacity, i,
		); err != nil {
			return fmt.Errorf("insert room %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// LoadRooms returns the stored rooms in their original order.
func (s *Store) LoadRooms(ctx context.Context) ([]model.Room, error) {
	rows, err := s.QueryContext(ctx, `SELECT id, title, capacity FROM rooms ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		var r model.Room
		if err := rows.Scan(&r.ID, &r.Title, &r.Capacity); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// SaveWeek replaces the bookings stored for roomID and week.
func (s *Store) SaveWeek(ctx context.Context, roomID, week string, bookings []model.Booking) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE room_id = ? AND week = ?`, roomID, week); err != nil {
		return fmt.Errorf("clear week: %w", err)
	}
	for _, b := range bookings {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO bookings (id, room_id, week, title, start_at, end_at, purpose, creator)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, roomID, week, b.Title, formatTime(b.Start), formatTime(b.End), b.Purpose, b.Creator,
		); err != nil {
			return fmt.Errorf("insert booking %s: %w", b.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO week_snapshots (room_id, week, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(room_id, week) DO UPDATE SET saved_at = excluded.saved_at`,
		roomID, week, formatTime(s.now()),
	); err != nil {
		return fmt.Errorf("mark snapshot: %w", err)
	}
	return tx.Commit()
}

// LoadWeek returns the stored bookings of roomID and week and when they were
// saved. ok is false when no snapshot exists.
func (s *Store) LoadWeek(ctx context.Context, roomID, week string) (bookings []model.Booking, savedAt time.Time, ok bool, err error) {
	var saved string
	err = s.QueryRowContext(ctx,
		`SELECT saved_at FROM week_snapshots WHERE room_id = ? AND week = ?`, roomID, week,
	).Scan(&saved)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, err
	}
	if savedAt, err = parseTime(saved); err != nil {
		return nil, time.Time{}, false, err
	}

	rows, err := s.QueryContext(ctx,
		`SELECT id, title, start_at, end_at, purpose, creator FROM bookings
		 WHERE room_id = ? AND week = ? ORDER BY start_at`, roomID, week)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	defer rows.Close()

	bookings = []model.Booking{}
	for rows.Next() {
		var (
			b                      model.Booking
			title, purpose, author sql.NullString
			start, end             string
		)
		if err := rows.Scan(&b.ID, &title, &start, &end, &purpose, &author); err != nil {
			return nil, time.Time{}, false, err
		}
		if b.Start, err = parseTime(start); err != nil {
			return nil, time.Time{}, false, err
		}
		if b.End, err = parseTime(end); err != nil {
			return nil, time.Time{}, false, err
		}
		b.RoomID = roomID
		b.Title = title.String
		b.Purpose = purpose.String
		b.Creator = author.String
		bookings = append(bookings, b)
	}
	return bookings, savedAt, true, rows.Err()
}

// Prune removes week snapshots saved before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM bookings WHERE (room_id, week) IN
		 (SELECT room_id, week FROM week_snapshots WHERE saved_at < ?)`, formatTime(cutoff),
	); err != nil {
		return 0, fmt.Errorf("prune bookings: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM week_snapshots WHERE saved_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

// timeLayout is fixed width so stored values sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
