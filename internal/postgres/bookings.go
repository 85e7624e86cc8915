package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ariefcatur/go-hotel-desk/internal/hotel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

const Schema = `
CREATE TABLE IF NOT EXISTS bookings (
	position   INT  PRIMARY KEY,
	room_id    TEXT NOT NULL UNIQUE,
	guest_name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS booking_backups (
	backup_name TEXT        NOT NULL,
	position    INT         NOT NULL,
	room_id     TEXT        NOT NULL,
	guest_name  TEXT        NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (backup_name, position)
);`

// BookingStore keeps the booking snapshot in Postgres. It honours the same
// contract as the flat file store; backups are rows in booking_backups.
type BookingStore struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewBookingStore(db *sql.DB) *BookingStore {
	return &BookingStore{DB: db, Now: time.Now}
}

// OpenBookingStore exposes a pgx pool through database/sql.
func OpenBookingStore(pool *pgxpool.Pool) *BookingStore {
	return NewBookingStore(stdlib.OpenDBFromPool(pool))
}

func (s *BookingStore) Target() string { return "postgres:bookings" }

func (s *BookingStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, Schema); err != nil {
		return hotel.Wrap(hotel.KindIO, "unable to create booking tables", err)
	}
	return nil
}

// Save replaces every stored booking in one transaction.
func (s *BookingStore) Save(ctx context.Context, bookings []hotel.Booking) (bool, error) {
	if len(bookings) == 0 {
		return false, nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, hotel.Wrap(hotel.KindIO, "unable to save bookings", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings`); err != nil {
		return false, hotel.Wrap(hotel.KindIO, "unable to save bookings", err)
	}
	for i, b := range bookings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bookings(position, room_id, guest_name)
			VALUES ($1, $2, $3)`, i, b.RoomID, b.Guest); err != nil {
			return false, hotel.Wrap(hotel.KindIO, "unable to save bookings", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, hotel.Wrap(hotel.KindIO, "unable to save bookings", err)
	}
	return true, nil
}

func (s *BookingStore) Load(ctx context.Context) ([]hotel.Booking, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT room_id, guest_name FROM bookings ORDER BY position`)
	if err != nil {
		return nil, hotel.Wrap(hotel.KindIO, "unable to read bookings", err)
	}
	defer rows.Close()

	out := []hotel.Booking{}
	for rows.Next() {
		var b hotel.Booking
		if err := rows.Scan(&b.RoomID, &b.Guest); err != nil {
			return nil, hotel.Wrap(hotel.KindIO, "unable to read bookings", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, hotel.Wrap(hotel.KindIO, "unable to read bookings", err)
	}
	return out, nil
}

// BackupAndClear moves every stored booking into booking_backups under a
// timestamped backup name. Nothing is written when no bookings are stored.
func (s *BookingStore) BackupAndClear(ctx context.Context) (string, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", hotel.Wrap(hotel.KindIO, "unable to back up bookings", err)
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&n); err != nil {
		return "", hotel.Wrap(hotel.KindIO, "unable to back up bookings", err)
	}
	if n == 0 {
		return "", nil
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	name := fmt.Sprintf("Backup_bookings_%s", now().Format("20060102_150405"))
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO booking_backups(backup_name, position, room_id, guest_name)
		SELECT $1, position, room_id, guest_name FROM bookings`, name); err != nil {
		return "", hotel.Wrap(hotel.KindIO, "unable to back up bookings", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings`); err != nil {
		return "", hotel.Wrap(hotel.KindIO, "unable to clear bookings", err)
	}
	if err := tx.Commit(); err != nil {
		return "", hotel.Wrap(hotel.KindIO, "unable to back up bookings", err)
	}
	return name, nil
}
