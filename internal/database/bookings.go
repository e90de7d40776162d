package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

const bookingColumns = `b.id, b.item_id, i.name, i.owner_id, b.booker_id, u.name,
	b.start_time, b.end_time, b.status, b.created_at, b.updated_at`

const bookingFrom = `FROM bookings b
	JOIN items i ON i.id = b.item_id
	JOIN users u ON u.id = b.booker_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(
		&b.ID, &b.ItemID, &b.ItemName, &b.ItemOwnerID, &b.BookerID, &b.BookerName,
		&b.Start, &b.End, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CreateBooking inserts the booking in one transaction, re-checking inside it
// that booker and item exist and that the item is still available.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var bookerName string
	err = tx.QueryRowContext(ctx, `SELECT name FROM users WHERE id = ?`, booking.BookerID).Scan(&bookerName)
	if err != nil {
		return mapError(err, fmt.Sprintf("booker %d", booking.BookerID))
	}

	var (
		itemName  string
		ownerID   int64
		available bool
	)
	err = tx.QueryRowContext(ctx, `SELECT name, owner_id, available FROM items WHERE id = ?`, booking.ItemID).
		Scan(&itemName, &ownerID, &available)
	if err != nil {
		return mapError(err, fmt.Sprintf("item %d", booking.ItemID))
	}
	if !available {
		return fmt.Errorf("%w: item %d is not available", domain.ErrBadRequest, booking.ItemID)
	}

	if booking.Status == "" {
		booking.Status = models.StatusWaiting
	}

	// Callers stamp CreatedAt from their clock; wall time is the fallback.
	now := booking.CreatedAt.UTC()
	if booking.CreatedAt.IsZero() {
		now = time.Now().UTC()
	}
	result, err := tx.ExecContext(ctx, `INSERT INTO bookings (
				item_id, booker_id, start_time, end_time, status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		booking.ItemID,
		booking.BookerID,
		booking.Start.UTC(),
		booking.End.UTC(),
		booking.Status,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.ID = id
	booking.ItemName = itemName
	booking.ItemOwnerID = ownerID
	booking.BookerName = bookerName
	booking.Start = booking.Start.UTC()
	booking.End = booking.End.UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` ` + bookingFrom + ` WHERE b.id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("booking %d", id))
	}
	return booking, nil
}

// UpdateBookingStatus sets the status and stamps updated_at with at.
func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus, at time.Time) error {
	query := `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, status, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return checkAffected(result, fmt.Sprintf("booking %d", id))
}

func (db *DB) GetBookingsByBooker(ctx context.Context, bookerID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` ` + bookingFrom + `
              WHERE b.booker_id = ? ORDER BY b.start_time DESC, b.id ASC`
	return db.queryBookings(ctx, "get booker bookings", query, bookerID)
}

func (db *DB) GetBookingsByItemOwner(ctx context.Context, ownerID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` ` + bookingFrom + `
              WHERE i.owner_id = ? ORDER BY b.start_time DESC, b.id ASC`
	return db.queryBookings(ctx, "get owner bookings", query, ownerID)
}

// GetBookingsByItemIDs loads all bookings of the given items in one query, ordered by id.
func (db *DB) GetBookingsByItemIDs(ctx context.Context, itemIDs []int64) ([]*models.Booking, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(itemIDs)
	query := `SELECT ` + bookingColumns + ` ` + bookingFrom + `
              WHERE b.item_id IN (` + placeholders + `) ORDER BY b.id ASC`
	return db.queryBookings(ctx, "get bookings by items", query, args...)
}

func (db *DB) queryBookings(ctx context.Context, what, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	return bookings, nil
}

// GetNextBooking returns the booking of the item with the earliest start after now, or nil.
func (db *DB) GetNextBooking(ctx context.Context, itemID int64, now time.Time) (*models.BookingPeriod, error) {
	query := `SELECT id, booker_id, start_time, end_time FROM bookings
              WHERE item_id = ? AND start_time > ?
              ORDER BY start_time ASC, id ASC LIMIT 1`
	return db.queryPeriod(ctx, query, itemID, now.UTC())
}

// GetLastBooking returns the booking of the item with the latest end before now, or nil.
func (db *DB) GetLastBooking(ctx context.Context, itemID int64, now time.Time) (*models.BookingPeriod, error) {
	query := `SELECT id, booker_id, start_time, end_time FROM bookings
              WHERE item_id = ? AND end_time < ?
              ORDER BY end_time DESC, id ASC LIMIT 1`
	return db.queryPeriod(ctx, query, itemID, now.UTC())
}

func (db *DB) queryPeriod(ctx context.Context, query string, args ...interface{}) (*models.BookingPeriod, error) {
	var p models.BookingPeriod
	err := db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.BookerID, &p.Start, &p.End)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking period: %w", err)
	}
	return &p, nil
}

// HasCompletedBooking reports whether the booker has an approved booking of the item that ended before the instant.
func (db *DB) HasCompletedBooking(ctx context.Context, bookerID, itemID int64, before time.Time) (bool, error) {
	query := `SELECT EXISTS (
                SELECT 1 FROM bookings
                WHERE booker_id = ? AND item_id = ? AND status = ? AND end_time < ?
              )`
	var exists bool
	err := db.QueryRowContext(ctx, query, bookerID, itemID, models.StatusApproved, before.UTC()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check completed booking: %w", err)
	}
	return exists, nil
}
