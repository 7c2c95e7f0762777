package storage

import (
	"context"

	"github.com/arenalivre/courtbook/internal/model"
	"github.com/arenalivre/courtbook/libs/db"
)

// BookingRepository maintains the local snapshot of reservations committed by
// the external booking system. The availability engine reads this snapshot;
// nothing here creates reservations.
type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// ListBookedIntervals returns the confirmed reservations for one court on one
// date, ordered by start hour.
func (r *BookingRepository) ListBookedIntervals(ctx context.Context, courtID, date string) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, court_id::text, booking_date::text, start_hour, end_hour, status, created_at
		FROM bookings
		WHERE court_id = $1
			AND booking_date = $2
			AND status = 'confirmed'
		ORDER BY start_hour ASC
	`, courtID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.CourtID, &b.Date, &b.StartHour, &b.EndHour, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// UpsertConfirmed records a reservation announced by the booking system.
// Replays of the same booking id are harmless.
func (r *BookingRepository) UpsertConfirmed(ctx context.Context, b model.Booking) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bookings (id, court_id, booking_date, start_hour, end_hour, status)
		VALUES ($1, $2, $3, $4, $5, 'confirmed')
		ON CONFLICT (id) DO UPDATE
		SET court_id = EXCLUDED.court_id,
			booking_date = EXCLUDED.booking_date,
			start_hour = EXCLUDED.start_hour,
			end_hour = EXCLUDED.end_hour,
			status = 'confirmed',
			updated_at = now()
	`, b.ID, b.CourtID, b.Date, b.StartHour, b.EndHour)
	return err
}

func (r *BookingRepository) MarkCancelled(ctx context.Context, bookingID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
			updated_at = now()
		WHERE id = $1
	`, bookingID)
	return err
}
