package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidaplus/clinic-booking/internal/booking"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) ListBookingsNeedingReminder(ctx context.Context, kind Kind, fromUTC, toUTC time.Time) ([]booking.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id, b.patient_id, b.guest_name, b.guest_email, b.guest_phone,
		       b.doctor_id, b.specialty_id, b.start_utc, b.end_utc,
		       b.status, b.origin, b.notes, b.confirmed_at, b.created_at
		FROM bookings b
		WHERE b.status IN ('agendado', 'confirmado')
		  AND b.start_utc >= $2
		  AND b.start_utc < $3
		  AND NOT EXISTS (
			SELECT 1 FROM notifications n
			WHERE n.booking_id = b.id
			  AND n.kind = $1
			  AND n.status = 'enviado'
		  )
		ORDER BY b.start_utc
	`, kind, fromUTC, toUTC)
	if err != nil {
		return nil, fmt.Errorf("list bookings needing reminder: %w", err)
	}
	defer rows.Close()

	var result []booking.Booking
	for rows.Next() {
		var b booking.Booking
		var patientID *uuid.UUID
		var guestName, guestEmail, guestPhone *string

		err := rows.Scan(
			&b.ID,
			&patientID,
			&guestName,
			&guestEmail,
			&guestPhone,
			&b.DoctorID,
			&b.SpecialtyID,
			&b.StartUTC,
			&b.EndUTC,
			&b.Status,
			&b.Origin,
			&b.Notes,
			&b.ConfirmedAt,
			&b.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		switch {
		case patientID != nil:
			b.Patient = booking.RegisteredPatient{UserID: *patientID}
		case guestName != nil && guestEmail != nil:
			g := booking.GuestPatient{Name: *guestName, Email: *guestEmail}
			if guestPhone != nil {
				g.Phone = *guestPhone
			}
			b.Patient = g
		}

		b.StartUTC = b.StartUTC.UTC()
		b.EndUTC = b.EndUTC.UTC()
		result = append(result, b)
	}

	return result, rows.Err()
}

func (r *PgRepository) Record(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (booking_id, kind, status, attempts, sent_at, error, created_at)
		VALUES ($1, $2, $3, 1, $4, $5, now())
		ON CONFLICT (booking_id, kind) DO UPDATE
		SET status   = EXCLUDED.status,
		    attempts = notifications.attempts + 1,
		    sent_at  = EXCLUDED.sent_at,
		    error    = EXCLUDED.error
	`, n.BookingID, n.Kind, n.Status, n.SentAt, n.Error)
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}
