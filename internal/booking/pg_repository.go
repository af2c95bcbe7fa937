package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidaplus/clinic-booking/internal/clock"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Email,
		&d.Phone,
		&d.License,
		&d.Bio,
		&d.PhotoURL,
		&d.Active,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanSpecialty(row pgx.Row) (*Specialty, error) {
	var sp Specialty

	err := row.Scan(
		&sp.ID,
		&sp.Name,
		&sp.Description,
		&sp.DefaultDurationMin,
		&sp.Active,
		&sp.CreatedAt,
		&sp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSpecialtyNotFound
		}
		return nil, err
	}

	return &sp, nil
}

func scanSlot(row pgx.Row) (*AvailabilitySlot, error) {
	var s AvailabilitySlot
	var startMin, endMin int

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.SlotDate,
		&startMin,
		&endMin,
		&s.Modality,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.SlotDate = clock.DateOf(s.SlotDate)
	s.StartLocal = clock.TimeOfDay(startMin)
	s.EndLocal = clock.TimeOfDay(endMin)
	return &s, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var patientID *uuid.UUID
	var guestName, guestEmail, guestPhone *string

	err := row.Scan(
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
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	switch {
	case patientID != nil:
		b.Patient = RegisteredPatient{UserID: *patientID}
	case guestName != nil && guestEmail != nil:
		g := GuestPatient{Name: *guestName, Email: *guestEmail}
		if guestPhone != nil {
			g.Phone = *guestPhone
		}
		b.Patient = g
	default:
		return nil, fmt.Errorf("booking %s has no patient identity", b.ID)
	}

	b.StartUTC = b.StartUTC.UTC()
	b.EndUTC = b.EndUTC.UTC()
	return &b, nil
}

// identityColumns splits a PatientIdentity into its nullable column values.
func identityColumns(p PatientIdentity) (patientID *uuid.UUID, name, email, phone *string) {
	switch v := p.(type) {
	case RegisteredPatient:
		id := v.UserID
		patientID = &id
	case GuestPatient:
		n, e := v.Name, v.Email
		name, email = &n, &e
		if v.Phone != "" {
			ph := v.Phone
			phone = &ph
		}
	}
	return
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Doctors

const doctorColumns = "id, name, email, phone, crm, bio, photo_url, active, created_at, updated_at"

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListActiveDoctorsBySpecialty(ctx context.Context, specialtyID uuid.UUID) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.name, d.email, d.phone, d.crm, d.bio, d.photo_url, d.active, d.created_at, d.updated_at
		FROM doctors d
		JOIN doctor_specialties ds ON ds.doctor_id = d.id
		WHERE ds.specialty_id = $1
		  AND d.active
		ORDER BY d.name
	`, specialtyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	return result, rows.Err()
}

func (r *PgRepository) CreateDoctor(ctx context.Context, d *Doctor, specialtyIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO doctors (id, name, email, phone, crm, bio, photo_url, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at
	`, d.ID, d.Name, d.Email, d.Phone, d.License, d.Bio, d.PhotoURL, d.Active)
	if err := row.Scan(&d.CreatedAt, &d.UpdatedAt); err != nil {
		return fmt.Errorf("insert doctor: %w", err)
	}

	for _, spID := range specialtyIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO doctor_specialties (doctor_id, specialty_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, d.ID, spID); err != nil {
			return fmt.Errorf("link specialty: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) SetDoctorActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE doctors
		SET active = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *PgRepository) DeleteDoctor(ctx context.Context, id uuid.UUID, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE doctor_id = $1
			  AND status <> 'cancelado'
			  AND start_utc > $2
		)
	`, id, now).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check future bookings: %w", err)
	}
	if exists {
		return ErrDoctorHasBookings
	}

	if _, err := tx.Exec(ctx, `DELETE FROM availability_slots WHERE doctor_id = $1`, id); err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM doctor_specialties WHERE doctor_id = $1`, id); err != nil {
		return fmt.Errorf("unlink specialties: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete doctor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) DoctorOffersSpecialty(ctx context.Context, doctorID, specialtyID uuid.UUID) (bool, error) {
	var offers bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM doctor_specialties
			WHERE doctor_id = $1 AND specialty_id = $2
		)
	`, doctorID, specialtyID).Scan(&offers)
	return offers, err
}

// Specialties

const specialtyColumns = "id, name, description, default_duration_min, active, created_at, updated_at"

func (r *PgRepository) GetSpecialtyByID(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+specialtyColumns+`
		FROM specialties
		WHERE id = $1
	`, id)
	return scanSpecialty(row)
}

func (r *PgRepository) ListActiveSpecialties(ctx context.Context) ([]Specialty, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+specialtyColumns+`
		FROM specialties
		WHERE active
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Specialty
	for rows.Next() {
		sp, err := scanSpecialty(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *sp)
	}

	return result, rows.Err()
}

func (r *PgRepository) CreateSpecialty(ctx context.Context, sp *Specialty) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO specialties (id, name, description, default_duration_min, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at
	`, sp.ID, sp.Name, sp.Description, sp.DefaultDurationMin, sp.Active)
	if err := row.Scan(&sp.CreatedAt, &sp.UpdatedAt); err != nil {
		return fmt.Errorf("insert specialty: %w", err)
	}
	return nil
}

func (r *PgRepository) SetSpecialtyActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE specialties
		SET active = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSpecialtyNotFound
	}
	return nil
}

// Availability slots

const slotColumns = "id, doctor_id, slot_date, start_min, end_min, modality, active, created_at, updated_at"

func (r *PgRepository) ListActiveSlotsForDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]AvailabilitySlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE doctor_id = $1
		  AND slot_date = $2
		  AND active
		ORDER BY start_min
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilitySlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	return result, rows.Err()
}

func (r *PgRepository) FindCoveringSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, t clock.TimeOfDay) (*AvailabilitySlot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE doctor_id = $1
		  AND slot_date = $2
		  AND start_min <= $3
		  AND end_min > $3
		  AND active
		ORDER BY start_min
		LIMIT 1
	`, doctorID, date, int(t))
	return scanSlot(row)
}

func (r *PgRepository) SlotExists(ctx context.Context, doctorID uuid.UUID, date time.Time, start clock.TimeOfDay) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM availability_slots
			WHERE doctor_id = $1 AND slot_date = $2 AND start_min = $3
		)
	`, doctorID, date, int(start)).Scan(&exists)
	return exists, err
}

func (r *PgRepository) CreateSlot(ctx context.Context, s *AvailabilitySlot) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_slots (id, doctor_id, slot_date, start_min, end_min, modality, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`, s.ID, s.DoctorID, s.SlotDate, int(s.StartLocal), int(s.EndLocal), s.Modality, s.Active)
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return fmt.Errorf("insert availability slot: %w", err)
	}
	return nil
}

func (r *PgRepository) SetSlotActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE availability_slots
		SET active = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgRepository) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	slot, err := scanSlot(tx.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE id = $1
	`, id))
	if err != nil {
		return err
	}

	// A slot has no FK from bookings; the reference is the shared
	// (doctor, instant). Refuse the delete while an active booking
	// occupies any instant the slot covers.
	from := clock.ToUTC(slot.SlotDate, slot.StartLocal)
	to := clock.ToUTC(slot.SlotDate, slot.EndLocal)

	var referenced bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE doctor_id = $1
			  AND status <> 'cancelado'
			  AND start_utc >= $2
			  AND start_utc < $3
		)
	`, slot.DoctorID, from, to).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("check slot references: %w", err)
	}
	if referenced {
		return ErrSlotHasBookings
	}

	if _, err := tx.Exec(ctx, `DELETE FROM availability_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete availability slot: %w", err)
	}

	return tx.Commit(ctx)
}

// Bookings

const bookingColumns = "id, patient_id, guest_name, guest_email, guest_phone, doctor_id, specialty_id, start_utc, end_utc, status, origin, notes, confirmed_at, created_at"

func (r *PgRepository) ListActiveBookingStartsBetween(ctx context.Context, doctorID uuid.UUID, fromUTC, toUTC time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_utc
		FROM bookings
		WHERE doctor_id = $1
		  AND start_utc >= $2
		  AND start_utc < $3
		  AND status <> 'cancelado'
	`, doctorID, fromUTC, toUTC)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		result = append(result, t.UTC())
	}

	return result, rows.Err()
}

func (r *PgRepository) HasActiveBookingAt(ctx context.Context, doctorID uuid.UUID, startUTC time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE doctor_id = $1
			  AND start_utc = $2
			  AND status <> 'cancelado'
		)
	`, doctorID, startUTC).Scan(&exists)
	return exists, err
}

func (r *PgRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) ListBookingsByPatient(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE patient_id = $1
		ORDER BY start_utc DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	return result, rows.Err()
}

func (r *PgRepository) CreateBooking(ctx context.Context, b *Booking) error {
	patientID, guestName, guestEmail, guestPhone := identityColumns(b.Patient)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Re-check inside the transaction; the unique index still backstops
	// any race that slips past it.
	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE doctor_id = $1
			  AND start_utc = $2
			  AND status <> 'cancelado'
		)
	`, b.DoctorID, b.StartUTC).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check existing booking: %w", err)
	}
	if exists {
		return ErrSlotTaken
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO bookings (id, patient_id, guest_name, guest_email, guest_phone, doctor_id, specialty_id, start_utc, end_utc, status, origin, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		RETURNING created_at
	`, b.ID, patientID, guestName, guestEmail, guestPhone, b.DoctorID, b.SpecialtyID, b.StartUTC, b.EndUTC, b.Status, b.Origin, b.Notes)
	if err := row.Scan(&b.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("insert booking: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to BookingStatus, note string, confirmedAt *time.Time) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2,
		    notes = CASE WHEN $4 = '' THEN notes ELSE trim(both E'\n' from notes || E'\n' || $4) END,
		    confirmed_at = COALESCE($5, confirmed_at)
		WHERE id = $1
		  AND status = $3
		RETURNING `+bookingColumns+`
	`, id, to, from, note, confirmedAt)

	return scanBooking(row)
}

func (r *PgRepository) RescheduleBooking(ctx context.Context, id uuid.UUID, newStart, newEnd time.Time, note string) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings
		SET start_utc = $2,
		    end_utc = $3,
		    notes = CASE WHEN $4 = '' THEN notes ELSE trim(both E'\n' from notes || E'\n' || $4) END
		WHERE id = $1
		  AND status IN ('agendado', 'confirmado')
		RETURNING `+bookingColumns+`
	`, id, newStart, newEnd, note)

	b, err := scanBooking(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return b, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, booking_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.BookingID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
