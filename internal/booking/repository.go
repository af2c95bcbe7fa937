package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vidaplus/clinic-booking/internal/clock"
)

var (
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrSpecialtyNotFound = errors.New("specialty not found")
	ErrSlotNotFound      = errors.New("availability slot not found")
	ErrBookingNotFound   = errors.New("booking not found")

	// ErrSlotTaken is raised by the storage layer when an insert or
	// reschedule collides with the partial unique index on
	// (doctor_id, start_utc) over non-cancelled bookings. That index, not
	// the application-level pre-check, is the hard exclusivity guarantee.
	ErrSlotTaken = errors.New("slot already has an active booking")

	ErrDoctorHasBookings = errors.New("doctor has active future bookings")
	ErrSlotHasBookings   = errors.New("availability slot is referenced by bookings")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListActiveDoctorsBySpecialty(ctx context.Context, specialtyID uuid.UUID) ([]Doctor, error)
	CreateDoctor(ctx context.Context, d *Doctor, specialtyIDs []uuid.UUID) error
	SetDoctorActive(ctx context.Context, id uuid.UUID, active bool) error
	// DeleteDoctor removes a doctor and their availability, refusing with
	// ErrDoctorHasBookings while any non-cancelled booking starting after
	// now exists. Historical bookings are kept.
	DeleteDoctor(ctx context.Context, id uuid.UUID, now time.Time) error
	DoctorOffersSpecialty(ctx context.Context, doctorID, specialtyID uuid.UUID) (bool, error)

	GetSpecialtyByID(ctx context.Context, id uuid.UUID) (*Specialty, error)
	ListActiveSpecialties(ctx context.Context) ([]Specialty, error)
	CreateSpecialty(ctx context.Context, sp *Specialty) error
	SetSpecialtyActive(ctx context.Context, id uuid.UUID, active bool) error

	// ListActiveSlotsForDay returns active slots for one local calendar
	// day ordered by local start time.
	ListActiveSlotsForDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]AvailabilitySlot, error)
	// FindCoveringSlot returns the active slot whose [start, end) local
	// range contains t on the given date.
	FindCoveringSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, t clock.TimeOfDay) (*AvailabilitySlot, error)
	SlotExists(ctx context.Context, doctorID uuid.UUID, date time.Time, start clock.TimeOfDay) (bool, error)
	CreateSlot(ctx context.Context, s *AvailabilitySlot) error
	SetSlotActive(ctx context.Context, id uuid.UUID, active bool) error
	// DeleteSlot hard-deletes an unreferenced slot, failing with
	// ErrSlotHasBookings when a non-cancelled booking occupies its time.
	DeleteSlot(ctx context.Context, id uuid.UUID) error

	// For conflict checks and the occupied-set subtraction
	ListActiveBookingStartsBetween(ctx context.Context, doctorID uuid.UUID, fromUTC, toUTC time.Time) ([]time.Time, error)
	HasActiveBookingAt(ctx context.Context, doctorID uuid.UUID, startUTC time.Time) (bool, error)

	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListBookingsByPatient(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Booking, error)

	// Creation and updates
	CreateBooking(ctx context.Context, b *Booking) error
	// UpdateBookingStatus is a compare-and-swap on status; note, when
	// non-empty, is appended to the booking's audit notes.
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to BookingStatus, note string, confirmedAt *time.Time) (*Booking, error)
	RescheduleBooking(ctx context.Context, id uuid.UUID, newStart, newEnd time.Time, note string) (*Booking, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
