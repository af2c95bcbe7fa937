package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidaplus/clinic-booking/internal/clock"
)

type BookingStatus string

const (
	StatusScheduled BookingStatus = "agendado"
	StatusConfirmed BookingStatus = "confirmado"
	StatusCompleted BookingStatus = "realizado"
	StatusCancelled BookingStatus = "cancelado"
)

// Terminal reports whether no further status transitions are allowed.
func (s BookingStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Occupying reports whether a booking in this status holds its (doctor,
// start instant) against other bookings. Everything except cancelled does.
func (s BookingStatus) Occupying() bool {
	return s != StatusCancelled
}

type Origin string

const (
	OriginSite    Origin = "site"
	OriginMobile  Origin = "mobile"
	OriginChatbot Origin = "chatbot"
	OriginAdmin   Origin = "admin"
)

type Modality string

const (
	ModalityInPerson   Modality = "presencial"
	ModalityTelehealth Modality = "teleconsulta"
)

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	License   string // CRM, unique
	Bio       *string
	PhotoURL  *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Specialty struct {
	ID                 uuid.UUID
	Name               string
	Description        *string
	DefaultDurationMin int
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AvailabilitySlot is one materialized opening for one doctor on one local
// calendar date. Duration is derived from the start/end pair, never stored.
type AvailabilitySlot struct {
	ID         uuid.UUID
	DoctorID   uuid.UUID
	SlotDate   time.Time // local calendar date
	StartLocal clock.TimeOfDay
	EndLocal   clock.TimeOfDay
	Modality   Modality
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (s AvailabilitySlot) DurationMinutes() int {
	return int(s.EndLocal - s.StartLocal)
}

// Covers reports whether the slot's [start, end) local range contains t.
func (s AvailabilitySlot) Covers(t clock.TimeOfDay) bool {
	return t >= s.StartLocal && t < s.EndLocal
}

// PatientIdentity is a tagged variant: a booking belongs either to a
// registered user or to a guest snapshot captured at booking time, never a
// mix of both.
type PatientIdentity interface {
	patientIdentity()
}

type RegisteredPatient struct {
	UserID uuid.UUID
}

type GuestPatient struct {
	Name  string
	Email string
	Phone string
}

func (RegisteredPatient) patientIdentity() {}
func (GuestPatient) patientIdentity()      {}

// validIdentity reports whether p is well-formed enough to own a booking.
func validIdentity(p PatientIdentity) bool {
	switch v := p.(type) {
	case RegisteredPatient:
		return v.UserID != uuid.Nil
	case GuestPatient:
		return strings.TrimSpace(v.Name) != "" && strings.TrimSpace(v.Email) != ""
	}
	return false
}

type Booking struct {
	ID          uuid.UUID
	Patient     PatientIdentity
	DoctorID    uuid.UUID
	SpecialtyID uuid.UUID
	StartUTC    time.Time
	EndUTC      time.Time
	Status      BookingStatus
	Origin      Origin
	Notes       string
	ConfirmedAt *time.Time
	CreatedAt   time.Time
}

// OwnedBy reports whether requester may cancel or reschedule the booking:
// the owning registered user, or a guest presenting the booking's email.
func (b *Booking) OwnedBy(requester PatientIdentity) bool {
	switch owner := b.Patient.(type) {
	case RegisteredPatient:
		r, ok := requester.(RegisteredPatient)
		return ok && r.UserID == owner.UserID
	case GuestPatient:
		g, ok := requester.(GuestPatient)
		return ok && g.Email != "" && strings.EqualFold(g.Email, owner.Email)
	}
	return false
}

// FreeSlot is one bookable opening returned by the resolver, expressed in
// clinic-local terms for display.
type FreeSlot struct {
	DoctorID        uuid.UUID
	Date            time.Time
	StartLocal      clock.TimeOfDay
	DurationMinutes int
	Modality        Modality
}

type EventLog struct {
	ID        int64
	EventType string
	BookingID *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}
