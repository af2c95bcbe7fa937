package api

import (
	"time"

	"github.com/google/uuid"
)

type PatientPayload struct {
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

type CreateBookingRequest struct {
	DoctorID    string `json:"doctor_id"`
	SpecialtyID string `json:"specialty_id"`
	// Start accepts RFC 3339 or a clinic-local "2006-01-02T15:04" stamp.
	Start           string         `json:"start"`
	DurationMinutes int            `json:"duration_minutes,omitempty"`
	Patient         PatientPayload `json:"patient"`
	Origin          string         `json:"origin,omitempty"`
	Notes           string         `json:"notes,omitempty"`
}

type CancelBookingRequest struct {
	Requester PatientPayload `json:"requester"`
}

type RescheduleBookingRequest struct {
	NewStart  string         `json:"new_start"`
	Requester PatientPayload `json:"requester"`
}

type BookingResponse struct {
	ID          uuid.UUID  `json:"id"`
	DoctorID    uuid.UUID  `json:"doctor_id"`
	SpecialtyID uuid.UUID  `json:"specialty_id"`
	StartUTC    time.Time  `json:"start_utc"`
	EndUTC      time.Time  `json:"end_utc"`
	LocalDate   string     `json:"local_date"`
	LocalTime   string     `json:"local_time"`
	Status      string     `json:"status"`
	Origin      string     `json:"origin"`
	Notes       string     `json:"notes,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type FreeSlotResponse struct {
	DoctorID        uuid.UUID `json:"doctor_id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	DurationMinutes int       `json:"duration_minutes"`
	Modality        string    `json:"modality"`
}

type SpecialtyResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Description        *string   `json:"description,omitempty"`
	DefaultDurationMin int       `json:"default_duration_min"`
}

type DoctorResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	License  string    `json:"crm"`
	Bio      *string   `json:"bio,omitempty"`
	PhotoURL *string   `json:"photo_url,omitempty"`
}

type CreateDoctorRequest struct {
	Name         string   `json:"name"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	License      string   `json:"crm"`
	Bio          string   `json:"bio,omitempty"`
	PhotoURL     string   `json:"photo_url,omitempty"`
	SpecialtyIDs []string `json:"specialty_ids,omitempty"`
}

type CreateSpecialtyRequest struct {
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	DefaultDurationMin int    `json:"default_duration_min,omitempty"`
}

type GenerateSlotsRequest struct {
	DoctorID  string `json:"doctor_id"`
	StartDate string `json:"start_date"` // 2006-01-02
	EndDate   string `json:"end_date"`   // inclusive
	// Weekdays follow time.Weekday numbering: 0 is Sunday.
	Weekdays        []int  `json:"weekdays"`
	StartTime       string `json:"start_time"` // 15:04, clinic-local
	EndTime         string `json:"end_time"`
	IntervalMinutes int    `json:"interval_minutes"`
	Modality        string `json:"modality,omitempty"`
}

type GenerateSlotsResponse struct {
	Created int `json:"created"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
