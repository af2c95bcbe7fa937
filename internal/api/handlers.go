package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vidaplus/clinic-booking/internal/booking"
	"github.com/vidaplus/clinic-booking/internal/clock"
	redisclient "github.com/vidaplus/clinic-booking/internal/redis"
)

// BookingService is the slice of the booking service the HTTP layer needs.
type BookingService interface {
	ListSpecialties(ctx context.Context) ([]booking.Specialty, error)
	ListDoctorsBySpecialty(ctx context.Context, specialtyID uuid.UUID) ([]booking.Doctor, error)
	FindFreeSlots(ctx context.Context, doctorID uuid.UUID, searchStart time.Time, windowDays, limit int, period clock.Period) ([]booking.FreeSlot, error)
	FindFreeSlotsBySpecialty(ctx context.Context, specialtyID uuid.UUID, searchStart time.Time, windowDays, limit int, period clock.Period) ([]booking.FreeSlot, error)

	CreateBooking(ctx context.Context, in booking.CreateBookingInput) (*booking.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	ListBookingsByPatient(ctx context.Context, userID uuid.UUID, limit, offset int) ([]booking.Booking, error)
	ConfirmBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	CancelBooking(ctx context.Context, id uuid.UUID, requester booking.PatientIdentity) (*booking.Booking, error)
	RescheduleBooking(ctx context.Context, id uuid.UUID, newStart time.Time, requester booking.PatientIdentity) (*booking.Booking, error)
	CompleteBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)

	GenerateSlots(ctx context.Context, in booking.GenerateSlotsInput) (int, error)
	DeactivateSlot(ctx context.Context, id uuid.UUID) error
	DeleteSlot(ctx context.Context, id uuid.UUID) error
	CreateDoctor(ctx context.Context, d *booking.Doctor, specialtyIDs []uuid.UUID) error
	DeactivateDoctor(ctx context.Context, id uuid.UUID) error
	DeleteDoctor(ctx context.Context, id uuid.UUID) error
	CreateSpecialty(ctx context.Context, sp *booking.Specialty) error
	DeactivateSpecialty(ctx context.Context, id uuid.UUID) error
}

// -- responses --

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// handleServiceError maps the booking error taxonomy onto HTTP statuses.
// Anything unmapped is an internal error and must not leak details.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, booking.ErrSpecialtyNotFound):
		writeError(w, http.StatusNotFound, "specialty_not_found", err.Error())
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, booking.ErrMissingPatientInfo):
		writeError(w, http.StatusBadRequest, "missing_patient_info", err.Error())
	case errors.Is(err, booking.ErrPastDate):
		writeError(w, http.StatusBadRequest, "past_date", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_already_taken", err.Error())
	case errors.Is(err, booking.ErrSlotBeingBooked), errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrNoAvailability):
		writeError(w, http.StatusConflict, "no_availability", err.Error())
	case errors.Is(err, booking.ErrDoctorInactive):
		writeError(w, http.StatusConflict, "doctor_inactive", err.Error())
	case errors.Is(err, booking.ErrSpecialtyInactive):
		writeError(w, http.StatusConflict, "specialty_inactive", err.Error())
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrCancelWindowPassed):
		writeError(w, http.StatusConflict, "cancellation_window_passed", err.Error())
	case errors.Is(err, booking.ErrSpecialtyNotOffered):
		writeError(w, http.StatusConflict, "specialty_not_offered", err.Error())
	case errors.Is(err, booking.ErrDoctorHasBookings):
		writeError(w, http.StatusConflict, "doctor_has_bookings", err.Error())
	case errors.Is(err, booking.ErrSlotHasBookings):
		writeError(w, http.StatusConflict, "slot_has_bookings", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}

// -- parsing helpers --

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// parseStart parses a booking instant: RFC 3339, or a naive stamp taken as
// clinic-local time.
func parseStart(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, clock.Zone); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return clock.DateOf(t), nil
}

func (p PatientPayload) identity() (booking.PatientIdentity, error) {
	if p.UserID != "" {
		id, err := uuid.Parse(p.UserID)
		if err != nil {
			return nil, fmt.Errorf("user_id must be a valid UUID")
		}
		return booking.RegisteredPatient{UserID: id}, nil
	}
	return booking.GuestPatient{Name: p.Name, Email: p.Email, Phone: p.Phone}, nil
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	date, t := clock.ToLocal(b.StartUTC)
	return BookingResponse{
		ID:          b.ID,
		DoctorID:    b.DoctorID,
		SpecialtyID: b.SpecialtyID,
		StartUTC:    b.StartUTC,
		EndUTC:      b.EndUTC,
		LocalDate:   date.Format("2006-01-02"),
		LocalTime:   t.String(),
		Status:      string(b.Status),
		Origin:      string(b.Origin),
		Notes:       b.Notes,
		ConfirmedAt: b.ConfirmedAt,
		CreatedAt:   b.CreatedAt,
	}
}

func toFreeSlotResponses(slots []booking.FreeSlot) []FreeSlotResponse {
	out := make([]FreeSlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, FreeSlotResponse{
			DoctorID:        s.DoctorID,
			Date:            s.Date.Format("2006-01-02"),
			Time:            s.StartLocal.String(),
			DurationMinutes: s.DurationMinutes,
			Modality:        string(s.Modality),
		})
	}
	return out
}

// freeSlotQuery pulls the shared search parameters off a free-slot request.
func freeSlotQuery(r *http.Request) (start time.Time, days, limit int, period clock.Period, err error) {
	q := r.URL.Query()

	if v := q.Get("start"); v != "" {
		start, err = parseDate(v)
		if err != nil {
			return start, 0, 0, "", fmt.Errorf("start must be YYYY-MM-DD")
		}
	}
	if v := q.Get("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil {
			return start, 0, 0, "", fmt.Errorf("days must be an integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			return start, 0, 0, "", fmt.Errorf("limit must be an integer")
		}
	}
	if v := q.Get("period"); v != "" {
		period, err = clock.ParsePeriod(v)
		if err != nil {
			return start, 0, 0, "", fmt.Errorf("period must be morning, afternoon or evening")
		}
	}
	return start, days, limit, period, nil
}

// -- catalog --

func listSpecialtiesHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialties, err := svc.ListSpecialties(r.Context())
		if err != nil {
			handleServiceError(w, err)
			return
		}

		out := make([]SpecialtyResponse, 0, len(specialties))
		for _, sp := range specialties {
			out = append(out, SpecialtyResponse{
				ID:                 sp.ID,
				Name:               sp.Name,
				Description:        sp.Description,
				DefaultDurationMin: sp.DefaultDurationMin,
			})
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func listDoctorsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialtyID, err := parseUUIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialty_id", "id must be a valid UUID")
			return
		}

		doctors, err := svc.ListDoctorsBySpecialty(r.Context(), specialtyID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		out := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			out = append(out, DoctorResponse{
				ID:       d.ID,
				Name:     d.Name,
				License:  d.License,
				Bio:      d.Bio,
				PhotoURL: d.PhotoURL,
			})
		}

		writeJSON(w, http.StatusOK, out)
	}
}

// -- free slots --

func doctorFreeSlotsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := parseUUIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		start, days, limit, period, err := freeSlotQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
			return
		}

		slots, err := svc.FindFreeSlots(r.Context(), doctorID, start, days, limit, period)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toFreeSlotResponses(slots))
	}
}

func specialtyFreeSlotsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialtyID, err := parseUUIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialty_id", "id must be a valid UUID")
			return
		}

		start, days, limit, period, err := freeSlotQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
			return
		}

		slots, err := svc.FindFreeSlotsBySpecialty(r.Context(), specialtyID, start, days, limit, period)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toFreeSlotResponses(slots))
	}
}

// -- bookings --

func createBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		specialtyID, err := uuid.Parse(req.SpecialtyID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialty_id", "specialty_id must be a valid UUID")
			return
		}

		start, err := parseStart(req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", err.Error())
			return
		}

		patient, err := req.Patient.identity()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient", err.Error())
			return
		}

		b, err := svc.CreateBooking(r.Context(), booking.CreateBookingInput{
			DoctorID:        doctorID,
			SpecialtyID:     specialtyID,
			Start:           start,
			DurationMinutes: req.DurationMinutes,
			Patient:         patient,
			Origin:          booking.Origin(req.Origin),
			Notes:           req.Notes,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBookingResponse(b))
	}
}

func getBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		b, err := svc.GetBooking(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func listPatientBookingsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := parseUUIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		var limit, offset int
		if v := r.URL.Query().Get("limit"); v != "" {
			if limit, err = strconv.Atoi(v); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_query", "limit must be an integer")
				return
			}
		}
		if v := r.URL.Query().Get("offset"); v != "" {
			if offset, err = strconv.Atoi(v); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_query", "offset must be an integer")
				return
			}
		}

		bookings, err := svc.ListBookingsByPatient(r.Context(), userID, limit, offset)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		out := make([]BookingResponse, 0, len(bookings))
		for i := range bookings {
			out = append(out, toBookingResponse(&bookings[i]))
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func confirmBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		b, err := svc.ConfirmBooking(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func cancelBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		var req CancelBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		requester, err := req.Requester.identity()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_requester", err.Error())
			return
		}

		b, err := svc.CancelBooking(r.Context(), id, requester)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func rescheduleBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		var req RescheduleBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		newStart, err := parseStart(req.NewStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_new_start", err.Error())
			return
		}

		requester, err := req.Requester.identity()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_requester", err.Error())
			return
		}

		b, err := svc.RescheduleBooking(r.Context(), id, newStart, requester)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func completeBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		b, err := svc.CompleteBooking(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

// -- admin --

func generateSlotsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateSlotsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		startDate, err := parseDate(req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_date", "start_date must be YYYY-MM-DD")
			return
		}
		endDate, err := parseDate(req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_date", "end_date must be YYYY-MM-DD")
			return
		}

		startTime, err := clock.ParseTimeOfDay(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM")
			return
		}
		endTime, err := clock.ParseTimeOfDay(req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be HH:MM")
			return
		}

		weekdays := make([]time.Weekday, 0, len(req.Weekdays))
		for _, wd := range req.Weekdays {
			if wd < 0 || wd > 6 {
				writeError(w, http.StatusBadRequest, "invalid_weekday", "weekdays must be 0 (Sunday) through 6 (Saturday)")
				return
			}
			weekdays = append(weekdays, time.Weekday(wd))
		}

		created, err := svc.GenerateSlots(r.Context(), booking.GenerateSlotsInput{
			DoctorID:        doctorID,
			StartDate:       startDate,
			EndDate:         endDate,
			Weekdays:        weekdays,
			StartLocal:      startTime,
			EndLocal:        endTime,
			IntervalMinutes: req.IntervalMinutes,
			Modality:        booking.Modality(req.Modality),
		})
		if err != nil {
			if errors.Is(err, booking.ErrDoctorNotFound) || errors.Is(err, booking.ErrDoctorInactive) {
				handleServiceError(w, err)
				return
			}
			writeError(w, http.StatusBadRequest, "invalid_generation_request", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, GenerateSlotsResponse{Created: created})
	}
}

func deactivateSlotHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeactivateSlot(r.Context(), id); err != nil {
			handleServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteSlotHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeleteSlot(r.Context(), id); err != nil {
			handleServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func createDoctorHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDoctorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		specialtyIDs := make([]uuid.UUID, 0, len(req.SpecialtyIDs))
		for _, raw := range req.SpecialtyIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_specialty_id", "specialty_ids must be valid UUIDs")
				return
			}
			specialtyIDs = append(specialtyIDs, id)
		}

		d := &booking.Doctor{
			Name:    req.Name,
			License: req.License,
		}
		if req.Email != "" {
			d.Email = &req.Email
		}
		if req.Phone != "" {
			d.Phone = &req.Phone
		}
		if req.Bio != "" {
			d.Bio = &req.Bio
		}
		if req.PhotoURL != "" {
			d.PhotoURL = &req.PhotoURL
		}

		if err := svc.CreateDoctor(r.Context(), d, specialtyIDs); err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, DoctorResponse{
			ID:       d.ID,
			Name:     d.Name,
			License:  d.License,
			Bio:      d.Bio,
			PhotoURL: d.PhotoURL,
		})
	}
}

func deactivateDoctorHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeactivateDoctor(r.Context(), id); err != nil {
			handleServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteDoctorHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeleteDoctor(r.Context(), id); err != nil {
			handleServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func createSpecialtyHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSpecialtyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		sp := &booking.Specialty{
			Name:               req.Name,
			DefaultDurationMin: req.DefaultDurationMin,
		}
		if req.Description != "" {
			sp.Description = &req.Description
		}

		if err := svc.CreateSpecialty(r.Context(), sp); err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, SpecialtyResponse{
			ID:                 sp.ID,
			Name:               sp.Name,
			Description:        sp.Description,
			DefaultDurationMin: sp.DefaultDurationMin,
		})
	}
}

func deactivateSpecialtyHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialty_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeactivateSpecialty(r.Context(), id); err != nil {
			handleServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
