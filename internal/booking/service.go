package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vidaplus/clinic-booking/internal/clock"
	"github.com/vidaplus/clinic-booking/internal/config"
	redisclient "github.com/vidaplus/clinic-booking/internal/redis"
)

const (
	EventBookingCreated     = "BOOKING_CREATED"
	EventBookingConfirmed   = "BOOKING_CONFIRMED"
	EventBookingCancelled   = "BOOKING_CANCELLED"
	EventBookingRescheduled = "BOOKING_RESCHEDULED"
	EventBookingCompleted   = "BOOKING_COMPLETED"
)

const (
	defaultFreeSlotLimit    = 10
	defaultSearchWindowDays = 14
	defaultDurationMin      = 30

	// perDoctorSlotLimit caps how many openings each doctor contributes
	// to a specialty-wide availability answer.
	perDoctorSlotLimit = 3
)

var (
	ErrDoctorInactive    = errors.New("doctor is deactivated")
	ErrSpecialtyInactive = errors.New("specialty is deactivated")

	ErrMissingPatientInfo = errors.New("booking needs a registered user or a guest with name and email")
	ErrPastDate           = errors.New("requested time is not in the future")
	ErrNoAvailability     = errors.New("doctor has no open availability for this time")
	ErrSlotBeingBooked    = errors.New("slot is currently being booked, please retry")

	ErrForbidden               = errors.New("requester does not own this booking")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrCancelWindowPassed      = errors.New("bookings can only be changed up to the cancellation cutoff before their start")

	ErrSpecialtyNotOffered = errors.New("doctor does not offer this specialty")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	clk    clock.Clock
	cfg    config.Config
	log    zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, clk clock.Clock, cfg config.Config, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		clk:    clk,
		cfg:    cfg,
		log:    log,
	}
}

// -- Free-slot resolution --

// FindFreeSlots walks the search window day by day and returns the doctor's
// open, future, not-yet-booked slots in (date, time) order. Occupied starts
// are looked up per local day through the UTC day window so that slot-local
// times and stored UTC instants are never compared raw.
func (s *Service) FindFreeSlots(ctx context.Context, doctorID uuid.UUID, searchStart time.Time, windowDays, limit int, period clock.Period) ([]FreeSlot, error) {
	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.Active {
		return nil, ErrDoctorInactive
	}

	if windowDays <= 0 {
		windowDays = defaultSearchWindowDays
	}
	if limit <= 0 {
		limit = defaultFreeSlotLimit
	}

	nowDate, nowTime := clock.ToLocal(s.clk.Now())
	if searchStart.IsZero() {
		searchStart = nowDate
	} else {
		searchStart = clock.DateOf(searchStart)
	}

	var free []FreeSlot
	for i := 0; i < windowDays && len(free) < limit; i++ {
		day := searchStart.AddDate(0, 0, i)

		slots, err := s.repo.ListActiveSlotsForDay(ctx, doctorID, day)
		if err != nil {
			return nil, fmt.Errorf("load slots for %s: %w", day.Format("2006-01-02"), err)
		}
		if len(slots) == 0 {
			continue
		}

		from, to := clock.DayWindowUTC(day)
		starts, err := s.repo.ListActiveBookingStartsBetween(ctx, doctorID, from, to)
		if err != nil {
			return nil, fmt.Errorf("load bookings for %s: %w", day.Format("2006-01-02"), err)
		}

		occupied := make(map[clock.TimeOfDay]bool, len(starts))
		for _, st := range starts {
			_, t := clock.ToLocal(st)
			occupied[t] = true
		}

		for _, slot := range slots {
			if occupied[slot.StartLocal] {
				continue
			}
			if period != "" && !period.Contains(slot.StartLocal) {
				continue
			}
			// Strictly future; both sides are clinic-local.
			if day.Before(nowDate) || (day.Equal(nowDate) && slot.StartLocal <= nowTime) {
				continue
			}

			free = append(free, FreeSlot{
				DoctorID:        doctorID,
				Date:            slot.SlotDate,
				StartLocal:      slot.StartLocal,
				DurationMinutes: slot.DurationMinutes(),
				Modality:        slot.Modality,
			})
			if len(free) >= limit {
				break
			}
		}
	}

	return free, nil
}

// FindFreeSlotsBySpecialty fans FindFreeSlots out over every active doctor
// offering the specialty, a few openings per doctor, capped overall.
func (s *Service) FindFreeSlotsBySpecialty(ctx context.Context, specialtyID uuid.UUID, searchStart time.Time, windowDays, limit int, period clock.Period) ([]FreeSlot, error) {
	sp, err := s.repo.GetSpecialtyByID(ctx, specialtyID)
	if err != nil {
		return nil, err
	}
	if !sp.Active {
		return nil, ErrSpecialtyInactive
	}

	if limit <= 0 {
		limit = defaultFreeSlotLimit
	}

	doctors, err := s.repo.ListActiveDoctorsBySpecialty(ctx, specialtyID)
	if err != nil {
		return nil, fmt.Errorf("list doctors for specialty: %w", err)
	}

	var free []FreeSlot
	for _, d := range doctors {
		perDoctor := perDoctorSlotLimit
		if remaining := limit - len(free); remaining < perDoctor {
			perDoctor = remaining
		}
		if perDoctor <= 0 {
			break
		}

		slots, err := s.FindFreeSlots(ctx, d.ID, searchStart, windowDays, perDoctor, period)
		if err != nil {
			return nil, err
		}
		free = append(free, slots...)
	}

	return free, nil
}

// -- Booking transaction manager --

type CreateBookingInput struct {
	DoctorID    uuid.UUID
	SpecialtyID uuid.UUID
	// Start is the requested instant; callers may build it from clinic-local
	// wall time or pass an absolute instant, it is normalized to UTC here.
	Start           time.Time
	DurationMinutes int // 0 means the specialty's default duration
	Patient         PatientIdentity
	Origin          Origin
	Notes           string
}

// CreateBooking validates the request in a fixed order, then claims the
// instant under a per-slot lock. The partial unique index on active
// (doctor, start) pairs makes the claim safe even if the lock is lost.
func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput) (*Booking, error) {
	doctor, err := s.repo.GetDoctorByID(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.Active {
		return nil, ErrDoctorInactive
	}

	sp, err := s.repo.GetSpecialtyByID(ctx, in.SpecialtyID)
	if err != nil {
		return nil, err
	}
	if !sp.Active {
		return nil, ErrSpecialtyInactive
	}

	if !validIdentity(in.Patient) {
		return nil, ErrMissingPatientInfo
	}

	startUTC := in.Start.UTC().Truncate(time.Minute)
	if !startUTC.After(s.clk.Now()) {
		return nil, ErrPastDate
	}

	duration := in.DurationMinutes
	if duration <= 0 {
		duration = sp.DefaultDurationMin
	}
	if duration <= 0 {
		duration = defaultDurationMin
	}
	endUTC := startUTC.Add(time.Duration(duration) * time.Minute)

	if s.cfg.StrictSpecialtyMatch {
		offers, err := s.repo.DoctorOffersSpecialty(ctx, in.DoctorID, in.SpecialtyID)
		if err != nil {
			return nil, fmt.Errorf("check doctor specialty: %w", err)
		}
		if !offers {
			return nil, ErrSpecialtyNotOffered
		}
	}

	localDate, localTime := clock.ToLocal(startUTC)
	if _, err := s.repo.FindCoveringSlot(ctx, in.DoctorID, localDate, localTime); err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, ErrNoAvailability
		}
		return nil, fmt.Errorf("find covering slot: %w", err)
	}

	origin := in.Origin
	if origin == "" {
		origin = OriginSite
	}

	var created *Booking

	err = s.locker.WithSlotLock(ctx, in.DoctorID, startUTC, func(lockCtx context.Context) error {
		taken, err := s.repo.HasActiveBookingAt(lockCtx, in.DoctorID, startUTC)
		if err != nil {
			return fmt.Errorf("check existing booking: %w", err)
		}
		if taken {
			return ErrSlotTaken
		}

		b := &Booking{
			ID:          uuid.New(),
			Patient:     in.Patient,
			DoctorID:    in.DoctorID,
			SpecialtyID: in.SpecialtyID,
			StartUTC:    startUTC,
			EndUTC:      endUTC,
			Status:      StatusScheduled,
			Origin:      origin,
			Notes:       in.Notes,
		}
		if err := s.repo.CreateBooking(lockCtx, b); err != nil {
			return err
		}

		created = b

		s.logEvent(lockCtx, b.ID, EventBookingCreated, map[string]any{
			"doctor_id":    in.DoctorID.String(),
			"specialty_id": in.SpecialtyID.String(),
			"start_utc":    startUTC,
			"origin":       string(origin),
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

// CancelBooking cancels a scheduled or confirmed booking when the requester
// owns it and the cancellation cutoff has not passed. The cutoff check is
// strict: exactly at the boundary cancellation is already refused.
func (s *Service) CancelBooking(ctx context.Context, id uuid.UUID, requester PatientIdentity) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.OwnedBy(requester) {
		return nil, ErrForbidden
	}
	if b.Status != StatusScheduled && b.Status != StatusConfirmed {
		return nil, ErrInvalidStatusTransition
	}

	now := s.clk.Now()
	if !now.Before(b.StartUTC.Add(-s.cfg.CancelCutoff)) {
		return nil, ErrCancelWindowPassed
	}

	note := fmt.Sprintf("Cancelado em %s", s.formatLocal(now))
	updated, err := s.repo.UpdateBookingStatus(ctx, id, b.Status, StatusCancelled, note, nil)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			// Lost a status race after the load.
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	s.logEvent(ctx, id, EventBookingCancelled, map[string]any{
		"previous_status": string(b.Status),
	})

	return updated, nil
}

// RescheduleBooking moves a booking to a new instant, preserving its
// duration. The cutoff applies to the original start; the new start must be
// free and strictly in the future.
func (s *Service) RescheduleBooking(ctx context.Context, id uuid.UUID, newStart time.Time, requester PatientIdentity) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.OwnedBy(requester) {
		return nil, ErrForbidden
	}
	if b.Status != StatusScheduled && b.Status != StatusConfirmed {
		return nil, ErrInvalidStatusTransition
	}

	now := s.clk.Now()
	if !now.Before(b.StartUTC.Add(-s.cfg.CancelCutoff)) {
		return nil, ErrCancelWindowPassed
	}

	newStartUTC := newStart.UTC().Truncate(time.Minute)
	if !newStartUTC.After(now) {
		return nil, ErrPastDate
	}

	duration := b.EndUTC.Sub(b.StartUTC)
	note := fmt.Sprintf("Remarcado de %s para %s", s.formatLocal(b.StartUTC), s.formatLocal(newStartUTC))

	var updated *Booking

	err = s.locker.WithSlotLock(ctx, b.DoctorID, newStartUTC, func(lockCtx context.Context) error {
		taken, err := s.repo.HasActiveBookingAt(lockCtx, b.DoctorID, newStartUTC)
		if err != nil {
			return fmt.Errorf("check new start: %w", err)
		}
		if taken {
			return ErrSlotTaken
		}

		updated, err = s.repo.RescheduleBooking(lockCtx, id, newStartUTC, newStartUTC.Add(duration), note)
		if err != nil {
			if errors.Is(err, ErrBookingNotFound) {
				return ErrInvalidStatusTransition
			}
			return err
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.logEvent(ctx, id, EventBookingRescheduled, map[string]any{
		"from": b.StartUTC,
		"to":   newStartUTC,
	})

	return updated, nil
}

// ConfirmBooking moves a scheduled booking to confirmed and stamps the
// confirmation time.
func (s *Service) ConfirmBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusScheduled {
		return nil, ErrInvalidStatusTransition
	}

	now := s.clk.Now()
	updated, err := s.repo.UpdateBookingStatus(ctx, id, StatusScheduled, StatusConfirmed, "", &now)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("confirm booking: %w", err)
	}

	s.logEvent(ctx, id, EventBookingConfirmed, map[string]any{})

	return updated, nil
}

// CompleteBooking marks a scheduled or confirmed booking as completed.
// There is no automatic transition; staff drive this after the visit.
func (s *Service) CompleteBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusScheduled && b.Status != StatusConfirmed {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateBookingStatus(ctx, id, b.Status, StatusCompleted, "", nil)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("complete booking: %w", err)
	}

	s.logEvent(ctx, id, EventBookingCompleted, map[string]any{
		"previous_status": string(b.Status),
	})

	return updated, nil
}

// -- Availability administration --

type GenerateSlotsInput struct {
	DoctorID        uuid.UUID
	StartDate       time.Time
	EndDate         time.Time // inclusive
	Weekdays        []time.Weekday
	StartLocal      clock.TimeOfDay
	EndLocal        clock.TimeOfDay
	IntervalMinutes int
	Modality        Modality
}

// GenerateSlots expands a date range, weekday mask and local time range into
// individual slot rows, skipping (doctor, date, start) triples that already
// exist. Re-running with the same input creates nothing new; a failure
// mid-run leaves the rows created so far, which the existence check makes
// harmless.
func (s *Service) GenerateSlots(ctx context.Context, in GenerateSlotsInput) (int, error) {
	doctor, err := s.repo.GetDoctorByID(ctx, in.DoctorID)
	if err != nil {
		return 0, err
	}
	if !doctor.Active {
		return 0, ErrDoctorInactive
	}

	if in.IntervalMinutes <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %d", in.IntervalMinutes)
	}
	if !in.StartLocal.Valid() || !in.EndLocal.Valid() || in.StartLocal >= in.EndLocal {
		return 0, fmt.Errorf("invalid local time range %s-%s", in.StartLocal, in.EndLocal)
	}
	start := clock.DateOf(in.StartDate)
	end := clock.DateOf(in.EndDate)
	if end.Before(start) {
		return 0, fmt.Errorf("end date %s before start date %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	wanted := make(map[time.Weekday]bool, len(in.Weekdays))
	for _, wd := range in.Weekdays {
		wanted[wd] = true
	}

	modality := in.Modality
	if modality == "" {
		modality = ModalityInPerson
	}

	interval := clock.TimeOfDay(in.IntervalMinutes)
	created := 0

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if !wanted[day.Weekday()] {
			continue
		}

		for t := in.StartLocal; t+interval <= in.EndLocal; t += interval {
			exists, err := s.repo.SlotExists(ctx, in.DoctorID, day, t)
			if err != nil {
				return created, fmt.Errorf("check slot %s %s: %w", day.Format("2006-01-02"), t, err)
			}
			if exists {
				continue
			}

			slot := &AvailabilitySlot{
				ID:         uuid.New(),
				DoctorID:   in.DoctorID,
				SlotDate:   day,
				StartLocal: t,
				EndLocal:   t + interval,
				Modality:   modality,
				Active:     true,
			}
			if err := s.repo.CreateSlot(ctx, slot); err != nil {
				return created, fmt.Errorf("create slot %s %s: %w", day.Format("2006-01-02"), t, err)
			}
			created++
		}
	}

	s.log.Info().
		Str("doctor_id", in.DoctorID.String()).
		Int("created", created).
		Msg("availability slots generated")

	return created, nil
}

func (s *Service) DeactivateSlot(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetSlotActive(ctx, id, false)
}

func (s *Service) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteSlot(ctx, id)
}

// -- Catalog and admin passthroughs --

func (s *Service) ListSpecialties(ctx context.Context) ([]Specialty, error) {
	return s.repo.ListActiveSpecialties(ctx)
}

func (s *Service) ListDoctorsBySpecialty(ctx context.Context, specialtyID uuid.UUID) ([]Doctor, error) {
	if _, err := s.repo.GetSpecialtyByID(ctx, specialtyID); err != nil {
		return nil, err
	}
	return s.repo.ListActiveDoctorsBySpecialty(ctx, specialtyID)
}

func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.repo.GetBookingByID(ctx, id)
}

func (s *Service) ListBookingsByPatient(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Booking, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListBookingsByPatient(ctx, userID, limit, offset)
}

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor, specialtyIDs []uuid.UUID) error {
	if d.Name == "" {
		return fmt.Errorf("doctor name is required")
	}
	if d.License == "" {
		return fmt.Errorf("doctor license (CRM) is required")
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.Active = true
	return s.repo.CreateDoctor(ctx, d, specialtyIDs)
}

func (s *Service) DeactivateDoctor(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetDoctorActive(ctx, id, false)
}

// DeleteDoctor hard-deletes a doctor, refused while any non-cancelled
// future booking exists. Deactivation is the normal path.
func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteDoctor(ctx, id, s.clk.Now())
}

func (s *Service) CreateSpecialty(ctx context.Context, sp *Specialty) error {
	if sp.Name == "" {
		return fmt.Errorf("specialty name is required")
	}
	if sp.DefaultDurationMin <= 0 {
		sp.DefaultDurationMin = defaultDurationMin
	}
	if sp.ID == uuid.Nil {
		sp.ID = uuid.New()
	}
	sp.Active = true
	return s.repo.CreateSpecialty(ctx, sp)
}

func (s *Service) DeactivateSpecialty(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetSpecialtyActive(ctx, id, false)
}

// -- internals --

func (s *Service) formatLocal(utc time.Time) string {
	date, t := clock.ToLocal(utc)
	return fmt.Sprintf("%s %s", date.Format("02/01/2006"), t)
}

func (s *Service) logEvent(ctx context.Context, bookingID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event", eventType).Msg("marshal event payload")
		data = nil
	}

	id := bookingID

	ev := EventLog{
		EventType: eventType,
		BookingID: &id,
		Payload:   data,
		CreatedAt: s.clk.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event", eventType).
			Str("booking_id", bookingID.String()).
			Msg("insert event log")
	}
}
