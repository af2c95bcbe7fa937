package booking

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vidaplus/clinic-booking/internal/clock"
	"github.com/vidaplus/clinic-booking/internal/config"
	redisclient "github.com/vidaplus/clinic-booking/internal/redis"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	doctors           map[uuid.UUID]*Doctor
	specialties       map[uuid.UUID]*Specialty
	doctorSpecialties map[uuid.UUID]map[uuid.UUID]bool
	slots             map[uuid.UUID]*AvailabilitySlot
	bookings          map[uuid.UUID]*Booking
	events            []EventLog
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		doctors:           make(map[uuid.UUID]*Doctor),
		specialties:       make(map[uuid.UUID]*Specialty),
		doctorSpecialties: make(map[uuid.UUID]map[uuid.UUID]bool),
		slots:             make(map[uuid.UUID]*AvailabilitySlot),
		bookings:          make(map[uuid.UUID]*Booking),
	}
}

func (r *fakeRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeRepo) ListActiveDoctorsBySpecialty(_ context.Context, specialtyID uuid.UUID) ([]Doctor, error) {
	var out []Doctor
	for id, specs := range r.doctorSpecialties {
		if specs[specialtyID] && r.doctors[id] != nil && r.doctors[id].Active {
			out = append(out, *r.doctors[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeRepo) CreateDoctor(_ context.Context, d *Doctor, specialtyIDs []uuid.UUID) error {
	cp := *d
	r.doctors[d.ID] = &cp
	links := make(map[uuid.UUID]bool)
	for _, id := range specialtyIDs {
		links[id] = true
	}
	r.doctorSpecialties[d.ID] = links
	return nil
}

func (r *fakeRepo) SetDoctorActive(_ context.Context, id uuid.UUID, active bool) error {
	d, ok := r.doctors[id]
	if !ok {
		return ErrDoctorNotFound
	}
	d.Active = active
	return nil
}

func (r *fakeRepo) DeleteDoctor(_ context.Context, id uuid.UUID, now time.Time) error {
	if _, ok := r.doctors[id]; !ok {
		return ErrDoctorNotFound
	}
	for _, b := range r.bookings {
		if b.DoctorID == id && b.Status.Occupying() && b.StartUTC.After(now) {
			return ErrDoctorHasBookings
		}
	}
	delete(r.doctors, id)
	return nil
}

func (r *fakeRepo) DoctorOffersSpecialty(_ context.Context, doctorID, specialtyID uuid.UUID) (bool, error) {
	return r.doctorSpecialties[doctorID][specialtyID], nil
}

func (r *fakeRepo) GetSpecialtyByID(_ context.Context, id uuid.UUID) (*Specialty, error) {
	sp, ok := r.specialties[id]
	if !ok {
		return nil, ErrSpecialtyNotFound
	}
	cp := *sp
	return &cp, nil
}

func (r *fakeRepo) ListActiveSpecialties(_ context.Context) ([]Specialty, error) {
	var out []Specialty
	for _, sp := range r.specialties {
		if sp.Active {
			out = append(out, *sp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeRepo) CreateSpecialty(_ context.Context, sp *Specialty) error {
	cp := *sp
	r.specialties[sp.ID] = &cp
	return nil
}

func (r *fakeRepo) SetSpecialtyActive(_ context.Context, id uuid.UUID, active bool) error {
	sp, ok := r.specialties[id]
	if !ok {
		return ErrSpecialtyNotFound
	}
	sp.Active = active
	return nil
}

func (r *fakeRepo) ListActiveSlotsForDay(_ context.Context, doctorID uuid.UUID, date time.Time) ([]AvailabilitySlot, error) {
	var out []AvailabilitySlot
	for _, s := range r.slots {
		if s.DoctorID == doctorID && s.Active && s.SlotDate.Equal(date) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartLocal < out[j].StartLocal })
	return out, nil
}

func (r *fakeRepo) FindCoveringSlot(_ context.Context, doctorID uuid.UUID, date time.Time, t clock.TimeOfDay) (*AvailabilitySlot, error) {
	for _, s := range r.slots {
		if s.DoctorID == doctorID && s.Active && s.SlotDate.Equal(date) && s.Covers(t) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrSlotNotFound
}

func (r *fakeRepo) SlotExists(_ context.Context, doctorID uuid.UUID, date time.Time, start clock.TimeOfDay) (bool, error) {
	for _, s := range r.slots {
		if s.DoctorID == doctorID && s.SlotDate.Equal(date) && s.StartLocal == start {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) CreateSlot(_ context.Context, s *AvailabilitySlot) error {
	cp := *s
	r.slots[s.ID] = &cp
	return nil
}

func (r *fakeRepo) SetSlotActive(_ context.Context, id uuid.UUID, active bool) error {
	s, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	s.Active = active
	return nil
}

func (r *fakeRepo) DeleteSlot(_ context.Context, id uuid.UUID) error {
	s, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	from := clock.ToUTC(s.SlotDate, s.StartLocal)
	to := clock.ToUTC(s.SlotDate, s.EndLocal)
	for _, b := range r.bookings {
		if b.DoctorID == s.DoctorID && b.Status.Occupying() &&
			!b.StartUTC.Before(from) && b.StartUTC.Before(to) {
			return ErrSlotHasBookings
		}
	}
	delete(r.slots, id)
	return nil
}

func (r *fakeRepo) ListActiveBookingStartsBetween(_ context.Context, doctorID uuid.UUID, fromUTC, toUTC time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, b := range r.bookings {
		if b.DoctorID == doctorID && b.Status.Occupying() &&
			!b.StartUTC.Before(fromUTC) && b.StartUTC.Before(toUTC) {
			out = append(out, b.StartUTC)
		}
	}
	return out, nil
}

func (r *fakeRepo) HasActiveBookingAt(_ context.Context, doctorID uuid.UUID, startUTC time.Time) (bool, error) {
	for _, b := range r.bookings {
		if b.DoctorID == doctorID && b.Status.Occupying() && b.StartUTC.Equal(startUTC) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) GetBookingByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeRepo) ListBookingsByPatient(_ context.Context, userID uuid.UUID, limit, offset int) ([]Booking, error) {
	var out []Booking
	for _, b := range r.bookings {
		if p, ok := b.Patient.(RegisteredPatient); ok && p.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartUTC.After(out[j].StartUTC) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) CreateBooking(_ context.Context, b *Booking) error {
	for _, existing := range r.bookings {
		if existing.DoctorID == b.DoctorID && existing.Status.Occupying() &&
			existing.StartUTC.Equal(b.StartUTC) {
			return ErrSlotTaken
		}
	}
	cp := *b
	cp.CreatedAt = time.Now()
	r.bookings[b.ID] = &cp
	b.CreatedAt = cp.CreatedAt
	return nil
}

func (r *fakeRepo) UpdateBookingStatus(_ context.Context, id uuid.UUID, from, to BookingStatus, note string, confirmedAt *time.Time) (*Booking, error) {
	b, ok := r.bookings[id]
	if !ok || b.Status != from {
		return nil, ErrBookingNotFound
	}
	b.Status = to
	if note != "" {
		if b.Notes != "" {
			b.Notes += "\n"
		}
		b.Notes += note
	}
	if confirmedAt != nil {
		b.ConfirmedAt = confirmedAt
	}
	cp := *b
	return &cp, nil
}

func (r *fakeRepo) RescheduleBooking(_ context.Context, id uuid.UUID, newStart, newEnd time.Time, note string) (*Booking, error) {
	b, ok := r.bookings[id]
	if !ok || (b.Status != StatusScheduled && b.Status != StatusConfirmed) {
		return nil, ErrBookingNotFound
	}
	b.StartUTC = newStart
	b.EndUTC = newEnd
	if note != "" {
		if b.Notes != "" {
			b.Notes += "\n"
		}
		b.Notes += note
	}
	cp := *b
	return &cp, nil
}

func (r *fakeRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.events = append(r.events, ev)
	return nil
}

// fakeLocker runs the critical section inline; set busy to simulate a held
// lock.
type fakeLocker struct {
	busy  bool
	calls int
}

func (l *fakeLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	l.calls++
	if l.busy {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

// -- fixtures --

var (
	// Frozen "now": 2026-09-01 12:00 UTC, i.e. 09:00 local.
	testNow = time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)

	slotDay = clock.Date(2026, time.September, 10)
)

type fixture struct {
	repo        *fakeRepo
	locker      *fakeLocker
	svc         *Service
	doctorID    uuid.UUID
	specialtyID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakeRepo()
	locker := &fakeLocker{}

	doctorID := uuid.New()
	specialtyID := uuid.New()

	repo.doctors[doctorID] = &Doctor{ID: doctorID, Name: "Dr(a). Helena Prado", License: "CRM/SP 123456", Active: true}
	repo.specialties[specialtyID] = &Specialty{ID: specialtyID, Name: "Cardiologia", DefaultDurationMin: 30, Active: true}
	repo.doctorSpecialties[doctorID] = map[uuid.UUID]bool{specialtyID: true}

	// 09:00-12:00 in 30-minute slots on slotDay.
	for tod := clock.NewTimeOfDay(9, 0); tod < clock.NewTimeOfDay(12, 0); tod += 30 {
		id := uuid.New()
		repo.slots[id] = &AvailabilitySlot{
			ID:         id,
			DoctorID:   doctorID,
			SlotDate:   slotDay,
			StartLocal: tod,
			EndLocal:   tod + 30,
			Modality:   ModalityInPerson,
			Active:     true,
		}
	}

	cfg := config.Config{
		CancelCutoff: 24 * time.Hour,
		LockTTL:      5 * time.Second,
	}

	svc := NewService(repo, locker, clock.Fixed(testNow), cfg, zerolog.Nop())

	return &fixture{
		repo:        repo,
		locker:      locker,
		svc:         svc,
		doctorID:    doctorID,
		specialtyID: specialtyID,
	}
}

func registered() RegisteredPatient {
	return RegisteredPatient{UserID: uuid.New()}
}

func (f *fixture) book(t *testing.T, tod clock.TimeOfDay, patient PatientIdentity) *Booking {
	t.Helper()
	b, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		DoctorID:    f.doctorID,
		SpecialtyID: f.specialtyID,
		Start:       clock.ToUTC(slotDay, tod),
		Patient:     patient,
	})
	if err != nil {
		t.Fatalf("CreateBooking(%s): %v", tod, err)
	}
	return b
}

// -- free slot resolution --

func TestFindFreeSlotsReturnsOpenSlotsInOrder(t *testing.T) {
	f := newFixture(t)

	free, err := f.svc.FindFreeSlots(context.Background(), f.doctorID, slotDay, 1, 0, "")
	if err != nil {
		t.Fatalf("FindFreeSlots: %v", err)
	}

	if len(free) != 6 {
		t.Fatalf("got %d free slots, want 6", len(free))
	}
	for i := 1; i < len(free); i++ {
		if free[i].StartLocal <= free[i-1].StartLocal {
			t.Errorf("slots out of order: %s before %s", free[i-1].StartLocal, free[i].StartLocal)
		}
	}
	if free[0].StartLocal != clock.NewTimeOfDay(9, 0) {
		t.Errorf("first slot = %s, want 09:00", free[0].StartLocal)
	}
	if free[0].DurationMinutes != 30 {
		t.Errorf("duration = %d, want 30", free[0].DurationMinutes)
	}
}

func TestFindFreeSlotsExcludesBooked(t *testing.T) {
	f := newFixture(t)
	f.book(t, clock.NewTimeOfDay(10, 0), registered())

	free, err := f.svc.FindFreeSlots(context.Background(), f.doctorID, slotDay, 1, 0, "")
	if err != nil {
		t.Fatalf("FindFreeSlots: %v", err)
	}

	if len(free) != 5 {
		t.Fatalf("got %d free slots, want 5", len(free))
	}
	for _, s := range free {
		if s.StartLocal == clock.NewTimeOfDay(10, 0) {
			t.Error("booked 10:00 slot still reported free")
		}
	}
}

func TestFindFreeSlotsIgnoresCancelledBookings(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, clock.NewTimeOfDay(10, 0), registered())

	// Cancel directly; the slot must open up again.
	f.repo.bookings[b.ID].Status = StatusCancelled

	free, err := f.svc.FindFreeSlots(context.Background(), f.doctorID, slotDay, 1, 0, "")
	if err != nil {
		t.Fatalf("FindFreeSlots: %v", err)
	}
	if len(free) != 6 {
		t.Errorf("got %d free slots, want 6 after cancellation", len(free))
	}
}

func TestFindFreeSlotsPeriodFilter(t *testing.T) {
	f := newFixture(t)

	// Add one afternoon slot.
	id := uuid.New()
	f.repo.slots[id] = &AvailabilitySlot{
		ID: id, DoctorID: f.doctorID, SlotDate: slotDay,
		StartLocal: clock.NewTimeOfDay(14, 0), EndLocal: clock.NewTimeOfDay(14, 30),
		Modality: ModalityInPerson, Active: true,
	}

	free, err := f.svc.FindFreeSlots(context.Background(), f.doctorID, slotDay, 1, 0, clock.PeriodAfternoon)
	if err != nil {
		t.Fatalf("FindFreeSlots: %v", err)
	}
	if len(free) != 1 || free[0].StartLocal != clock.NewTimeOfDay(14, 0) {
		t.Fatalf("afternoon filter returned %v", free)
	}
}

func TestFindFreeSlotsLimit(t *testing.T) {
	f := newFixture(t)

	free, err := f.svc.FindFreeSlots(context.Background(), f.doctorID, slotDay, 1, 2, "")
	if err != nil {
		t.Fatalf("FindFreeSlots: %v", err)
	}
	if len(free) != 2 {
		t.Errorf("got %d free slots, want 2", len(free))
	}
}

func TestFindFreeSlotsSkipsPastTimesToday(t *testing.T) {
	f := newFixture(t)

	// Slots on the current local day (2026-09-01, now 09:00 local): one
	// before now, one at now, one after.
	today := clock.Date(2026, time.September, 1)
	for _, tod := range []clock.TimeOfDay{
		clock.NewTimeOfDay(8, 0),
		clock.NewTimeOfDay(9, 0),
		clock.NewTimeOfDay(10, 0),
	} {
		id := uuid.New()
		f.repo.slots[id] = &AvailabilitySlot{
			ID: id, DoctorID: f.doctorID, SlotDate: today,
			StartLocal: tod, EndLocal: tod + 30,
			Modality: ModalityInPerson, Active: true,
		}
	}

	free, err := f.svc.FindFreeSlots(context.Background(), f.doctorID, today, 1, 0, "")
	if err != nil {
		t.Fatalf("FindFreeSlots: %v", err)
	}
	if len(free) != 1 || free[0].StartLocal != clock.NewTimeOfDay(10, 0) {
		t.Fatalf("only the strictly future slot should remain, got %v", free)
	}
}

func TestFindFreeSlotsInactiveDoctor(t *testing.T) {
	f := newFixture(t)
	f.repo.doctors[f.doctorID].Active = false

	_, err := f.svc.FindFreeSlots(context.Background(), f.doctorID, slotDay, 1, 0, "")
	if !errors.Is(err, ErrDoctorInactive) {
		t.Errorf("err = %v, want ErrDoctorInactive", err)
	}
}

func TestFindFreeSlotsUnknownDoctor(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.FindFreeSlots(context.Background(), uuid.New(), slotDay, 1, 0, "")
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("err = %v, want ErrDoctorNotFound", err)
	}
}

func TestFindFreeSlotsBySpecialtyCapsPerDoctor(t *testing.T) {
	f := newFixture(t)

	// A second doctor with the same schedule.
	other := uuid.New()
	f.repo.doctors[other] = &Doctor{ID: other, Name: "Dr(a). Beatriz Lima", License: "CRM/SP 654321", Active: true}
	f.repo.doctorSpecialties[other] = map[uuid.UUID]bool{f.specialtyID: true}
	for tod := clock.NewTimeOfDay(9, 0); tod < clock.NewTimeOfDay(12, 0); tod += 30 {
		id := uuid.New()
		f.repo.slots[id] = &AvailabilitySlot{
			ID: id, DoctorID: other, SlotDate: slotDay,
			StartLocal: tod, EndLocal: tod + 30,
			Modality: ModalityInPerson, Active: true,
		}
	}

	free, err := f.svc.FindFreeSlotsBySpecialty(context.Background(), f.specialtyID, slotDay, 1, 10, "")
	if err != nil {
		t.Fatalf("FindFreeSlotsBySpecialty: %v", err)
	}

	perDoctor := make(map[uuid.UUID]int)
	for _, s := range free {
		perDoctor[s.DoctorID]++
	}
	if len(perDoctor) != 2 {
		t.Fatalf("expected slots from both doctors, got %v", perDoctor)
	}
	for id, n := range perDoctor {
		if n > perDoctorSlotLimit {
			t.Errorf("doctor %s contributed %d slots, cap is %d", id, n, perDoctorSlotLimit)
		}
	}
}

// -- booking creation --

func TestCreateBookingSuccess(t *testing.T) {
	f := newFixture(t)
	patient := registered()

	b := f.book(t, clock.NewTimeOfDay(9, 0), patient)

	if b.Status != StatusScheduled {
		t.Errorf("status = %s, want agendado", b.Status)
	}
	if b.Origin != OriginSite {
		t.Errorf("origin = %s, want site default", b.Origin)
	}
	wantStart := clock.ToUTC(slotDay, clock.NewTimeOfDay(9, 0))
	if !b.StartUTC.Equal(wantStart) {
		t.Errorf("start = %v, want %v", b.StartUTC, wantStart)
	}
	if got := b.EndUTC.Sub(b.StartUTC); got != 30*time.Minute {
		t.Errorf("duration = %s, want 30m from specialty default", got)
	}
	if f.locker.calls != 1 {
		t.Errorf("lock taken %d times, want 1", f.locker.calls)
	}
	if len(f.repo.events) != 1 || f.repo.events[0].EventType != EventBookingCreated {
		t.Errorf("expected one BOOKING_CREATED event, got %v", f.repo.events)
	}
}

func TestCreateBookingGuest(t *testing.T) {
	f := newFixture(t)

	b := f.book(t, clock.NewTimeOfDay(9, 30), GuestPatient{Name: "Ana Souza", Email: "ana@example.com"})

	if _, ok := b.Patient.(GuestPatient); !ok {
		t.Errorf("patient = %T, want GuestPatient", b.Patient)
	}
}

func TestCreateBookingExplicitDuration(t *testing.T) {
	f := newFixture(t)

	b, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		DoctorID:        f.doctorID,
		SpecialtyID:     f.specialtyID,
		Start:           clock.ToUTC(slotDay, clock.NewTimeOfDay(9, 0)),
		DurationMinutes: 45,
		Patient:         registered(),
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if got := b.EndUTC.Sub(b.StartUTC); got != 45*time.Minute {
		t.Errorf("duration = %s, want 45m", got)
	}
}

func TestCreateBookingSlotTaken(t *testing.T) {
	f := newFixture(t)
	f.book(t, clock.NewTimeOfDay(9, 0), registered())

	_, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		DoctorID:    f.doctorID,
		SpecialtyID: f.specialtyID,
		Start:       clock.ToUTC(slotDay, clock.NewTimeOfDay(9, 0)),
		Patient:     registered(),
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Errorf("err = %v, want ErrSlotTaken", err)
	}
}

func TestCreateBookingLockContention(t *testing.T) {
	f := newFixture(t)
	f.locker.busy = true

	_, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		DoctorID:    f.doctorID,
		SpecialtyID: f.specialtyID,
		Start:       clock.ToUTC(slotDay, clock.NewTimeOfDay(9, 0)),
		Patient:     registered(),
	})
	if !errors.Is(err, ErrSlotBeingBooked) {
		t.Errorf("err = %v, want ErrSlotBeingBooked", err)
	}
}

func TestCreateBookingNoAvailability(t *testing.T) {
	f := newFixture(t)

	// 13:00 falls outside every slot.
	_, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		DoctorID:    f.doctorID,
		SpecialtyID: f.specialtyID,
		Start:       clock.ToUTC(slotDay, clock.NewTimeOfDay(13, 0)),
		Patient:     registered(),
	})
	if !errors.Is(err, ErrNoAvailability) {
		t.Errorf("err = %v, want ErrNoAvailability", err)
	}
}

func TestCreateBookingPastDate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		DoctorID:    f.doctorID,
		SpecialtyID: f.specialtyID,
		Start:       testNow.Add(-time.Hour),
		Patient:     registered(),
	})
	if !errors.Is(err, ErrPastDate) {
		t.Errorf("err = %v, want ErrPastDate", err)
	}

	// Exactly now is not in the future either.
	_, err = f.svc.CreateBooking(context.Background(), CreateBookingInput{
		DoctorID:    f.doctorID,
		SpecialtyID: f.specialtyID,
		Start:       testNow,
		Patient:     registered(),
	})
	if !errors.Is(err, ErrPastDate) {
		t.Errorf("err = %v, want ErrPastDate at the exact current instant", err)
	}
}

func TestCreateBookingMissingPatientInfo(t *testing.T) {
	f := newFixture(t)

	for _, p := range []PatientIdentity{
		nil,
		RegisteredPatient{},
		GuestPatient{Name: "Ana"},
		GuestPatient{Email: "ana@example.com"},
	} {
		_, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
			DoctorID:    f.doctorID,
			SpecialtyID: f.specialtyID,
			Start:       clock.ToUTC(slotDay, clock.NewTimeOfDay(9, 0)),
			Patient:     p,
		})
		if !errors.Is(err, ErrMissingPatientInfo) {
			t.Errorf("patient %#v: err = %v, want ErrMissingPatientInfo", p, err)
		}
	}
}

func TestCreateBookingInactiveDoctorAndSpecialty(t *testing.T) {
	f := newFixture(t)
	in := CreateBookingInput{
		DoctorID:    f.doctorID,
		SpecialtyID: f.specialtyID,
		Start:       clock.ToUTC(slotDay, clock.NewTimeOfDay(9, 0)),
		Patient:     registered(),
	}

	f.repo.doctors[f.doctorID].Active = false
	if _, err := f.svc.CreateBooking(context.Background(), in); !errors.Is(err, ErrDoctorInactive) {
		t.Errorf("err = %v, want ErrDoctorInactive", err)
	}
	f.repo.doctors[f.doctorID].Active = true

	f.repo.specialties[f.specialtyID].Active = false
	if _, err := f.svc.CreateBooking(context.Background(), in); !errors.Is(err, ErrSpecialtyInactive) {
		t.Errorf("err = %v, want ErrSpecialtyInactive", err)
	}
}

func TestCreateBookingStrictSpecialtyMatch(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.StrictSpecialtyMatch = true

	other := uuid.New()
	f.repo.specialties[other] = &Specialty{ID: other, Name: "Dermatologia", DefaultDurationMin: 20, Active: true}

	_, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		DoctorID:    f.doctorID,
		SpecialtyID: other,
		Start:       clock.ToUTC(slotDay, clock.NewTimeOfDay(9, 0)),
		Patient:     registered(),
	})
	if !errors.Is(err, ErrSpecialtyNotOffered) {
		t.Errorf("err = %v, want ErrSpecialtyNotOffered", err)
	}

	// The declared specialty still books fine.
	if _, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		DoctorID:    f.doctorID,
		SpecialtyID: f.specialtyID,
		Start:       clock.ToUTC(slotDay, clock.NewTimeOfDay(9, 0)),
		Patient:     registered(),
	}); err != nil {
		t.Errorf("CreateBooking with offered specialty: %v", err)
	}
}

// -- cancellation --

func TestCancelBookingSuccess(t *testing.T) {
	f := newFixture(t)
	patient := registered()
	b := f.book(t, clock.NewTimeOfDay(9, 0), patient)

	updated, err := f.svc.CancelBooking(context.Background(), b.ID, patient)
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if updated.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelado", updated.Status)
	}
	if updated.Notes == "" {
		t.Error("cancellation should append an audit note")
	}
}

func TestCancelBookingCutoffBoundary(t *testing.T) {
	f := newFixture(t)
	patient := registered()

	// Booking starting exactly 24h from now: cutoff is strict, so
	// cancellation is already refused at the boundary.
	boundary := testNow.Add(24 * time.Hour)
	id := uuid.New()
	f.repo.bookings[id] = &Booking{
		ID: id, Patient: patient, DoctorID: f.doctorID, SpecialtyID: f.specialtyID,
		StartUTC: boundary, EndUTC: boundary.Add(30 * time.Minute), Status: StatusScheduled,
	}

	if _, err := f.svc.CancelBooking(context.Background(), id, patient); !errors.Is(err, ErrCancelWindowPassed) {
		t.Errorf("err = %v, want ErrCancelWindowPassed exactly at the cutoff", err)
	}

	// One minute more lead time and it goes through.
	f.repo.bookings[id].StartUTC = boundary.Add(time.Minute)
	f.repo.bookings[id].EndUTC = boundary.Add(31 * time.Minute)
	if _, err := f.svc.CancelBooking(context.Background(), id, patient); err != nil {
		t.Errorf("CancelBooking one minute past the cutoff: %v", err)
	}
}

func TestCancelBookingForbidden(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, clock.NewTimeOfDay(9, 0), registered())

	_, err := f.svc.CancelBooking(context.Background(), b.ID, registered())
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestCancelBookingTerminalStatus(t *testing.T) {
	f := newFixture(t)
	patient := registered()
	b := f.book(t, clock.NewTimeOfDay(9, 0), patient)

	for _, status := range []BookingStatus{StatusCancelled, StatusCompleted} {
		f.repo.bookings[b.ID].Status = status
		if _, err := f.svc.CancelBooking(context.Background(), b.ID, patient); !errors.Is(err, ErrInvalidStatusTransition) {
			t.Errorf("status %s: err = %v, want ErrInvalidStatusTransition", status, err)
		}
	}
}

func TestCancelBookingFreesSlotForRebooking(t *testing.T) {
	f := newFixture(t)
	patient := registered()
	b := f.book(t, clock.NewTimeOfDay(9, 0), patient)

	if _, err := f.svc.CancelBooking(context.Background(), b.ID, patient); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}

	// Someone else can now take the same instant.
	f.book(t, clock.NewTimeOfDay(9, 0), registered())
}

// -- rescheduling --

func TestRescheduleBookingSuccess(t *testing.T) {
	f := newFixture(t)
	patient := registered()
	b := f.book(t, clock.NewTimeOfDay(9, 0), patient)

	newStart := clock.ToUTC(slotDay, clock.NewTimeOfDay(11, 0))
	updated, err := f.svc.RescheduleBooking(context.Background(), b.ID, newStart, patient)
	if err != nil {
		t.Fatalf("RescheduleBooking: %v", err)
	}

	if !updated.StartUTC.Equal(newStart) {
		t.Errorf("start = %v, want %v", updated.StartUTC, newStart)
	}
	if got := updated.EndUTC.Sub(updated.StartUTC); got != 30*time.Minute {
		t.Errorf("duration after reschedule = %s, want preserved 30m", got)
	}
	if updated.Notes == "" {
		t.Error("reschedule should append an audit note")
	}
}

func TestRescheduleBookingTargetTaken(t *testing.T) {
	f := newFixture(t)
	patient := registered()
	b := f.book(t, clock.NewTimeOfDay(9, 0), patient)
	f.book(t, clock.NewTimeOfDay(10, 0), registered())

	_, err := f.svc.RescheduleBooking(context.Background(), b.ID,
		clock.ToUTC(slotDay, clock.NewTimeOfDay(10, 0)), patient)
	if !errors.Is(err, ErrSlotTaken) {
		t.Errorf("err = %v, want ErrSlotTaken", err)
	}
}

func TestRescheduleBookingCutoff(t *testing.T) {
	f := newFixture(t)
	patient := registered()

	id := uuid.New()
	soon := testNow.Add(2 * time.Hour)
	f.repo.bookings[id] = &Booking{
		ID: id, Patient: patient, DoctorID: f.doctorID, SpecialtyID: f.specialtyID,
		StartUTC: soon, EndUTC: soon.Add(30 * time.Minute), Status: StatusScheduled,
	}

	_, err := f.svc.RescheduleBooking(context.Background(), id,
		clock.ToUTC(slotDay, clock.NewTimeOfDay(9, 0)), patient)
	if !errors.Is(err, ErrCancelWindowPassed) {
		t.Errorf("err = %v, want ErrCancelWindowPassed", err)
	}
}

// -- confirm and complete --

func TestConfirmBooking(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, clock.NewTimeOfDay(9, 0), registered())

	updated, err := f.svc.ConfirmBooking(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("ConfirmBooking: %v", err)
	}
	if updated.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmado", updated.Status)
	}
	if updated.ConfirmedAt == nil || !updated.ConfirmedAt.Equal(testNow) {
		t.Errorf("confirmedAt = %v, want %v", updated.ConfirmedAt, testNow)
	}

	// Confirming twice is an invalid transition.
	if _, err := f.svc.ConfirmBooking(context.Background(), b.ID); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("second confirm: err = %v, want ErrInvalidStatusTransition", err)
	}
}

func TestCompleteBooking(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, clock.NewTimeOfDay(9, 0), registered())

	updated, err := f.svc.CompleteBooking(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("CompleteBooking: %v", err)
	}
	if updated.Status != StatusCompleted {
		t.Errorf("status = %s, want realizado", updated.Status)
	}

	if _, err := f.svc.CompleteBooking(context.Background(), b.ID); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("completing a completed booking: err = %v, want ErrInvalidStatusTransition", err)
	}
}

// -- slot generation --

func TestGenerateSlots(t *testing.T) {
	f := newFixture(t)

	in := GenerateSlotsInput{
		DoctorID:  f.doctorID,
		StartDate: clock.Date(2026, time.September, 14), // a Monday
		EndDate:   clock.Date(2026, time.September, 18), // Friday, inclusive
		Weekdays:  []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		StartLocal: clock.NewTimeOfDay(8, 0),
		EndLocal:   clock.NewTimeOfDay(10, 0),
		IntervalMinutes: 30,
	}

	created, err := f.svc.GenerateSlots(context.Background(), in)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	// 3 matching weekdays x 4 slots per day.
	if created != 12 {
		t.Errorf("created = %d, want 12", created)
	}

	// Re-running is a no-op.
	created, err = f.svc.GenerateSlots(context.Background(), in)
	if err != nil {
		t.Fatalf("GenerateSlots rerun: %v", err)
	}
	if created != 0 {
		t.Errorf("rerun created = %d, want 0", created)
	}
}

func TestGenerateSlotsDoesNotOverrunWindow(t *testing.T) {
	f := newFixture(t)

	// 45-minute slots in a 08:00-10:00 window: 08:00 and 08:45 fit, a third
	// would end past 10:00.
	created, err := f.svc.GenerateSlots(context.Background(), GenerateSlotsInput{
		DoctorID:  f.doctorID,
		StartDate: clock.Date(2026, time.September, 14),
		EndDate:   clock.Date(2026, time.September, 14),
		Weekdays:  []time.Weekday{time.Monday},
		StartLocal: clock.NewTimeOfDay(8, 0),
		EndLocal:   clock.NewTimeOfDay(10, 0),
		IntervalMinutes: 45,
	})
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	if created != 2 {
		t.Errorf("created = %d, want 2", created)
	}
}

func TestGenerateSlotsValidation(t *testing.T) {
	f := newFixture(t)

	base := GenerateSlotsInput{
		DoctorID:  f.doctorID,
		StartDate: clock.Date(2026, time.September, 14),
		EndDate:   clock.Date(2026, time.September, 14),
		Weekdays:  []time.Weekday{time.Monday},
		StartLocal: clock.NewTimeOfDay(8, 0),
		EndLocal:   clock.NewTimeOfDay(10, 0),
		IntervalMinutes: 30,
	}

	bad := base
	bad.IntervalMinutes = 0
	if _, err := f.svc.GenerateSlots(context.Background(), bad); err == nil {
		t.Error("expected error for zero interval")
	}

	bad = base
	bad.StartLocal, bad.EndLocal = bad.EndLocal, bad.StartLocal
	if _, err := f.svc.GenerateSlots(context.Background(), bad); err == nil {
		t.Error("expected error for inverted time range")
	}

	bad = base
	bad.EndDate = clock.Date(2026, time.September, 13)
	if _, err := f.svc.GenerateSlots(context.Background(), bad); err == nil {
		t.Error("expected error for end date before start date")
	}

	f.repo.doctors[f.doctorID].Active = false
	if _, err := f.svc.GenerateSlots(context.Background(), base); !errors.Is(err, ErrDoctorInactive) {
		t.Errorf("err = %v, want ErrDoctorInactive", err)
	}
}

// -- admin passthroughs --

func TestDeleteDoctorWithFutureBookings(t *testing.T) {
	f := newFixture(t)
	f.book(t, clock.NewTimeOfDay(9, 0), registered())

	if err := f.svc.DeleteDoctor(context.Background(), f.doctorID); !errors.Is(err, ErrDoctorHasBookings) {
		t.Errorf("err = %v, want ErrDoctorHasBookings", err)
	}
}

func TestListBookingsByPatientClampsLimit(t *testing.T) {
	f := newFixture(t)
	patient := registered()
	f.book(t, clock.NewTimeOfDay(9, 0), patient)
	f.book(t, clock.NewTimeOfDay(9, 30), patient)
	f.book(t, clock.NewTimeOfDay(10, 0), patient)

	got, err := f.svc.ListBookingsByPatient(context.Background(), patient.UserID, 2, 0)
	if err != nil {
		t.Fatalf("ListBookingsByPatient: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d bookings, want 2", len(got))
	}

	// Defaults kick in for nonsense values.
	got, err = f.svc.ListBookingsByPatient(context.Background(), patient.UserID, -1, -5)
	if err != nil {
		t.Fatalf("ListBookingsByPatient: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d bookings, want all 3 under default limit", len(got))
	}
}
