package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vidaplus/clinic-booking/internal/booking"
	"github.com/vidaplus/clinic-booking/internal/clock"
)

// Sender delivers one notification for one booking.
type Sender interface {
	Send(ctx context.Context, b booking.Booking, kind Kind) error
}

// LogSender writes the notification to the log instead of a real channel.
type LogSender struct {
	Log zerolog.Logger
}

func (s LogSender) Send(_ context.Context, b booking.Booking, kind Kind) error {
	date, t := clock.ToLocal(b.StartUTC)

	ev := s.Log.Info().
		Str("kind", string(kind)).
		Str("booking_id", b.ID.String()).
		Str("date", date.Format("02/01/2006")).
		Str("time", t.String())

	switch p := b.Patient.(type) {
	case booking.RegisteredPatient:
		ev = ev.Str("user_id", p.UserID.String())
	case booking.GuestPatient:
		ev = ev.Str("email", p.Email)
	}

	ev.Msg("notification sent")
	return nil
}

type Service struct {
	repo   Repository
	sender Sender
	clk    clock.Clock
	log    zerolog.Logger
}

func NewService(repo Repository, sender Sender, clk clock.Clock, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		sender: sender,
		clk:    clk,
		log:    log,
	}
}

// SendDueReminders finds active bookings starting within lead of now that
// still lack a sent reminder, delivers each one, and records the outcome.
// Returns how many reminders were sent. Send failures are recorded and
// retried on the next sweep; they do not abort the run.
func (s *Service) SendDueReminders(ctx context.Context, lead time.Duration) (int, error) {
	now := s.clk.Now()

	due, err := s.repo.ListBookingsNeedingReminder(ctx, KindReminder24h, now, now.Add(lead))
	if err != nil {
		return 0, fmt.Errorf("find due reminders: %w", err)
	}

	sent := 0
	for _, b := range due {
		n := Notification{
			BookingID: b.ID,
			Kind:      KindReminder24h,
		}

		if err := s.sender.Send(ctx, b, KindReminder24h); err != nil {
			msg := err.Error()
			n.Status = StatusFailed
			n.Error = &msg
			s.log.Error().Err(err).Str("booking_id", b.ID.String()).Msg("send reminder")
		} else {
			at := s.clk.Now()
			n.Status = StatusSent
			n.SentAt = &at
			sent++
		}

		if err := s.repo.Record(ctx, n); err != nil {
			s.log.Error().Err(err).Str("booking_id", b.ID.String()).Msg("record notification")
		}
	}

	return sent, nil
}
