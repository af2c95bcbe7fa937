package notify

import (
	"context"
	"time"

	"github.com/vidaplus/clinic-booking/internal/booking"
)

type Repository interface {
	// ListBookingsNeedingReminder returns non-cancelled bookings starting
	// in [fromUTC, toUTC) that have no successfully sent reminder of the
	// given kind yet. Failed attempts are returned again for retry.
	ListBookingsNeedingReminder(ctx context.Context, kind Kind, fromUTC, toUTC time.Time) ([]booking.Booking, error)

	// Record upserts the (booking, kind) notification row, bumping the
	// attempt counter on retries.
	Record(ctx context.Context, n Notification) error
}
