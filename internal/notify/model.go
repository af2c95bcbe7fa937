// Package notify records and sends patient-facing notifications for
// bookings. Delivery itself (email, SMS) is pluggable behind Sender; the
// default sender only logs, which is enough for the reminder worker's
// bookkeeping to be exercised end to end.
package notify

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindConfirmation Kind = "confirmacao"
	KindReminder24h  Kind = "lembrete_24h"
)

type Status string

const (
	StatusPending Status = "pendente"
	StatusSent    Status = "enviado"
	StatusFailed  Status = "falhou"
)

type Notification struct {
	ID        int64
	BookingID uuid.UUID
	Kind      Kind
	Status    Status
	Attempts  int
	SentAt    *time.Time
	Error     *string
	CreatedAt time.Time
}
