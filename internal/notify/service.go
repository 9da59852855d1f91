package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/talobot/talobot/pkg/logging"
)

// EmailLogStore records every mail the platform sends.
type EmailLogStore interface {
	Record(ctx context.Context, to, subject, body string) error
}

// BookingNotification carries what the tenant owner gets told about a new
// booking.
type BookingNotification struct {
	OwnerEmail    string
	OwnerName     string
	BotName       string
	ServiceName   string
	CalendarLink  string
	ClientMessage string
	Start         time.Time
}

// Service sends owner-facing notifications. From the pipeline's point of
// view it is fire-and-forget: failures are logged, never propagated into
// the turn.
type Service struct {
	email  EmailSender
	store  EmailLogStore
	logger *logging.Logger
}

// NewService creates a notification service. store may be nil.
func NewService(email EmailSender, store EmailLogStore, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, store: store, logger: logger}
}

// NotifyBookingCreated emails the tenant owner about a booked appointment.
func (s *Service) NotifyBookingCreated(ctx context.Context, n BookingNotification) error {
	if s == nil || s.email == nil {
		return nil
	}

	msg := EmailMessage{
		To:      n.OwnerEmail,
		ToName:  n.OwnerName,
		Subject: fmt.Sprintf("Nueva cita agendada (%s)", n.BotName),
		Body: fmt.Sprintf(
			"Cita añadida a tu Google Calendar:\n%s\n\nServicio: %s\nFecha: %s\n\nMensaje cliente:\n%q",
			n.CalendarLink,
			n.ServiceName,
			n.Start.Format("02/01/2006 15:04"),
			n.ClientMessage,
		),
	}

	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: booking email: %w", err)
	}

	if s.store != nil {
		if err := s.store.Record(ctx, msg.To, msg.Subject, msg.Body); err != nil {
			s.logger.Warn("email log write failed", "to", msg.To, "error", err)
		}
	}
	return nil
}
