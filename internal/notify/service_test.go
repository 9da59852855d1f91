package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEmailSender struct {
	sent    []EmailMessage
	callErr error
}

func (m *mockEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	if m.callErr != nil {
		return m.callErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mockEmailLog struct {
	recorded int
	callErr  error
}

func (m *mockEmailLog) Record(ctx context.Context, to, subject, body string) error {
	if m.callErr != nil {
		return m.callErr
	}
	m.recorded++
	return nil
}

func notification() BookingNotification {
	return BookingNotification{
		OwnerEmail:    "owner@example.com",
		OwnerName:     "Ana",
		BotName:       "Peluquería Sol",
		ServiceName:   "Corte de pelo",
		CalendarLink:  "https://calendar.google.com/event/abc",
		ClientMessage: "quiero reservar mañana a las 10:00",
		Start:         time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
	}
}

func TestNotifyBookingCreated(t *testing.T) {
	sender := &mockEmailSender{}
	store := &mockEmailLog{}
	svc := NewService(sender, store, nil)

	err := svc.NotifyBookingCreated(context.Background(), notification())

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "owner@example.com", msg.To)
	assert.Equal(t, "Nueva cita agendada (Peluquería Sol)", msg.Subject)
	assert.Contains(t, msg.Body, "https://calendar.google.com/event/abc")
	assert.Contains(t, msg.Body, "Corte de pelo")
	assert.Contains(t, msg.Body, "05/03/2026 10:00")
	assert.Equal(t, 1, store.recorded)
}

func TestNotifySendFailurePropagates(t *testing.T) {
	sender := &mockEmailSender{callErr: errors.New("smtp down")}
	svc := NewService(sender, &mockEmailLog{}, nil)

	err := svc.NotifyBookingCreated(context.Background(), notification())

	assert.Error(t, err)
}

func TestNotifyLogFailureIsSwallowed(t *testing.T) {
	sender := &mockEmailSender{}
	store := &mockEmailLog{callErr: errors.New("db down")}
	svc := NewService(sender, store, nil)

	err := svc.NotifyBookingCreated(context.Background(), notification())

	assert.NoError(t, err, "email log failures never fail the notification")
	assert.Len(t, sender.sent, 1)
}

func TestNilServiceAndSenderAreSafe(t *testing.T) {
	var svc *Service
	assert.NoError(t, svc.NotifyBookingCreated(context.Background(), notification()))

	svc = NewService(nil, nil, nil)
	assert.NoError(t, svc.NotifyBookingCreated(context.Background(), notification()))
}

func TestPostgresEmailLogRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO email_log").
		WithArgs(pgxmock.AnyArg(), "owner@example.com", "Nueva cita agendada (Bot)", "body").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewPostgresEmailLogWithExec(mock)
	require.NoError(t, store.Record(context.Background(), "owner@example.com", "Nueva cita agendada (Bot)", "body"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
