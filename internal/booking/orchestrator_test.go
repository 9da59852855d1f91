package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talobot/talobot/internal/bots"
	"github.com/talobot/talobot/internal/conversation"
	"github.com/talobot/talobot/internal/gcal"
	"github.com/talobot/talobot/internal/notify"
	"github.com/talobot/talobot/internal/reply"
	"github.com/talobot/talobot/internal/schedule"
	"github.com/talobot/talobot/pkg/logging"
)

type fakeGenerator struct {
	text  string
	err   error
	calls int
}

func (g *fakeGenerator) Generate(ctx context.Context, req reply.Request) (string, error) {
	g.calls++
	return g.text, g.err
}

type fakeCalendar struct {
	events      []gcal.Event
	listErr     error
	link        string
	createErr   error
	lastList    schedule.Window
	lastLabel   string
	lastCreate  gcal.EventRequest
	listCalls   int
	createCalls int
}

func (c *fakeCalendar) ListEvents(ctx context.Context, creds gcal.Credentials, window schedule.Window, label string) ([]gcal.Event, error) {
	c.listCalls++
	c.lastList = window
	c.lastLabel = label
	return c.events, c.listErr
}

func (c *fakeCalendar) CreateEvent(ctx context.Context, creds gcal.Credentials, req gcal.EventRequest) (string, error) {
	c.createCalls++
	c.lastCreate = req
	return c.link, c.createErr
}

type memoryRepo struct {
	turns     []conversation.Turn
	appendErr error
}

func (r *memoryRepo) Append(ctx context.Context, turn conversation.Turn) (conversation.Turn, error) {
	if r.appendErr != nil {
		return conversation.Turn{}, r.appendErr
	}
	turn.ID = fmt.Sprintf("turn-%d", len(r.turns))
	turn.Timestamp = time.Now().UTC()
	r.turns = append(r.turns, turn)
	return turn, nil
}

func (r *memoryRepo) ListByBot(ctx context.Context, botID string) ([]conversation.Turn, error) {
	return r.turns, nil
}

func (r *memoryRepo) StatsByBot(ctx context.Context, botID string) (conversation.Stats, error) {
	return conversation.Stats{}, nil
}

type captureSender struct {
	sent []notify.EmailMessage
	err  error
}

func (s *captureSender) Send(ctx context.Context, msg notify.EmailMessage) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

// Wednesday morning in the tenant's timezone; every relative date in these
// tests is anchored here.
func refTime(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	return time.Date(2026, time.March, 4, 9, 0, 0, 0, loc)
}

func testBot() *bots.Bot {
	return &bots.Bot{
		ID:      "bot-1",
		OwnerID: "owner-1",
		Name:    "Peluquería Sol",
		Dataset: []map[string]any{
			{"Servicio": "Corte de pelo", "Precio": "15", "Duración": "30"},
			{"Servicio": "Manicura", "Precio": "22", "Duración": "45", "Capacidad": "2"},
		},
	}
}

func testOwner() *bots.Owner {
	return &bots.Owner{
		ID:           "owner-1",
		Email:        "dueno@example.com",
		Username:     "sol",
		Plan:         bots.PlanPro,
		GoogleTokens: []byte(`{"access_token":"tok","refresh_token":"ref"}`),
	}
}

type fixture struct {
	orch     *Orchestrator
	gen      *fakeGenerator
	calendar *fakeCalendar
	repo     *memoryRepo
	sender   *captureSender
}

func newFixture(t *testing.T, gen *fakeGenerator, calendar *fakeCalendar) *fixture {
	t.Helper()
	logger := logging.New("error")
	repo := &memoryRepo{}
	sender := &captureSender{}
	log := conversation.NewLog(repo, nil, logger)
	notifier := notify.NewService(sender, nil, logger)

	orch := New(gen, calendar, notifier, log, nil, logger, Config{Timezone: "Europe/Madrid"})
	orch.now = func() time.Time { return refTime(t) }
	return &fixture{orch: orch, gen: gen, calendar: calendar, repo: repo, sender: sender}
}

func requireTwoTurns(t *testing.T, repo *memoryRepo, userText, botText string) {
	t.Helper()
	require.Len(t, repo.turns, 2)
	assert.Equal(t, conversation.SenderUser, repo.turns[0].Sender)
	assert.Equal(t, userText, repo.turns[0].Text)
	assert.Equal(t, conversation.SenderBot, repo.turns[1].Sender)
	assert.Equal(t, botText, repo.turns[1].Text)
}

func TestPriceQueryAnswersFromDataset(t *testing.T) {
	f := newFixture(t, &fakeGenerator{text: "Claro, te cuento sobre nuestros servicios."}, &fakeCalendar{})

	msg := "¿Cuánto cuesta el corte de pelo?"
	out, err := f.orch.HandleInboundMessage(context.Background(), testBot(), testOwner(), msg, ChannelWeb)

	require.NoError(t, err)
	assert.Equal(t, "Corte de pelo cuesta 15 € y dura 30 minutos.", out)
	assert.Equal(t, 0, f.calendar.listCalls)
	assert.Equal(t, 0, f.calendar.createCalls)
	requireTwoTurns(t, f.repo, msg, out)
}

func TestDurationQueryAnswersFromDataset(t *testing.T) {
	f := newFixture(t, &fakeGenerator{text: "Déjame mirar."}, &fakeCalendar{})

	out, err := f.orch.HandleInboundMessage(context.Background(), testBot(), testOwner(), "¿Qué tiempo dura la manicura?", ChannelWeb)

	require.NoError(t, err)
	assert.Equal(t, "Manicura dura 45 minutos y cuesta 22 €.", out)
}

func TestPlainReplyWhenNothingConfirmed(t *testing.T) {
	f := newFixture(t, &fakeGenerator{text: "Tenemos huecos libres esta semana, dime qué día te viene bien."}, &fakeCalendar{})

	out, err := f.orch.HandleInboundMessage(context.Background(), testBot(), testOwner(), "Hola, me gustaría ir a la peluquería", ChannelWeb)

	require.NoError(t, err)
	assert.Equal(t, f.gen.text, out)
	assert.Equal(t, 0, f.calendar.listCalls)
	assert.Equal(t, 0, f.calendar.createCalls)
}

func TestConfirmedBookingCreatesEvent(t *testing.T) {
	gen := &fakeGenerator{text: "¡Genial! Tu cita queda confirmada."}
	cal := &fakeCalendar{link: "https://calendar.google.com/event?eid=abc"}
	f := newFixture(t, gen, cal)

	msg := "Sí, reserva el corte de pelo mañana a las 10"
	out, err := f.orch.HandleInboundMessage(context.Background(), testBot(), testOwner(), msg, ChannelTelegram)
	require.NoError(t, err)

	assert.Equal(t, gen.text+" Tu cita está confirmada para el 05/03/2026 a las 10:00.", out)

	require.Equal(t, 1, cal.listCalls)
	require.Equal(t, 1, cal.createCalls)
	assert.Equal(t, "Cita: Corte de pelo", cal.lastLabel)
	assert.Equal(t, "Cita: Corte de pelo", cal.lastCreate.Summary)

	loc, _ := time.LoadLocation("Europe/Madrid")
	wantStart := time.Date(2026, time.March, 5, 10, 0, 0, 0, loc)
	assert.True(t, cal.lastCreate.Window.Start.Equal(wantStart))
	assert.True(t, cal.lastCreate.Window.End.Equal(wantStart.Add(40*time.Minute)), "30 min service plus 10 min buffer")

	assert.Contains(t, cal.lastCreate.Description, "telegram")
	assert.Contains(t, cal.lastCreate.Description, msg)

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "dueno@example.com", f.sender.sent[0].To)
	assert.Equal(t, "Nueva cita agendada (Peluquería Sol)", f.sender.sent[0].Subject)
	assert.Contains(t, f.sender.sent[0].Body, cal.link)

	requireTwoTurns(t, f.repo, msg, out)
}

func TestBookingSkippedWithoutCalendarCredentials(t *testing.T) {
	gen := &fakeGenerator{text: "¡Perfecto! Tu cita queda confirmada."}
	cal := &fakeCalendar{link: "https://calendar.google.com/event?eid=abc"}
	f := newFixture(t, gen, cal)

	owner := testOwner()
	owner.GoogleTokens = nil

	out, err := f.orch.HandleInboundMessage(context.Background(), testBot(), owner, "Sí, el corte mañana a las 10", ChannelWeb)

	require.NoError(t, err)
	assert.Equal(t, gen.text, out, "without a connected calendar the generated reply passes through untouched")
	assert.Equal(t, 0, cal.listCalls)
	assert.Equal(t, 0, cal.createCalls)
	assert.Empty(t, f.sender.sent)
}

func TestUnresolvedDateAsksForClarification(t *testing.T) {
	gen := &fakeGenerator{text: "Vale, confirmo la cita."}
	cal := &fakeCalendar{}
	f := newFixture(t, gen, cal)

	out, err := f.orch.HandleInboundMessage(context.Background(), testBot(), testOwner(), "Confirma el corte de pelo", ChannelWeb)

	require.NoError(t, err)
	assert.Equal(t, msgDateUnresolved, out)
	assert.Equal(t, 0, cal.listCalls)
}

func TestFullSlotSuggestsAnotherTime(t *testing.T) {
	gen := &fakeGenerator{text: "¡Perfecto! Tu cita queda confirmada."}
	cal := &fakeCalendar{events: []gcal.Event{{ID: "ev-1", Summary: "Cita: Corte de pelo"}}}
	f := newFixture(t, gen, cal)

	out, err := f.orch.HandleInboundMessage(context.Background(), testBot(), testOwner(), "Sí, el corte de pelo mañana a las 10", ChannelWeb)

	require.NoError(t, err)
	assert.Contains(t, out, `"Corte de pelo"`)
	assert.Contains(t, out, "no hay disponibilidad")
	assert.Equal(t, 0, cal.createCalls)
	assert.Empty(t, f.sender.sent)
}

func TestCapacityAllowsOverlappingBookings(t *testing.T) {
	gen := &fakeGenerator{text: "¡Perfecto! Tu cita queda confirmada."}
	// Manicura has capacity 2; one existing event does not fill the slot.
	cal := &fakeCalendar{
		events: []gcal.Event{{ID: "ev-1", Summary: "Cita: Manicura"}},
		link:   "https://calendar.google.com/event?eid=xyz",
	}
	f := newFixture(t, gen, cal)

	out, err := f.orch.HandleInboundMessage(context.Background(), testBot(), testOwner(), "Sí, la manicura mañana a las 10", ChannelWeb)

	require.NoError(t, err)
	assert.Equal(t, 1, cal.createCalls)
	assert.Contains(t, out, "confirmada para el 05/03/2026")
}

func TestAvailabilityFailureNeverBooks(t *testing.T) {
	gen := &fakeGenerator{text: "¡Perfecto! Tu cita queda confirmada."}
	cal := &fakeCalendar{listErr: errors.New("calendar timeout")}
	f := newFixture(t, gen, cal)

	out, err := f.orch.HandleInboundMessage(context.Background(), testBot(), testOwner(), "Sí, el corte mañana a las 10", ChannelWeb)

	require.NoError(t, err)
	assert.Equal(t, msgAvailabilityDown, out)
	assert.Equal(t, 0, cal.createCalls, "a failed check must never fall through to event creation")
}

func TestEventCreationFailureApologizes(t *testing.T) {
	gen := &fakeGenerator{text: "¡Perfecto! Tu cita queda confirmada."}
	cal := &fakeCalendar{createErr: errors.New("insert rejected")}
	f := newFixture(t, gen, cal)

	out, err := f.orch.HandleInboundMessage(context.Background(), testBot(), testOwner(), "Sí, el corte mañana a las 10", ChannelWeb)

	require.NoError(t, err)
	assert.Equal(t, msgBookingFailed, out)
	assert.Empty(t, f.sender.sent)
}

func TestEmptyEventLinkTreatedAsFailure(t *testing.T) {
	gen := &fakeGenerator{text: "¡Perfecto! Tu cita queda confirmada."}
	cal := &fakeCalendar{link: ""}
	f := newFixture(t, gen, cal)

	out, err := f.orch.HandleInboundMessage(context.Background(), testBot(), testOwner(), "Sí, el corte mañana a las 10", ChannelWeb)

	require.NoError(t, err)
	assert.Equal(t, msgBookingFailed, out)
}

func TestGenerationFailureStillReplies(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	f := newFixture(t, gen, &fakeCalendar{})

	msg := "Hola"
	out, err := f.orch.HandleInboundMessage(context.Background(), testBot(), testOwner(), msg, ChannelWeb)

	require.NoError(t, err)
	assert.Equal(t, msgGenerationFailed, out)
	requireTwoTurns(t, f.repo, msg, out)
}

func TestEmailFailureDoesNotAffectBooking(t *testing.T) {
	gen := &fakeGenerator{text: "¡Perfecto! Tu cita queda confirmada."}
	cal := &fakeCalendar{link: "https://calendar.google.com/event?eid=abc"}
	f := newFixture(t, gen, cal)
	f.sender.err = errors.New("smtp down")

	out, err := f.orch.HandleInboundMessage(context.Background(), testBot(), testOwner(), "Sí, el corte mañana a las 10", ChannelWeb)

	require.NoError(t, err)
	assert.Contains(t, out, "confirmada para el 05/03/2026")
}

func TestStorageFailureDoesNotBlockReply(t *testing.T) {
	gen := &fakeGenerator{text: "Hola, ¿en qué puedo ayudarte?"}
	f := newFixture(t, gen, &fakeCalendar{})
	f.repo.appendErr = errors.New("connection refused")

	out, err := f.orch.HandleInboundMessage(context.Background(), testBot(), testOwner(), "Hola", ChannelWeb)

	require.NoError(t, err)
	assert.Equal(t, gen.text, out)
}

func TestEveryBranchLogsExactlyTwoTurns(t *testing.T) {
	cases := []struct {
		name    string
		gen     *fakeGenerator
		cal     *fakeCalendar
		owner   func() *bots.Owner
		message string
	}{
		{"informational", &fakeGenerator{text: "ok"}, &fakeCalendar{}, testOwner, "¿Cuánto cuesta el corte de pelo?"},
		{"plain reply", &fakeGenerator{text: "dime más"}, &fakeCalendar{}, testOwner, "Hola"},
		{"generation failure", &fakeGenerator{err: errors.New("down")}, &fakeCalendar{}, testOwner, "Hola"},
		{"date unresolved", &fakeGenerator{text: "cita confirmada"}, &fakeCalendar{}, testOwner, "Confirma el corte"},
		{"slot full", &fakeGenerator{text: "cita confirmada"}, &fakeCalendar{events: []gcal.Event{{}}}, testOwner, "Sí, el corte mañana a las 10"},
		{"availability error", &fakeGenerator{text: "cita confirmada"}, &fakeCalendar{listErr: errors.New("x")}, testOwner, "Sí, el corte mañana a las 10"},
		{"creation error", &fakeGenerator{text: "cita confirmada"}, &fakeCalendar{createErr: errors.New("x")}, testOwner, "Sí, el corte mañana a las 10"},
		{"booked", &fakeGenerator{text: "cita confirmada"}, &fakeCalendar{link: "https://x"}, testOwner, "Sí, el corte mañana a las 10"},
		{"no credentials", &fakeGenerator{text: "cita confirmada"}, &fakeCalendar{}, func() *bots.Owner {
			o := testOwner()
			o.GoogleTokens = nil
			return o
		}, "Sí, el corte mañana a las 10"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.gen, tc.cal)
			out, err := f.orch.HandleInboundMessage(context.Background(), testBot(), tc.owner(), tc.message, ChannelWeb)
			require.NoError(t, err)
			require.NotEmpty(t, out)
			requireTwoTurns(t, f.repo, tc.message, out)
		})
	}
}
