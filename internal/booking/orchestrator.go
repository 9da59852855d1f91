package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/talobot/talobot/internal/bots"
	"github.com/talobot/talobot/internal/catalog"
	"github.com/talobot/talobot/internal/conversation"
	"github.com/talobot/talobot/internal/gcal"
	"github.com/talobot/talobot/internal/intent"
	"github.com/talobot/talobot/internal/notify"
	"github.com/talobot/talobot/internal/observability/metrics"
	"github.com/talobot/talobot/internal/reply"
	"github.com/talobot/talobot/internal/schedule"
	"github.com/talobot/talobot/pkg/logging"
)

// Channel identifies where an inbound message arrived from.
type Channel string

const (
	ChannelWeb      Channel = "web"
	ChannelTelegram Channel = "telegram"
)

// Turn outcomes reported to metrics.
const (
	outcomeReply         = "reply"
	outcomeInformational = "informational"
	outcomeBooked        = "booked"
	outcomeUnavailable   = "unavailable"
	outcomeDateUnknown   = "date_unresolved"
	outcomeError         = "error"
)

// Canned Spanish replies for the failure branches. The bot always answers
// something, even when a collaborator is down.
const (
	msgGenerationFailed = "Lo siento, ha ocurrido un error procesando tu mensaje. Inténtalo de nuevo más tarde."
	msgDateUnresolved   = "No he podido entender la fecha y la hora de la cita. ¿Puedes indicarme el día y la hora exactos, por favor?"
	msgAvailabilityDown = "Lo siento, no he podido comprobar la disponibilidad en este momento. Inténtalo de nuevo más tarde."
	msgBookingFailed    = "Lo siento, no he podido agendar la cita en este momento. Por favor, inténtalo de nuevo más tarde."
)

// Config carries the scheduling defaults the orchestrator applies when the
// tenant's dataset leaves them out.
type Config struct {
	DefaultDurationMinutes int
	BufferMinutes          int
	Timezone               string
	ExternalCallTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultDurationMinutes <= 0 {
		c.DefaultDurationMinutes = schedule.DefaultDurationMinutes
	}
	if c.BufferMinutes <= 0 {
		c.BufferMinutes = schedule.DefaultBufferMinutes
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Madrid"
	}
	if c.ExternalCallTimeout <= 0 {
		c.ExternalCallTimeout = 15 * time.Second
	}
	return c
}

// Request is the working state assembled while a single turn moves through
// the pipeline. Exposed for tests and for the description written into the
// calendar event; it never outlives the turn.
type Request struct {
	Message     string
	Channel     Channel
	Matched     *catalog.Record
	Intent      intent.Result
	Window      schedule.Window
	Provisional string
}

// Orchestrator runs one inbound message through matching, intent
// classification, reply generation and, when the turn confirms a booking,
// through availability checking and calendar event creation.
type Orchestrator struct {
	generator reply.Generator
	calendar  gcal.Client
	notifier  *notify.Service
	log       *conversation.Log
	metrics   *metrics.PipelineMetrics
	logger    *logging.Logger
	cfg       Config
	now       func() time.Time
}

// New builds an Orchestrator. generator and log are required; calendar,
// notifier and metrics degrade gracefully when nil.
func New(generator reply.Generator, calendar gcal.Client, notifier *notify.Service, log *conversation.Log, m *metrics.PipelineMetrics, logger *logging.Logger, cfg Config) *Orchestrator {
	return &Orchestrator{
		generator: generator,
		calendar:  calendar,
		notifier:  notifier,
		log:       log,
		metrics:   m,
		logger:    logger,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
	}
}

// HandleInboundMessage processes one user message for the given bot and
// returns the reply text to send back on the same channel. Collaborator
// failures are absorbed into apologetic replies; both sides of the turn are
// always appended to the conversation log.
func (o *Orchestrator) HandleInboundMessage(ctx context.Context, bot *bots.Bot, owner *bots.Owner, message string, channel Channel) (string, error) {
	o.appendTurn(ctx, bot.ID, conversation.SenderUser, message)

	req := &Request{Message: message, Channel: channel}
	text, outcome := o.runPipeline(ctx, bot, owner, req)

	o.appendTurn(ctx, bot.ID, conversation.SenderBot, text)
	o.metrics.ObserveTurn(string(channel), outcome)
	return text, nil
}

func (o *Orchestrator) runPipeline(ctx context.Context, bot *bots.Bot, owner *bots.Owner, req *Request) (string, string) {
	cat := catalog.Normalize(bot.Dataset, o.cfg.DefaultDurationMinutes)
	req.Matched = catalog.Match(req.Message, cat)

	provisional, err := o.generate(ctx, bot, req.Message)
	if err != nil {
		o.logger.Error("reply generation failed", "bot_id", bot.ID, "error", err)
		return msgGenerationFailed, outcomeError
	}
	req.Provisional = provisional
	req.Intent = intent.Classify(req.Message, provisional)

	if req.Intent.Informational() && req.Matched != nil {
		if req.Intent.PriceQuery {
			return intent.PriceReply(*req.Matched), outcomeInformational
		}
		return intent.DurationReply(*req.Matched), outcomeInformational
	}

	if !req.Intent.BookingConfirmed || req.Matched == nil || !owner.HasCalendar() {
		return provisional, outcomeReply
	}
	return o.book(ctx, bot, owner, req)
}

// book runs the booking leg of a confirmed turn. Every branch returns a
// user-facing reply; nothing escapes to the channel adapter.
func (o *Orchestrator) book(ctx context.Context, bot *bots.Bot, owner *bots.Owner, req *Request) (string, string) {
	loc, err := time.LoadLocation(o.cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}

	start, ok := schedule.Resolve(req.Message, o.now().In(loc), loc)
	if !ok {
		o.logger.Info("booking date unresolved", "bot_id", bot.ID, "error", ErrUnresolvedDate)
		return msgDateUnresolved, outcomeDateUnknown
	}
	req.Window = schedule.BuildWindow(start, req.Matched.DurationMinutes, o.cfg.BufferMinutes)

	creds, err := gcal.ParseCredentials(owner.GoogleTokens)
	if err != nil {
		o.logger.Error("calendar credentials unreadable", "owner_id", owner.ID, "error", err)
		return msgAvailabilityDown, outcomeError
	}

	label := "Cita: " + req.Matched.Name
	count, err := o.checkAvailability(ctx, creds, req.Window, label)
	if err != nil {
		o.logger.Error("availability check failed", "bot_id", bot.ID, "error", err)
		return msgAvailabilityDown, outcomeError
	}
	if count >= req.Matched.Capacity {
		return fmt.Sprintf("Lo siento, no hay disponibilidad para %q en ese horario. ¿Te viene bien otra hora?", req.Matched.Name), outcomeUnavailable
	}

	link, err := o.createEvent(ctx, creds, req, label)
	if err != nil {
		o.logger.Error("event creation failed", "bot_id", bot.ID, "error", fmt.Errorf("%w: %v", ErrBookingCreation, err))
		return msgBookingFailed, outcomeError
	}

	o.metrics.ObserveBooking(string(req.Channel))
	o.notifyOwner(ctx, bot, owner, req, link)

	confirmation := fmt.Sprintf(" Tu cita está confirmada para el %s a las %s.",
		req.Window.Start.Format("02/01/2006"), req.Window.Start.Format("15:04"))
	return req.Provisional + confirmation, outcomeBooked
}

func (o *Orchestrator) generate(ctx context.Context, bot *bots.Bot, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.ExternalCallTimeout)
	defer cancel()

	pairs := make([]reply.QA, 0, len(bot.Prompts))
	for _, p := range bot.Prompts {
		pairs = append(pairs, reply.QA{Question: p.Question, Answer: p.Answer})
	}
	rows := make([]map[string]string, 0, len(bot.Dataset))
	for _, raw := range bot.Dataset {
		row := make(map[string]string, len(raw))
		for k, v := range raw {
			row[k] = fmt.Sprint(v)
		}
		rows = append(rows, row)
	}

	started := time.Now()
	text, err := o.generator.Generate(ctx, reply.Request{Message: message, PromptPairs: pairs, DatasetRows: rows})
	o.observeCall("llm", started, err)
	return text, err
}

func (o *Orchestrator) observeCall(collaborator string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	o.metrics.ObserveExternalCall(collaborator, status, time.Since(started).Seconds())
}

func (o *Orchestrator) checkAvailability(ctx context.Context, creds gcal.Credentials, window schedule.Window, label string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.ExternalCallTimeout)
	defer cancel()

	started := time.Now()
	count, err := gcal.CheckAvailability(ctx, o.calendar, creds, window, label)
	o.observeCall("calendar", started, err)
	return count, err
}

func (o *Orchestrator) createEvent(ctx context.Context, creds gcal.Credentials, req *Request, label string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.ExternalCallTimeout)
	defer cancel()

	description := fmt.Sprintf("Canal: %s\nServicio: %s (%d minutos)\nMensaje del cliente: %q\nRespuesta del bot: %q",
		req.Channel, req.Matched.Name, req.Matched.DurationMinutes, req.Message, req.Provisional)

	started := time.Now()
	link, err := o.calendar.CreateEvent(ctx, creds, gcal.EventRequest{
		Summary:     label,
		Description: description,
		Window:      req.Window,
		TimeZone:    o.cfg.Timezone,
	})
	o.observeCall("calendar", started, err)
	if err != nil {
		return "", err
	}
	if link == "" {
		return "", errors.New("calendar returned no event link")
	}
	return link, nil
}

// notifyOwner emails the tenant about a fresh booking. Failures are logged
// and never surface to the client.
func (o *Orchestrator) notifyOwner(ctx context.Context, bot *bots.Bot, owner *bots.Owner, req *Request, link string) {
	if o.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, o.cfg.ExternalCallTimeout)
	defer cancel()

	err := o.notifier.NotifyBookingCreated(ctx, notify.BookingNotification{
		OwnerEmail:    owner.Email,
		OwnerName:     owner.Username,
		BotName:       bot.Name,
		ServiceName:   req.Matched.Name,
		CalendarLink:  link,
		ClientMessage: req.Message,
		Start:         req.Window.Start,
	})
	if err != nil {
		o.logger.Error("booking notification failed", "bot_id", bot.ID, "error", err)
	}
}

// appendTurn records one side of the exchange. Storage trouble is logged and
// swallowed so the client still gets an answer.
func (o *Orchestrator) appendTurn(ctx context.Context, botID string, sender conversation.Sender, text string) {
	if o.log == nil {
		return
	}
	if _, err := o.log.Append(ctx, conversation.Turn{BotID: botID, Sender: sender, Text: text}); err != nil {
		o.logger.Error("conversation append failed", "bot_id", botID, "sender", sender, "error", err)
	}
}
