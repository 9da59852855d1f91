// Package intent classifies a message/reply pair with fixed pattern rules.
package intent

import (
	"fmt"
	"regexp"

	"github.com/talobot/talobot/internal/catalog"
)

// Result is the outcome of classifying one turn.
type Result struct {
	PriceQuery       bool
	DurationQuery    bool
	BookingConfirmed bool
}

// Informational reports whether the turn asks for a fact we answer with a
// deterministic template instead of the generated reply.
func (r Result) Informational() bool {
	return r.PriceQuery || r.DurationQuery
}

// Price and duration questions are detected on the incoming user message.
var (
	priceRe    = regexp.MustCompile(`(?i)precio|cuesta|cost|cuánto|cuanto|valor`)
	durationRe = regexp.MustCompile(`(?i)duración|duracion|dura|tiempo|horas|minutos`)
)

// Booking confirmation is detected on the generated reply, not the user
// message: whether the exchange reached agreement is a property of what the
// assistant decided to say.
var confirmationRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)cita (confirmada|agendada|programada|reservada)`),
	regexp.MustCompile(`(?i)(confirmo|agendo|programo|reservo) (la |el |tu |su )?(cita|reserva)`),
	regexp.MustCompile(`(?i)(tu|su|la) (cita|reserva) (está|esta|queda) (confirmada|agendada|programada|reservada|lista)`),
	regexp.MustCompile(`(?i)(perfecto|de acuerdo|genial|vale)[,.!]? (tu|su|la) (cita|reserva)`),
}

// Classify inspects the user message for price/duration questions and the
// generated reply for a booking confirmation.
func Classify(userMessage, generatedReply string) Result {
	return Result{
		PriceQuery:       priceRe.MatchString(userMessage),
		DurationQuery:    durationRe.MatchString(userMessage),
		BookingConfirmed: confirmed(generatedReply),
	}
}

func confirmed(reply string) bool {
	for _, re := range confirmationRes {
		if re.MatchString(reply) {
			return true
		}
	}
	return false
}

// PriceReply is the deterministic answer for a price question about a
// matched service. The raw uploaded price is embedded unchanged so the
// answer can never drift from the dataset.
func PriceReply(rec catalog.Record) string {
	return fmt.Sprintf("%s cuesta %s € y dura %d minutos.", rec.Name, rec.Price, rec.DurationMinutes)
}

// DurationReply is the deterministic answer for a duration question.
func DurationReply(rec catalog.Record) string {
	return fmt.Sprintf("%s dura %d minutos y cuesta %s €.", rec.Name, rec.DurationMinutes, rec.Price)
}
