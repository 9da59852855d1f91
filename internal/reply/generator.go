// Package reply is the boundary to the external reply generator. The
// pipeline only depends on the Generator contract; Gemini is the production
// implementation.
package reply

import "context"

// QA is one configured question/answer prompt pair for a bot.
type QA struct {
	Question string
	Answer   string
}

// Request carries the context the generator answers from: the inbound
// message, the bot's prompt pairs and the normalized dataset rows.
type Request struct {
	Message     string
	PromptPairs []QA
	DatasetRows []map[string]string
}

// Generator produces the provisional free-form reply for a turn.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
