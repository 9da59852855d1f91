// Package gcal wraps the tenant calendar as a narrow capability: list
// events in a window, insert one. The per-tenant credential bundle is
// opaque to the rest of the system.
package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/talobot/talobot/internal/schedule"
)

// Credentials is the opaque per-tenant token bundle stored on the owner
// record. The core never looks inside; it is handed to the client as-is.
type Credentials struct {
	raw []byte
}

// ParseCredentials validates a stored credential blob. Only the calendar
// client implementation ever decodes it further.
func ParseCredentials(raw []byte) (Credentials, error) {
	if len(raw) == 0 {
		return Credentials{}, errors.New("gcal: empty credentials")
	}
	if !json.Valid(raw) {
		return Credentials{}, errors.New("gcal: credentials are not valid JSON")
	}
	return Credentials{raw: raw}, nil
}

// Configured reports whether the tenant has connected a calendar.
func (c Credentials) Configured() bool {
	return len(c.raw) > 0
}

func (c Credentials) token() (*oauth2.Token, error) {
	var tok oauth2.Token
	if err := json.Unmarshal(c.raw, &tok); err != nil {
		return nil, fmt.Errorf("gcal: decode token: %w", err)
	}
	return &tok, nil
}

// Event is one calendar entry overlapping a queried window.
type Event struct {
	ID      string
	Summary string
	Start   time.Time
	End     time.Time
}

// EventRequest describes the event to insert for a confirmed booking.
type EventRequest struct {
	Summary     string
	Description string
	Window      schedule.Window
	TimeZone    string
}

// Client is the calendar collaborator contract. A list failure must stay
// distinguishable from an empty result; implementations return errors, never
// a silent nil slice on transport problems.
type Client interface {
	// ListEvents returns events overlapping the window, optionally filtered
	// by a free-text label (the service name).
	ListEvents(ctx context.Context, creds Credentials, window schedule.Window, label string) ([]Event, error)

	// CreateEvent inserts the event and returns a link to it. An empty link
	// with nil error is treated by callers as a creation failure.
	CreateEvent(ctx context.Context, creds Credentials, req EventRequest) (string, error)
}
