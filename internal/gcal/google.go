package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/talobot/talobot/internal/schedule"
	"github.com/talobot/talobot/pkg/logging"
)

// OAuthConfig identifies the OAuth application used to mint per-tenant
// token sources.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// GoogleClient talks to the tenant's primary Google Calendar.
type GoogleClient struct {
	oauth  *oauth2.Config
	logger *logging.Logger
}

// NewGoogleClient creates a calendar client for the given OAuth application.
func NewGoogleClient(cfg OAuthConfig, logger *logging.Logger) *GoogleClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &GoogleClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{calendar.CalendarEventsScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://accounts.google.com/o/oauth2/auth",
				TokenURL: "https://oauth2.googleapis.com/token",
			},
		},
		logger: logger,
	}
}

// AuthCodeURL builds the Google consent URL for the connect flow. Offline
// access with forced consent so a refresh token comes back even when the
// tenant reconnects.
func (g *GoogleClient) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades the callback's authorization code for the token bundle and
// returns it serialized, ready to store on the owner record.
func (g *GoogleClient) Exchange(ctx context.Context, code string) ([]byte, error) {
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("gcal: exchange authorization code: %w", err)
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return nil, fmt.Errorf("gcal: encode token: %w", err)
	}
	return raw, nil
}

func (g *GoogleClient) service(ctx context.Context, creds Credentials) (*calendar.Service, error) {
	tok, err := creds.token()
	if err != nil {
		return nil, err
	}
	src := g.oauth.TokenSource(ctx, tok)
	svc, err := calendar.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("gcal: build calendar service: %w", err)
	}
	return svc, nil
}

// ListEvents returns single events overlapping the window on the primary
// calendar, ordered by start time. The label filters server-side via the
// free-text query parameter.
func (g *GoogleClient) ListEvents(ctx context.Context, creds Credentials, window schedule.Window, label string) ([]Event, error) {
	svc, err := g.service(ctx, creds)
	if err != nil {
		return nil, err
	}

	call := svc.Events.List("primary").
		TimeMin(window.Start.Format("2006-01-02T15:04:05Z07:00")).
		TimeMax(window.End.Format("2006-01-02T15:04:05Z07:00")).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	if label != "" {
		call = call.Q(label)
	}

	res, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("gcal: list events: %w", err)
	}

	events := make([]Event, 0, len(res.Items))
	for _, item := range res.Items {
		events = append(events, Event{
			ID:      item.Id,
			Summary: item.Summary,
			Start:   parseEventTime(item.Start),
			End:     parseEventTime(item.End),
		})
	}
	return events, nil
}

// CreateEvent inserts the booking on the primary calendar and returns the
// event's HTML link.
func (g *GoogleClient) CreateEvent(ctx context.Context, creds Credentials, req EventRequest) (string, error) {
	svc, err := g.service(ctx, creds)
	if err != nil {
		return "", err
	}

	event := &calendar.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start: &calendar.EventDateTime{
			DateTime: req.Window.Start.Format("2006-01-02T15:04:05Z07:00"),
			TimeZone: req.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: req.Window.End.Format("2006-01-02T15:04:05Z07:00"),
			TimeZone: req.TimeZone,
		},
	}

	created, err := svc.Events.Insert("primary", event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gcal: insert event: %w", err)
	}
	g.logger.Info("calendar event created", "summary", req.Summary, "link", created.HtmlLink)
	return created.HtmlLink, nil
}

func parseEventTime(edt *calendar.EventDateTime) (t time.Time) {
	if edt == nil {
		return
	}
	raw := edt.DateTime
	if raw == "" {
		raw = edt.Date
		parsed, _ := time.Parse("2006-01-02", raw)
		return parsed
	}
	parsed, _ := time.Parse(time.RFC3339, raw)
	return parsed
}
