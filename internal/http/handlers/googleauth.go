package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/talobot/talobot/internal/bots"
	"github.com/talobot/talobot/internal/http/middleware"
	"github.com/talobot/talobot/pkg/logging"
)

// stateTokenTTL bounds how long a consent URL stays usable.
const stateTokenTTL = 10 * time.Minute

// CalendarConnector runs the OAuth dance against Google. *gcal.GoogleClient
// satisfies it.
type CalendarConnector interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) ([]byte, error)
}

// GoogleAuthConfig wires the calendar connect endpoints.
type GoogleAuthConfig struct {
	Repo      bots.Repository
	Calendar  CalendarConnector
	JWTSecret string

	// SuccessRedirectURL, when set, is where the browser lands after the
	// callback saves the tokens. Without it the callback answers JSON.
	SuccessRedirectURL string

	Logger *logging.Logger
}

// GoogleAuthHandler connects a tenant's Google Calendar. The connect route
// hands out a consent URL carrying a signed state token; the public callback
// validates the state, exchanges the code and stores the credential blob on
// the owner.
type GoogleAuthHandler struct {
	repo       bots.Repository
	calendar   CalendarConnector
	jwtSecret  string
	successURL string
	logger     *logging.Logger
}

func NewGoogleAuthHandler(cfg GoogleAuthConfig) *GoogleAuthHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &GoogleAuthHandler{
		repo:       cfg.Repo,
		calendar:   cfg.Calendar,
		jwtSecret:  cfg.JWTSecret,
		successURL: cfg.SuccessRedirectURL,
		logger:     cfg.Logger,
	}
}

// Connect returns the Google consent URL for the authenticated owner. The
// state parameter is a short-lived signed token naming the owner, so the
// callback knows who to attach the credentials to without a session.
// Route: GET /google/connect
func (h *GoogleAuthHandler) Connect(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	state, err := h.signState(claims.UserID)
	if err != nil {
		h.logger.Error("sign oauth state failed", "owner_id", claims.UserID, "error", err)
		http.Error(w, "failed to build authorization URL", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"auth_url": h.calendar.AuthCodeURL(state)})
}

// Callback receives the browser redirect from Google's consent screen,
// exchanges the code and saves the token bundle on the owner record.
// Route: GET /google/callback?state=...&code=...
func (h *GoogleAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("error") != "" {
		// The tenant cancelled on the consent screen.
		http.Error(w, "authorization was denied", http.StatusBadRequest)
		return
	}

	ownerID, err := h.parseState(query.Get("state"))
	if err != nil {
		h.logger.Info("oauth callback with bad state", "error", err)
		http.Error(w, "invalid or expired state", http.StatusUnauthorized)
		return
	}
	code := query.Get("code")
	if code == "" {
		http.Error(w, "authorization code is required", http.StatusBadRequest)
		return
	}

	tokens, err := h.calendar.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth code exchange failed", "owner_id", ownerID, "error", err)
		http.Error(w, "could not exchange authorization code", http.StatusBadGateway)
		return
	}

	if err := h.repo.SetOwnerGoogleTokens(r.Context(), ownerID, tokens); err != nil {
		if errors.Is(err, bots.ErrOwnerNotFound) {
			http.Error(w, "owner not found", http.StatusNotFound)
			return
		}
		h.logger.Error("save google tokens failed", "owner_id", ownerID, "error", err)
		http.Error(w, "failed to store credentials", http.StatusInternalServerError)
		return
	}
	h.logger.Info("google calendar connected", "owner_id", ownerID)

	if h.successURL != "" {
		http.Redirect(w, r, h.successURL, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "connected"})
}

// Disconnect drops the stored calendar credentials so the owner's bots stop
// booking until a new connect flow completes.
// Route: DELETE /google
func (h *GoogleAuthHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.repo.SetOwnerGoogleTokens(r.Context(), claims.UserID, nil); err != nil {
		if errors.Is(err, bots.ErrOwnerNotFound) {
			http.Error(w, "owner not found", http.StatusNotFound)
			return
		}
		h.logger.Error("clear google tokens failed", "owner_id", claims.UserID, "error", err)
		http.Error(w, "failed to disconnect calendar", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GoogleAuthHandler) signState(ownerID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   ownerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
}

func (h *GoogleAuthHandler) parseState(state string) (string, error) {
	if state == "" {
		return "", errors.New("missing state")
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("state token rejected")
	}
	if claims.Subject == "" {
		return "", errors.New("state token has no subject")
	}
	return claims.Subject, nil
}
