package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/metrics"
	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/internal/models"
)

const refreshTokenCookie = "refreshToken"

// SessionHandler implements login, logout and refresh.
type SessionHandler struct {
	Identities IdentityService
	Sessions   SessionManager
	Metrics    *metrics.Registry
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	Tokens models.CredentialPair   `json:"tokens"`
	User   *models.PublicIdentity `json:"user,omitempty"`
}

// Login handles POST /api/v1/sessions.
func (h SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	login := req.Username
	if strings.TrimSpace(login) == "" {
		login = req.Email
	}

	identity, err := h.Identities.Authenticate(ctx, login, req.Password)
	if err != nil {
		h.Metrics.ObserveLogin(loginOutcome(err))
		logger.Warn("login rejected", "login", strings.TrimSpace(login), "error", err)
		writeError(ctx, w, err)
		return
	}

	tokens, err := h.Sessions.Issue(ctx, identity)
	if err != nil {
		h.Metrics.ObserveLogin("error")
		writeError(ctx, w, err)
		return
	}
	h.Metrics.ObserveLogin("success")

	logger.Info("identity logged in", "identity_id", identity.ID)
	setSessionCookies(w, tokens)
	user := identity.Public()
	respondJSON(ctx, w, http.StatusOK, sessionResponse{Tokens: tokens, User: &user})
}

// Logout handles DELETE /api/v1/sessions.
func (h SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Sessions.Revoke(ctx, subject(r)); err != nil {
		writeError(ctx, w, err)
		return
	}

	clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// Refresh handles POST /api/v1/sessions/refresh. The token is read from the
// body, falling back to the refresh cookie.
func (h SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
			token = strings.TrimSpace(cookie.Value)
		}
	}
	if token == "" {
		writeError(ctx, w, apperr.Validation("refresh token is required"))
		return
	}

	tokens, err := h.Sessions.Rotate(ctx, token)
	if err != nil {
		h.Metrics.ObserveRotation(rotationOutcome(err))
		clearSessionCookies(w)
		writeError(ctx, w, err)
		return
	}
	h.Metrics.ObserveRotation("rotated")

	setSessionCookies(w, tokens)
	respondJSON(ctx, w, http.StatusOK, sessionResponse{Tokens: tokens})
}

func loginOutcome(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindUnauthorized, apperr.KindValidation:
		return "rejected"
	default:
		return "error"
	}
}

func rotationOutcome(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindSessionRevokedOrReused:
		return "reused"
	case apperr.KindInvalidSession, apperr.KindUnauthorized:
		return "invalid"
	default:
		return "error"
	}
}

func setSessionCookies(w http.ResponseWriter, tokens models.CredentialPair) {
	http.SetCookie(w, sessionCookie(middleware.AccessTokenCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, sessionCookie(refreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, refreshTokenCookie} {
		cookie := sessionCookie(name, "", time.Unix(0, 0))
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

func sessionCookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
