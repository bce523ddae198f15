package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/logging"
)

// AccessTokenCookie is the cookie browsers present instead of a bearer header.
const AccessTokenCookie = "accessToken"

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (auth.Claims, error)
}

// Authenticator attaches verified access-token claims to the request context.
type Authenticator struct {
	verifier TokenVerifier
}

func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// Required rejects requests without a valid access token.
func (a *Authenticator) Required(next http.Handler) http.Handler {
	return a.wrap(next, true)
}

// Optional verifies a presented token but lets anonymous requests through.
// An invalid token is still rejected.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return a.wrap(next, false)
}

func (a *Authenticator) wrap(next http.Handler, required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		token := bearerToken(r)
		if token == "" {
			if required {
				logger.Warn("missing access token")
				writeJSONError(w, http.StatusUnauthorized, "authentication required", string(apperr.KindUnauthorized))
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		claims, err := a.verifier.VerifyAccess(token)
		if err != nil {
			logger.Warn("access token rejected", "error", err)
			writeJSONError(w, http.StatusUnauthorized, apperr.MessageOf(err), string(apperr.KindOf(err)))
			return
		}

		ctx = auth.WithClaims(ctx, claims)
		ctx = logging.WithSubject(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func writeJSONError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
