package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	defaultIssuer = "vidshare"
)

// SessionStore persists the hash of the single live refresh token per identity.
type SessionStore interface {
	FindByID(ctx context.Context, id string) (models.Identity, error)
	SaveRefreshToken(ctx context.Context, id, hash string) error
	SwapRefreshToken(ctx context.Context, id, oldHash, newHash string) (bool, error)
}

// Config holds signing material and lifetimes for issued tokens.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Claims is the payload carried by both access and refresh tokens.
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager issues, verifies, rotates and revokes credential pairs. Only a hash
// of the current refresh token is stored, so a replayed superseded token is
// detected by comparing hashes.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string

	store SessionStore
	now   func() time.Time
}

// NewManager constructs a Manager. Secrets must be non-empty and distinct.
func NewManager(cfg Config, store SessionStore, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("auth: session store must not be nil")
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("auth: access and refresh secrets must be provided")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("auth: token ttls must be positive")
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}

	m := &Manager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        issuer,
		store:         store,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue mints a new pair for identity and records its refresh token hash,
// replacing any previous session. No pair is returned if persisting fails.
func (m *Manager) Issue(ctx context.Context, identity models.Identity) (models.CredentialPair, error) {
	if identity.ID == "" {
		return models.CredentialPair{}, apperr.Validation("identity id must be provided")
	}

	pair, err := m.mint(identity)
	if err != nil {
		return models.CredentialPair{}, err
	}

	if err := m.store.SaveRefreshToken(ctx, identity.ID, HashToken(pair.RefreshToken)); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.CredentialPair{}, apperr.New(apperr.KindInvalidSession, "identity no longer exists")
		}
		return models.CredentialPair{}, apperr.Internal("failed to persist session", err)
	}

	return pair, nil
}

// VerifyAccess validates an access token and returns its claims.
func (m *Manager) VerifyAccess(token string) (Claims, error) {
	claims, err := m.parse(token, m.accessSecret, TokenTypeAccess)
	if err != nil {
		return Claims{}, apperr.Wrap(apperr.KindUnauthorized, "invalid access token", err)
	}
	return claims, nil
}

// Rotate exchanges the current refresh token for a new pair. A token that was
// already rotated or revoked fails with SessionRevokedOrReused; of two
// concurrent rotations of the same token exactly one succeeds.
func (m *Manager) Rotate(ctx context.Context, refreshToken string) (pair models.CredentialPair, err error) {
	ctx, span := logging.StartSpan(ctx, "auth.rotate")
	defer func() {
		span.Fail(err)
		span.End()
	}()

	claims, err := m.parse(refreshToken, m.refreshSecret, TokenTypeRefresh)
	if err != nil {
		return models.CredentialPair{}, apperr.Wrap(apperr.KindUnauthorized, "invalid refresh token", err)
	}

	identity, err := m.store.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.CredentialPair{}, apperr.New(apperr.KindInvalidSession, "identity no longer exists")
		}
		return models.CredentialPair{}, apperr.Internal("failed to load session", err)
	}

	presented := HashToken(refreshToken)
	if identity.RefreshTokenHash == "" ||
		subtle.ConstantTimeCompare([]byte(identity.RefreshTokenHash), []byte(presented)) != 1 {
		logging.FromContext(ctx).Warn("refresh token mismatch", slog.String("subject_id", identity.ID))
		return models.CredentialPair{}, apperr.New(apperr.KindSessionRevokedOrReused, "refresh token has been revoked or reused")
	}

	pair, err = m.mint(identity)
	if err != nil {
		return models.CredentialPair{}, err
	}

	swapped, err := m.store.SwapRefreshToken(ctx, identity.ID, presented, HashToken(pair.RefreshToken))
	if err != nil {
		return models.CredentialPair{}, apperr.Internal("failed to persist session", err)
	}
	if !swapped {
		return models.CredentialPair{}, apperr.New(apperr.KindSessionRevokedOrReused, "refresh token has been revoked or reused")
	}

	return pair, nil
}

// Revoke clears the stored refresh token so no outstanding token can be rotated.
func (m *Manager) Revoke(ctx context.Context, identityID string) error {
	if identityID == "" {
		return apperr.Validation("identity id must be provided")
	}
	if err := m.store.SaveRefreshToken(ctx, identityID, ""); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.New(apperr.KindInvalidSession, "identity no longer exists")
		}
		return apperr.Internal("failed to revoke session", err)
	}
	return nil
}

func (m *Manager) mint(identity models.Identity) (models.CredentialPair, error) {
	now := m.now().UTC()

	access, accessExp, err := m.sign(identity, TokenTypeAccess, m.accessSecret, now, m.accessTTL)
	if err != nil {
		return models.CredentialPair{}, apperr.Internal("failed to sign access token", err)
	}
	refresh, refreshExp, err := m.sign(identity, TokenTypeRefresh, m.refreshSecret, now, m.refreshTTL)
	if err != nil {
		return models.CredentialPair{}, apperr.Internal("failed to sign refresh token", err)
	}

	return models.CredentialPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (m *Manager) sign(identity models.Identity, typ string, secret []byte, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := Claims{
		Username: identity.Username,
		Email:    identity.Email,
		Fullname: identity.Fullname,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   identity.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (m *Manager) parse(token string, secret []byte, typ string) (Claims, error) {
	if token == "" {
		return Claims{}, errors.New("token is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	var claims Claims
	if _, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}); err != nil {
		return Claims{}, err
	}
	if claims.Type != typ {
		return Claims{}, fmt.Errorf("unexpected token type %q", claims.Type)
	}
	if claims.Subject == "" {
		return Claims{}, errors.New("token has no subject")
	}
	return claims, nil
}

// HashToken returns the hex SHA-256 digest stored in place of a refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
