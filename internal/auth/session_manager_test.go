package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T) (*Manager, *repositories.MemoryIdentityRepository, models.Identity, *testClock) {
	t.Helper()

	repos := repositories.NewMemoryRepositories()
	identity := models.Identity{
		ID:       uuid.NewString(),
		Username: "alice",
		Email:    "alice@example.com",
		Fullname: "Alice",
	}
	require.NoError(t, repos.Identities.Create(context.Background(), identity))

	clock := &testClock{now: time.Now().UTC()}
	manager, err := NewManager(Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    10 * 24 * time.Hour,
	}, repos.Identities, WithClock(clock.Now))
	require.NoError(t, err)

	return manager, repos.Identities, identity, clock
}

func TestManagerIssueAndVerify(t *testing.T) {
	manager, store, identity, _ := newTestManager(t)
	ctx := context.Background()

	pair, err := manager.Issue(ctx, identity)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := manager.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, TokenTypeAccess, claims.Type)

	stored, err := store.FindByID(ctx, identity.ID)
	require.NoError(t, err)
	assert.Equal(t, HashToken(pair.RefreshToken), stored.RefreshTokenHash)
	assert.NotEqual(t, pair.RefreshToken, stored.RefreshTokenHash)
}

func TestManagerVerifyAccessRejects(t *testing.T) {
	manager, _, identity, clock := newTestManager(t)
	pair, err := manager.Issue(context.Background(), identity)
	require.NoError(t, err)

	cases := map[string]string{
		"empty":        "",
		"malformed":    "not-a-jwt",
		"refreshToken": pair.RefreshToken,
		"tampered":     pair.AccessToken[:strings.LastIndex(pair.AccessToken, ".")] + ".c2lnbmF0dXJl",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := manager.VerifyAccess(token)
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		})
	}

	clock.Advance(16 * time.Minute)
	_, err = manager.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestManagerRotateThenReplay(t *testing.T) {
	manager, _, identity, _ := newTestManager(t)
	ctx := context.Background()

	first, err := manager.Issue(ctx, identity)
	require.NoError(t, err)

	second, err := manager.Rotate(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = manager.Rotate(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrSessionRevokedOrReused)

	third, err := manager.Rotate(ctx, second.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, third.AccessToken)
}

func TestManagerAccessExpiryKeepsSession(t *testing.T) {
	manager, _, identity, clock := newTestManager(t)
	ctx := context.Background()

	pair, err := manager.Issue(ctx, identity)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = manager.VerifyAccess(pair.AccessToken)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	rotated, err := manager.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)
	_, err = manager.VerifyAccess(rotated.AccessToken)
	assert.NoError(t, err)
}

func TestManagerRotateExpiredRefresh(t *testing.T) {
	manager, _, identity, clock := newTestManager(t)
	ctx := context.Background()

	pair, err := manager.Issue(ctx, identity)
	require.NoError(t, err)

	clock.Advance(11 * 24 * time.Hour)
	_, err = manager.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestManagerRevoke(t *testing.T) {
	manager, _, identity, _ := newTestManager(t)
	ctx := context.Background()

	pair, err := manager.Issue(ctx, identity)
	require.NoError(t, err)
	require.NoError(t, manager.Revoke(ctx, identity.ID))

	_, err = manager.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrSessionRevokedOrReused)

	again, err := manager.Issue(ctx, identity)
	require.NoError(t, err)
	_, err = manager.Rotate(ctx, again.RefreshToken)
	assert.NoError(t, err)
}

func TestManagerRotateIdentityGone(t *testing.T) {
	manager, _, _, _ := newTestManager(t)
	ctx := context.Background()

	ghost := models.Identity{ID: uuid.NewString(), Username: "ghost"}
	pair, err := manager.mint(ghost)
	require.NoError(t, err)

	_, err = manager.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrInvalidSession)

	_, err = manager.Issue(ctx, ghost)
	assert.ErrorIs(t, err, apperr.ErrInvalidSession)
}

func TestManagerConcurrentRotateHasOneWinner(t *testing.T) {
	manager, _, identity, _ := newTestManager(t)
	ctx := context.Background()

	pair, err := manager.Issue(ctx, identity)
	require.NoError(t, err)

	const attempts = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		rejected int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Rotate(ctx, pair.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, apperr.ErrSessionRevokedOrReused):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, rejected)
}

type failingStore struct {
	repositories.IdentityRepository
}

func (failingStore) SaveRefreshToken(context.Context, string, string) error {
	return errors.New("database unavailable")
}

func TestManagerIssueFailsWhenPersistFails(t *testing.T) {
	manager, err := NewManager(Config{
		AccessSecret:  "a",
		RefreshSecret: "b",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, failingStore{})
	require.NoError(t, err)

	pair, err := manager.Issue(context.Background(), models.Identity{ID: uuid.NewString()})
	assert.ErrorIs(t, err, apperr.ErrInternal)
	assert.Empty(t, pair.AccessToken)
}

func TestNewManagerValidation(t *testing.T) {
	store := repositories.NewMemoryRepositories().Identities

	_, err := NewManager(Config{AccessSecret: "same", RefreshSecret: "same", AccessTTL: time.Minute, RefreshTTL: time.Hour}, store)
	assert.Error(t, err)

	_, err = NewManager(Config{AccessSecret: "a", RefreshSecret: "b", AccessTTL: time.Minute, RefreshTTL: time.Hour}, nil)
	assert.Error(t, err)
}

func TestClaimsContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", SubjectFromContext(ctx))

	ctx = WithClaims(ctx, Claims{Username: "alice"})
	claims, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", claims.Username)
}
