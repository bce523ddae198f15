package channels_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/channels"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
)

func seed(t *testing.T, repos repositories.MemoryRepositories, username string) models.Identity {
	t.Helper()
	identity := models.Identity{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		Fullname:  "Channel " + username,
		Avatar:    "https://cdn.example.com/" + username + ".png",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repos.Identities.Create(context.Background(), identity))
	return identity
}

func TestProfileCountsAndViewerFlag(t *testing.T) {
	ctx := context.Background()
	repos := repositories.NewMemoryRepositories()
	aggregator := channels.NewAggregator(repos.Identities, repos.Subscriptions)

	a := seed(t, repos, "a")
	b := seed(t, repos, "b")
	c := seed(t, repos, "c")

	require.NoError(t, repos.Subscriptions.Create(ctx, a.ID, b.ID))
	require.NoError(t, repos.Subscriptions.Create(ctx, c.ID, b.ID))
	require.NoError(t, repos.Subscriptions.Create(ctx, b.ID, c.ID))

	profile, err := aggregator.Profile(ctx, "b", a.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, profile.ID)
	assert.Equal(t, "Channel b", profile.Fullname)
	assert.Equal(t, b.Avatar, profile.Avatar)
	assert.Equal(t, int64(2), profile.SubscribersCount)
	assert.Equal(t, int64(1), profile.SubscribedToCount)
	assert.True(t, profile.IsViewerSubscribed)

	profile, err = aggregator.Profile(ctx, "B", "")
	require.NoError(t, err)
	assert.False(t, profile.IsViewerSubscribed)
	assert.Equal(t, int64(2), profile.SubscribersCount)

	profile, err = aggregator.Profile(ctx, "a", b.ID)
	require.NoError(t, err)
	assert.False(t, profile.IsViewerSubscribed)
	assert.Equal(t, int64(0), profile.SubscribersCount)
}

func TestProfileErrors(t *testing.T) {
	repos := repositories.NewMemoryRepositories()
	aggregator := channels.NewAggregator(repos.Identities, repos.Subscriptions)

	_, err := aggregator.Profile(context.Background(), "  ", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = aggregator.Profile(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

type failingStats struct{}

func (failingStats) ChannelStats(context.Context, string, string) (models.ChannelStats, error) {
	return models.ChannelStats{}, errors.New("timeout")
}

func TestProfileStatsFailure(t *testing.T) {
	repos := repositories.NewMemoryRepositories()
	seed(t, repos, "a")
	aggregator := channels.NewAggregator(repos.Identities, failingStats{})

	_, err := aggregator.Profile(context.Background(), "a", "")
	assert.ErrorIs(t, err, apperr.ErrInternal)
}
