// Package channels builds the public channel profile projection.
package channels

import (
	"context"
	"errors"
	"strings"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
)

// StatsQuery reads the relational part of a profile in one logical read.
type StatsQuery interface {
	ChannelStats(ctx context.Context, channelID, viewerID string) (models.ChannelStats, error)
}

type IdentityLookup interface {
	FindByUsername(ctx context.Context, username string) (models.Identity, error)
}

// Aggregator is read-only; it never mutates the graph or the identity.
type Aggregator struct {
	identities IdentityLookup
	stats      StatsQuery
}

func NewAggregator(identities IdentityLookup, stats StatsQuery) *Aggregator {
	return &Aggregator{identities: identities, stats: stats}
}

// Profile returns the channel projection for username as seen by viewerID.
// An empty viewerID is an anonymous viewer and is never subscribed.
func (a *Aggregator) Profile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return models.ChannelProfile{}, apperr.Validation("username is required")
	}

	channel, err := a.identities.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.ChannelProfile{}, apperr.NotFound("channel does not exist")
		}
		return models.ChannelProfile{}, apperr.Internal("failed to load channel", err)
	}

	stats, err := a.stats.ChannelStats(ctx, channel.ID, viewerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.ChannelProfile{}, apperr.NotFound("channel does not exist")
		}
		return models.ChannelProfile{}, apperr.Internal("failed to load channel stats", err)
	}
	if viewerID == "" {
		stats.IsViewerSubscribed = false
	}

	return models.ChannelProfile{
		ID:                 channel.ID,
		Fullname:           channel.Fullname,
		Username:           channel.Username,
		Email:              channel.Email,
		Avatar:             channel.Avatar,
		CoverImage:         channel.CoverImage,
		SubscribersCount:   stats.SubscribersCount,
		SubscribedToCount:  stats.SubscribedToCount,
		IsViewerSubscribed: stats.IsViewerSubscribed,
	}, nil
}
