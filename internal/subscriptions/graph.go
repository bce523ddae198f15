// Package subscriptions maintains the directed subscriber to channel graph.
package subscriptions

import (
	"context"
	"errors"
	"strings"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
)

// EdgeStore persists subscription edges.
type EdgeStore interface {
	Create(ctx context.Context, subscriberID, channelID string) error
	Delete(ctx context.Context, subscriberID, channelID string) (bool, error)
	Exists(ctx context.Context, subscriberID, channelID string) (bool, error)
	CountSubscribers(ctx context.Context, channelID string) (int64, error)
	CountSubscriptions(ctx context.Context, subscriberID string) (int64, error)
}

// ChannelLookup resolves channels by their username.
type ChannelLookup interface {
	FindByUsername(ctx context.Context, username string) (models.Identity, error)
}

// Graph implements subscribe and unsubscribe with the edge rules applied
// before touching storage: no self edges, no duplicates, and unsubscribe only
// removes an existing edge.
type Graph struct {
	edges    EdgeStore
	channels ChannelLookup
}

func NewGraph(edges EdgeStore, channels ChannelLookup) *Graph {
	return &Graph{edges: edges, channels: channels}
}

// Subscribe adds the edge subscriberID -> channel identified by channelUsername.
func (g *Graph) Subscribe(ctx context.Context, subscriberID, channelUsername string) (models.Identity, error) {
	channel, err := g.resolve(ctx, channelUsername)
	if err != nil {
		return models.Identity{}, err
	}
	if channel.ID == subscriberID {
		return models.Identity{}, apperr.InvalidOperation("cannot subscribe to your own channel")
	}

	exists, err := g.edges.Exists(ctx, subscriberID, channel.ID)
	if err != nil {
		return models.Identity{}, apperr.Internal("failed to check subscription", err)
	}
	if exists {
		return models.Identity{}, apperr.Conflict("already subscribed to this channel")
	}

	if err := g.edges.Create(ctx, subscriberID, channel.ID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			return models.Identity{}, apperr.Conflict("already subscribed to this channel")
		case errors.Is(err, repositories.ErrCheckViolation):
			return models.Identity{}, apperr.InvalidOperation("cannot subscribe to your own channel")
		case errors.Is(err, repositories.ErrNotFound):
			return models.Identity{}, apperr.NotFound("channel not found")
		}
		return models.Identity{}, apperr.Internal("failed to subscribe", err)
	}

	return channel, nil
}

// Unsubscribe removes exactly the edge subscriberID -> channel.
func (g *Graph) Unsubscribe(ctx context.Context, subscriberID, channelUsername string) (models.Identity, error) {
	channel, err := g.resolve(ctx, channelUsername)
	if err != nil {
		return models.Identity{}, err
	}

	removed, err := g.edges.Delete(ctx, subscriberID, channel.ID)
	if err != nil {
		return models.Identity{}, apperr.Internal("failed to unsubscribe", err)
	}
	if !removed {
		return models.Identity{}, apperr.InvalidOperation("not subscribed to this channel")
	}
	return channel, nil
}

// SubscribersCount returns the live number of edges pointing at channelID.
func (g *Graph) SubscribersCount(ctx context.Context, channelID string) (int64, error) {
	n, err := g.edges.CountSubscribers(ctx, channelID)
	if err != nil {
		return 0, apperr.Internal("failed to count subscribers", err)
	}
	return n, nil
}

// SubscribedToCount returns the live number of edges leaving subscriberID.
func (g *Graph) SubscribedToCount(ctx context.Context, subscriberID string) (int64, error) {
	n, err := g.edges.CountSubscriptions(ctx, subscriberID)
	if err != nil {
		return 0, apperr.Internal("failed to count subscriptions", err)
	}
	return n, nil
}

func (g *Graph) IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error) {
	ok, err := g.edges.Exists(ctx, subscriberID, channelID)
	if err != nil {
		return false, apperr.Internal("failed to check subscription", err)
	}
	return ok, nil
}

func (g *Graph) resolve(ctx context.Context, username string) (models.Identity, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return models.Identity{}, apperr.Validation("channel username is required")
	}

	channel, err := g.channels.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Identity{}, apperr.NotFound("channel not found")
		}
		return models.Identity{}, apperr.Internal("failed to load channel", err)
	}
	return channel, nil
}
