package handlers

import (
	"context"

	"github.com/vidshare/backend/internal/catalog"
	"github.com/vidshare/backend/internal/identity"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/views"
)

// IdentityService covers registration, credential checks and profile edits.
type IdentityService interface {
	Register(ctx context.Context, reg identity.Registration) (models.Identity, error)
	Authenticate(ctx context.Context, login, password string) (models.Identity, error)
	FindByID(ctx context.Context, id string) (models.Identity, error)
	UpdateAccount(ctx context.Context, id string, update identity.AccountUpdate) (models.Identity, error)
	ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error
	UpdateAvatar(ctx context.Context, id string, file identity.Upload) (models.Identity, error)
	UpdateCoverImage(ctx context.Context, id string, file identity.Upload) (models.Identity, error)
}

// SessionManager issues, rotates and revokes credential pairs.
type SessionManager interface {
	Issue(ctx context.Context, identity models.Identity) (models.CredentialPair, error)
	Rotate(ctx context.Context, refreshToken string) (models.CredentialPair, error)
	Revoke(ctx context.Context, identityID string) error
}

// SubscriptionGraph maintains subscriber to channel edges.
type SubscriptionGraph interface {
	Subscribe(ctx context.Context, subscriberID, channelUsername string) (models.Identity, error)
	Unsubscribe(ctx context.Context, subscriberID, channelUsername string) (models.Identity, error)
	SubscribersCount(ctx context.Context, channelID string) (int64, error)
	SubscribedToCount(ctx context.Context, subscriberID string) (int64, error)
	IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// ChannelProfiles builds the public view of a channel.
type ChannelProfiles interface {
	Profile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
}

// WatchHistory records and lists watched videos.
type WatchHistory interface {
	Record(ctx context.Context, identityID, videoID string) ([]string, error)
	Remove(ctx context.Context, identityID, videoID string) ([]string, error)
	Clear(ctx context.Context, identityID string) error
	List(ctx context.Context, identityID string) ([]models.WatchedVideo, error)
}

// ViewCounter registers deduplicated video views.
type ViewCounter interface {
	Register(ctx context.Context, videoID, viewerKey string) (views.Result, error)
}

// VideoCatalog publishes and lists uploaded videos.
type VideoCatalog interface {
	Publish(ctx context.Context, ownerID string, upload catalog.Upload) (models.Video, error)
	Get(ctx context.Context, id, viewerID string) (models.Video, error)
	ListPublished(ctx context.Context, page, pageSize int) ([]models.Video, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
	Update(ctx context.Context, id, requesterID string, edit catalog.Edit) (models.Video, error)
	Delete(ctx context.Context, id, requesterID string) error
	React(ctx context.Context, id, identityID string, kind models.Reaction) (models.ReactionSummary, error)
	ClearReaction(ctx context.Context, id, identityID string) (models.ReactionSummary, error)
	Reactions(ctx context.Context, id, viewerID string) (models.ReactionSummary, error)
}

// HealthChecker reports whether backing services are reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
