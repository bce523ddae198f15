package models

import "time"

// WatchHistoryLimit caps the number of entries kept in an identity's watch history.
const WatchHistoryLimit = 50

// Identity represents an account within the VidShare platform.
type Identity struct {
	ID               string
	Username         string
	Email            string
	Fullname         string
	PasswordHash     string
	Avatar           string
	CoverImage       string
	WatchHistory     []string
	RefreshTokenHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PublicIdentity is the presentation of an identity without secrets.
type PublicIdentity struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Fullname   string    `json:"fullname"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Public strips secret material from the identity.
func (i Identity) Public() PublicIdentity {
	return PublicIdentity{
		ID:         i.ID,
		Username:   i.Username,
		Email:      i.Email,
		Fullname:   i.Fullname,
		Avatar:     i.Avatar,
		CoverImage: i.CoverImage,
		CreatedAt:  i.CreatedAt,
	}
}

// Subscription is a directed follow edge from a subscriber to a channel.
type Subscription struct {
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

// ChannelStats is the relational part of a channel profile.
type ChannelStats struct {
	SubscribersCount   int64
	SubscribedToCount  int64
	IsViewerSubscribed bool
}

// ChannelProfile combines an identity with its subscription counts relative to a viewer.
type ChannelProfile struct {
	ID                 string `json:"id"`
	Fullname           string `json:"fullname"`
	Username           string `json:"username"`
	Email              string `json:"email"`
	Avatar             string `json:"avatar"`
	CoverImage         string `json:"coverImage"`
	SubscribersCount   int64  `json:"subscribersCount"`
	SubscribedToCount  int64  `json:"subscribedToCount"`
	IsViewerSubscribed bool   `json:"isViewerSubscribed"`
}

// Video is an uploaded item that can be watched and counted.
type Video struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VideoURL    string    `json:"videoFile"`
	Thumbnail   string    `json:"thumbnail"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	Published   bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Reaction is an identity's opinion of a video. An identity holds at most one
// reaction per video, so liking replaces a dislike and vice versa.
type Reaction string

const (
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
)

// Valid reports whether r is a known reaction kind.
func (r Reaction) Valid() bool {
	return r == ReactionLike || r == ReactionDislike
}

// ReactionSummary totals the reactions on a video. Mine is the viewer's own
// reaction and is empty for anonymous viewers or when they have none.
type ReactionSummary struct {
	Likes    int64    `json:"likes"`
	Dislikes int64    `json:"dislikes"`
	Mine     Reaction `json:"reaction,omitempty"`
}

// OwnerSummary is the subset of identity fields shown next to a video.
type OwnerSummary struct {
	ID       string `json:"id"`
	Fullname string `json:"fullname"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// WatchedVideo is a hydrated watch-history entry.
type WatchedVideo struct {
	Video
	Owner OwnerSummary `json:"owner"`
}

// CredentialPair groups the bearer credentials issued to authenticated identities.
type CredentialPair struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
