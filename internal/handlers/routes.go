package handlers

import (
	"net/http"

	"github.com/vidshare/backend/internal/metrics"
	"github.com/vidshare/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Identities    IdentityService
	Sessions      SessionManager
	Subscriptions SubscriptionGraph
	Channels      ChannelProfiles
	History       WatchHistory
	Views         ViewCounter
	Videos        VideoCatalog
	Health        HealthChecker
	Auth          *middleware.Authenticator
	LoginLimiter  middleware.RateLimiter
	Metrics       *metrics.Registry
	Uploads       UploadLimits
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Checker: deps.Health}
	sessions := SessionHandler{Identities: deps.Identities, Sessions: deps.Sessions, Metrics: deps.Metrics}
	identities := IdentityHandler{Identities: deps.Identities, MaxUpload: deps.Uploads.image()}
	subscriptions := SubscriptionHandler{Graph: deps.Subscriptions}
	channels := ChannelHandler{Profiles: deps.Channels}
	history := HistoryHandler{History: deps.History}
	views := ViewHandler{Views: deps.Views, Metrics: deps.Metrics}
	videos := VideoHandler{Videos: deps.Videos, MaxUpload: deps.Uploads.video()}

	required := func(h http.HandlerFunc) http.Handler { return deps.Auth.Required(h) }
	optional := func(h http.HandlerFunc) http.Handler { return deps.Auth.Optional(h) }
	limited := func(scope string, h http.HandlerFunc) http.Handler {
		return middleware.Limit(deps.LoginLimiter, scope)(h)
	}

	mux.HandleFunc("GET /healthz", health.Handle)
	mux.Handle("GET /metrics", deps.Metrics.Handler())

	mux.Handle("POST /api/v1/sessions", limited("login", sessions.Login))
	mux.Handle("DELETE /api/v1/sessions", required(sessions.Logout))
	mux.HandleFunc("POST /api/v1/sessions/refresh", sessions.Refresh)

	mux.Handle("POST /api/v1/identities", limited("register", identities.Register))
	mux.Handle("GET /api/v1/identities/me", required(identities.Me))
	mux.Handle("PATCH /api/v1/identities/me", required(identities.UpdateAccount))
	mux.Handle("PUT /api/v1/identities/me/password", required(identities.ChangePassword))
	mux.Handle("PUT /api/v1/identities/me/avatar", required(identities.UpdateAvatar))
	mux.Handle("PUT /api/v1/identities/me/cover-image", required(identities.UpdateCoverImage))
	mux.Handle("GET /api/v1/identities/me/videos", required(videos.Mine))

	mux.Handle("POST /api/v1/subscriptions/{channelUsername}", required(subscriptions.Subscribe))
	mux.Handle("DELETE /api/v1/subscriptions/{channelUsername}", required(subscriptions.Unsubscribe))
	mux.Handle("GET /api/v1/identities/{id}/subscribers/count", optional(subscriptions.SubscribersCount))
	mux.Handle("GET /api/v1/identities/{id}/subscriptions/count", optional(subscriptions.SubscriptionsCount))
	mux.Handle("GET /api/v1/identities/{id}/subscriptions/{channelId}", optional(subscriptions.IsSubscribed))

	mux.Handle("GET /api/v1/channels/{username}/profile", optional(channels.Profile))

	mux.Handle("GET /api/v1/identities/{id}/watch-history", required(history.List))
	mux.Handle("POST /api/v1/identities/{id}/watch-history", required(history.Record))
	mux.Handle("DELETE /api/v1/identities/{id}/watch-history", required(history.Clear))
	mux.Handle("DELETE /api/v1/identities/{id}/watch-history/{itemId}", required(history.Remove))

	mux.Handle("PUT /api/v1/items/{id}/views", optional(views.Register))

	mux.Handle("POST /api/v1/videos", required(videos.Publish))
	mux.Handle("GET /api/v1/videos", optional(videos.List))
	mux.Handle("GET /api/v1/videos/{id}", optional(videos.Get))
	mux.Handle("PATCH /api/v1/videos/{id}", required(videos.Update))
	mux.Handle("DELETE /api/v1/videos/{id}", required(videos.Delete))
	mux.Handle("GET /api/v1/videos/{id}/reactions", optional(videos.Reactions))
	mux.Handle("PUT /api/v1/videos/{id}/like", required(videos.Like))
	mux.Handle("PUT /api/v1/videos/{id}/dislike", required(videos.Dislike))
	mux.Handle("DELETE /api/v1/videos/{id}/reaction", required(videos.ClearReaction))
}
