package handlers

import (
	"net/http"

	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/models"
)

// SubscriptionHandler exposes the subscription graph.
type SubscriptionHandler struct {
	Graph SubscriptionGraph
}

type subscriptionResponse struct {
	Channel    models.PublicIdentity `json:"channel"`
	Subscribed bool                  `json:"subscribed"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

// Subscribe handles POST /api/v1/subscriptions/{channelUsername}.
func (h SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channel, err := h.Graph.Subscribe(ctx, subject(r), r.PathValue("channelUsername"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	logging.FromContext(ctx).Info("subscribed", "channel_id", channel.ID)
	respondJSON(ctx, w, http.StatusCreated, subscriptionResponse{Channel: channel.Public(), Subscribed: true})
}

// Unsubscribe handles DELETE /api/v1/subscriptions/{channelUsername}.
func (h SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channel, err := h.Graph.Unsubscribe(ctx, subject(r), r.PathValue("channelUsername"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	logging.FromContext(ctx).Info("unsubscribed", "channel_id", channel.ID)
	respondJSON(ctx, w, http.StatusOK, subscriptionResponse{Channel: channel.Public(), Subscribed: false})
}

// SubscribersCount handles GET /api/v1/identities/{id}/subscribers/count.
func (h SubscriptionHandler) SubscribersCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := h.Graph.SubscribersCount(ctx, resolveSelf(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, countResponse{Count: count})
}

// SubscriptionsCount handles GET /api/v1/identities/{id}/subscriptions/count.
func (h SubscriptionHandler) SubscriptionsCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := h.Graph.SubscribedToCount(ctx, resolveSelf(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, countResponse{Count: count})
}

// IsSubscribed handles GET /api/v1/identities/{id}/subscriptions/{channelId}.
func (h SubscriptionHandler) IsSubscribed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ok, err := h.Graph.IsSubscribed(ctx, resolveSelf(r), r.PathValue("channelId"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]bool{"subscribed": ok})
}

// resolveSelf returns the {id} path value, substituting the caller for "me".
func resolveSelf(r *http.Request) string {
	id := r.PathValue("id")
	if id == "me" {
		return subject(r)
	}
	return id
}
