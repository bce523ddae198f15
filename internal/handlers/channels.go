package handlers

import "net/http"

// ChannelHandler serves public channel profiles.
type ChannelHandler struct {
	Profiles ChannelProfiles
}

// Profile handles GET /api/v1/channels/{username}/profile. Authentication is
// optional; anonymous viewers are never reported as subscribed.
func (h ChannelHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile, err := h.Profiles.Profile(ctx, r.PathValue("username"), subject(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, profile)
}
