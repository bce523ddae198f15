package handlers

import (
	"net/http"

	"github.com/vidshare/backend/internal/apperr"
)

// HistoryHandler manages the caller's own watch history.
type HistoryHandler struct {
	History WatchHistory
}

type recordRequest struct {
	VideoID string `json:"videoId"`
}

type historyIDsResponse struct {
	WatchHistory []string `json:"watchHistory"`
}

// List handles GET /api/v1/identities/{id}/watch-history.
func (h HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ownIdentity(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	entries, err := h.History.List(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"watchHistory": entries})
}

// Record handles POST /api/v1/identities/{id}/watch-history.
func (h HistoryHandler) Record(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ownIdentity(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req recordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	ids, err := h.History.Record(ctx, id, req.VideoID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, historyIDsResponse{WatchHistory: ids})
}

// Remove handles DELETE /api/v1/identities/{id}/watch-history/{itemId}.
func (h HistoryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ownIdentity(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	ids, err := h.History.Remove(ctx, id, r.PathValue("itemId"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, historyIDsResponse{WatchHistory: ids})
}

// Clear handles DELETE /api/v1/identities/{id}/watch-history.
func (h HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ownIdentity(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.History.Clear(ctx, id); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownIdentity only lets callers address their own history.
func ownIdentity(r *http.Request) (string, error) {
	caller := subject(r)
	id := resolveSelf(r)
	if caller == "" || id != caller {
		return "", apperr.Forbidden("watch history belongs to another identity")
	}
	return id, nil
}
