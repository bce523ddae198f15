package handlers

import (
	"net/http"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/metrics"
	"github.com/vidshare/backend/internal/middleware"
)

// ViewHandler registers video views.
type ViewHandler struct {
	Views   ViewCounter
	Metrics *metrics.Registry
}

// Register handles PUT /api/v1/items/{id}/views. Authenticated viewers are
// deduplicated by identity, anonymous ones by client address.
func (h ViewHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	viewerKey := "identity:" + subject(r)
	if subject(r) == "" {
		viewerKey = "addr:" + middleware.ClientIP(r)
	}

	result, err := h.Views.Register(ctx, r.PathValue("id"), viewerKey)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			h.Metrics.ObserveView("missing")
		} else {
			h.Metrics.ObserveView("error")
		}
		writeError(ctx, w, err)
		return
	}

	if result.Counted {
		h.Metrics.ObserveView("counted")
	} else {
		h.Metrics.ObserveView("suppressed")
	}
	respondJSON(ctx, w, http.StatusOK, result)
}
