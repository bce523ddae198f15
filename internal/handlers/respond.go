package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/logging"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// writeError maps an application error kind onto its HTTP status.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		logging.FromContext(ctx).Error("internal error", "error", err)
	}
	respondJSON(ctx, w, status, errorResponse{Error: apperr.MessageOf(err), Code: string(kind)})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInvalidOperation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized, apperr.KindInvalidSession, apperr.KindSessionRevokedOrReused:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	present, err := decodeBody(r, dst)
	if err != nil {
		return err
	}
	if !present {
		return apperr.Validation("request body is required")
	}
	return nil
}

// decodeOptionalJSON accepts an empty body, whatever the framing, and leaves
// dst untouched in that case.
func decodeOptionalJSON(r *http.Request, dst any) error {
	_, err := decodeBody(r, dst)
	return err
}

func decodeBody(r *http.Request, dst any) (bool, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return false, nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, apperr.Validation("invalid request body")
	}
	return true, nil
}

// subject returns the authenticated identity id placed on the context by the
// authentication middleware.
func subject(r *http.Request) string {
	return auth.SubjectFromContext(r.Context())
}
