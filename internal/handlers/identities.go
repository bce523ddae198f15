package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/identity"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/models"
)

// IdentityHandler implements registration and self-service profile endpoints.
type IdentityHandler struct {
	Identities IdentityService
	// MaxUpload caps multipart bodies carrying avatar or cover images.
	MaxUpload int64
}

func (h IdentityHandler) uploadLimit() int64 {
	return UploadLimits{ImageBytes: h.MaxUpload}.image()
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
	Password string `json:"password"`
}

type accountRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

type passwordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type identityResponse struct {
	User models.PublicIdentity `json:"user"`
}

// Register handles POST /api/v1/identities. Multipart bodies may carry
// avatar and coverImage files.
func (h IdentityHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reg identity.Registration
	if isMultipart(r) {
		if err := parseMultipart(w, r, h.uploadLimit()); err != nil {
			writeError(ctx, w, err)
			return
		}
		defer r.MultipartForm.RemoveAll()

		reg = identity.Registration{
			Username: r.FormValue("username"),
			Email:    r.FormValue("email"),
			Fullname: r.FormValue("fullname"),
			Password: r.FormValue("password"),
		}
		var err error
		if reg.Avatar, err = optionalImage(r, "avatar"); err != nil {
			writeError(ctx, w, err)
			return
		}
		if reg.CoverImage, err = optionalImage(r, "coverImage"); err != nil {
			writeError(ctx, w, err)
			return
		}
	} else {
		var req registerRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}
		reg = identity.Registration{Username: req.Username, Email: req.Email, Fullname: req.Fullname, Password: req.Password}
	}

	created, err := h.Identities.Register(ctx, reg)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	logging.FromContext(ctx).Info("identity registered", "identity_id", created.ID)
	respondJSON(ctx, w, http.StatusCreated, identityResponse{User: created.Public()})
}

// Me handles GET /api/v1/identities/me.
func (h IdentityHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current, err := h.Identities.FindByID(ctx, subject(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, identityResponse{User: current.Public()})
}

// UpdateAccount handles PATCH /api/v1/identities/me.
func (h IdentityHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	updated, err := h.Identities.UpdateAccount(ctx, subject(r), identity.AccountUpdate{Fullname: req.Fullname, Email: req.Email})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, identityResponse{User: updated.Public()})
}

// ChangePassword handles PUT /api/v1/identities/me/password.
func (h IdentityHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.Identities.ChangePassword(ctx, subject(r), req.OldPassword, req.NewPassword); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateAvatar handles PUT /api/v1/identities/me/avatar.
func (h IdentityHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.Identities.UpdateAvatar)
}

// UpdateCoverImage handles PUT /api/v1/identities/me/cover-image.
func (h IdentityHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.Identities.UpdateCoverImage)
}

type imageUpdater func(ctx context.Context, id string, file identity.Upload) (models.Identity, error)

func (h IdentityHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater) {
	ctx := r.Context()

	if err := parseMultipart(w, r, h.uploadLimit()); err != nil {
		writeError(ctx, w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, err := optionalImage(r, field)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if file == nil {
		writeError(ctx, w, apperr.Validation(field+" file is missing"))
		return
	}

	updated, err := update(ctx, subject(r), *file)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, identityResponse{User: updated.Public()})
}

// optionalImage buffers an uploaded image so the multipart temp file can be
// closed before the handler returns. The part is already bounded by the body cap.
func optionalImage(r *http.Request, field string) (*identity.Upload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, apperr.Validation("invalid " + field + " file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperr.Internal("failed to read "+field+" file", err)
	}
	return &identity.Upload{
		Filename:    header.Filename,
		ContentType: partContentType(header, data),
		Body:        bytes.NewReader(data),
	}, nil
}

func partContentType(header *multipart.FileHeader, sniff []byte) string {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return http.DetectContentType(sniff)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
