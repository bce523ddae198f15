package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/catalog"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/models"
)

// multipartMemory is how much of a multipart body is held in memory before
// parts spill to disk.
const multipartMemory int64 = 32 << 20

// VideoHandler implements the video catalog endpoints.
type VideoHandler struct {
	Videos VideoCatalog
	// MaxUpload caps the publish request body.
	MaxUpload int64
}

type videoResponse struct {
	Video models.Video `json:"video"`
}

type videoListResponse struct {
	Videos []models.Video `json:"videos"`
}

type reactionResponse struct {
	Reactions models.ReactionSummary `json:"reactions"`
}

// Publish handles POST /api/v1/videos with a multipart body carrying
// videoFile and an optional thumbnail.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := parseMultipart(w, r, UploadLimits{VideoBytes: h.MaxUpload}.video()); err != nil {
		writeError(ctx, w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	upload := catalog.Upload{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
	if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
		duration, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(ctx, w, apperr.Validation("duration must be a number"))
			return
		}
		upload.Duration = duration
	}
	if raw := strings.TrimSpace(r.FormValue("unlisted")); raw != "" {
		unlisted, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(ctx, w, apperr.Validation("unlisted must be a boolean"))
			return
		}
		upload.Unlisted = unlisted
	}

	videoFile, videoHeader, err := r.FormFile("videoFile")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			writeError(ctx, w, apperr.Validation("video file is required"))
			return
		}
		writeError(ctx, w, apperr.Validation("invalid video file"))
		return
	}
	defer videoFile.Close()
	upload.Video = catalog.File{
		Filename:    videoHeader.Filename,
		ContentType: videoHeader.Header.Get("Content-Type"),
		Body:        videoFile,
	}

	if thumbFile, thumbHeader, err := r.FormFile("thumbnail"); err == nil {
		defer thumbFile.Close()
		upload.Thumbnail = &catalog.File{
			Filename:    thumbHeader.Filename,
			ContentType: thumbHeader.Header.Get("Content-Type"),
			Body:        thumbFile,
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		writeError(ctx, w, apperr.Validation("invalid thumbnail file"))
		return
	}

	video, err := h.Videos.Publish(ctx, subject(r), upload)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	logging.FromContext(ctx).Info("video published", "video_id", video.ID)
	respondJSON(ctx, w, http.StatusCreated, videoResponse{Video: video})
}

// List handles GET /api/v1/videos?page=&pageSize=.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("pageSize"))

	videos, err := h.Videos.ListPublished(ctx, page, pageSize)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, videoListResponse{Videos: videos})
}

// Mine handles GET /api/v1/identities/me/videos.
func (h VideoHandler) Mine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videos, err := h.Videos.ListByOwner(ctx, subject(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, videoListResponse{Videos: videos})
}

// Get handles GET /api/v1/videos/{id}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	video, err := h.Videos.Get(ctx, r.PathValue("id"), subject(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, videoResponse{Video: video})
}

// Update handles PATCH /api/v1/videos/{id} with a JSON body of the fields to change.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var edit catalog.Edit
	if err := decodeJSON(r, &edit); err != nil {
		writeError(ctx, w, err)
		return
	}

	video, err := h.Videos.Update(ctx, r.PathValue("id"), subject(r), edit)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, videoResponse{Video: video})
}

// Like handles PUT /api/v1/videos/{id}/like.
func (h VideoHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, models.ReactionLike)
}

// Dislike handles PUT /api/v1/videos/{id}/dislike.
func (h VideoHandler) Dislike(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, models.ReactionDislike)
}

func (h VideoHandler) react(w http.ResponseWriter, r *http.Request, kind models.Reaction) {
	ctx := r.Context()
	summary, err := h.Videos.React(ctx, r.PathValue("id"), subject(r), kind)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, reactionResponse{Reactions: summary})
}

// ClearReaction handles DELETE /api/v1/videos/{id}/reaction.
func (h VideoHandler) ClearReaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := h.Videos.ClearReaction(ctx, r.PathValue("id"), subject(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, reactionResponse{Reactions: summary})
}

// Reactions handles GET /api/v1/videos/{id}/reactions.
func (h VideoHandler) Reactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := h.Videos.Reactions(ctx, r.PathValue("id"), subject(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, reactionResponse{Reactions: summary})
}

// Delete handles DELETE /api/v1/videos/{id}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Videos.Delete(ctx, r.PathValue("id"), subject(r)); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
