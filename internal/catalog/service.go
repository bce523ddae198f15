// Package catalog manages uploaded videos.
package catalog

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
	"github.com/vidshare/backend/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Store interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	ListPublished(ctx context.Context, limit, offset int) ([]models.Video, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
}

// ReactionStore keeps one like or dislike per identity and video.
type ReactionStore interface {
	Set(ctx context.Context, videoID, identityID string, kind models.Reaction) error
	Clear(ctx context.Context, videoID, identityID string) (bool, error)
	Summary(ctx context.Context, videoID, viewerID string) (models.ReactionSummary, error)
}

type MediaStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, location string) error
}

// File is an uploaded media part.
type File struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Upload describes a new video.
type Upload struct {
	Title       string
	Description string
	Duration    float64
	Unlisted    bool
	Video       File
	Thumbnail   *File
}

// Edit lists the fields to change on an existing video. Nil fields are kept.
type Edit struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Published   *bool   `json:"isPublished"`
}

type Service struct {
	store     Store
	reactions ReactionStore
	media     MediaStore
	now       func() time.Time
}

func NewService(store Store, reactions ReactionStore, media MediaStore) *Service {
	return &Service{store: store, reactions: reactions, media: media, now: time.Now}
}

// Publish stores the media files and records the video for ownerID.
func (s *Service) Publish(ctx context.Context, ownerID string, upload Upload) (models.Video, error) {
	title := strings.TrimSpace(upload.Title)
	if title == "" {
		return models.Video{}, apperr.Validation("title is required")
	}
	if upload.Video.Body == nil {
		return models.Video{}, apperr.Validation("video file is required")
	}
	if upload.Duration < 0 {
		return models.Video{}, apperr.Validation("duration must not be negative")
	}
	if ct := upload.Video.ContentType; ct != "" && !strings.HasPrefix(ct, "video/") && ct != "application/octet-stream" {
		return models.Video{}, apperr.Validation("uploaded file must be a video")
	}
	if s.media == nil {
		return models.Video{}, apperr.InvalidOperation("media uploads are not configured")
	}

	videoURL, err := s.media.Put(ctx, storage.ObjectKey("videos", upload.Video.Filename), upload.Video.ContentType, upload.Video.Body)
	if err != nil {
		return models.Video{}, apperr.Internal("failed to upload video", err)
	}

	var thumbnail string
	if upload.Thumbnail != nil && upload.Thumbnail.Body != nil {
		thumbnail, err = s.media.Put(ctx, storage.ObjectKey("thumbnails", upload.Thumbnail.Filename), upload.Thumbnail.ContentType, upload.Thumbnail.Body)
		if err != nil {
			_ = s.media.Delete(ctx, videoURL)
			return models.Video{}, apperr.Internal("failed to upload thumbnail", err)
		}
	}

	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Description: strings.TrimSpace(upload.Description),
		VideoURL:    videoURL,
		Thumbnail:   thumbnail,
		Duration:    upload.Duration,
		Published:   !upload.Unlisted,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.store.Create(ctx, video); err != nil {
		_ = s.media.Delete(ctx, videoURL)
		if thumbnail != "" {
			_ = s.media.Delete(ctx, thumbnail)
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, apperr.NotFound("owner not found")
		}
		return models.Video{}, apperr.Internal("failed to save video", err)
	}
	return video, nil
}

// Get returns a video. Unpublished videos are only visible to their owner.
func (s *Service) Get(ctx context.Context, id, viewerID string) (models.Video, error) {
	video, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, apperr.NotFound("video not found")
		}
		return models.Video{}, apperr.Internal("failed to load video", err)
	}
	if !video.Published && video.OwnerID != viewerID {
		return models.Video{}, apperr.NotFound("video not found")
	}
	return video, nil
}

// ListPublished pages through published videos newest first.
func (s *Service) ListPublished(ctx context.Context, page, pageSize int) ([]models.Video, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	videos, err := s.store.ListPublished(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, apperr.Internal("failed to list videos", err)
	}
	if videos == nil {
		videos = []models.Video{}
	}
	return videos, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error) {
	videos, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal("failed to list videos", err)
	}
	if videos == nil {
		videos = []models.Video{}
	}
	return videos, nil
}

// Update applies edit to a video owned by requesterID.
func (s *Service) Update(ctx context.Context, id, requesterID string, edit Edit) (models.Video, error) {
	if edit.Title == nil && edit.Description == nil && edit.Published == nil {
		return models.Video{}, apperr.Validation("at least one of title, description or isPublished is required")
	}

	video, err := s.owned(ctx, id, requesterID, "only the owner can edit this video")
	if err != nil {
		return models.Video{}, err
	}

	if edit.Title != nil {
		title := strings.TrimSpace(*edit.Title)
		if title == "" {
			return models.Video{}, apperr.Validation("title must not be empty")
		}
		video.Title = title
	}
	if edit.Description != nil {
		video.Description = strings.TrimSpace(*edit.Description)
	}
	if edit.Published != nil {
		video.Published = *edit.Published
	}

	if err := s.store.Update(ctx, video); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, apperr.NotFound("video not found")
		}
		return models.Video{}, apperr.Internal("failed to update video", err)
	}
	return video, nil
}

// React records identityID's like or dislike. The opposite reaction, if any,
// is replaced; repeating the same reaction changes nothing.
func (s *Service) React(ctx context.Context, id, identityID string, kind models.Reaction) (models.ReactionSummary, error) {
	if !kind.Valid() {
		return models.ReactionSummary{}, apperr.Validation("reaction must be like or dislike")
	}
	if _, err := s.Get(ctx, id, identityID); err != nil {
		return models.ReactionSummary{}, err
	}

	if err := s.reactions.Set(ctx, id, identityID, kind); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.ReactionSummary{}, apperr.NotFound("video not found")
		}
		return models.ReactionSummary{}, apperr.Internal("failed to save reaction", err)
	}
	return s.summary(ctx, id, identityID)
}

// ClearReaction withdraws identityID's reaction. Clearing when none exists is a no-op.
func (s *Service) ClearReaction(ctx context.Context, id, identityID string) (models.ReactionSummary, error) {
	if _, err := s.Get(ctx, id, identityID); err != nil {
		return models.ReactionSummary{}, err
	}
	if _, err := s.reactions.Clear(ctx, id, identityID); err != nil {
		return models.ReactionSummary{}, apperr.Internal("failed to clear reaction", err)
	}
	return s.summary(ctx, id, identityID)
}

// Reactions reports the like and dislike totals visible to viewerID.
func (s *Service) Reactions(ctx context.Context, id, viewerID string) (models.ReactionSummary, error) {
	if _, err := s.Get(ctx, id, viewerID); err != nil {
		return models.ReactionSummary{}, err
	}
	return s.summary(ctx, id, viewerID)
}

func (s *Service) summary(ctx context.Context, id, viewerID string) (models.ReactionSummary, error) {
	summary, err := s.reactions.Summary(ctx, id, viewerID)
	if err != nil {
		return models.ReactionSummary{}, apperr.Internal("failed to count reactions", err)
	}
	return summary, nil
}

// owned loads a video and checks that requesterID owns it.
func (s *Service) owned(ctx context.Context, id, requesterID, denied string) (models.Video, error) {
	video, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, apperr.NotFound("video not found")
		}
		return models.Video{}, apperr.Internal("failed to load video", err)
	}
	if video.OwnerID != requesterID {
		return models.Video{}, apperr.Forbidden(denied)
	}
	return video, nil
}

// Delete removes a video owned by requesterID along with its media.
func (s *Service) Delete(ctx context.Context, id, requesterID string) error {
	video, err := s.owned(ctx, id, requesterID, "only the owner can delete this video")
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("video not found")
		}
		return apperr.Internal("failed to delete video", err)
	}

	if s.media != nil {
		_ = s.media.Delete(ctx, video.VideoURL)
		if video.Thumbnail != "" {
			_ = s.media.Delete(ctx, video.Thumbnail)
		}
	}
	return nil
}
