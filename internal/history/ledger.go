// Package history keeps each identity's bounded, most-recent-first watch history.
package history

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
)

// Store serialises watch-history updates per identity.
type Store interface {
	FindByID(ctx context.Context, id string) (models.Identity, error)
	MutateWatchHistory(ctx context.Context, id string, mutate repositories.WatchHistoryMutation) ([]string, error)
}

// VideoResolver hydrates stored video ids. Missing ids are left out of the map.
type VideoResolver interface {
	FindWatched(ctx context.Context, ids []string) (map[string]models.WatchedVideo, error)
}

// Ledger records, removes and lists watched videos.
type Ledger struct {
	store  Store
	videos VideoResolver
	limit  int
}

func NewLedger(store Store, videos VideoResolver) *Ledger {
	return &Ledger{store: store, videos: videos, limit: models.WatchHistoryLimit}
}

// Record adds videoID to the front of the history. A video already present
// keeps its original position; the history never exceeds the limit.
func (l *Ledger) Record(ctx context.Context, identityID, videoID string) ([]string, error) {
	videoID, err := canonicalVideoID(videoID)
	if err != nil {
		return nil, err
	}
	return l.mutate(ctx, identityID, recordPolicy(videoID, l.limit))
}

// Remove drops videoID from the history. Removing an absent id is a no-op.
func (l *Ledger) Remove(ctx context.Context, identityID, videoID string) ([]string, error) {
	videoID, err := canonicalVideoID(videoID)
	if err != nil {
		return nil, err
	}
	return l.mutate(ctx, identityID, func(current []string) []string {
		return slices.DeleteFunc(current, func(id string) bool { return id == videoID })
	})
}

// Clear empties the history.
func (l *Ledger) Clear(ctx context.Context, identityID string) error {
	_, err := l.mutate(ctx, identityID, func([]string) []string { return []string{} })
	return err
}

// List hydrates the history in stored order. Entries whose video no longer
// exists are omitted from the result but stay in storage.
func (l *Ledger) List(ctx context.Context, identityID string) (entries []models.WatchedVideo, err error) {
	ctx, span := logging.StartSpan(ctx, "history.list")
	defer func() {
		span.Fail(err)
		span.End()
	}()

	identity, err := l.store.FindByID(ctx, identityID)
	if err != nil {
		return nil, translate(err)
	}
	if len(identity.WatchHistory) == 0 {
		return []models.WatchedVideo{}, nil
	}

	found, err := l.videos.FindWatched(ctx, identity.WatchHistory)
	if err != nil {
		return nil, apperr.Internal("failed to load watched videos", err)
	}

	entries = make([]models.WatchedVideo, 0, len(identity.WatchHistory))
	for _, id := range identity.WatchHistory {
		if video, ok := found[id]; ok {
			entries = append(entries, video)
		}
	}
	if dangling := len(identity.WatchHistory) - len(entries); dangling > 0 {
		logging.FromContext(ctx).Debug("watch history has dangling entries", slog.Int("count", dangling))
	}
	return entries, nil
}

func (l *Ledger) mutate(ctx context.Context, identityID string, fn repositories.WatchHistoryMutation) ([]string, error) {
	history, err := l.store.MutateWatchHistory(ctx, identityID, fn)
	if err != nil {
		return nil, translate(err)
	}
	return history, nil
}

func recordPolicy(videoID string, limit int) repositories.WatchHistoryMutation {
	return func(current []string) []string {
		if slices.Contains(current, videoID) {
			return current
		}
		next := append([]string{videoID}, current...)
		if len(next) > limit {
			next = next[:limit]
		}
		return next
	}
}

// canonicalVideoID keeps one spelling per video so duplicate detection and
// hydration agree.
func canonicalVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.Validation("video id is required")
	}
	id, ok := models.CanonicalID(raw)
	if !ok {
		return "", apperr.Validation("video id is malformed")
	}
	return id, nil
}

func translate(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound("identity not found")
	}
	return apperr.Internal("failed to update watch history", err)
}
