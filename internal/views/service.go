// Package views counts video views at most once per viewer per window.
package views

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
	"github.com/vidshare/backend/internal/ttlcache"
)

// DefaultWindow is how long a counted view suppresses repeats from the same viewer.
const DefaultWindow = 24 * time.Hour

// Counter persists view totals.
type Counter interface {
	IncrementViews(ctx context.Context, videoID string) (int64, error)
}

// Result describes the outcome of a view registration. A suppressed repeat is
// not an error: Counted is false and Views is zero.
type Result struct {
	Counted bool  `json:"counted"`
	Views   int64 `json:"views,omitempty"`
}

type Option func(*Service)

func WithWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.window = window
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service deduplicates views through a ttlcache reservation keyed by video and viewer.
type Service struct {
	cache   ttlcache.Cache
	counter Counter
	window  time.Duration
	now     func() time.Time
}

func NewService(cache ttlcache.Cache, counter Counter, opts ...Option) *Service {
	s := &Service{
		cache:   cache,
		counter: counter,
		window:  DefaultWindow,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register counts a view of videoID by viewerKey unless the same pair was
// counted within the window. videoID must be a UUID; it is canonicalised
// before it is used as a key. The reservation is released if counting fails so
// a later attempt can succeed.
func (s *Service) Register(ctx context.Context, videoID, viewerKey string) (Result, error) {
	videoID = strings.TrimSpace(videoID)
	viewerKey = strings.TrimSpace(viewerKey)
	if videoID == "" {
		return Result{}, apperr.Validation("video id is required")
	}
	// Every spelling of the same UUID must share one reservation.
	videoID, ok := models.CanonicalID(videoID)
	if !ok {
		return Result{}, apperr.Validation("video id is malformed")
	}
	if viewerKey == "" {
		return Result{}, apperr.Validation("viewer key is required")
	}

	key := videoID + "|" + viewerKey
	reserved, err := s.cache.PutIfAbsent(ctx, key, s.now().UTC(), s.window)
	if err != nil {
		return Result{}, apperr.Internal("failed to reserve view", err)
	}
	if !reserved {
		return Result{Counted: false}, nil
	}

	views, err := s.counter.IncrementViews(ctx, videoID)
	if err != nil {
		if evictErr := s.cache.Evict(ctx, key); evictErr != nil {
			logging.FromContext(ctx).Error("failed to release view reservation",
				slog.String("key", key), slog.String("error", evictErr.Error()))
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return Result{}, apperr.NotFound("video not found")
		}
		return Result{}, apperr.Internal("failed to count view", err)
	}

	return Result{Counted: true, Views: views}, nil
}
