package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/vidshare/backend/internal/db"
	"github.com/vidshare/backend/internal/models"
)

// ReactionRepository stores at most one like or dislike per identity and video.
type ReactionRepository interface {
	Set(ctx context.Context, videoID, identityID string, kind models.Reaction) error
	Clear(ctx context.Context, videoID, identityID string) (bool, error)
	Summary(ctx context.Context, videoID, viewerID string) (models.ReactionSummary, error)
}

// PostgresReactionRepository keeps reactions in the video_reactions table.
type PostgresReactionRepository struct {
	pool db.Pool
}

func NewPostgresReactionRepository(pool db.Pool) *PostgresReactionRepository {
	return &PostgresReactionRepository{pool: pool}
}

// Set records kind for the pair, replacing any opposite reaction. Unknown
// videos or identities yield ErrNotFound, an unknown kind ErrCheckViolation.
func (r *PostgresReactionRepository) Set(ctx context.Context, videoID, identityID string, kind models.Reaction) error {
	if !validID(videoID) || !validID(identityID) {
		return ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO video_reactions (video_id, identity_id, kind, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (video_id, identity_id) DO UPDATE SET kind = excluded.kind, created_at = excluded.created_at
    `, videoID, identityID, string(kind), time.Now().UTC())
	if err != nil {
		if mapped := translatePgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("upsert reaction: %w", err)
	}
	return nil
}

// Clear removes the identity's reaction and reports whether one existed.
func (r *PostgresReactionRepository) Clear(ctx context.Context, videoID, identityID string) (bool, error) {
	if !validID(videoID) || !validID(identityID) {
		return false, nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM video_reactions WHERE video_id = $1 AND identity_id = $2
    `, videoID, identityID)
	if err != nil {
		return false, fmt.Errorf("delete reaction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Summary counts likes and dislikes and resolves the viewer's own reaction
// in one statement.
func (r *PostgresReactionRepository) Summary(ctx context.Context, videoID, viewerID string) (models.ReactionSummary, error) {
	var summary models.ReactionSummary
	if !validID(videoID) {
		return summary, nil
	}
	var viewer any
	if validID(viewerID) {
		viewer = viewerID
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return summary, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var mine string
	err = conn.QueryRow(ctx, `
        SELECT
            COUNT(*) FILTER (WHERE kind = 'like'),
            COUNT(*) FILTER (WHERE kind = 'dislike'),
            COALESCE(MAX(kind) FILTER (WHERE identity_id = $2::UUID), '')
        FROM video_reactions
        WHERE video_id = $1
    `, videoID, viewer).Scan(&summary.Likes, &summary.Dislikes, &mine)
	if err != nil {
		return summary, fmt.Errorf("summarise reactions: %w", err)
	}
	summary.Mine = models.Reaction(mine)
	return summary, nil
}
