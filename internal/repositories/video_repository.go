package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vidshare/backend/internal/db"
	"github.com/vidshare/backend/internal/models"
)

// VideoRepository defines the data access contract for uploaded videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	FindWatched(ctx context.Context, ids []string) (map[string]models.WatchedVideo, error)
	ListPublished(ctx context.Context, limit, offset int) ([]models.Video, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) (int64, error)
}

const videoColumns = `id, owner_id, title, description, video_url, thumbnail, duration, views, published, created_at`

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (`+videoColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.VideoURL, video.Thumbnail,
		video.Duration, video.Views, video.Published, video.CreatedAt)
	if err != nil {
		if mapped := translatePgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	if !validID(id) {
		return models.Video{}, ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}
	return video, nil
}

// FindWatched loads the videos with the given ids joined with their owners.
// Ids without a matching video are absent from the result.
func (r *PostgresVideoRepository) FindWatched(ctx context.Context, ids []string) (map[string]models.WatchedVideo, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	result := make(map[string]models.WatchedVideo, len(valid))
	if len(valid) == 0 {
		return result, nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.title, v.description, v.video_url, v.thumbnail, v.duration,
            v.views, v.published, v.created_at, i.id, i.fullname, i.username, i.avatar
        FROM videos v
        JOIN identities i ON i.id = v.owner_id
        WHERE v.id = ANY($1::UUID[])
    `, valid)
	if err != nil {
		return nil, fmt.Errorf("query watched videos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w models.WatchedVideo
		if err := rows.Scan(&w.ID, &w.OwnerID, &w.Title, &w.Description, &w.VideoURL, &w.Thumbnail,
			&w.Duration, &w.Views, &w.Published, &w.CreatedAt,
			&w.Owner.ID, &w.Owner.Fullname, &w.Owner.Username, &w.Owner.Avatar); err != nil {
			return nil, fmt.Errorf("scan watched video: %w", err)
		}
		result[w.ID] = w
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watched videos: %w", err)
	}
	return result, nil
}

// ListPublished returns published videos newest first.
func (r *PostgresVideoRepository) ListPublished(ctx context.Context, limit, offset int) ([]models.Video, error) {
	return r.list(ctx, `
        SELECT `+videoColumns+` FROM videos
        WHERE published
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2
    `, limit, offset)
}

func (r *PostgresVideoRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error) {
	if !validID(ownerID) {
		return nil, nil
	}
	return r.list(ctx, `
        SELECT `+videoColumns+` FROM videos
        WHERE owner_id = $1
        ORDER BY created_at DESC
    `, ownerID)
}

func (r *PostgresVideoRepository) list(ctx context.Context, query string, args ...any) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

// Update persists the editable fields: title, description and published.
func (r *PostgresVideoRepository) Update(ctx context.Context, video models.Video) error {
	if !validID(video.ID) {
		return ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos SET title = $2, description = $3, published = $4
        WHERE id = $1
    `, video.ID, video.Title, video.Description, video.Published)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViews adds exactly one view and returns the new total.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	if !validID(id) {
		return 0, ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var views int64
	err = conn.QueryRow(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1 RETURNING views`, id).Scan(&views)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return views, nil
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoURL, &v.Thumbnail,
		&v.Duration, &v.Views, &v.Published, &v.CreatedAt)
	return v, err
}
