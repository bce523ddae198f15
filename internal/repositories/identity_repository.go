package repositories

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vidshare/backend/internal/db"
	"github.com/vidshare/backend/internal/models"
)

// WatchHistoryMutation computes the next watch history from the current one.
// It must not retain or modify its argument.
type WatchHistoryMutation func(current []string) []string

// IdentityRepository defines the data access contract for identities.
type IdentityRepository interface {
	Create(ctx context.Context, identity models.Identity) error
	FindByID(ctx context.Context, id string) (models.Identity, error)
	FindByUsername(ctx context.Context, username string) (models.Identity, error)
	FindByEmail(ctx context.Context, email string) (models.Identity, error)
	UpdateProfile(ctx context.Context, identity models.Identity) error
	SaveRefreshToken(ctx context.Context, id, hash string) error
	SwapRefreshToken(ctx context.Context, id, oldHash, newHash string) (bool, error)
	MutateWatchHistory(ctx context.Context, id string, mutate WatchHistoryMutation) ([]string, error)
}

const identityColumns = `id, username, email, fullname, password_hash, avatar, cover_image,
        watch_history, refresh_token_hash, created_at, updated_at`

// PostgresIdentityRepository provides PostgreSQL-backed persistence for identities.
type PostgresIdentityRepository struct {
	pool db.Pool
}

// NewPostgresIdentityRepository constructs an identity repository backed by PostgreSQL.
func NewPostgresIdentityRepository(pool db.Pool) *PostgresIdentityRepository {
	return &PostgresIdentityRepository{pool: pool}
}

// Create persists a new identity. Duplicate usernames or emails yield ErrConflict.
func (r *PostgresIdentityRepository) Create(ctx context.Context, identity models.Identity) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	history := identity.WatchHistory
	if history == nil {
		history = []string{}
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO identities (id, username, email, fullname, password_hash, avatar, cover_image,
            watch_history, refresh_token_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, identity.ID, identity.Username, identity.Email, identity.Fullname, identity.PasswordHash,
		identity.Avatar, identity.CoverImage, history, identity.RefreshTokenHash,
		identity.CreatedAt, identity.UpdatedAt)
	if err != nil {
		if mapped := translatePgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert identity: %w", err)
	}

	return nil
}

func (r *PostgresIdentityRepository) FindByID(ctx context.Context, id string) (models.Identity, error) {
	if !validID(id) {
		return models.Identity{}, ErrNotFound
	}
	return r.findOne(ctx, "id", id)
}

func (r *PostgresIdentityRepository) FindByUsername(ctx context.Context, username string) (models.Identity, error) {
	return r.findOne(ctx, "username", username)
}

func (r *PostgresIdentityRepository) FindByEmail(ctx context.Context, email string) (models.Identity, error) {
	return r.findOne(ctx, "email", email)
}

func (r *PostgresIdentityRepository) findOne(ctx context.Context, column, value string) (models.Identity, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Identity{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// column is always one of the fixed names passed by the finders above.
	row := conn.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE `+column+` = $1`, value)

	identity, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Identity{}, ErrNotFound
		}
		return models.Identity{}, fmt.Errorf("select identity by %s: %w", column, err)
	}
	return identity, nil
}

// UpdateProfile writes the mutable profile columns of an existing identity.
func (r *PostgresIdentityRepository) UpdateProfile(ctx context.Context, identity models.Identity) error {
	if !validID(identity.ID) {
		return ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE identities
        SET email = $2, fullname = $3, password_hash = $4, avatar = $5, cover_image = $6, updated_at = $7
        WHERE id = $1
    `, identity.ID, identity.Email, identity.Fullname, identity.PasswordHash, identity.Avatar,
		identity.CoverImage, identity.UpdatedAt)
	if err != nil {
		if mapped := translatePgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("update identity: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveRefreshToken unconditionally replaces the stored refresh token hash.
// An empty hash revokes the current session.
func (r *PostgresIdentityRepository) SaveRefreshToken(ctx context.Context, id, hash string) error {
	if !validID(id) {
		return ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE identities SET refresh_token_hash = $2, updated_at = $3 WHERE id = $1
    `, id, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SwapRefreshToken replaces oldHash with newHash only if oldHash is still the
// stored value. It reports whether the swap happened.
func (r *PostgresIdentityRepository) SwapRefreshToken(ctx context.Context, id, oldHash, newHash string) (bool, error) {
	if !validID(id) || oldHash == "" {
		return false, nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE identities SET refresh_token_hash = $3, updated_at = $4
        WHERE id = $1 AND refresh_token_hash = $2
    `, id, oldHash, newHash, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MutateWatchHistory applies mutate to the identity's watch history while
// holding the row lock, and returns the stored result.
func (r *PostgresIdentityRepository) MutateWatchHistory(ctx context.Context, id string, mutate WatchHistoryMutation) ([]string, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	var next []string
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var current []string
		err := tx.QueryRow(ctx, `SELECT watch_history FROM identities WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock watch history: %w", err)
		}

		next = mutate(slices.Clone(current))
		if next == nil {
			next = []string{}
		}
		if slices.Equal(current, next) {
			return nil
		}

		if _, err := tx.Exec(ctx, `
            UPDATE identities SET watch_history = $2, updated_at = $3 WHERE id = $1
        `, id, next, time.Now().UTC()); err != nil {
			return fmt.Errorf("update watch history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func scanIdentity(row pgx.Row) (models.Identity, error) {
	var identity models.Identity
	err := row.Scan(
		&identity.ID,
		&identity.Username,
		&identity.Email,
		&identity.Fullname,
		&identity.PasswordHash,
		&identity.Avatar,
		&identity.CoverImage,
		&identity.WatchHistory,
		&identity.RefreshTokenHash,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	return identity, err
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
