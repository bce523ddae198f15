// Package identity owns account registration, credential verification and
// profile maintenance.
package identity

import (
	"context"
	"errors"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
	"github.com/vidshare/backend/internal/storage"
)

const minPasswordLength = 8

// Store persists identities.
type Store interface {
	Create(ctx context.Context, identity models.Identity) error
	FindByID(ctx context.Context, id string) (models.Identity, error)
	FindByUsername(ctx context.Context, username string) (models.Identity, error)
	FindByEmail(ctx context.Context, email string) (models.Identity, error)
	UpdateProfile(ctx context.Context, identity models.Identity) error
}

// MediaStore uploads avatar and cover images.
type MediaStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, location string) error
}

// Upload is an image attached to a registration or profile update.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Registration carries the fields of a new account.
type Registration struct {
	Username   string
	Email      string
	Fullname   string
	Password   string
	Avatar     *Upload
	CoverImage *Upload
}

// AccountUpdate carries the editable account details.
type AccountUpdate struct {
	Fullname string
	Email    string
}

type Service struct {
	store      Store
	media      MediaStore
	bcryptCost int
	now        func() time.Time
}

func NewService(store Store, media MediaStore) *Service {
	return &Service{
		store:      store,
		media:      media,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// WithBcryptCost lowers hashing cost for tests.
func (s *Service) WithBcryptCost(cost int) *Service {
	s.bcryptCost = cost
	return s
}

// Register creates an identity. Username and email are trimmed and lower-cased
// and must be unused.
func (s *Service) Register(ctx context.Context, reg Registration) (models.Identity, error) {
	username := normalize(reg.Username)
	email := normalize(reg.Email)
	fullname := strings.TrimSpace(reg.Fullname)

	if username == "" || email == "" || fullname == "" || reg.Password == "" {
		return models.Identity{}, apperr.Validation("username, email, fullname and password are required")
	}
	if strings.ContainsAny(username, " /?#") {
		return models.Identity{}, apperr.Validation("username contains invalid characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.Identity{}, apperr.Validation("email is invalid")
	}
	if len(reg.Password) < minPasswordLength {
		return models.Identity{}, apperr.Validation("password must be at least 8 characters")
	}

	if err := s.ensureUnused(ctx, username, email); err != nil {
		return models.Identity{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.bcryptCost)
	if err != nil {
		return models.Identity{}, apperr.Internal("failed to hash password", err)
	}

	now := s.now().UTC()
	identity := models.Identity{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		Fullname:     fullname,
		PasswordHash: string(hash),
		WatchHistory: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if identity.Avatar, err = s.upload(ctx, "avatars", reg.Avatar); err != nil {
		return models.Identity{}, err
	}
	if identity.CoverImage, err = s.upload(ctx, "covers", reg.CoverImage); err != nil {
		s.discard(ctx, identity.Avatar)
		return models.Identity{}, err
	}

	if err := s.store.Create(ctx, identity); err != nil {
		s.discard(ctx, identity.Avatar)
		s.discard(ctx, identity.CoverImage)
		if errors.Is(err, repositories.ErrConflict) {
			return models.Identity{}, apperr.Conflict("username or email already registered")
		}
		return models.Identity{}, apperr.Internal("failed to create identity", err)
	}

	return identity, nil
}

// Authenticate verifies a password for the identity named by login, which may
// be a username or an email address.
func (s *Service) Authenticate(ctx context.Context, login, password string) (models.Identity, error) {
	login = normalize(login)
	if login == "" || password == "" {
		return models.Identity{}, apperr.Validation("username or email and password are required")
	}

	var (
		identity models.Identity
		err      error
	)
	if strings.Contains(login, "@") {
		identity, err = s.store.FindByEmail(ctx, login)
	} else {
		identity, err = s.store.FindByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Identity{}, apperr.Unauthorized("invalid credentials")
		}
		return models.Identity{}, apperr.Internal("failed to load identity", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return models.Identity{}, apperr.Unauthorized("invalid credentials")
	}

	return identity, nil
}

func (s *Service) FindByID(ctx context.Context, id string) (models.Identity, error) {
	identity, err := s.store.FindByID(ctx, id)
	if err != nil {
		return models.Identity{}, notFoundOrInternal(err, "identity not found")
	}
	return identity, nil
}

func (s *Service) FindByUsername(ctx context.Context, username string) (models.Identity, error) {
	username = normalize(username)
	if username == "" {
		return models.Identity{}, apperr.Validation("username is required")
	}
	identity, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return models.Identity{}, notFoundOrInternal(err, "identity not found")
	}
	return identity, nil
}

// UpdateAccount changes fullname and email. The new email must be unused.
func (s *Service) UpdateAccount(ctx context.Context, id string, update AccountUpdate) (models.Identity, error) {
	fullname := strings.TrimSpace(update.Fullname)
	email := normalize(update.Email)
	if fullname == "" || email == "" {
		return models.Identity{}, apperr.Validation("fullname and email are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.Identity{}, apperr.Validation("email is invalid")
	}

	identity, err := s.FindByID(ctx, id)
	if err != nil {
		return models.Identity{}, err
	}

	if email != identity.Email {
		if _, err := s.store.FindByEmail(ctx, email); err == nil {
			return models.Identity{}, apperr.Conflict("email already registered")
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return models.Identity{}, apperr.Internal("failed to check email", err)
		}
	}

	identity.Fullname = fullname
	identity.Email = email
	return identity, s.save(ctx, identity)
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperr.Validation("old and new password are required")
	}
	if len(newPassword) < minPasswordLength {
		return apperr.Validation("password must be at least 8 characters")
	}

	identity, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(oldPassword)); err != nil {
		return apperr.Validation("invalid old password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return apperr.Internal("failed to hash password", err)
	}
	identity.PasswordHash = string(hash)
	return s.save(ctx, identity)
}

// UpdateAvatar uploads a new avatar and removes the previous object.
func (s *Service) UpdateAvatar(ctx context.Context, id string, file Upload) (models.Identity, error) {
	return s.replaceImage(ctx, id, "avatars", file, func(i *models.Identity) *string { return &i.Avatar })
}

// UpdateCoverImage uploads a new cover image and removes the previous object.
func (s *Service) UpdateCoverImage(ctx context.Context, id string, file Upload) (models.Identity, error) {
	return s.replaceImage(ctx, id, "covers", file, func(i *models.Identity) *string { return &i.CoverImage })
}

func (s *Service) replaceImage(ctx context.Context, id, prefix string, file Upload, field func(*models.Identity) *string) (models.Identity, error) {
	if file.Body == nil {
		return models.Identity{}, apperr.Validation("image file is missing")
	}

	identity, err := s.FindByID(ctx, id)
	if err != nil {
		return models.Identity{}, err
	}

	location, err := s.upload(ctx, prefix, &file)
	if err != nil {
		return models.Identity{}, err
	}

	target := field(&identity)
	previous := *target
	*target = location
	if err := s.save(ctx, identity); err != nil {
		s.discard(ctx, location)
		return models.Identity{}, err
	}
	s.discard(ctx, previous)
	return identity, nil
}

func (s *Service) save(ctx context.Context, identity models.Identity) error {
	identity.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateProfile(ctx, identity); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			return apperr.Conflict("email already registered")
		case errors.Is(err, repositories.ErrNotFound):
			return apperr.NotFound("identity not found")
		}
		return apperr.Internal("failed to update identity", err)
	}
	return nil
}

func (s *Service) ensureUnused(ctx context.Context, username, email string) error {
	if _, err := s.store.FindByUsername(ctx, username); err == nil {
		return apperr.Conflict("username or email already registered")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return apperr.Internal("failed to check username", err)
	}
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return apperr.Conflict("username or email already registered")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return apperr.Internal("failed to check email", err)
	}
	return nil
}

func (s *Service) upload(ctx context.Context, prefix string, file *Upload) (string, error) {
	if file == nil || file.Body == nil {
		return "", nil
	}
	if s.media == nil {
		return "", apperr.InvalidOperation("media uploads are not configured")
	}
	if file.ContentType != "" && !strings.HasPrefix(file.ContentType, "image/") {
		return "", apperr.Validation("uploaded file must be an image")
	}
	location, err := s.media.Put(ctx, storage.ObjectKey(prefix, file.Filename), file.ContentType, file.Body)
	if err != nil {
		return "", apperr.Internal("failed to upload image", err)
	}
	return location, nil
}

func (s *Service) discard(ctx context.Context, location string) {
	if location == "" || s.media == nil {
		return
	}
	_ = s.media.Delete(ctx, location)
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func notFoundOrInternal(err error, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound(message)
	}
	return apperr.Internal("failed to load identity", err)
}
