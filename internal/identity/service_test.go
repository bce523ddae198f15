package identity

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/repositories"
	"github.com/vidshare/backend/internal/storage"
)

func newTestService() (*Service, repositories.MemoryRepositories, *storage.MemoryStorage) {
	repos := repositories.NewMemoryRepositories()
	media := storage.NewMemoryStorage("https://cdn.example.com")
	return NewService(repos.Identities, media).WithBcryptCost(bcrypt.MinCost), repos, media
}

func register(t *testing.T, svc *Service, username string) Registration {
	t.Helper()
	reg := Registration{
		Username: username,
		Email:    username + "@example.com",
		Fullname: strings.ToUpper(username),
		Password: "correct horse",
	}
	_, err := svc.Register(context.Background(), reg)
	require.NoError(t, err)
	return reg
}

func TestRegisterNormalizesAndHashes(t *testing.T) {
	svc, repos, media := newTestService()
	ctx := context.Background()

	created, err := svc.Register(ctx, Registration{
		Username:   "  Alice ",
		Email:      "Alice@Example.com",
		Fullname:   "Alice Liddell",
		Password:   "wonderland",
		Avatar:     &Upload{Filename: "me.png", ContentType: "image/png", Body: strings.NewReader("png")},
		CoverImage: &Upload{Filename: "cover.jpg", ContentType: "image/jpeg", Body: strings.NewReader("jpg")},
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, "alice@example.com", created.Email)
	assert.NotEqual(t, "wonderland", created.PasswordHash)
	assert.True(t, strings.HasPrefix(created.Avatar, "https://cdn.example.com/avatars/"))
	assert.True(t, strings.HasPrefix(created.CoverImage, "https://cdn.example.com/covers/"))
	assert.Equal(t, 2, media.Len())

	stored, err := repos.Identities.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, stored.ID)
}

func TestRegisterRejections(t *testing.T) {
	svc, _, _ := newTestService()
	register(t, svc, "taken")

	cases := []struct {
		name string
		reg  Registration
		want error
	}{
		{"missingFields", Registration{Username: "x"}, apperr.ErrValidation},
		{"badEmail", Registration{Username: "x", Email: "nope", Fullname: "X", Password: "longenough"}, apperr.ErrValidation},
		{"shortPassword", Registration{Username: "x", Email: "x@example.com", Fullname: "X", Password: "short"}, apperr.ErrValidation},
		{"duplicateUsername", Registration{Username: "TAKEN", Email: "other@example.com", Fullname: "X", Password: "longenough"}, apperr.ErrConflict},
		{"duplicateEmail", Registration{Username: "other", Email: "taken@example.com", Fullname: "X", Password: "longenough"}, apperr.ErrConflict},
		{"nonImageAvatar", Registration{Username: "y", Email: "y@example.com", Fullname: "Y", Password: "longenough",
			Avatar: &Upload{Filename: "a.exe", ContentType: "application/octet-stream", Body: strings.NewReader("x")}}, apperr.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.reg)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAuthenticateByUsernameOrEmail(t *testing.T) {
	svc, _, _ := newTestService()
	reg := register(t, svc, "bob")
	ctx := context.Background()

	byName, err := svc.Authenticate(ctx, "BOB", reg.Password)
	require.NoError(t, err)

	byEmail, err := svc.Authenticate(ctx, "bob@example.com", reg.Password)
	require.NoError(t, err)
	assert.Equal(t, byName.ID, byEmail.ID)

	_, err = svc.Authenticate(ctx, "bob", "wrong password")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "nobody", reg.Password)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateAccountAndPassword(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	register(t, svc, "carol")
	register(t, svc, "dave")

	carol, err := svc.FindByUsername(ctx, "carol")
	require.NoError(t, err)

	_, err = svc.UpdateAccount(ctx, carol.ID, AccountUpdate{Fullname: "Carol", Email: "dave@example.com"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	updated, err := svc.UpdateAccount(ctx, carol.ID, AccountUpdate{Fullname: "Carol C", Email: "Carol.New@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "carol.new@example.com", updated.Email)

	err = svc.ChangePassword(ctx, carol.ID, "not the password", "brand new password")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, svc.ChangePassword(ctx, carol.ID, "correct horse", "brand new password"))
	_, err = svc.Authenticate(ctx, "carol", "brand new password")
	assert.NoError(t, err)
}

func TestUpdateAvatarReplacesObject(t *testing.T) {
	svc, _, media := newTestService()
	ctx := context.Background()
	register(t, svc, "erin")
	erin, err := svc.FindByUsername(ctx, "erin")
	require.NoError(t, err)

	first, err := svc.UpdateAvatar(ctx, erin.ID, Upload{Filename: "1.png", ContentType: "image/png", Body: strings.NewReader("one")})
	require.NoError(t, err)

	second, err := svc.UpdateAvatar(ctx, erin.ID, Upload{Filename: "2.png", ContentType: "image/png", Body: strings.NewReader("two")})
	require.NoError(t, err)
	assert.NotEqual(t, first.Avatar, second.Avatar)

	_, ok := media.Get(first.Avatar)
	assert.False(t, ok, "previous avatar should be removed")
	data, ok := media.Get(second.Avatar)
	require.True(t, ok)
	assert.Equal(t, "two", string(data))

	cover, err := svc.UpdateCoverImage(ctx, erin.ID, Upload{Filename: "c.jpg", ContentType: "image/jpeg", Body: strings.NewReader("c")})
	require.NoError(t, err)
	assert.NotEmpty(t, cover.CoverImage)

	_, err = svc.UpdateAvatar(ctx, erin.ID, Upload{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
