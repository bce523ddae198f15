package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
	"github.com/vidshare/backend/internal/storage"
)

func setup(t *testing.T) (*Service, *storage.MemoryStorage, models.Identity, models.Identity) {
	svc, media, _, owner, other := setupWithRepos(t)
	return svc, media, owner, other
}

func setupWithRepos(t *testing.T) (*Service, *storage.MemoryStorage, repositories.MemoryRepositories, models.Identity, models.Identity) {
	t.Helper()
	repos := repositories.NewMemoryRepositories()
	media := storage.NewMemoryStorage("")

	owner := models.Identity{ID: uuid.NewString(), Username: "owner", Email: "owner@example.com"}
	other := models.Identity{ID: uuid.NewString(), Username: "other", Email: "other@example.com"}
	require.NoError(t, repos.Identities.Create(context.Background(), owner))
	require.NoError(t, repos.Identities.Create(context.Background(), other))

	return NewService(repos.Videos, repos.Reactions, media), media, repos, owner, other
}

func upload(title string) Upload {
	return Upload{
		Title:    title,
		Duration: 12.5,
		Video:    File{Filename: "clip.mp4", ContentType: "video/mp4", Body: strings.NewReader("frames")},
	}
}

func TestPublishAndGet(t *testing.T) {
	svc, media, owner, other := setup(t)
	ctx := context.Background()

	in := upload("  Launch day ")
	in.Thumbnail = &File{Filename: "thumb.jpg", ContentType: "image/jpeg", Body: strings.NewReader("jpg")}
	video, err := svc.Publish(ctx, owner.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Launch day", video.Title)
	assert.True(t, video.Published)
	assert.NotEmpty(t, video.Thumbnail)
	assert.Equal(t, 2, media.Len())

	fetched, err := svc.Get(ctx, video.ID, other.ID)
	require.NoError(t, err)
	assert.Equal(t, video.ID, fetched.ID)

	_, err = svc.Get(ctx, uuid.NewString(), "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUnlistedVisibleOnlyToOwner(t *testing.T) {
	svc, _, owner, other := setup(t)
	ctx := context.Background()

	in := upload("draft")
	in.Unlisted = true
	video, err := svc.Publish(ctx, owner.ID, in)
	require.NoError(t, err)

	_, err = svc.Get(ctx, video.ID, other.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Get(ctx, video.ID, owner.ID)
	assert.NoError(t, err)

	published, err := svc.ListPublished(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, published)

	mine, err := svc.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestPublishValidation(t *testing.T) {
	svc, _, owner, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Publish(ctx, owner.ID, Upload{Video: File{Body: strings.NewReader("x")}})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Publish(ctx, owner.ID, Upload{Title: "no file"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	bad := upload("pdf")
	bad.Video.ContentType = "application/pdf"
	_, err = svc.Publish(ctx, owner.ID, bad)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Publish(ctx, uuid.NewString(), upload("orphan"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteRequiresOwner(t *testing.T) {
	svc, media, owner, other := setup(t)
	ctx := context.Background()

	video, err := svc.Publish(ctx, owner.ID, upload("mine"))
	require.NoError(t, err)

	err = svc.Delete(ctx, video.ID, other.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, video.ID, owner.ID))
	assert.Equal(t, 0, media.Len())

	err = svc.Delete(ctx, video.ID, owner.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListPublishedPaging(t *testing.T) {
	svc, _, owner, _ := setup(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		_, err := svc.Publish(ctx, owner.ID, upload("v"))
		require.NoError(t, err)
	}

	page, err := svc.ListPublished(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, base.Add(2*time.Minute), page[0].CreatedAt)

	page, err = svc.ListPublished(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, page, 5)
}

func TestUpdateEditsOwnVideo(t *testing.T) {
	svc, _, owner, other := setup(t)
	ctx := context.Background()

	video, err := svc.Publish(ctx, owner.ID, upload("Rough cut"))
	require.NoError(t, err)

	title, description, published := "  Final cut ", "director's edition", false
	updated, err := svc.Update(ctx, video.ID, owner.ID, Edit{Title: &title, Description: &description, Published: &published})
	require.NoError(t, err)
	assert.Equal(t, "Final cut", updated.Title)
	assert.Equal(t, "director's edition", updated.Description)
	assert.False(t, updated.Published)
	assert.Equal(t, video.VideoURL, updated.VideoURL)

	_, err = svc.Get(ctx, video.ID, other.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "unpublishing hides the video from others")

	_, err = svc.Update(ctx, video.ID, other.ID, Edit{Title: &title})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	blank := "   "
	_, err = svc.Update(ctx, video.ID, owner.ID, Edit{Title: &blank})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Update(ctx, video.ID, owner.ID, Edit{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Update(ctx, uuid.NewString(), owner.ID, Edit{Title: &title})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReactionsAreExclusivePerIdentity(t *testing.T) {
	svc, _, repos, owner, other := setupWithRepos(t)
	ctx := context.Background()

	video, err := svc.Publish(ctx, owner.ID, upload("Debate"))
	require.NoError(t, err)

	summary, err := svc.React(ctx, video.ID, other.ID, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionSummary{Likes: 1, Mine: models.ReactionLike}, summary)

	summary, err = svc.React(ctx, video.ID, other.ID, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Likes, "repeating a like does not add another")

	summary, err = svc.React(ctx, video.ID, other.ID, models.ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionSummary{Dislikes: 1, Mine: models.ReactionDislike}, summary)

	summary, err = svc.React(ctx, video.ID, owner.ID, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionSummary{Likes: 1, Dislikes: 1, Mine: models.ReactionLike}, summary)

	summary, err = svc.Reactions(ctx, video.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.ReactionSummary{Likes: 1, Dislikes: 1}, summary)

	summary, err = svc.ClearReaction(ctx, video.ID, other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionSummary{Likes: 1}, summary)

	_, err = svc.ClearReaction(ctx, video.ID, other.ID)
	require.NoError(t, err)

	_, err = svc.React(ctx, video.ID, other.ID, models.Reaction("love"))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.React(ctx, uuid.NewString(), other.ID, models.ReactionLike)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, video.ID, owner.ID))
	left, err := repos.Reactions.Summary(ctx, video.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionSummary{}, left)
}

func TestReactionsOnUnlistedVideoRequireOwner(t *testing.T) {
	svc, _, owner, other := setup(t)
	ctx := context.Background()

	in := upload("Private")
	in.Unlisted = true
	video, err := svc.Publish(ctx, owner.ID, in)
	require.NoError(t, err)

	_, err = svc.React(ctx, video.ID, other.ID, models.ReactionLike)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.React(ctx, video.ID, owner.ID, models.ReactionLike)
	assert.NoError(t, err)
}
