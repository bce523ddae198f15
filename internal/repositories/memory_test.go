package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vidshare/backend/internal/models"
)

func TestMemoryRepositories_MirrorSchemaConstraints(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()

	a := createTestIdentity(t, repos.Identities, "a")
	b := createTestIdentity(t, repos.Identities, "b")

	if err := repos.Identities.Create(ctx, newTestIdentity("a")); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}

	if err := repos.Subscriptions.Create(ctx, a.ID, a.ID); !errors.Is(err, ErrCheckViolation) {
		t.Fatalf("expected ErrCheckViolation for self edge, got %v", err)
	}
	if err := repos.Subscriptions.Create(ctx, a.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown channel, got %v", err)
	}
	if err := repos.Subscriptions.Create(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if err := repos.Subscriptions.Create(ctx, a.ID, b.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate edge, got %v", err)
	}

	stats, err := repos.Subscriptions.ChannelStats(ctx, b.ID, a.ID)
	if err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	if stats != (models.ChannelStats{SubscribersCount: 1, IsViewerSubscribed: true}) {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if err := repos.Videos.Create(ctx, models.Video{ID: uuid.NewString(), OwnerID: uuid.NewString()}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown owner, got %v", err)
	}
}

func TestMemoryIdentityRepository_RefreshTokenCAS(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()
	identity := createTestIdentity(t, repos.Identities, "c")

	if ok, _ := repos.Identities.SwapRefreshToken(ctx, identity.ID, "", "next"); ok {
		t.Fatal("expected swap from empty hash to fail")
	}
	if err := repos.Identities.SaveRefreshToken(ctx, identity.ID, "h1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ok, _ := repos.Identities.SwapRefreshToken(ctx, identity.ID, "h1", "h2"); !ok {
		t.Fatal("expected swap to succeed")
	}
	if ok, _ := repos.Identities.SwapRefreshToken(ctx, identity.ID, "h1", "h3"); ok {
		t.Fatal("expected stale swap to fail")
	}
}

func TestMemoryVideoRepository_ListPublishedOrdering(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()
	owner := createTestIdentity(t, repos.Identities, "owner")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, published := range []bool{true, false, true, true} {
		video := models.Video{
			ID:        uuid.NewString(),
			OwnerID:   owner.ID,
			Title:     "v",
			Published: published,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := repos.Videos.Create(ctx, video); err != nil {
			t.Fatalf("create video: %v", err)
		}
	}

	page, err := repos.Videos.ListPublished(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || !page[0].CreatedAt.After(page[1].CreatedAt) {
		t.Fatalf("expected two newest published videos, got %+v", page)
	}

	rest, err := repos.Videos.ListPublished(ctx, 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rest) != 1 {
		t.Fatalf("expected one remaining published video, got %d", len(rest))
	}

	mine, err := repos.Videos.ListByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(mine) != 4 {
		t.Fatalf("expected all four uploads, got %d", len(mine))
	}
}

func TestMemoryReactionRepository_ExclusiveReactions(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()
	owner := createTestIdentity(t, repos.Identities, "owner")
	fan := createTestIdentity(t, repos.Identities, "fan")

	video := models.Video{ID: uuid.NewString(), OwnerID: owner.ID, Title: "v", CreatedAt: time.Now()}
	if err := repos.Videos.Create(ctx, video); err != nil {
		t.Fatalf("create video: %v", err)
	}

	if err := repos.Reactions.Set(ctx, video.ID, fan.ID, models.ReactionLike); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := repos.Reactions.Set(ctx, video.ID, fan.ID, models.ReactionLike); err != nil {
		t.Fatalf("repeat like: %v", err)
	}
	if err := repos.Reactions.Set(ctx, video.ID, owner.ID, models.ReactionDislike); err != nil {
		t.Fatalf("dislike: %v", err)
	}
	summary, _ := repos.Reactions.Summary(ctx, video.ID, fan.ID)
	if summary != (models.ReactionSummary{Likes: 1, Dislikes: 1, Mine: models.ReactionLike}) {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if err := repos.Reactions.Set(ctx, video.ID, fan.ID, models.ReactionDislike); err != nil {
		t.Fatalf("switch to dislike: %v", err)
	}
	summary, _ = repos.Reactions.Summary(ctx, video.ID, fan.ID)
	if summary != (models.ReactionSummary{Dislikes: 2, Mine: models.ReactionDislike}) {
		t.Fatalf("expected dislike to replace like, got %+v", summary)
	}

	if err := repos.Reactions.Set(ctx, uuid.NewString(), fan.ID, models.ReactionLike); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown video, got %v", err)
	}
	if err := repos.Reactions.Set(ctx, video.ID, fan.ID, models.Reaction("meh")); !errors.Is(err, ErrCheckViolation) {
		t.Fatalf("expected ErrCheckViolation for unknown kind, got %v", err)
	}

	if err := repos.Videos.Delete(ctx, video.ID); err != nil {
		t.Fatalf("delete video: %v", err)
	}
	if summary, _ := repos.Reactions.Summary(ctx, video.ID, fan.ID); summary != (models.ReactionSummary{}) {
		t.Fatalf("expected reactions to go with the video, got %+v", summary)
	}
}

func TestMemoryVideoRepository_Update(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()
	owner := createTestIdentity(t, repos.Identities, "owner")

	video := models.Video{ID: uuid.NewString(), OwnerID: owner.ID, Title: "draft", Views: 7, Published: false}
	if err := repos.Videos.Create(ctx, video); err != nil {
		t.Fatalf("create video: %v", err)
	}

	video.Title = "final"
	video.Published = true
	video.Views = 0
	if err := repos.Videos.Update(ctx, video); err != nil {
		t.Fatalf("update: %v", err)
	}
	stored, _ := repos.Videos.FindByID(ctx, video.ID)
	if stored.Title != "final" || !stored.Published || stored.Views != 7 {
		t.Fatalf("expected only editable fields to change, got %+v", stored)
	}

	if err := repos.Videos.Update(ctx, models.Video{ID: uuid.NewString()}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
