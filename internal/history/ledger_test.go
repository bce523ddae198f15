package history

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
)

func setup(t *testing.T) (*Ledger, repositories.MemoryRepositories, models.Identity) {
	t.Helper()
	repos := repositories.NewMemoryRepositories()
	identity := models.Identity{
		ID:       uuid.NewString(),
		Username: "viewer",
		Email:    "viewer@example.com",
		Fullname: "Viewer",
	}
	require.NoError(t, repos.Identities.Create(context.Background(), identity))
	return NewLedger(repos.Identities, repos.Videos), repos, identity
}

func TestRecordFiftyOneItems(t *testing.T) {
	ledger, _, identity := setup(t)
	ctx := context.Background()

	ids := make([]string, 0, 51)
	var history []string
	for i := 1; i <= 51; i++ {
		ids = append(ids, uuid.NewString())
		var err error
		history, err = ledger.Record(ctx, identity.ID, ids[i-1])
		require.NoError(t, err)
	}

	require.Len(t, history, models.WatchHistoryLimit)
	assert.Equal(t, ids[50], history[0])
	assert.Equal(t, ids[1], history[len(history)-1])
	assert.NotContains(t, history, ids[0])
}

func TestRecordSkipsDuplicates(t *testing.T) {
	ledger, _, identity := setup(t)
	ctx := context.Background()

	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()
	for _, id := range []string{a, b, c} {
		_, err := ledger.Record(ctx, identity.ID, id)
		require.NoError(t, err)
	}

	history, err := ledger.Record(ctx, identity.ID, a)
	require.NoError(t, err)
	assert.Equal(t, []string{c, b, a}, history)
}

func TestRecordCanonicalisesVideoIDs(t *testing.T) {
	ledger, _, identity := setup(t)
	ctx := context.Background()
	id := uuid.NewString()

	for _, spelling := range []string{id, strings.ToUpper(id), "{" + id + "}", "urn:uuid:" + id} {
		history, err := ledger.Record(ctx, identity.ID, spelling)
		require.NoError(t, err)
		assert.Equal(t, []string{id}, history)
	}

	history, err := ledger.Remove(ctx, identity.ID, strings.ToUpper(id))
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = ledger.Record(ctx, identity.ID, "video-1")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = ledger.Remove(ctx, identity.ID, "video-1")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRemoveAndClear(t *testing.T) {
	ledger, _, identity := setup(t)
	ctx := context.Background()

	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()
	for _, id := range []string{a, b, c} {
		_, err := ledger.Record(ctx, identity.ID, id)
		require.NoError(t, err)
	}

	history, err := ledger.Remove(ctx, identity.ID, b)
	require.NoError(t, err)
	assert.Equal(t, []string{c, a}, history)

	history, err = ledger.Remove(ctx, identity.ID, uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, []string{c, a}, history)

	require.NoError(t, ledger.Clear(ctx, identity.ID))
	entries, err := ledger.List(ctx, identity.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLedgerValidationAndUnknownIdentity(t *testing.T) {
	ledger, _, identity := setup(t)
	ctx := context.Background()

	_, err := ledger.Record(ctx, identity.ID, " ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = ledger.Record(ctx, uuid.NewString(), uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = ledger.List(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = ledger.Clear(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListHydratesInOrderAndSkipsDangling(t *testing.T) {
	ledger, repos, identity := setup(t)
	ctx := context.Background()

	owner := models.Identity{ID: uuid.NewString(), Username: "owner", Email: "owner@example.com", Fullname: "Owner"}
	require.NoError(t, repos.Identities.Create(ctx, owner))

	first := models.Video{ID: uuid.NewString(), OwnerID: owner.ID, Title: "first", CreatedAt: time.Now()}
	second := models.Video{ID: uuid.NewString(), OwnerID: owner.ID, Title: "second", CreatedAt: time.Now()}
	require.NoError(t, repos.Videos.Create(ctx, first))
	require.NoError(t, repos.Videos.Create(ctx, second))

	deleted := uuid.NewString()
	for _, id := range []string{first.ID, deleted, second.ID} {
		_, err := ledger.Record(ctx, identity.ID, id)
		require.NoError(t, err)
	}

	entries, err := ledger.List(ctx, identity.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Title)
	assert.Equal(t, "first", entries[1].Title)
	assert.Equal(t, "owner", entries[0].Owner.Username)

	stored, err := repos.Identities.FindByID(ctx, identity.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.WatchHistory, deleted)
}

func TestConcurrentRecordsDoNotLoseUpdates(t *testing.T) {
	ledger, repos, identity := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Record(ctx, identity.ID, uuid.NewString())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := repos.Identities.FindByID(ctx, identity.ID)
	require.NoError(t, err)
	assert.Len(t, stored.WatchHistory, 40)
}

func TestRecordPolicyNeverExceedsLimit(t *testing.T) {
	policy := recordPolicy("new", 3)
	assert.Equal(t, []string{"new", "a", "b"}, policy([]string{"a", "b", "c"}))
	assert.Equal(t, []string{"a", "new", "b"}, recordPolicy("new", 3)([]string{"a", "new", "b"}))
	assert.Equal(t, []string{"new"}, policy(nil))
}
