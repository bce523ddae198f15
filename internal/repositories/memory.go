package repositories

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/vidshare/backend/internal/models"
)

type edge struct {
	subscriber string
	channel    string
}

type reactionKey struct {
	video    string
	identity string
}

// memoryState is shared by the in-memory repositories so foreign keys and
// cascades behave like the SQL schema.
type memoryState struct {
	mu            sync.Mutex
	identities    map[string]models.Identity
	subscriptions map[edge]time.Time
	videos        map[string]models.Video
	reactions     map[reactionKey]models.Reaction
}

// MemoryRepositories groups in-memory implementations of every repository.
// They back the memory storage mode and handler tests.
type MemoryRepositories struct {
	Identities    *MemoryIdentityRepository
	Subscriptions *MemorySubscriptionRepository
	Videos        *MemoryVideoRepository
	Reactions     *MemoryReactionRepository
}

func NewMemoryRepositories() MemoryRepositories {
	state := &memoryState{
		identities:    make(map[string]models.Identity),
		subscriptions: make(map[edge]time.Time),
		videos:        make(map[string]models.Video),
		reactions:     make(map[reactionKey]models.Reaction),
	}
	return MemoryRepositories{
		Identities:    &MemoryIdentityRepository{state: state},
		Subscriptions: &MemorySubscriptionRepository{state: state},
		Videos:        &MemoryVideoRepository{state: state},
		Reactions:     &MemoryReactionRepository{state: state},
	}
}

func cloneIdentity(identity models.Identity) models.Identity {
	identity.WatchHistory = slices.Clone(identity.WatchHistory)
	return identity
}

// MemoryIdentityRepository stores identities in process memory.
type MemoryIdentityRepository struct {
	state *memoryState
}

func (r *MemoryIdentityRepository) Create(_ context.Context, identity models.Identity) error {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[identity.ID]; ok {
		return ErrConflict
	}
	for _, existing := range s.identities {
		if existing.Username == identity.Username || existing.Email == identity.Email {
			return ErrConflict
		}
	}
	s.identities[identity.ID] = cloneIdentity(identity)
	return nil
}

func (r *MemoryIdentityRepository) FindByID(_ context.Context, id string) (models.Identity, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[id]
	if !ok {
		return models.Identity{}, ErrNotFound
	}
	return cloneIdentity(identity), nil
}

func (r *MemoryIdentityRepository) FindByUsername(_ context.Context, username string) (models.Identity, error) {
	return r.findBy(func(i models.Identity) bool { return i.Username == username })
}

func (r *MemoryIdentityRepository) FindByEmail(_ context.Context, email string) (models.Identity, error) {
	return r.findBy(func(i models.Identity) bool { return i.Email == email })
}

func (r *MemoryIdentityRepository) findBy(match func(models.Identity) bool) (models.Identity, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, identity := range s.identities {
		if match(identity) {
			return cloneIdentity(identity), nil
		}
	}
	return models.Identity{}, ErrNotFound
}

func (r *MemoryIdentityRepository) UpdateProfile(_ context.Context, identity models.Identity) error {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.identities[identity.ID]
	if !ok {
		return ErrNotFound
	}
	for id, existing := range s.identities {
		if id != identity.ID && existing.Email == identity.Email {
			return ErrConflict
		}
	}

	current.Email = identity.Email
	current.Fullname = identity.Fullname
	current.PasswordHash = identity.PasswordHash
	current.Avatar = identity.Avatar
	current.CoverImage = identity.CoverImage
	current.UpdatedAt = identity.UpdatedAt
	s.identities[identity.ID] = current
	return nil
}

func (r *MemoryIdentityRepository) SaveRefreshToken(_ context.Context, id, hash string) error {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[id]
	if !ok {
		return ErrNotFound
	}
	identity.RefreshTokenHash = hash
	s.identities[id] = identity
	return nil
}

func (r *MemoryIdentityRepository) SwapRefreshToken(_ context.Context, id, oldHash, newHash string) (bool, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[id]
	if !ok || oldHash == "" || identity.RefreshTokenHash != oldHash {
		return false, nil
	}
	identity.RefreshTokenHash = newHash
	s.identities[id] = identity
	return true, nil
}

func (r *MemoryIdentityRepository) MutateWatchHistory(_ context.Context, id string, mutate WatchHistoryMutation) ([]string, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := mutate(slices.Clone(identity.WatchHistory))
	if next == nil {
		next = []string{}
	}
	identity.WatchHistory = next
	s.identities[id] = identity
	return slices.Clone(next), nil
}

// MemorySubscriptionRepository stores subscription edges in process memory.
type MemorySubscriptionRepository struct {
	state *memoryState
}

func (r *MemorySubscriptionRepository) Create(_ context.Context, subscriberID, channelID string) error {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[subscriberID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.identities[channelID]; !ok {
		return ErrNotFound
	}
	if subscriberID == channelID {
		return ErrCheckViolation
	}
	key := edge{subscriber: subscriberID, channel: channelID}
	if _, ok := s.subscriptions[key]; ok {
		return ErrConflict
	}
	s.subscriptions[key] = time.Now().UTC()
	return nil
}

func (r *MemorySubscriptionRepository) Delete(_ context.Context, subscriberID, channelID string) (bool, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edge{subscriber: subscriberID, channel: channelID}
	if _, ok := s.subscriptions[key]; !ok {
		return false, nil
	}
	delete(s.subscriptions, key)
	return true, nil
}

func (r *MemorySubscriptionRepository) Exists(_ context.Context, subscriberID, channelID string) (bool, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.subscriptions[edge{subscriber: subscriberID, channel: channelID}]
	return ok, nil
}

func (r *MemorySubscriptionRepository) CountSubscribers(_ context.Context, channelID string) (int64, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(func(e edge) bool { return e.channel == channelID }), nil
}

func (r *MemorySubscriptionRepository) CountSubscriptions(_ context.Context, subscriberID string) (int64, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(func(e edge) bool { return e.subscriber == subscriberID }), nil
}

func (r *MemorySubscriptionRepository) ChannelStats(_ context.Context, channelID, viewerID string) (models.ChannelStats, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := models.ChannelStats{
		SubscribersCount:  s.countLocked(func(e edge) bool { return e.channel == channelID }),
		SubscribedToCount: s.countLocked(func(e edge) bool { return e.subscriber == channelID }),
	}
	if viewerID != "" {
		_, stats.IsViewerSubscribed = s.subscriptions[edge{subscriber: viewerID, channel: channelID}]
	}
	return stats, nil
}

func (s *memoryState) countLocked(match func(edge) bool) int64 {
	var n int64
	for e := range s.subscriptions {
		if match(e) {
			n++
		}
	}
	return n
}

// MemoryVideoRepository stores videos in process memory.
type MemoryVideoRepository struct {
	state *memoryState
}

func (r *MemoryVideoRepository) Create(_ context.Context, video models.Video) error {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[video.OwnerID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.videos[video.ID]; ok {
		return ErrConflict
	}
	s.videos[video.ID] = video
	return nil
}

func (r *MemoryVideoRepository) FindByID(_ context.Context, id string) (models.Video, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return video, nil
}

func (r *MemoryVideoRepository) FindWatched(_ context.Context, ids []string) (map[string]models.WatchedVideo, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]models.WatchedVideo, len(ids))
	for _, id := range ids {
		video, ok := s.videos[id]
		if !ok {
			continue
		}
		owner := s.identities[video.OwnerID]
		result[id] = models.WatchedVideo{
			Video: video,
			Owner: models.OwnerSummary{
				ID:       owner.ID,
				Fullname: owner.Fullname,
				Username: owner.Username,
				Avatar:   owner.Avatar,
			},
		}
	}
	return result, nil
}

func (r *MemoryVideoRepository) ListPublished(_ context.Context, limit, offset int) ([]models.Video, error) {
	videos := r.filter(func(v models.Video) bool { return v.Published })
	if offset >= len(videos) {
		return nil, nil
	}
	videos = videos[offset:]
	if limit > 0 && limit < len(videos) {
		videos = videos[:limit]
	}
	return videos, nil
}

func (r *MemoryVideoRepository) ListByOwner(_ context.Context, ownerID string) ([]models.Video, error) {
	return r.filter(func(v models.Video) bool { return v.OwnerID == ownerID }), nil
}

func (r *MemoryVideoRepository) filter(match func(models.Video) bool) []models.Video {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	var videos []models.Video
	for _, video := range s.videos {
		if match(video) {
			videos = append(videos, video)
		}
	}
	sort.Slice(videos, func(i, j int) bool {
		if videos[i].CreatedAt.Equal(videos[j].CreatedAt) {
			return videos[i].ID < videos[j].ID
		}
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
	return videos
}

func (r *MemoryVideoRepository) Update(_ context.Context, video models.Video) error {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.videos[video.ID]
	if !ok {
		return ErrNotFound
	}
	current.Title = video.Title
	current.Description = video.Description
	current.Published = video.Published
	s.videos[video.ID] = current
	return nil
}

func (r *MemoryVideoRepository) Delete(_ context.Context, id string) error {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[id]; !ok {
		return ErrNotFound
	}
	delete(s.videos, id)
	for key := range s.reactions {
		if key.video == id {
			delete(s.reactions, key)
		}
	}
	return nil
}

func (r *MemoryVideoRepository) IncrementViews(_ context.Context, id string) (int64, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[id]
	if !ok {
		return 0, ErrNotFound
	}
	video.Views++
	s.videos[id] = video
	return video.Views, nil
}

// MemoryReactionRepository stores reactions in process memory.
type MemoryReactionRepository struct {
	state *memoryState
}

func (r *MemoryReactionRepository) Set(_ context.Context, videoID, identityID string, kind models.Reaction) error {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[videoID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.identities[identityID]; !ok {
		return ErrNotFound
	}
	if !kind.Valid() {
		return ErrCheckViolation
	}
	s.reactions[reactionKey{video: videoID, identity: identityID}] = kind
	return nil
}

func (r *MemoryReactionRepository) Clear(_ context.Context, videoID, identityID string) (bool, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reactionKey{video: videoID, identity: identityID}
	if _, ok := s.reactions[key]; !ok {
		return false, nil
	}
	delete(s.reactions, key)
	return true, nil
}

func (r *MemoryReactionRepository) Summary(_ context.Context, videoID, viewerID string) (models.ReactionSummary, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	var summary models.ReactionSummary
	for key, kind := range s.reactions {
		if key.video != videoID {
			continue
		}
		switch kind {
		case models.ReactionLike:
			summary.Likes++
		case models.ReactionDislike:
			summary.Dislikes++
		}
		if viewerID != "" && key.identity == viewerID {
			summary.Mine = kind
		}
	}
	return summary, nil
}

var (
	_ IdentityRepository     = (*MemoryIdentityRepository)(nil)
	_ SubscriptionRepository = (*MemorySubscriptionRepository)(nil)
	_ VideoRepository        = (*MemoryVideoRepository)(nil)
	_ IdentityRepository     = (*PostgresIdentityRepository)(nil)
	_ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
	_ VideoRepository        = (*PostgresVideoRepository)(nil)
	_ ReactionRepository     = (*MemoryReactionRepository)(nil)
	_ ReactionRepository     = (*PostgresReactionRepository)(nil)
)
