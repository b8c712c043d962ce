package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"resonance/internal/models"
	"resonance/internal/notifications"
	"resonance/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// likeRepoStub is a stub for repository.LikeRepository.
type likeRepoStub struct {
	toggleFn    func(context.Context, models.TargetKind, uint, uint) (models.LikeState, error)
	setFn       func(context.Context, models.TargetKind, uint, uint, bool) (models.LikeState, error)
	isLikedFn   func(context.Context, models.TargetKind, uint, uint) (bool, error)
	likeCountFn func(context.Context, models.TargetKind, uint) (int64, error)
	ownerOfFn   func(context.Context, models.TargetKind, uint) (uint, error)
}

func (s *likeRepoStub) Toggle(ctx context.Context, kind models.TargetKind, userID, targetID uint) (models.LikeState, error) {
	return s.toggleFn(ctx, kind, userID, targetID)
}
func (s *likeRepoStub) Set(ctx context.Context, kind models.TargetKind, userID, targetID uint, liked bool) (models.LikeState, error) {
	return s.setFn(ctx, kind, userID, targetID, liked)
}
func (s *likeRepoStub) IsLiked(ctx context.Context, kind models.TargetKind, userID, targetID uint) (bool, error) {
	return s.isLikedFn(ctx, kind, userID, targetID)
}
func (s *likeRepoStub) LikeCount(ctx context.Context, kind models.TargetKind, targetID uint) (int64, error) {
	return s.likeCountFn(ctx, kind, targetID)
}
func (s *likeRepoStub) CountByTarget(context.Context, models.TargetKind, uint) (int64, error) {
	return 0, nil
}
func (s *likeRepoStub) CountByActor(context.Context, models.TargetKind, uint) (int64, error) {
	return 0, nil
}
func (s *likeRepoStub) OwnerOf(ctx context.Context, kind models.TargetKind, targetID uint) (uint, error) {
	return s.ownerOfFn(ctx, kind, targetID)
}
func (s *likeRepoStub) CoLikedMusicIDs(context.Context, uint, int) ([]uint, error) {
	return nil, nil
}
func (s *likeRepoStub) FindDrift(context.Context, models.TargetKind) ([]repository.Drift, error) {
	return nil, nil
}
func (s *likeRepoStub) Reconcile(context.Context, models.TargetKind) (int64, error) {
	return 0, nil
}

func noopLikeRepo() *likeRepoStub {
	return &likeRepoStub{
		toggleFn: func(context.Context, models.TargetKind, uint, uint) (models.LikeState, error) {
			return models.LikeState{Liked: true, LikeCount: 1, Changed: true}, nil
		},
		setFn: func(_ context.Context, _ models.TargetKind, _, _ uint, liked bool) (models.LikeState, error) {
			return models.LikeState{Liked: liked, Changed: true}, nil
		},
		isLikedFn:   func(context.Context, models.TargetKind, uint, uint) (bool, error) { return false, nil },
		likeCountFn: func(context.Context, models.TargetKind, uint) (int64, error) { return 0, nil },
		ownerOfFn:   func(context.Context, models.TargetKind, uint) (uint, error) { return 0, nil },
	}
}

func approvedPosts(context.Context, uint) (models.ModerationStatus, error) {
	return models.StatusApproved, nil
}

func TestToggleLike_RetriesTransientErrorOnce(t *testing.T) {
	repo := noopLikeRepo()
	calls := 0
	repo.toggleFn = func(context.Context, models.TargetKind, uint, uint) (models.LikeState, error) {
		calls++
		if calls == 1 {
			return models.LikeState{}, &pgconn.PgError{Code: "40P01"}
		}
		return models.LikeState{Liked: true, LikeCount: 4, Changed: true}, nil
	}
	svc := NewEngagementService(repo, approvedPosts, nil, 0)

	state, err := svc.ToggleLike(context.Background(), 1, models.KindMusic, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, state.Liked)
	assert.Equal(t, int64(4), state.LikeCount)
}

func TestToggleLike_SurfacesAfterRetryBudget(t *testing.T) {
	repo := noopLikeRepo()
	calls := 0
	repo.toggleFn = func(context.Context, models.TargetKind, uint, uint) (models.LikeState, error) {
		calls++
		return models.LikeState{}, &pgconn.PgError{Code: "40001"}
	}
	svc := NewEngagementService(repo, approvedPosts, nil, 0)

	_, err := svc.ToggleLike(context.Background(), 1, models.KindPost, 2)
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestToggleLike_DoesNotRetryPermanentErrors(t *testing.T) {
	repo := noopLikeRepo()
	calls := 0
	repo.toggleFn = func(_ context.Context, _ models.TargetKind, _, id uint) (models.LikeState, error) {
		calls++
		return models.LikeState{}, models.NewNotFoundError("Comment", id)
	}
	svc := NewEngagementService(repo, approvedPosts, nil, 0)

	_, err := svc.ToggleLike(context.Background(), 1, models.KindComment, 9)
	assertAppError(t, err, models.CodeNotFound)
	assert.Equal(t, 1, calls)
}

func TestLikePost_ModerationGate(t *testing.T) {
	for _, status := range []models.ModerationStatus{models.StatusPending, models.StatusRejected} {
		t.Run(string(status), func(t *testing.T) {
			repo := noopLikeRepo()
			repo.setFn = func(context.Context, models.TargetKind, uint, uint, bool) (models.LikeState, error) {
				t.Fatal("relation must not be written for unmoderated posts")
				return models.LikeState{}, nil
			}
			gate := func(context.Context, uint) (models.ModerationStatus, error) { return status, nil }
			svc := NewEngagementService(repo, gate, nil, 0)

			_, err := svc.LikePost(context.Background(), 1, 2)
			assertAppError(t, err, models.CodePolicyViolation)
			_, err = svc.UnlikePost(context.Background(), 1, 2)
			assertAppError(t, err, models.CodePolicyViolation)
		})
	}
}

func TestLikePost_MissingPost(t *testing.T) {
	gate := func(_ context.Context, id uint) (models.ModerationStatus, error) {
		return "", models.NewNotFoundError("Post", id)
	}
	svc := NewEngagementService(noopLikeRepo(), gate, nil, 0)

	_, err := svc.LikePost(context.Background(), 1, 2)
	assertAppError(t, err, models.CodeNotFound)
}

func TestToggleLike_NotifiesOwnerOfNewLikesOnly(t *testing.T) {
	repo := noopLikeRepo()
	repo.ownerOfFn = func(context.Context, models.TargetKind, uint) (uint, error) { return 50, nil }
	pub := newPublisherStub()
	svc := NewEngagementService(repo, approvedPosts, pub, 0)
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	_, err := svc.ToggleLike(ctx, 7, models.KindPost, 3)
	require.NoError(t, err)
	require.Len(t, pub.events[50], 1)
	assert.Equal(t, notifications.Event{
		Type:       notifications.EventLike,
		ActorID:    7,
		TargetKind: "post",
		TargetID:   3,
		At:         time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
	}, pub.events[50][0])

	// Unlike, no-op and self-like produce nothing.
	repo.toggleFn = func(context.Context, models.TargetKind, uint, uint) (models.LikeState, error) {
		return models.LikeState{Liked: false, Changed: true}, nil
	}
	_, err = svc.ToggleLike(ctx, 7, models.KindPost, 3)
	require.NoError(t, err)

	repo.setFn = func(context.Context, models.TargetKind, uint, uint, bool) (models.LikeState, error) {
		return models.LikeState{Liked: true, LikeCount: 1, Changed: false}, nil
	}
	_, err = svc.LikePost(ctx, 7, 3)
	require.NoError(t, err)

	repo.toggleFn = func(context.Context, models.TargetKind, uint, uint) (models.LikeState, error) {
		return models.LikeState{Liked: true, Changed: true}, nil
	}
	_, err = svc.ToggleLike(ctx, 50, models.KindPost, 3)
	require.NoError(t, err)

	assert.Equal(t, 1, pub.total())
}

func TestToggleLike_OwnerLookupFailureIsNotFatal(t *testing.T) {
	repo := noopLikeRepo()
	repo.ownerOfFn = func(context.Context, models.TargetKind, uint) (uint, error) {
		return 0, errors.New("db gone")
	}
	pub := newPublisherStub()
	svc := NewEngagementService(repo, approvedPosts, pub, 0)

	state, err := svc.ToggleLike(context.Background(), 1, models.KindMusic, 1)
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Zero(t, pub.total())
}

func TestEngagement_ScenarioA(t *testing.T) {
	db := newTestDB(t)
	r := newRepos(db)
	mod := NewModerationService(r.posts, r.music, r.users)
	svc := NewEngagementService(r.likes, mod.PostStatus, nil, 0)
	ctx := context.Background()

	author := seedUser(t, db, "author", false)
	actor := seedUser(t, db, "actor", false)
	post := seedPost(t, db, author.ID, models.StatusApproved, 0)
	for _, name := range []string{"a", "b", "c"} {
		u := seedUser(t, db, name, false)
		_, err := svc.ToggleLike(ctx, u.ID, models.KindPost, post.ID)
		require.NoError(t, err)
	}

	state, err := svc.ToggleLike(ctx, actor.ID, models.KindPost, post.ID)
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Equal(t, int64(4), state.LikeCount)

	state, err = svc.ToggleLike(ctx, actor.ID, models.KindPost, post.ID)
	require.NoError(t, err)
	assert.False(t, state.Liked)
	assert.Equal(t, int64(3), state.LikeCount)
}

func TestEngagement_ScenarioE(t *testing.T) {
	db := newTestDB(t)
	r := newRepos(db)
	mod := NewModerationService(r.posts, r.music, r.users)
	svc := NewEngagementService(r.likes, mod.PostStatus, nil, 0)
	ctx := context.Background()

	author := seedUser(t, db, "author", false)
	actor := seedUser(t, db, "actor", false)
	post := seedPost(t, db, author.ID, models.StatusPending, 2)

	_, err := svc.LikePost(ctx, actor.ID, post.ID)
	assertAppError(t, err, models.CodePolicyViolation)

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, int64(2), stored.LikeCount)

	// The generic toggle is not gated.
	state, err := svc.ToggleLike(ctx, actor.ID, models.KindPost, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), state.LikeCount)
}

func TestEngagement_PostLikeIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	r := newRepos(db)
	svc := NewEngagementService(r.likes, r.posts.Status, nil, 0)
	ctx := context.Background()

	author := seedUser(t, db, "author", false)
	post := seedPost(t, db, author.ID, models.StatusApproved, 0)

	state, err := svc.UnlikePost(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.LikeCount)

	for i := 0; i < 2; i++ {
		state, err = svc.LikePost(ctx, author.ID, post.ID)
		require.NoError(t, err)
		assert.True(t, state.Liked)
		assert.Equal(t, int64(1), state.LikeCount)
	}
}

func TestIsLiked_CachedAndInvalidatedByToggle(t *testing.T) {
	mr := setupMiniredis(t)
	db := newTestDB(t)
	r := newRepos(db)
	svc := NewEngagementService(r.likes, r.posts.Status, nil, time.Minute)
	ctx := context.Background()

	u := seedUser(t, db, "u", false)
	music := seedMusic(t, db, "song", "rock", models.StatusApproved, 0)

	liked, err := svc.IsLiked(ctx, u.ID, models.KindMusic, music.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.True(t, mr.Exists("like:music:1:1"))

	_, err = svc.ToggleLike(ctx, u.ID, models.KindMusic, music.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists("like:music:1:1"))

	summary, err := svc.LikeSummary(ctx, u.ID, models.KindMusic, music.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{Liked: true, LikeCount: 1}, summary)
}
