package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"testing"

	"resonance/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func relationCount(t *testing.T, db *gorm.DB, kind models.TargetKind, targetID uint) int64 {
	t.Helper()
	n, err := NewLikeRepository(db).CountByTarget(context.Background(), kind, targetID)
	require.NoError(t, err)
	return n
}

func TestLikeRepository_ToggleAlternates(t *testing.T) {
	db := newTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	fan := createUser(t, db, "fan")
	post := createPost(t, db, author.ID, models.StatusApproved, 0)

	// Seed three likes from other users so the counter starts at 3.
	for i := 0; i < 3; i++ {
		u := createUser(t, db, fmt.Sprintf("seed%d", i))
		_, err := repo.Toggle(ctx, models.KindPost, u.ID, post.ID)
		require.NoError(t, err)
	}

	state, err := repo.Toggle(ctx, models.KindPost, fan.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{Liked: true, LikeCount: 4, Changed: true}, state)

	state, err = repo.Toggle(ctx, models.KindPost, fan.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{Liked: false, LikeCount: 3, Changed: true}, state)
	assert.Equal(t, int64(3), relationCount(t, db, models.KindPost, post.ID))

	count, err := repo.LikeCount(ctx, models.KindPost, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	_, err = repo.LikeCount(ctx, models.KindPost, 999)
	assert.True(t, models.IsNotFound(err))
}

func TestLikeRepository_AllKinds(t *testing.T) {
	db := newTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	u := createUser(t, db, "u")
	post := createPost(t, db, u.ID, models.StatusPending, 0)
	music := createMusic(t, db, "song", "rock", models.StatusPending, 0)
	comment := &models.Comment{Content: "c", UserID: u.ID, PostID: &post.ID}
	require.NoError(t, db.Omit("User").Create(comment).Error)

	targets := map[models.TargetKind]uint{
		models.KindPost:    post.ID,
		models.KindMusic:   music.ID,
		models.KindComment: comment.ID,
	}
	for kind, id := range targets {
		t.Run(string(kind), func(t *testing.T) {
			state, err := repo.Toggle(ctx, kind, u.ID, id)
			require.NoError(t, err)
			assert.True(t, state.Liked)
			assert.Equal(t, int64(1), state.LikeCount)

			liked, err := repo.IsLiked(ctx, kind, u.ID, id)
			require.NoError(t, err)
			assert.True(t, liked)

			n, err := repo.CountByActor(ctx, kind, u.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
		})
	}
}

func TestLikeRepository_MissingTarget(t *testing.T) {
	db := newTestDB(t)
	repo := NewLikeRepository(db)
	u := createUser(t, db, "u")

	_, err := repo.Toggle(context.Background(), models.KindMusic, u.ID, 999)
	assert.True(t, models.IsNotFound(err))
	assert.Equal(t, int64(0), relationCount(t, db, models.KindMusic, 999))
}

func TestLikeRepository_UnknownKind(t *testing.T) {
	repo := NewLikeRepository(newTestDB(t))
	_, err := repo.Toggle(context.Background(), models.TargetKind("playlist"), 1, 1)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}

func TestLikeRepository_SetIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()
	u := createUser(t, db, "u")
	post := createPost(t, db, u.ID, models.StatusApproved, 0)

	state, err := repo.Set(ctx, models.KindPost, u.ID, post.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{Liked: false, LikeCount: 0}, state)

	for i := 0; i < 2; i++ {
		state, err = repo.Set(ctx, models.KindPost, u.ID, post.ID, true)
		require.NoError(t, err)
		assert.Equal(t, models.LikeState{Liked: true, LikeCount: 1, Changed: i == 0}, state)
	}

	for i := 0; i < 2; i++ {
		state, err = repo.Set(ctx, models.KindPost, u.ID, post.ID, false)
		require.NoError(t, err)
		assert.Equal(t, models.LikeState{Liked: false, LikeCount: 0, Changed: i == 0}, state)
	}
}

func TestLikeRepository_CounterFloorsAtZero(t *testing.T) {
	db := newTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()
	u := createUser(t, db, "u")
	music := createMusic(t, db, "song", "jazz", models.StatusApproved, 0)

	// A relation row whose increment was lost leaves the counter at zero.
	require.NoError(t, db.Create(&models.MusicLike{UserID: u.ID, MusicID: music.ID}).Error)

	state, err := repo.Toggle(ctx, models.KindMusic, u.ID, music.ID)
	require.NoError(t, err)
	assert.False(t, state.Liked)
	assert.Equal(t, int64(0), state.LikeCount)
}

func TestLikeRepository_ConcurrentTogglesKeepCounterConsistent(t *testing.T) {
	db := newTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()
	music := createMusic(t, db, "song", "rock", models.StatusApproved, 0)

	users := make([]*models.User, 8)
	for i := range users {
		users[i] = createUser(t, db, fmt.Sprintf("u%d", i))
	}

	var wg sync.WaitGroup
	for i, u := range users {
		// Each user toggles i+1 times; the same user also races with itself.
		for n := 0; n <= i; n++ {
			wg.Add(1)
			go func(userID uint) {
				defer wg.Done()
				_, err := repo.Toggle(ctx, models.KindMusic, userID, music.ID)
				assert.NoError(t, err)
			}(u.ID)
		}
	}
	wg.Wait()

	var stored models.Music
	require.NoError(t, db.First(&stored, music.ID).Error)
	assert.Equal(t, relationCount(t, db, models.KindMusic, music.ID), stored.LikeCount)
	// Odd toggle counts end liked: users 0, 2, 4, 6.
	assert.Equal(t, int64(4), stored.LikeCount)
}

func TestLikeRepository_OwnerOf(t *testing.T) {
	db := newTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()
	author := createUser(t, db, "author")
	post := createPost(t, db, author.ID, models.StatusApproved, 0)
	orphan := createMusic(t, db, "orphan", "rock", models.StatusApproved, 0)

	owner, err := repo.OwnerOf(ctx, models.KindPost, post.ID)
	require.NoError(t, err)
	assert.Equal(t, author.ID, owner)

	owner, err = repo.OwnerOf(ctx, models.KindMusic, orphan.ID)
	require.NoError(t, err)
	assert.Zero(t, owner)

	_, err = repo.OwnerOf(ctx, models.KindComment, 404)
	assert.True(t, models.IsNotFound(err))
}

func TestLikeRepository_CoLikedMusicIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	me := createUser(t, db, "me")
	peer := createUser(t, db, "peer")
	shared := createMusic(t, db, "shared", "rock", models.StatusApproved, 0)
	approved := createMusic(t, db, "approved", "rock", models.StatusApproved, 0)
	pending := createMusic(t, db, "pending", "rock", models.StatusPending, 0)

	for _, like := range []struct{ user, music uint }{
		{me.ID, shared.ID},
		{peer.ID, shared.ID},
		{peer.ID, approved.ID},
		{peer.ID, pending.ID},
	} {
		_, err := repo.Toggle(ctx, models.KindMusic, like.user, like.music)
		require.NoError(t, err)
	}

	ids, err := repo.CoLikedMusicIDs(ctx, me.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{approved.ID}, ids)
}

func TestLikeRepository_FindDriftAndReconcile(t *testing.T) {
	db := newTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()
	u := createUser(t, db, "u")
	consistent := createPost(t, db, u.ID, models.StatusApproved, 0)
	drifted := createPost(t, db, u.ID, models.StatusApproved, 5)

	_, err := repo.Toggle(ctx, models.KindPost, u.ID, consistent.ID)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.PostLike{UserID: u.ID, PostID: drifted.ID}).Error)

	drift, err := repo.FindDrift(ctx, models.KindPost)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, Drift{Kind: models.KindPost, ID: drifted.ID, LikeCount: 5, Actual: 1}, drift[0])

	fixed, err := repo.Reconcile(ctx, models.KindPost)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fixed)

	drift, err = repo.FindDrift(ctx, models.KindPost)
	require.NoError(t, err)
	assert.Empty(t, drift)
}

func TestLikeRepository_BeginFailureSurfaces(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLikeRepository(db)

	mock.ExpectBegin().WillReturnError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})

	_, err := repo.Toggle(context.Background(), models.KindPost, 1, 1)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", fmt.Errorf("exec: %w", driver.ErrBadConn), true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", fmt.Errorf("tx: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"not found", models.NewNotFoundError("Post", 1), false},
		{"record not found", gorm.ErrRecordNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
