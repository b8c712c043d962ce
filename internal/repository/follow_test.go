package repository

import (
	"context"
	"testing"
	"time"

	"resonance/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository_Integration(t *testing.T) {
	db := newTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	u1 := createUser(t, db, "alice")
	u2 := createUser(t, db, "bob")
	u3 := createUser(t, db, "carol")

	t.Run("Insert is idempotent", func(t *testing.T) {
		created, err := repo.Insert(ctx, u1.ID, u2.ID)
		require.NoError(t, err)
		assert.True(t, created)

		var first models.Follow
		require.NoError(t, db.Where("follower_id = ? AND following_id = ?", u1.ID, u2.ID).First(&first).Error)

		created, err = repo.Insert(ctx, u1.ID, u2.ID)
		require.NoError(t, err)
		assert.False(t, created)

		var edges []models.Follow
		require.NoError(t, db.Where("follower_id = ? AND following_id = ?", u1.ID, u2.ID).Find(&edges).Error)
		require.Len(t, edges, 1)
		assert.True(t, first.CreatedAt.Equal(edges[0].CreatedAt))
	})

	t.Run("Counts and lists", func(t *testing.T) {
		_, err := repo.Insert(ctx, u3.ID, u2.ID)
		require.NoError(t, err)

		followers, err := repo.CountFollowers(ctx, u2.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), followers)

		following, err := repo.CountFollowing(ctx, u1.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), following)

		users, err := repo.Followers(ctx, u2.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, u3.ID, users[0].ID, "newest edge first")

		users, err = repo.Following(ctx, u3.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "bob", users[0].Username)

		exists, err := repo.Exists(ctx, u2.ID, u1.ID)
		require.NoError(t, err)
		assert.False(t, exists, "edges are directed")
	})

	t.Run("Delete", func(t *testing.T) {
		removed, err := repo.Delete(ctx, u1.ID, u2.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = repo.Delete(ctx, u1.ID, u2.ID)
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestFollowRepository_Window(t *testing.T) {
	db := newTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	target := createUser(t, db, "target")
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(7 * 24 * time.Hour)

	stamps := []time.Time{
		start.Add(-time.Second), // before the window
		start,                   // inclusive start
		start.Add(36 * time.Hour),
		end, // exclusive end
	}
	for i, ts := range stamps {
		f := createUser(t, db, "f"+string(rune('a'+i)))
		require.NoError(t, db.Omit("Follower", "Following").Create(&models.Follow{
			FollowerID: f.ID, FollowingID: target.ID, CreatedAt: ts,
		}).Error)
	}

	n, err := repo.CountFollowersInWindow(ctx, target.ID, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	times, err := repo.FollowerTimes(ctx, target.ID, start, end)
	require.NoError(t, err)
	require.Len(t, times, 2)
	assert.True(t, times[0].Equal(start))
}

func TestFollowRepository_WindowInOtherZone(t *testing.T) {
	db := newTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	target := createUser(t, db, "zoned")
	follower := createUser(t, db, "zoned-fan")
	at := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.Omit("Follower", "Following").Create(&models.Follow{
		FollowerID: follower.ID, FollowingID: target.ID, CreatedAt: at,
	}).Error)

	pkt := time.FixedZone("PKT", 5*3600)
	start, end := at.Add(-time.Hour).In(pkt), at.Add(time.Hour).In(pkt)

	n, err := repo.CountFollowersInWindow(ctx, target.ID, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "same instants as the UTC window")

	times, err := repo.FollowerTimes(ctx, target.ID, start, end)
	require.NoError(t, err)
	require.Len(t, times, 1)
	assert.True(t, times[0].Equal(at))

	n, err = repo.CountFollowersInWindow(ctx, target.ID, at.Add(time.Second).In(pkt), end)
	require.NoError(t, err)
	assert.Zero(t, n, "start after the edge")
}
