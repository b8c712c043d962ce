package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"resonance/internal/cache"
	"resonance/internal/database"
	"resonance/internal/models"
	"resonance/internal/notifications"
	"resonance/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// setupMiniredis installs a fresh miniredis-backed cache client for the test.
func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })
	return mr
}

func seedUser(t *testing.T, db *gorm.DB, name string, admin bool) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: fmt.Sprintf("%s@example.com", name), IsAdmin: admin}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedPost(t *testing.T, db *gorm.DB, authorID uint, status models.ModerationStatus, likes int64) *models.Post {
	t.Helper()
	p := &models.Post{Content: "post", UserID: authorID, Status: status}
	require.NoError(t, db.Omit("User").Create(p).Error)
	require.NoError(t, db.Model(p).UpdateColumn("like_count", likes).Error)
	p.LikeCount = likes
	return p
}

func seedMusic(t *testing.T, db *gorm.DB, title, genre string, status models.ModerationStatus, plays int64) *models.Music {
	t.Helper()
	m := &models.Music{Title: title, Artist: "artist", Genre: genre, Status: status, PlayCount: plays}
	require.NoError(t, db.Create(m).Error)
	return m
}

// repos bundles the real repositories over one database.
type repos struct {
	likes    repository.LikeRepository
	follows  repository.FollowRepository
	users    repository.UserRepository
	posts    repository.PostRepository
	music    repository.MusicRepository
	plays    repository.PlayRepository
	comments repository.CommentRepository
}

func newRepos(db *gorm.DB) repos {
	return repos{
		likes:    repository.NewLikeRepository(db),
		follows:  repository.NewFollowRepository(db),
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		music:    repository.NewMusicRepository(db),
		plays:    repository.NewPlayRepository(db),
		comments: repository.NewCommentRepository(db),
	}
}

// seededRandomizer is deterministic for reproducible tests.
func seededRandomizer(seed int64) Randomizer {
	return rand.New(rand.NewSource(seed))
}

// publisherStub records published events.
type publisherStub struct {
	events map[uint][]notifications.Event
}

func newPublisherStub() *publisherStub {
	return &publisherStub{events: make(map[uint][]notifications.Event)}
}

func (p *publisherStub) PublishUser(_ context.Context, userID uint, ev notifications.Event) {
	p.events[userID] = append(p.events[userID], ev)
}

func (p *publisherStub) total() int {
	n := 0
	for _, evs := range p.events {
		n += len(evs)
	}
	return n
}

// assertAppError asserts that err is an AppError carrying code.
func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
