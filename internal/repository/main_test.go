package repository

import (
	"fmt"
	"testing"
	"time"

	"resonance/internal/database"
	"resonance/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
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

// setupMockDB creates a GORM *gorm.DB backed by sqlmock for store failure paths.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: fmt.Sprintf("%s@example.com", name)}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createPost(t *testing.T, db *gorm.DB, authorID uint, status models.ModerationStatus, likes int64) *models.Post {
	t.Helper()
	p := &models.Post{Content: "hello", UserID: authorID, Status: status}
	require.NoError(t, db.Omit("User").Create(p).Error)
	require.NoError(t, db.Model(p).UpdateColumn("like_count", likes).Error)
	p.LikeCount = likes
	return p
}

func createMusic(t *testing.T, db *gorm.DB, title, genre string, status models.ModerationStatus, plays int64) *models.Music {
	t.Helper()
	m := &models.Music{Title: title, Artist: "artist", Genre: genre, Status: status, PlayCount: plays}
	require.NoError(t, db.Create(m).Error)
	return m
}
