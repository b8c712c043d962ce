package repository

import (
	"context"
	"time"

	"resonance/internal/models"

	"gorm.io/gorm"
)

// PlayRepository records playback and aggregates play history.
type PlayRepository interface {
	Record(ctx context.Context, userID, musicID uint, at time.Time) error
	FavoriteGenres(ctx context.Context, userID uint) ([]models.GenreCount, error)
}

type playRepository struct {
	db *gorm.DB
}

// NewPlayRepository creates a new play history repository
func NewPlayRepository(db *gorm.DB) PlayRepository {
	return &playRepository{db: db}
}

// Record stores a play and bumps music.play_count in one transaction.
func (r *playRepository) Record(ctx context.Context, userID, musicID uint, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.PlayRecord{UserID: userID, MusicID: musicID, PlayedAt: at}).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Music{}).Where("id = ?", musicID).
			UpdateColumn("play_count", gorm.Expr("play_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Music", musicID)
		}
		return nil
	})
}

// FavoriteGenres groups a user's plays by genre, most played first. Ties order by genre name.
func (r *playRepository) FavoriteGenres(ctx context.Context, userID uint) ([]models.GenreCount, error) {
	var genres []models.GenreCount
	err := r.db.WithContext(ctx).
		Table("play_records").
		Select("music.genre AS genre, COUNT(*) AS plays").
		Joins("JOIN music ON music.id = play_records.music_id").
		Where("play_records.user_id = ?", userID).
		Group("music.genre").
		Order("plays DESC, music.genre ASC").
		Scan(&genres).Error
	return genres, err
}
