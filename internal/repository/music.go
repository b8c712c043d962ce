package repository

import (
	"context"
	"errors"

	"resonance/internal/models"

	"gorm.io/gorm"
)

// MusicRepository defines the interface for catalog reads used by playback and recommendations
type MusicRepository interface {
	Create(ctx context.Context, music *models.Music) error
	GetByID(ctx context.Context, id uint) (*models.Music, error)
	UpdateStatus(ctx context.Context, id uint, status models.ModerationStatus) error
	Popular(ctx context.Context, limit int) ([]models.Music, error)
	ApprovedIDs(ctx context.Context) ([]uint, error)
	ApprovedIDsByGenre(ctx context.Context, genre string) ([]uint, error)
	GetApprovedByIDs(ctx context.Context, ids []uint) ([]models.Music, error)
}

type musicRepository struct {
	db *gorm.DB
}

// NewMusicRepository creates a new music repository
func NewMusicRepository(db *gorm.DB) MusicRepository {
	return &musicRepository{db: db}
}

func (r *musicRepository) Create(ctx context.Context, music *models.Music) error {
	return r.db.WithContext(ctx).Create(music).Error
}

func (r *musicRepository) GetByID(ctx context.Context, id uint) (*models.Music, error) {
	var music models.Music
	if err := r.db.WithContext(ctx).First(&music, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Music", id)
		}
		return nil, err
	}
	return &music, nil
}

func (r *musicRepository) UpdateStatus(ctx context.Context, id uint, status models.ModerationStatus) error {
	return updateStatus(ctx, r.db, &models.Music{}, "Music", id, status)
}

// Popular returns approved music ordered by play count, most played first.
func (r *musicRepository) Popular(ctx context.Context, limit int) ([]models.Music, error) {
	var music []models.Music
	err := r.db.WithContext(ctx).
		Where("status = ?", models.StatusApproved).
		Order("play_count DESC, id ASC").
		Limit(limit).
		Find(&music).Error
	return music, err
}

func (r *musicRepository) ApprovedIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Music{}).
		Where("status = ?", models.StatusApproved).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *musicRepository) ApprovedIDsByGenre(ctx context.Context, genre string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Music{}).
		Where("status = ? AND genre = ?", models.StatusApproved, genre).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

// GetApprovedByIDs loads the approved subset of ids. Order is unspecified.
func (r *musicRepository) GetApprovedByIDs(ctx context.Context, ids []uint) ([]models.Music, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var music []models.Music
	err := r.db.WithContext(ctx).
		Where("id IN ? AND status = ?", ids, models.StatusApproved).
		Find(&music).Error
	return music, err
}
