package repository

import (
	"context"
	"errors"

	"resonance/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Status(ctx context.Context, id uint) (models.ModerationStatus, error)
	UpdateStatus(ctx context.Context, id uint, status models.ModerationStatus) error
	ListByStatus(ctx context.Context, status models.ModerationStatus, limit, offset int) ([]models.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, err
	}
	return &post, nil
}

// Status returns the moderation state of a post.
func (r *postRepository) Status(ctx context.Context, id uint) (models.ModerationStatus, error) {
	var statuses []models.ModerationStatus
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Pluck("status", &statuses).Error; err != nil {
		return "", err
	}
	if len(statuses) == 0 {
		return "", models.NewNotFoundError("Post", id)
	}
	return statuses[0], nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, id uint, status models.ModerationStatus) error {
	return updateStatus(ctx, r.db, &models.Post{}, "Post", id, status)
}

func (r *postRepository) ListByStatus(ctx context.Context, status models.ModerationStatus, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("status = ?", status).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

// updateStatus sets the moderation column of the row id in model's table.
func updateStatus(ctx context.Context, db *gorm.DB, model any, resource string, id uint, status models.ModerationStatus) error {
	if !status.Valid() {
		return models.NewValidationError("invalid moderation status")
	}
	res := db.WithContext(ctx).Model(model).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(resource, id)
	}
	return nil
}
