package repository

import (
	"context"
	"errors"

	"resonance/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListTopLevel(ctx context.Context, kind models.TargetKind, targetID uint) ([]models.Comment, error)
	DeleteCascade(ctx context.Context, id uint) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Preload("User").First(comment, comment.ID).Error
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, err
	}
	return &comment, nil
}

// ListTopLevel returns the top-level comments on a post or music item, newest first, with
// their direct replies and authors preloaded.
func (r *commentRepository) ListTopLevel(ctx context.Context, kind models.TargetKind, targetID uint) ([]models.Comment, error) {
	var column string
	switch kind {
	case models.KindPost:
		column = "post_id"
	case models.KindMusic:
		column = "music_id"
	default:
		return nil, models.NewValidationError("comments target posts or music")
	}

	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Replies.User").
		Where(column+" = ? AND parent_comment_id IS NULL", targetID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	return comments, err
}

// DeleteCascade removes a comment, its replies, and the like rows of every removed comment
// in one transaction. It returns the number of comments deleted.
func (r *commentRepository) DeleteCascade(ctx context.Context, id uint) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.Comment{}).
			Where("id = ? OR parent_comment_id = ?", id, id).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return models.NewNotFoundError("Comment", id)
		}

		if err := tx.Where("comment_id IN ?", ids).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		// Replies first so a parent_comment_id foreign key never dangles.
		if err := tx.Where("parent_comment_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Comment{}, id)
		if res.Error != nil {
			return res.Error
		}
		deleted = int64(len(ids))
		return nil
	})
	return deleted, err
}
