package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"resonance/internal/middleware"
	"resonance/internal/models"
	"resonance/internal/repository"
)

const maxPostLength = 5000

// ModerationService owns the review state of posts and music.
type ModerationService struct {
	postRepo  repository.PostRepository
	musicRepo repository.MusicRepository
	userRepo  repository.UserRepository
}

func NewModerationService(postRepo repository.PostRepository, musicRepo repository.MusicRepository, userRepo repository.UserRepository) *ModerationService {
	return &ModerationService{postRepo: postRepo, musicRepo: musicRepo, userRepo: userRepo}
}

// PostStatus is the read-only gate consulted before a post can be liked.
func (s *ModerationService) PostStatus(ctx context.Context, postID uint) (models.ModerationStatus, error) {
	return s.postRepo.Status(ctx, postID)
}

func (s *ModerationService) requireAdmin(ctx context.Context, userID uint) error {
	admin, err := s.userRepo.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !admin {
		return models.NewUnauthorizedError("Admin access required")
	}
	return nil
}

// SubmitPost creates a post awaiting review. Posts by admins skip the queue.
func (s *ModerationService) SubmitPost(ctx context.Context, authorID uint, content string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > maxPostLength {
		return nil, models.NewValidationError("Content too long (max 5000 characters)")
	}

	admin, err := s.userRepo.IsAdmin(ctx, authorID)
	if err != nil {
		return nil, err
	}
	post := &models.Post{Content: content, UserID: authorID, Status: models.StatusPending}
	if admin {
		post.Status = models.StatusApproved
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// PendingPosts lists the review queue, oldest first.
func (s *ModerationService) PendingPosts(ctx context.Context, adminID uint, limit, offset int) ([]models.Post, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	return s.postRepo.ListByStatus(ctx, models.StatusPending, limit, offset)
}

func (s *ModerationService) ApprovePost(ctx context.Context, adminID, postID uint) error {
	return s.review(ctx, adminID, "post", postID, models.StatusApproved, s.postRepo.UpdateStatus)
}

func (s *ModerationService) RejectPost(ctx context.Context, adminID, postID uint) error {
	return s.review(ctx, adminID, "post", postID, models.StatusRejected, s.postRepo.UpdateStatus)
}

func (s *ModerationService) ApproveMusic(ctx context.Context, adminID, musicID uint) error {
	return s.review(ctx, adminID, "music", musicID, models.StatusApproved, s.musicRepo.UpdateStatus)
}

func (s *ModerationService) RejectMusic(ctx context.Context, adminID, musicID uint) error {
	return s.review(ctx, adminID, "music", musicID, models.StatusRejected, s.musicRepo.UpdateStatus)
}

func (s *ModerationService) review(
	ctx context.Context,
	adminID uint,
	kind string,
	id uint,
	status models.ModerationStatus,
	update func(context.Context, uint, models.ModerationStatus) error,
) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	if err := update(ctx, id, status); err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "moderation decision",
		slog.String("kind", kind),
		slog.Uint64("id", uint64(id)),
		slog.String("status", string(status)),
	)
	return nil
}
