package service

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"resonance/internal/models"
	"resonance/internal/observability"
	"resonance/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const maxCommentLength = 2000

// CommentNode is a top-level comment with its direct replies, oldest reply first.
// Replies never carry replies of their own.
type CommentNode struct {
	models.Comment
	Replies []models.Comment `json:"replies"`
}

// AssembleThread builds one node per top-level comment from its preloaded Replies. Entries
// that are themselves replies are skipped, as are preloaded replies addressed to another
// parent. Input order of the top-level comments is kept.
func AssembleThread(topLevel []models.Comment) []CommentNode {
	nodes := make([]CommentNode, 0, len(topLevel))
	for _, c := range topLevel {
		if c.ParentCommentID != nil {
			continue
		}

		replies := make([]models.Comment, 0, len(c.Replies))
		for _, r := range c.Replies {
			if r.ParentCommentID == nil || *r.ParentCommentID != c.ID {
				continue
			}
			r.Replies = nil
			replies = append(replies, r)
		}
		sort.SliceStable(replies, func(i, j int) bool {
			if replies[i].CreatedAt.Equal(replies[j].CreatedAt) {
				return replies[i].ID < replies[j].ID
			}
			return replies[i].CreatedAt.Before(replies[j].CreatedAt)
		})

		c.Replies = nil
		nodes = append(nodes, CommentNode{Comment: c, Replies: replies})
	}
	return nodes
}

type CreateCommentInput struct {
	UserID   uint
	Content  string
	Kind     models.TargetKind
	TargetID uint
	ParentID *uint
}

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	musicRepo   repository.MusicRepository
	isAdmin     func(ctx context.Context, userID uint) (bool, error)
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	musicRepo repository.MusicRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		musicRepo:   musicRepo,
		isAdmin:     isAdmin,
	}
}

func (s *CommentService) ensureTarget(ctx context.Context, kind models.TargetKind, targetID uint) error {
	switch kind {
	case models.KindPost:
		_, err := s.postRepo.GetByID(ctx, targetID)
		return err
	case models.KindMusic:
		_, err := s.musicRepo.GetByID(ctx, targetID)
		return err
	default:
		return models.NewValidationError("Comments can target posts or music only")
	}
}

// CreateComment stores a top-level comment or a reply. A reply always takes its parent's
// target, whatever target the input names, and a reply to a reply is attached to the
// top-level comment so threads stay one level deep.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (comment *models.Comment, err error) {
	span, ctx := observability.NewSpan(ctx, "CommentService.CreateComment",
		attribute.String("kind", string(in.Kind)),
		attribute.Int64("target_id", int64(in.TargetID)),
	)
	defer span.EndWithError(&err)

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, models.NewValidationError("Content too long (max 2000 characters)")
	}

	comment = &models.Comment{Content: content, UserID: in.UserID}

	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.ParentCommentID != nil {
			if parent, err = s.commentRepo.GetByID(ctx, *parent.ParentCommentID); err != nil {
				return nil, err
			}
		}
		comment.ParentCommentID = &parent.ID
		comment.PostID = parent.PostID
		comment.MusicID = parent.MusicID
	} else {
		if err := s.ensureTarget(ctx, in.Kind, in.TargetID); err != nil {
			return nil, err
		}
		targetID := in.TargetID
		if in.Kind == models.KindPost {
			comment.PostID = &targetID
		} else {
			comment.MusicID = &targetID
		}
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListThread returns the comments on a post or music item, newest thread first.
func (s *CommentService) ListThread(ctx context.Context, kind models.TargetKind, targetID uint) ([]CommentNode, error) {
	if err := s.ensureTarget(ctx, kind, targetID); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListTopLevel(ctx, kind, targetID)
	if err != nil {
		return nil, err
	}
	return AssembleThread(comments), nil
}

// DeleteComment removes a comment on behalf of its author or an admin. Deleting a
// top-level comment removes its replies too. It returns how many comments were removed.
func (s *CommentService) DeleteComment(ctx context.Context, actorID, commentID uint) (deleted int64, err error) {
	span, ctx := observability.NewSpan(ctx, "CommentService.DeleteComment", attribute.Int64("comment_id", int64(commentID)))
	defer span.EndWithError(&err)

	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return 0, err
	}
	if comment.UserID != actorID {
		admin, err := s.isAdmin(ctx, actorID)
		if err != nil {
			return 0, err
		}
		if !admin {
			return 0, models.NewUnauthorizedError("Only the author or an admin can delete this comment")
		}
	}
	return s.commentRepo.DeleteCascade(ctx, commentID)
}
