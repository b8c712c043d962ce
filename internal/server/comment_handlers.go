package server

import (
	"resonance/internal/models"
	"resonance/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createCommentRequest struct {
	Content  string `json:"content"`
	ParentID *uint  `json:"parent_id,omitempty"`
}

// GetPostComments handles GET /api/posts/:id/comments
func (s *Server) GetPostComments(c *fiber.Ctx) error {
	return s.listThread(c, models.KindPost)
}

// GetMusicComments handles GET /api/music/:id/comments
func (s *Server) GetMusicComments(c *fiber.Ctx) error {
	return s.listThread(c, models.KindMusic)
}

// CreatePostComment handles POST /api/posts/:id/comments
func (s *Server) CreatePostComment(c *fiber.Ctx) error {
	return s.createComment(c, models.KindPost)
}

// CreateMusicComment handles POST /api/music/:id/comments
func (s *Server) CreateMusicComment(c *fiber.Ctx) error {
	return s.createComment(c, models.KindMusic)
}

func (s *Server) listThread(c *fiber.Ctx, kind models.TargetKind) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}
	thread, err := s.comments.ListThread(c.UserContext(), kind, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(thread)
}

func (s *Server) createComment(c *fiber.Ctx, kind models.TargetKind) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}
	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	comment, err := s.comments.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:   currentUser(c),
		Content:  req.Content,
		Kind:     kind,
		TargetID: id,
		ParentID: req.ParentID,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}
	deleted, err := s.comments.DeleteComment(c.UserContext(), currentUser(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}
