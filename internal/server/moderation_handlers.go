package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// GetPendingPosts handles GET /api/admin/posts/pending
func (s *Server) GetPendingPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	posts, err := s.moderation.PendingPosts(c.UserContext(), currentUser(c), page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(posts)
}

func (s *Server) ApprovePost(c *fiber.Ctx) error {
	return s.review(c, "approved", s.moderation.ApprovePost)
}

func (s *Server) RejectPost(c *fiber.Ctx) error {
	return s.review(c, "rejected", s.moderation.RejectPost)
}

func (s *Server) ApproveMusic(c *fiber.Ctx) error {
	return s.review(c, "approved", s.moderation.ApproveMusic)
}

func (s *Server) RejectMusic(c *fiber.Ctx) error {
	return s.review(c, "rejected", s.moderation.RejectMusic)
}

func (s *Server) review(c *fiber.Ctx, status string, decide func(ctx context.Context, adminID, id uint) error) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}
	if err := decide(c.UserContext(), currentUser(c), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "status": status})
}
