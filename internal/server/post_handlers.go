package server

import (
	"github.com/gofiber/fiber/v2"
)

// SubmitPost handles POST /api/posts. The post waits for review unless the author is an admin.
func (s *Server) SubmitPost(c *fiber.Ctx) error {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	post, err := s.moderation.SubmitPost(c.UserContext(), currentUser(c), req.Content)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// LikePost handles POST /api/posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}

	state, err := s.engagement.LikePost(c.UserContext(), currentUser(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(state)
}

// UnlikePost handles DELETE /api/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}

	state, err := s.engagement.UnlikePost(c.UserContext(), currentUser(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(state)
}
