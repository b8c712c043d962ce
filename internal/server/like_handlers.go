package server

import (
	"github.com/gofiber/fiber/v2"
)

// ToggleLike handles POST /api/likes/:kind/:id
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	kind, err := parseKind(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c)
	if err != nil {
		return nil
	}

	state, err := s.engagement.ToggleLike(c.UserContext(), currentUser(c), kind, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(state)
}

// GetLikeStatus handles GET /api/likes/:kind/:id
func (s *Server) GetLikeStatus(c *fiber.Ctx) error {
	kind, err := parseKind(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c)
	if err != nil {
		return nil
	}

	state, err := s.engagement.LikeSummary(c.UserContext(), currentUser(c), kind, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(state)
}
