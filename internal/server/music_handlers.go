package server

import (
	"github.com/gofiber/fiber/v2"
)

// RecordPlay handles POST /api/music/:id/play
func (s *Server) RecordPlay(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}
	if err := s.plays.RecordPlay(c.UserContext(), currentUser(c), id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetFavoriteGenres handles GET /api/me/genres
func (s *Server) GetFavoriteGenres(c *fiber.Ctx) error {
	genres, err := s.plays.FavoriteGenres(c.UserContext(), currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(genres)
}

// GetRecommendations handles GET /api/recommendations
func (s *Server) GetRecommendations(c *fiber.Ctx) error {
	items, err := s.recommendations.Recommend(c.UserContext(), currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(items)
}

// EvictRecommendations handles DELETE /api/recommendations/cache
func (s *Server) EvictRecommendations(c *fiber.Ctx) error {
	s.recommendations.Evict(c.UserContext(), currentUser(c))
	return c.SendStatus(fiber.StatusNoContent)
}
