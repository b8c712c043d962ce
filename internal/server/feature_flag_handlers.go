package server

import (
	"resonance/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyFeatureFlags handles GET /api/me/features
func (s *Server) GetMyFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"flags": s.featureFlags.Snapshot(currentUser(c)),
	})
}

// GetFeatureFlags handles GET /api/admin/feature-flags, showing the flags as they apply to
// the requesting admin.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	admin, err := s.users.IsAdmin(c.UserContext(), currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	if !admin {
		return fail(c, models.NewUnauthorizedError("Admin access required"))
	}
	return c.JSON(fiber.Map{
		"flags": s.featureFlags.Snapshot(currentUser(c)),
	})
}
