package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Follow handles POST /api/users/:id/follow
func (s *Server) Follow(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}
	if err := s.follows.Follow(c.UserContext(), currentUser(c), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"following": true})
}

// Unfollow handles DELETE /api/users/:id/follow
func (s *Server) Unfollow(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}
	if err := s.follows.Unfollow(c.UserContext(), currentUser(c), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"following": false})
}

// GetFollowers handles GET /api/users/:id/followers
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)
	users, err := s.follows.Followers(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

// GetFollowing handles GET /api/users/:id/following
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)
	users, err := s.follows.Following(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

// GetFollowStats handles GET /api/users/:id/follow-stats
func (s *Server) GetFollowStats(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return nil
	}
	stats, err := s.follows.Stats(c.UserContext(), id, currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(stats)
}

// GetFollowerGrowth handles GET /api/me/follower-growth?days=N
func (s *Server) GetFollowerGrowth(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUser(c)
	now := time.Now().UTC()

	growth, err := s.follows.FollowerGrowth(ctx, userID, now)
	if err != nil {
		return fail(c, err)
	}
	series, err := s.follows.FollowerSeries(ctx, userID, c.QueryInt("days", 0), now)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"total":         growth.Total,
		"new_last_week": growth.NewLastWeek,
		"percent":       growth.Percent,
		"series":        series,
	})
}
