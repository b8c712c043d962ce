package service

import (
	"context"
	"math"
	"time"

	"resonance/internal/middleware"
	"resonance/internal/models"
	"resonance/internal/notifications"
	"resonance/internal/observability"
	"resonance/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	growthWindow      = 7 * 24 * time.Hour
	defaultSeriesDays = 30
	maxSeriesDays     = 365
)

// FollowerGrowth is the trailing-week follower trend of a user.
type FollowerGrowth struct {
	Total       int64   `json:"total"`
	NewLastWeek int64   `json:"new_last_week"`
	Percent     float64 `json:"percent"`
}

// SeriesPoint counts new followers on one UTC calendar day.
type SeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// FollowStats summarizes a user's position in the graph, relative to a viewer.
type FollowStats struct {
	Followers   int64 `json:"followers"`
	Following   int64 `json:"following"`
	IsFollowing bool  `json:"is_following"`
}

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	publisher  Publisher
	now        func() time.Time
}

func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository, publisher Publisher) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		publisher:  publisher,
		now:        time.Now,
	}
}

// Follow creates the edge followerID -> followingID. Following oneself is rejected before
// anything is read or written; following twice leaves the original edge untouched.
func (s *FollowService) Follow(ctx context.Context, followerID, followingID uint) (err error) {
	span, ctx := observability.NewSpan(ctx, "FollowService.Follow",
		attribute.Int64("follower_id", int64(followerID)),
		attribute.Int64("following_id", int64(followingID)),
	)
	defer span.EndWithError(&err)

	if followerID == followingID {
		middleware.FollowOps.WithLabelValues("follow", "rejected").Inc()
		return models.NewInvalidOperationError("Cannot follow yourself")
	}
	for _, id := range []uint{followerID, followingID} {
		exists, err := s.userRepo.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return models.NewNotFoundError("User", id)
		}
	}

	created, err := retryTransient(ctx, "follow", func() (bool, error) {
		return s.followRepo.Insert(ctx, followerID, followingID)
	})
	if err != nil {
		middleware.FollowOps.WithLabelValues("follow", "error").Inc()
		return err
	}
	if !created {
		middleware.FollowOps.WithLabelValues("follow", "noop").Inc()
		return nil
	}
	middleware.FollowOps.WithLabelValues("follow", "created").Inc()

	if s.publisher != nil {
		s.publisher.PublishUser(ctx, followingID, notifications.Event{
			Type:     notifications.EventFollow,
			ActorID:  followerID,
			TargetID: followingID,
			At:       s.now().UTC(),
		})
	}
	return nil
}

// Unfollow removes the edge if present.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID uint) (err error) {
	span, ctx := observability.NewSpan(ctx, "FollowService.Unfollow")
	defer span.EndWithError(&err)

	removed, err := retryTransient(ctx, "unfollow", func() (bool, error) {
		return s.followRepo.Delete(ctx, followerID, followingID)
	})
	switch {
	case err != nil:
		middleware.FollowOps.WithLabelValues("unfollow", "error").Inc()
	case removed:
		middleware.FollowOps.WithLabelValues("unfollow", "removed").Inc()
	default:
		middleware.FollowOps.WithLabelValues("unfollow", "noop").Inc()
	}
	return err
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.followRepo.Exists(ctx, followerID, followingID)
}

func (s *FollowService) FollowerCount(ctx context.Context, userID uint) (int64, error) {
	return s.followRepo.CountFollowers(ctx, userID)
}

func (s *FollowService) FollowingCount(ctx context.Context, userID uint) (int64, error) {
	return s.followRepo.CountFollowing(ctx, userID)
}

// NewFollowerCount counts followers gained in [start, end).
func (s *FollowService) NewFollowerCount(ctx context.Context, userID uint, start, end time.Time) (int64, error) {
	if !end.After(start) {
		return 0, nil
	}
	return s.followRepo.CountFollowersInWindow(ctx, userID, start, end)
}

// Stats returns counts for userID and whether viewerID follows them.
func (s *FollowService) Stats(ctx context.Context, userID, viewerID uint) (FollowStats, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return FollowStats{}, err
	}

	var stats FollowStats
	var err error
	if stats.Followers, err = s.FollowerCount(ctx, userID); err != nil {
		return FollowStats{}, err
	}
	if stats.Following, err = s.FollowingCount(ctx, userID); err != nil {
		return FollowStats{}, err
	}
	if viewerID != 0 && viewerID != userID {
		if stats.IsFollowing, err = s.IsFollowing(ctx, viewerID, userID); err != nil {
			return FollowStats{}, err
		}
	}
	return stats, nil
}

// Followers lists users following userID, newest edge first.
func (s *FollowService) Followers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.Followers(ctx, userID, limit, offset)
}

// Following lists users userID follows, newest edge first.
func (s *FollowService) Following(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.Following(ctx, userID, limit, offset)
}

// GrowthPercent is the share of followers gained in a window relative to the followers held
// before it, rounded half up to one decimal. A user whose followers all arrived in the window
// grows 100%; a user without followers grows 0%. Scaling by 1000 once rounds the exact
// quotient: 23 new on 80 prior is 28.75, reported as 28.8.
func GrowthPercent(total, newInWindow int64) float64 {
	if total <= 0 {
		return 0
	}
	before := total - newInWindow
	if before <= 0 {
		return 100
	}
	return math.Round(float64(newInWindow)/float64(before)*1000) / 10
}

// FollowerGrowth compares the followers gained over the seven days before now with the total.
func (s *FollowService) FollowerGrowth(ctx context.Context, userID uint, now time.Time) (FollowerGrowth, error) {
	total, err := s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return FollowerGrowth{}, err
	}
	recent, err := s.NewFollowerCount(ctx, userID, now.Add(-growthWindow), now)
	if err != nil {
		return FollowerGrowth{}, err
	}
	return FollowerGrowth{
		Total:       total,
		NewLastWeek: recent,
		Percent:     GrowthPercent(total, recent),
	}, nil
}

// FollowerSeries returns one point per UTC day for the last days days, ending with the day
// containing now, oldest first. days outside [1, 365] falls back to 30 or is clamped.
func (s *FollowService) FollowerSeries(ctx context.Context, userID uint, days int, now time.Time) ([]SeriesPoint, error) {
	switch {
	case days <= 0:
		days = defaultSeriesDays
	case days > maxSeriesDays:
		days = maxSeriesDays
	}

	today := now.UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))
	end := today.AddDate(0, 0, 1)

	times, err := s.followRepo.FollowerTimes(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	points := make([]SeriesPoint, days)
	for i := range points {
		points[i].Date = start.AddDate(0, 0, i).Format(time.DateOnly)
	}
	for _, ts := range times {
		idx := int(ts.UTC().Sub(start) / (24 * time.Hour))
		if idx >= 0 && idx < days {
			points[idx].Count++
		}
	}
	return points, nil
}
