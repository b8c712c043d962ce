package service

import (
	"context"
	"log/slog"
	"time"

	"resonance/internal/cache"
	"resonance/internal/middleware"
	"resonance/internal/models"
	"resonance/internal/notifications"
	"resonance/internal/observability"
	"resonance/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// EngagementService owns every like relation and the like counters they feed.
type EngagementService struct {
	likeRepo      repository.LikeRepository
	postStatus    func(ctx context.Context, postID uint) (models.ModerationStatus, error)
	publisher     Publisher
	likeStatusTTL time.Duration
	now           func() time.Time
}

// NewEngagementService wires the like store with the moderation lookup that gates post
// likes. publisher may be nil. A non-positive likeStatusTTL disables status caching.
func NewEngagementService(
	likeRepo repository.LikeRepository,
	postStatus func(ctx context.Context, postID uint) (models.ModerationStatus, error),
	publisher Publisher,
	likeStatusTTL time.Duration,
) *EngagementService {
	return &EngagementService{
		likeRepo:      likeRepo,
		postStatus:    postStatus,
		publisher:     publisher,
		likeStatusTTL: likeStatusTTL,
		now:           time.Now,
	}
}

// ToggleLike flips the actor's like on a post, comment or music item and returns the state
// that was persisted. It is not moderation gated for any kind.
func (s *EngagementService) ToggleLike(ctx context.Context, actorID uint, kind models.TargetKind, targetID uint) (state models.LikeState, err error) {
	span, ctx := observability.NewSpan(ctx, "EngagementService.ToggleLike",
		attribute.String("kind", string(kind)),
		attribute.Int64("target_id", int64(targetID)),
	)
	defer span.EndWithError(&err)

	state, err = retryTransient(ctx, "toggle_like", func() (models.LikeState, error) {
		return s.likeRepo.Toggle(ctx, kind, actorID, targetID)
	})
	s.afterMutation(ctx, actorID, kind, targetID, state, err)
	return state, err
}

// LikePost likes an approved post. Liking an already liked post changes nothing.
func (s *EngagementService) LikePost(ctx context.Context, actorID, postID uint) (models.LikeState, error) {
	return s.setPostLike(ctx, actorID, postID, true)
}

// UnlikePost removes the actor's like from an approved post. Unliking a post that was never
// liked is not an error.
func (s *EngagementService) UnlikePost(ctx context.Context, actorID, postID uint) (models.LikeState, error) {
	return s.setPostLike(ctx, actorID, postID, false)
}

func (s *EngagementService) setPostLike(ctx context.Context, actorID, postID uint, liked bool) (state models.LikeState, err error) {
	span, ctx := observability.NewSpan(ctx, "EngagementService.SetPostLike",
		attribute.Int64("post_id", int64(postID)),
		attribute.Bool("liked", liked),
	)
	defer span.EndWithError(&err)

	status, err := s.postStatus(ctx, postID)
	if err != nil {
		return models.LikeState{}, err
	}
	switch status {
	case models.StatusApproved:
	case models.StatusRejected:
		middleware.LikeToggles.WithLabelValues(string(models.KindPost), "rejected").Inc()
		return models.LikeState{}, models.NewPolicyViolationError("Post was rejected by moderation")
	default:
		middleware.LikeToggles.WithLabelValues(string(models.KindPost), "rejected").Inc()
		return models.LikeState{}, models.NewPolicyViolationError("Post is awaiting moderation")
	}

	state, err = retryTransient(ctx, "set_post_like", func() (models.LikeState, error) {
		return s.likeRepo.Set(ctx, models.KindPost, actorID, postID, liked)
	})
	s.afterMutation(ctx, actorID, models.KindPost, postID, state, err)
	return state, err
}

// afterMutation records metrics, drops the cached status and notifies the target's owner
// of a new like.
func (s *EngagementService) afterMutation(ctx context.Context, actorID uint, kind models.TargetKind, targetID uint, state models.LikeState, err error) {
	result := "unliked"
	switch {
	case err != nil:
		result = "error"
	case !state.Changed:
		result = "noop"
	case state.Liked:
		result = "liked"
	}
	middleware.LikeToggles.WithLabelValues(string(kind), result).Inc()
	if err != nil {
		return
	}

	cache.InvalidateLikeStatus(ctx, string(kind), actorID, targetID)

	if result != "liked" || s.publisher == nil {
		return
	}
	owner, err := s.likeRepo.OwnerOf(ctx, kind, targetID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "like notification skipped",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return
	}
	if owner == 0 || owner == actorID {
		return
	}
	s.publisher.PublishUser(ctx, owner, notifications.Event{
		Type:       notifications.EventLike,
		ActorID:    actorID,
		TargetKind: string(kind),
		TargetID:   targetID,
		At:         s.now().UTC(),
	})
}

// IsLiked reports whether the actor currently likes the target. Answers are cached per
// (kind, actor, target) for likeStatusTTL and dropped by any mutation of that pair. A miss
// that read the store before a concurrent toggle committed can refill the key after the
// toggle dropped it, so a cached answer may be stale for at most likeStatusTTL. Counters
// and ToggleLike results always come from the store.
func (s *EngagementService) IsLiked(ctx context.Context, actorID uint, kind models.TargetKind, targetID uint) (bool, error) {
	if s.likeStatusTTL <= 0 {
		return s.likeRepo.IsLiked(ctx, kind, actorID, targetID)
	}

	var liked bool
	_, err := cache.Aside(ctx, cache.LikeStatusKey(string(kind), actorID, targetID), &liked, s.likeStatusTTL, func() error {
		var err error
		liked, err = s.likeRepo.IsLiked(ctx, kind, actorID, targetID)
		return err
	})
	return liked, err
}

// LikeSummary returns the actor's like state together with the target's counter.
func (s *EngagementService) LikeSummary(ctx context.Context, actorID uint, kind models.TargetKind, targetID uint) (models.LikeState, error) {
	count, err := s.likeRepo.LikeCount(ctx, kind, targetID)
	if err != nil {
		return models.LikeState{}, err
	}
	liked, err := s.IsLiked(ctx, actorID, kind, targetID)
	if err != nil {
		return models.LikeState{}, err
	}
	return models.LikeState{Liked: liked, LikeCount: count}, nil
}
