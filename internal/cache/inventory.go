package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	LikeStatusKeyPrefix     = "like:%s:%d:%d"
	RecommendationKeyPrefix = "recommend:user:%d"
)

const (
	DefaultLikeStatusTTL     = time.Minute
	DefaultRecommendationTTL = 10 * time.Minute
)

// LikeStatusKey is keyed by target kind, actor and target.
func LikeStatusKey(kind string, userID, targetID uint) string {
	return fmt.Sprintf(LikeStatusKeyPrefix, kind, userID, targetID)
}

func RecommendationKey(userID uint) string {
	return fmt.Sprintf(RecommendationKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateLikeStatus(ctx context.Context, kind string, userID, targetID uint) {
	Invalidate(ctx, LikeStatusKey(kind, userID, targetID))
}

func InvalidateRecommendations(ctx context.Context, userID uint) {
	Invalidate(ctx, RecommendationKey(userID))
}
