package service

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"resonance/internal/cache"
	"resonance/internal/featureflags"
	"resonance/internal/middleware"
	"resonance/internal/models"
	"resonance/internal/observability"
	"resonance/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

const (
	// MaxRecommendations bounds every composed result.
	MaxRecommendations = 20
	sourceLimit        = 10
)

// Randomizer shuffles candidate lists. Production uses NewRandomizer; tests inject a
// seeded one.
type Randomizer interface {
	Shuffle(n int, swap func(i, j int))
}

// lockedRand makes a *rand.Rand safe for concurrent requests.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomizer returns a goroutine-safe Randomizer seeded with seed.
func NewRandomizer(seed int64) Randomizer {
	return &lockedRand{rng: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rng.Shuffle(n, swap)
}

// CandidateSource proposes music for a user. Implementations may return unapproved or
// duplicate items; the composer filters them.
type CandidateSource interface {
	Name() string
	Candidates(ctx context.Context, userID uint) ([]models.Music, error)
}

// sampleApproved shuffles ids, keeps up to limit and loads them in shuffled order.
func sampleApproved(ctx context.Context, music repository.MusicRepository, rng Randomizer, ids []uint, limit int) ([]models.Music, error) {
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	if len(ids) > limit {
		ids = ids[:limit]
	}

	loaded, err := music.GetApprovedByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Music, len(loaded))
	for _, m := range loaded {
		byID[m.ID] = m
	}
	out := make([]models.Music, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// GenreAffinitySource picks approved music from the user's most played genre. Users
// without play history get the global popularity list instead.
type GenreAffinitySource struct {
	plays repository.PlayRepository
	music repository.MusicRepository
	rng   Randomizer
}

func NewGenreAffinitySource(plays repository.PlayRepository, music repository.MusicRepository, rng Randomizer) *GenreAffinitySource {
	return &GenreAffinitySource{plays: plays, music: music, rng: rng}
}

func (g *GenreAffinitySource) Name() string { return "genre_affinity" }

func (g *GenreAffinitySource) Candidates(ctx context.Context, userID uint) ([]models.Music, error) {
	genres, err := g.plays.FavoriteGenres(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(genres) == 0 {
		return g.music.Popular(ctx, MaxRecommendations)
	}

	top := genres[0].Genre
	if strings.TrimSpace(top) == "" {
		return nil, nil
	}
	ids, err := g.music.ApprovedIDsByGenre(ctx, top)
	if err != nil {
		return nil, err
	}
	return sampleApproved(ctx, g.music, g.rng, ids, sourceLimit)
}

// RandomSampleSource draws uniformly from the approved catalog. It stands in for
// collaborative filtering.
type RandomSampleSource struct {
	music repository.MusicRepository
	rng   Randomizer
}

func NewRandomSampleSource(music repository.MusicRepository, rng Randomizer) *RandomSampleSource {
	return &RandomSampleSource{music: music, rng: rng}
}

func (r *RandomSampleSource) Name() string { return "random_sample" }

func (r *RandomSampleSource) Candidates(ctx context.Context, _ uint) ([]models.Music, error) {
	ids, err := r.music.ApprovedIDs(ctx)
	if err != nil {
		return nil, err
	}
	return sampleApproved(ctx, r.music, r.rng, ids, sourceLimit)
}

// CoLikeSource proposes music liked by users who share music likes with the user.
type CoLikeSource struct {
	likes repository.LikeRepository
	music repository.MusicRepository
}

func NewCoLikeSource(likes repository.LikeRepository, music repository.MusicRepository) *CoLikeSource {
	return &CoLikeSource{likes: likes, music: music}
}

func (c *CoLikeSource) Name() string { return "colike" }

func (c *CoLikeSource) Candidates(ctx context.Context, userID uint) ([]models.Music, error) {
	ids, err := c.likes.CoLikedMusicIDs(ctx, userID, sourceLimit)
	if err != nil {
		return nil, err
	}
	return c.music.GetApprovedByIDs(ctx, ids)
}

// Compose unions candidate lists by ID, keeps approved items only, shuffles and truncates
// to MaxRecommendations.
func Compose(rng Randomizer, lists ...[]models.Music) []models.Music {
	seen := make(map[uint]struct{})
	out := make([]models.Music, 0, MaxRecommendations)
	for _, list := range lists {
		for _, m := range list {
			if m.Status != models.StatusApproved {
				continue
			}
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}

	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if len(out) > MaxRecommendations {
		out = out[:MaxRecommendations]
	}
	return out
}

// RecommendationService blends a content source with a collaborative source and caches
// the result per user.
type RecommendationService struct {
	content       CandidateSource
	collaborative CandidateSource
	coLike        CandidateSource
	flags         *featureflags.Manager
	rng           Randomizer
	ttl           time.Duration
	group         singleflight.Group
}

// NewRecommendationService caches results for ttl when Redis is configured. A non-positive
// ttl computes on every call.
func NewRecommendationService(content, collaborative CandidateSource, rng Randomizer, ttl time.Duration) *RecommendationService {
	return &RecommendationService{
		content:       content,
		collaborative: collaborative,
		rng:           rng,
		ttl:           ttl,
	}
}

// WithCoLike uses src instead of the collaborative source for users the
// colike_recommendations flag selects.
func (s *RecommendationService) WithCoLike(src CandidateSource, flags *featureflags.Manager) *RecommendationService {
	s.coLike = src
	s.flags = flags
	return s
}

// Recommend returns at most MaxRecommendations distinct approved items in random order.
// Concurrent misses for one user share a single computation.
func (s *RecommendationService) Recommend(ctx context.Context, userID uint) (items []models.Music, err error) {
	span, ctx := observability.NewSpan(ctx, "RecommendationService.Recommend", attribute.Int64("user_id", int64(userID)))
	defer span.EndWithError(&err)

	v, err, shared := s.group.Do(strconv.FormatUint(uint64(userID), 10), func() (any, error) {
		// Waiters share this result, so one caller's cancellation must not fail the others.
		ctx := context.WithoutCancel(ctx)
		if s.ttl <= 0 || cache.GetClient() == nil {
			return s.compose(ctx, userID)
		}

		var cached []models.Music
		hit, err := cache.Aside(ctx, cache.RecommendationKey(userID), &cached, s.ttl, func() error {
			var err error
			cached, err = s.compose(ctx, userID)
			return err
		})
		if hit {
			middleware.RecommendationCache.WithLabelValues("hit").Inc()
		} else {
			middleware.RecommendationCache.WithLabelValues("miss").Inc()
		}
		return cached, err
	})
	if err != nil {
		return nil, err
	}

	items = v.([]models.Music)
	if shared {
		items = append([]models.Music(nil), items...)
	}
	span.AddAttributes(attribute.Int("size", len(items)), attribute.Bool("shared", shared))
	middleware.RecommendationSize.Observe(float64(len(items)))
	return items, nil
}

func (s *RecommendationService) compose(ctx context.Context, userID uint) ([]models.Music, error) {
	primary, err := s.content.Candidates(ctx, userID)
	if err != nil {
		return nil, err
	}

	var secondary []models.Music
	if s.coLike != nil && s.flags.Enabled(featureflags.CoLikeRecommendations, userID) {
		if secondary, err = s.coLike.Candidates(ctx, userID); err != nil {
			return nil, err
		}
	}
	// Users without co-likes fall back to the collaborative placeholder.
	if len(secondary) == 0 {
		if secondary, err = s.collaborative.Candidates(ctx, userID); err != nil {
			return nil, err
		}
	}

	return Compose(s.rng, primary, secondary), nil
}

// Evict drops the cached recommendations of userID.
func (s *RecommendationService) Evict(ctx context.Context, userID uint) {
	cache.InvalidateRecommendations(ctx, userID)
}
