package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LikeToggles counts like operations by target kind and outcome (liked, unliked, error).
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resonance_like_toggles_total",
		Help: "Total number of like toggles by target kind and result",
	}, []string{"kind", "result"})

	// FollowOps counts follow graph mutations by operation and outcome.
	FollowOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resonance_follow_ops_total",
		Help: "Total number of follow and unfollow operations by result",
	}, []string{"op", "result"})

	// StoreRetries counts read-modify-write sequences retried after a transient store error.
	StoreRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resonance_store_retries_total",
		Help: "Total number of retried store operations",
	}, []string{"operation"})

	// RecommendationCache counts recommendation cache hits and misses.
	RecommendationCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resonance_recommendation_cache_total",
		Help: "Recommendation cache lookups by result",
	}, []string{"result"})

	// RecommendationSize observes the number of items returned per recommendation.
	RecommendationSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "resonance_recommendation_size",
		Help:    "Number of items in a composed recommendation",
		Buckets: []float64{0, 1, 5, 10, 15, 20},
	})

	// RedisErrors counts Redis command failures other than cache misses.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resonance_redis_errors_total",
		Help: "Total number of Redis command errors",
	}, []string{"command"})
)

var (
	httpMetricsOnce sync.Once
	httpMetrics     *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the HTTP metrics collector for the named service. The collector
// registers with the default registry, so it is created once per process.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	httpMetricsOnce.Do(func() {
		httpMetrics = fiberprometheus.New(serviceName)
	})
	return httpMetrics
}

// MetricsMiddleware registers the /metrics endpoint and returns the request instrumentation handler.
func MetricsMiddleware(app *fiber.App, prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	prom.RegisterAt(app, "/metrics")
	return prom.Middleware
}
