// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"resonance/internal/cache"
	"resonance/internal/config"
	"resonance/internal/database"
	"resonance/internal/featureflags"
	"resonance/internal/middleware"
	"resonance/internal/models"
	"resonance/internal/notifications"
	"resonance/internal/repository"
	"resonance/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	notifier       *notifications.Notifier
	featureFlags   *featureflags.Manager
	users          repository.UserRepository

	engagement      *service.EngagementService
	follows         *service.FollowService
	recommendations *service.RecommendationService
	comments        *service.CommentService
	moderation      *service.ModerationService
	plays           *service.PlayService
}

// NewServer connects the database and Redis described by cfg and wires the services.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies. redisClient
// may be nil, which disables caching, rate limiting and notifications.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	musicRepo := repository.NewMusicRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	followRepo := repository.NewFollowRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	playRepo := repository.NewPlayRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("resonance-api"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		users:          userRepo,
	}

	var publisher service.Publisher
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient, notifications.DefaultBreakerConfig)
		publisher = s.notifier
	}

	s.moderation = service.NewModerationService(postRepo, musicRepo, userRepo)
	s.engagement = service.NewEngagementService(likeRepo, s.moderation.PostStatus, publisher, cfg.LikeStatusTTL)
	s.follows = service.NewFollowService(followRepo, userRepo, publisher)
	s.comments = service.NewCommentService(commentRepo, postRepo, musicRepo, userRepo.IsAdmin)
	s.plays = service.NewPlayService(playRepo, musicRepo)

	rng := service.NewRandomizer(time.Now().UnixNano())
	s.recommendations = service.NewRecommendationService(
		service.NewGenreAffinitySource(playRepo, musicRepo, rng),
		service.NewRandomSampleSource(musicRepo, rng),
		rng,
		cfg.RecommendationCacheTTL,
	).WithCoLike(service.NewCoLikeSource(likeRepo, musicRepo), s.featureFlags)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Context middleware runs after request id and tracing so the logger sees both.
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.StructuredLogger())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(app, s.promMiddleware))
	}

	app.Use(helmet.New())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health", s.ReadinessCheck)

	api := app.Group("/api")
	api.Get("/health", s.ReadinessCheck)

	// Threads are readable without a token.
	api.Get("/posts/:id/comments", s.GetPostComments)
	api.Get("/music/:id/comments", s.GetMusicComments)

	protected := api.Group("", middleware.AuthRequired(s.config.JWTSecret))

	likes := protected.Group("/likes")
	likes.Post("/:kind/:id", middleware.RateLimit(s.redis, 60, time.Minute, "like"), s.ToggleLike)
	likes.Get("/:kind/:id", s.GetLikeStatus)

	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(s.redis, 10, 5*time.Minute, "create_post"), s.SubmitPost)
	posts.Post("/:id/like", middleware.RateLimit(s.redis, 60, time.Minute, "like"), s.LikePost)
	posts.Delete("/:id/like", s.UnlikePost)
	posts.Post("/:id/comments", middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreatePostComment)

	music := protected.Group("/music")
	music.Post("/:id/play", s.RecordPlay)
	music.Post("/:id/comments", middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateMusicComment)

	protected.Delete("/comments/:id", s.DeleteComment)

	// Define specific /:id/:resource routes; there is no generic /users/:id here.
	users := protected.Group("/users")
	users.Post("/:id/follow", middleware.RateLimit(s.redis, 30, time.Minute, "follow"), s.Follow)
	users.Delete("/:id/follow", s.Unfollow)
	users.Get("/:id/followers", s.GetFollowers)
	users.Get("/:id/following", s.GetFollowing)
	users.Get("/:id/follow-stats", s.GetFollowStats)

	me := protected.Group("/me")
	me.Get("/follower-growth", s.GetFollowerGrowth)
	me.Get("/genres", s.GetFavoriteGenres)
	me.Get("/features", s.GetMyFeatureFlags)

	recs := protected.Group("/recommendations")
	recs.Get("/", s.GetRecommendations)
	recs.Delete("/cache", s.EvictRecommendations)

	admin := protected.Group("/admin")
	admin.Get("/posts/pending", s.GetPendingPosts)
	admin.Post("/posts/:id/approve", s.ApprovePost)
	admin.Post("/posts/:id/reject", s.RejectPost)
	admin.Post("/music/:id/approve", s.ApproveMusic)
	admin.Post("/music/:id/reject", s.RejectMusic)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness check requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck pings the database and, when configured, Redis. Redis is optional, so a
// missing client is reported but does not fail the check.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	checks := fiber.Map{
		"database": dbStatus,
		"redis":    redisStatus,
	}
	if s.notifier != nil {
		checks["notifications"] = s.notifier.State()
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": checks,
		"time":   time.Now().UTC(),
	})
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Resonance API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: models.CodeInternal})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start builds the app and blocks serving on the configured port.
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
