// Command seed fills the configured database with fake users, music and engagement.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"resonance/internal/config"
	"resonance/internal/database"
	"resonance/internal/middleware"
	"resonance/internal/seed"
)

func main() {
	opts := seed.DefaultOptions
	flag.IntVar(&opts.Users, "users", opts.Users, "Number of users to create")
	flag.IntVar(&opts.Music, "music", opts.Music, "Number of music items to create")
	flag.IntVar(&opts.Posts, "posts", opts.Posts, "Number of posts to create")
	flag.IntVar(&opts.PlaysPerUser, "plays", opts.PlaysPerUser, "Plays recorded per user")
	flag.IntVar(&opts.LikesPerUser, "likes", opts.LikesPerUser, "Music likes per user (half as many post likes)")
	flag.IntVar(&opts.FollowsPerUser, "follows", opts.FollowsPerUser, "Follows per user")
	flag.IntVar(&opts.PendingEvery, "pending-every", opts.PendingEvery, "Leave every n-th post and track unreviewed (0 approves all)")
	flag.Int64Var(&opts.Seed, "seed", opts.Seed, "Random seed")
	flag.BoolVar(&opts.Clean, "clean", opts.Clean, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		middleware.Logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		middleware.Logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		middleware.Logger.Error("migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if _, err := seed.NewSeeder(db, opts).Run(context.Background()); err != nil {
		middleware.Logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
