// Command reconcile recomputes like counters from relation rows. Without -fix it only
// reports drift and exits non-zero when any is found.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"resonance/internal/config"
	"resonance/internal/database"
	"resonance/internal/middleware"
	"resonance/internal/repository"
	"resonance/internal/service"
)

func main() {
	fix := flag.Bool("fix", false, "Rewrite drifted counters")
	timeout := flag.Duration("timeout", 5*time.Minute, "Abort after this long")
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	report, err := service.NewReconcileService(repository.NewLikeRepository(db)).Run(ctx, *fix)
	if err != nil {
		middleware.Logger.Error("reconcile failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	if len(report.Drift) > 0 && !*fix {
		os.Exit(2)
	}
}
