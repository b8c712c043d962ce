package service

import (
	"context"
	"log/slog"

	"resonance/internal/middleware"
	"resonance/internal/models"
	"resonance/internal/repository"
)

// ReconcileReport lists the counters found out of step with their relation rows.
type ReconcileReport struct {
	Drift []repository.Drift `json:"drift"`
	Fixed int64              `json:"fixed"`
}

// ReconcileService recomputes like counters from relation rows, repairing drift left by
// failures outside the toggle transaction.
type ReconcileService struct {
	likeRepo repository.LikeRepository
}

func NewReconcileService(likeRepo repository.LikeRepository) *ReconcileService {
	return &ReconcileService{likeRepo: likeRepo}
}

// Run inspects every like target kind. With fix set, drifted counters are rewritten.
func (s *ReconcileService) Run(ctx context.Context, fix bool) (ReconcileReport, error) {
	var report ReconcileReport
	for _, kind := range []models.TargetKind{models.KindPost, models.KindComment, models.KindMusic} {
		drift, err := s.likeRepo.FindDrift(ctx, kind)
		if err != nil {
			return report, err
		}
		report.Drift = append(report.Drift, drift...)
		if !fix || len(drift) == 0 {
			continue
		}

		fixed, err := s.likeRepo.Reconcile(ctx, kind)
		if err != nil {
			return report, err
		}
		report.Fixed += fixed
		middleware.Logger.InfoContext(ctx, "like counters reconciled",
			slog.String("kind", string(kind)),
			slog.Int64("fixed", fixed),
		)
	}
	return report, nil
}
