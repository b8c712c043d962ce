package service

import (
	"context"
	"time"

	"resonance/internal/models"
	"resonance/internal/repository"
)

// PlayService records playback, which feeds genre affinity.
type PlayService struct {
	playRepo  repository.PlayRepository
	musicRepo repository.MusicRepository
	now       func() time.Time
}

func NewPlayService(playRepo repository.PlayRepository, musicRepo repository.MusicRepository) *PlayService {
	return &PlayService{playRepo: playRepo, musicRepo: musicRepo, now: time.Now}
}

// RecordPlay stores one play of an approved music item.
func (s *PlayService) RecordPlay(ctx context.Context, userID, musicID uint) error {
	music, err := s.musicRepo.GetByID(ctx, musicID)
	if err != nil {
		return err
	}
	if music.Status != models.StatusApproved {
		return models.NewPolicyViolationError("Music is not available for playback")
	}
	return s.playRepo.Record(ctx, userID, musicID, s.now().UTC())
}

// FavoriteGenres returns the user's play history grouped by genre, most played first.
func (s *PlayService) FavoriteGenres(ctx context.Context, userID uint) ([]models.GenreCount, error) {
	return s.playRepo.FavoriteGenres(ctx, userID)
}
