// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"fmt"

	"resonance/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// likeTable describes where likes of one target kind live.
type likeTable struct {
	resource string
	relation string
	column   string
	content  string
	owner    string
	newRow   func(userID, targetID uint) any
}

var likeTables = map[models.TargetKind]likeTable{
	models.KindPost: {
		resource: "Post",
		relation: "post_likes",
		column:   "post_id",
		content:  "posts",
		owner:    "user_id",
		newRow:   func(u, t uint) any { return &models.PostLike{UserID: u, PostID: t} },
	},
	models.KindComment: {
		resource: "Comment",
		relation: "comment_likes",
		column:   "comment_id",
		content:  "comments",
		owner:    "user_id",
		newRow:   func(u, t uint) any { return &models.CommentLike{UserID: u, CommentID: t} },
	},
	models.KindMusic: {
		resource: "Music",
		relation: "music_likes",
		column:   "music_id",
		content:  "music",
		owner:    "musician_id",
		newRow:   func(u, t uint) any { return &models.MusicLike{UserID: u, MusicID: t} },
	},
}

func tableFor(kind models.TargetKind) (likeTable, error) {
	t, ok := likeTables[kind]
	if !ok {
		return likeTable{}, models.NewValidationError(fmt.Sprintf("unsupported like target %q", kind))
	}
	return t, nil
}

// Drift is a content row whose like_count disagrees with its relation rows.
type Drift struct {
	Kind      models.TargetKind `json:"kind"`
	ID        uint              `json:"id"`
	LikeCount int64             `json:"like_count"`
	Actual    int64             `json:"actual"`
}

// LikeRepository owns the like relation tables and the like_count column of every content table.
type LikeRepository interface {
	Toggle(ctx context.Context, kind models.TargetKind, userID, targetID uint) (models.LikeState, error)
	Set(ctx context.Context, kind models.TargetKind, userID, targetID uint, liked bool) (models.LikeState, error)
	IsLiked(ctx context.Context, kind models.TargetKind, userID, targetID uint) (bool, error)
	LikeCount(ctx context.Context, kind models.TargetKind, targetID uint) (int64, error)
	CountByTarget(ctx context.Context, kind models.TargetKind, targetID uint) (int64, error)
	CountByActor(ctx context.Context, kind models.TargetKind, userID uint) (int64, error)
	OwnerOf(ctx context.Context, kind models.TargetKind, targetID uint) (uint, error)
	CoLikedMusicIDs(ctx context.Context, userID uint, limit int) ([]uint, error)
	FindDrift(ctx context.Context, kind models.TargetKind) ([]Drift, error)
	Reconcile(ctx context.Context, kind models.TargetKind) (int64, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Toggle flips the (userID, targetID) relation. The relation row and the counter change
// commit together; the counter moves only when a row was actually inserted or deleted.
func (r *likeRepository) Toggle(ctx context.Context, kind models.TargetKind, userID, targetID uint) (models.LikeState, error) {
	return r.mutate(ctx, kind, userID, targetID, func(liked bool) bool { return !liked })
}

// Set drives the relation to liked. It is a no-op when the relation is already in that state.
func (r *likeRepository) Set(ctx context.Context, kind models.TargetKind, userID, targetID uint, liked bool) (models.LikeState, error) {
	return r.mutate(ctx, kind, userID, targetID, func(bool) bool { return liked })
}

func (r *likeRepository) mutate(ctx context.Context, kind models.TargetKind, userID, targetID uint, next func(liked bool) bool) (models.LikeState, error) {
	t, err := tableFor(kind)
	if err != nil {
		return models.LikeState{}, err
	}

	var state models.LikeState
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var targets int64
		if err := tx.Table(t.content).Where("id = ?", targetID).Count(&targets).Error; err != nil {
			return err
		}
		if targets == 0 {
			return models.NewNotFoundError(t.resource, targetID)
		}

		var existing int64
		if err := tx.Table(t.relation).
			Where("user_id = ? AND "+t.column+" = ?", userID, targetID).
			Count(&existing).Error; err != nil {
			return err
		}

		liked := existing > 0
		want := next(liked)

		switch {
		case want && !liked:
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(t.newRow(userID, targetID))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				state.Changed = true
				if err := tx.Table(t.content).Where("id = ?", targetID).
					UpdateColumn("like_count", gorm.Expr("like_count + ?", 1)).Error; err != nil {
					return err
				}
			}
		case !want && liked:
			res := tx.Table(t.relation).
				Where("user_id = ? AND "+t.column+" = ?", userID, targetID).
				Delete(t.newRow(0, 0))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				state.Changed = true
				if err := tx.Table(t.content).Where("id = ?", targetID).
					UpdateColumn("like_count", gorm.Expr("CASE WHEN like_count > 0 THEN like_count - 1 ELSE 0 END")).Error; err != nil {
					return err
				}
			}
		}

		// A concurrent writer may have done our insert or delete first; either way the
		// relation now matches want.
		state.Liked = want
		return tx.Table(t.content).Select("like_count").Where("id = ?", targetID).Scan(&state.LikeCount).Error
	})
	if err != nil {
		return models.LikeState{}, err
	}
	return state, nil
}

func (r *likeRepository) IsLiked(ctx context.Context, kind models.TargetKind, userID, targetID uint) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Table(t.relation).
		Where("user_id = ? AND "+t.column+" = ?", userID, targetID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// LikeCount reads the denormalized counter of the target.
func (r *likeRepository) LikeCount(ctx context.Context, kind models.TargetKind, targetID uint) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var counts []int64
	if err := r.db.WithContext(ctx).Table(t.content).Where("id = ?", targetID).Pluck("like_count", &counts).Error; err != nil {
		return 0, err
	}
	if len(counts) == 0 {
		return 0, models.NewNotFoundError(t.resource, targetID)
	}
	return counts[0], nil
}

func (r *likeRepository) CountByTarget(ctx context.Context, kind models.TargetKind, targetID uint) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.db.WithContext(ctx).Table(t.relation).Where(t.column+" = ?", targetID).Count(&count).Error
	return count, err
}

func (r *likeRepository) CountByActor(ctx context.Context, kind models.TargetKind, userID uint) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.db.WithContext(ctx).Table(t.relation).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// OwnerOf returns the user who authored the target, or 0 when it has none (music
// without a musician account).
func (r *likeRepository) OwnerOf(ctx context.Context, kind models.TargetKind, targetID uint) (uint, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var owners []uint
	if err := r.db.WithContext(ctx).
		Table(t.content).
		Where("id = ?", targetID).
		Pluck(fmt.Sprintf("COALESCE(%s, 0)", t.owner), &owners).Error; err != nil {
		return 0, err
	}
	if len(owners) == 0 {
		return 0, models.NewNotFoundError(t.resource, targetID)
	}
	return owners[0], nil
}

// CoLikedMusicIDs returns approved music liked by users who share at least one music like
// with userID, excluding what userID already likes, most shared first.
func (r *likeRepository) CoLikedMusicIDs(ctx context.Context, userID uint, limit int) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Raw(`
		SELECT other.music_id
		FROM music_likes mine
		JOIN music_likes peer ON peer.music_id = mine.music_id AND peer.user_id <> mine.user_id
		JOIN music_likes other ON other.user_id = peer.user_id
		JOIN music m ON m.id = other.music_id AND m.status = ?
		WHERE mine.user_id = ?
		  AND other.music_id NOT IN (SELECT music_id FROM music_likes WHERE user_id = ?)
		GROUP BY other.music_id
		ORDER BY COUNT(*) DESC, other.music_id
		LIMIT ?`,
		models.StatusApproved, userID, userID, limit,
	).Scan(&ids).Error
	return ids, err
}

func (r *likeRepository) actualCountExpr(t likeTable) string {
	return fmt.Sprintf("(SELECT COUNT(*) FROM %s WHERE %s.%s = %s.id)", t.relation, t.relation, t.column, t.content)
}

// FindDrift lists content rows of kind whose like_count differs from their relation rows.
func (r *likeRepository) FindDrift(ctx context.Context, kind models.TargetKind) ([]Drift, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	actual := r.actualCountExpr(t)

	var drift []Drift
	err = r.db.WithContext(ctx).
		Table(t.content).
		Select(fmt.Sprintf("id, like_count, %s AS actual", actual)).
		Where(fmt.Sprintf("like_count <> %s", actual)).
		Order("id").
		Scan(&drift).Error
	if err != nil {
		return nil, err
	}
	for i := range drift {
		drift[i].Kind = kind
	}
	return drift, nil
}

// Reconcile rewrites like_count from the relation rows for every drifted row of kind.
func (r *likeRepository) Reconcile(ctx context.Context, kind models.TargetKind) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	actual := r.actualCountExpr(t)

	res := r.db.WithContext(ctx).Exec(fmt.Sprintf(
		"UPDATE %s SET like_count = %s WHERE like_count <> %s", t.content, actual, actual,
	))
	return res.RowsAffected, res.Error
}
