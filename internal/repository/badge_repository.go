package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/connectthrive/community-engine/internal/models"
)

// BadgeRepository handles badge catalog and per-user badge state.
type BadgeRepository struct {
	db *DB
}

// NewBadgeRepository creates a new badge repository.
func NewBadgeRepository(db *DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// UpsertCatalog seeds or refreshes the static catalog entries. Called once
// at process start with the loaded catalog file.
func (r *BadgeRepository) UpsertCatalog(ctx context.Context, badges []models.Badge) error {
	for i := range badges {
		badge := badges[i]
		var existing models.Badge
		err := r.db.WithContext(ctx).First(&existing, "id = ?", badge.ID).Error
		switch {
		case err == nil:
			badge.CreatedAt = existing.CreatedAt
			if err := r.db.WithContext(ctx).Save(&badge).Error; err != nil {
				return fmt.Errorf("failed to update badge %s: %w", badge.ID, translateError(err))
			}
		case errors.Is(translateError(err), models.ErrNotFound):
			if err := r.db.WithContext(ctx).Create(&badge).Error; err != nil {
				return fmt.Errorf("failed to create badge %s: %w", badge.ID, translateError(err))
			}
		default:
			return fmt.Errorf("failed to look up badge %s: %w", badge.ID, translateError(err))
		}
	}
	return nil
}

// GetAll retrieves the catalog ordered by ascending threshold.
func (r *BadgeRepository) GetAll(ctx context.Context) ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.WithContext(ctx).Order("points_required ASC, id ASC").Find(&badges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", translateError(err))
	}
	return badges, nil
}

// GetByID retrieves a badge by its ID.
func (r *BadgeRepository) GetByID(ctx context.Context, id string) (*models.Badge, error) {
	var badge models.Badge
	if err := r.db.WithContext(ctx).First(&badge, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get badge %s: %w", id, translateError(err))
	}
	return &badge, nil
}

// UpsertProgress records a member's progress toward a badge, creating the
// row lazily on first update. Progress never moves EarnedAt: the award is a
// separate conditional update.
func (r *BadgeRepository) UpsertProgress(ctx context.Context, userID, badgeID string, progress int) (*models.UserBadge, error) {
	var ub models.UserBadge
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND badge_id = ?", userID, badgeID).First(&ub).Error
		switch {
		case err == nil:
			if ub.Progress == progress {
				return nil
			}
			return tx.Model(&models.UserBadge{}).Where("id = ?", ub.ID).
				UpdateColumn("progress", progress).Error
		case errors.Is(translateError(err), models.ErrNotFound):
			ub = models.UserBadge{UserID: userID, BadgeID: badgeID, Progress: progress}
			if err := tx.Create(&ub).Error; err != nil {
				// A concurrent evaluation created the row first; fall back
				// to updating it.
				if errors.Is(translateError(err), models.ErrConflict) {
					return tx.Model(&models.UserBadge{}).
						Where("user_id = ? AND badge_id = ?", userID, badgeID).
						UpdateColumn("progress", progress).Error
				}
				return err
			}
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert badge progress: %w", translateError(err))
	}
	ub.Progress = progress
	return &ub, nil
}

// AwardIfUnearned sets earned_at for (userID, badgeID) if and only if it is
// still unset. The conditional update is the check-and-set that keeps the
// earned transition monotonic under concurrent evaluations: exactly one
// caller observes awarded == true.
func (r *BadgeRepository) AwardIfUnearned(ctx context.Context, userID, badgeID string, earnedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_id = ? AND earned_at IS NULL", userID, badgeID).
		UpdateColumn("earned_at", earnedAt)
	if res.Error != nil {
		return false, fmt.Errorf("failed to award badge: %w", translateError(res.Error))
	}
	return res.RowsAffected == 1, nil
}

// GetUserBadges retrieves a member's badge state with catalog details
// preloaded, earned first.
func (r *BadgeRepository) GetUserBadges(ctx context.Context, userID string) ([]models.UserBadge, error) {
	var userBadges []models.UserBadge
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Badge").
		Order("earned_at DESC").
		Find(&userBadges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user badges: %w", translateError(err))
	}
	return userBadges, nil
}

// GetUserBadge retrieves one member/badge pair.
func (r *BadgeRepository) GetUserBadge(ctx context.Context, userID, badgeID string) (*models.UserBadge, error) {
	var ub models.UserBadge
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND badge_id = ?", userID, badgeID).
		First(&ub).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user badge: %w", translateError(err))
	}
	return &ub, nil
}

// GetBadgeHoldersCount returns how many members have earned a badge.
func (r *BadgeRepository) GetBadgeHoldersCount(ctx context.Context, badgeID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserBadge{}).
		Where("badge_id = ? AND earned_at IS NOT NULL", badgeID).
		Count(&count).Error
	return count, translateError(err)
}
