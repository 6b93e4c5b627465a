// Package badges derives badge progress and awards from point totals.
package badges

import (
	"context"
	"fmt"
	"time"

	prommetrics "github.com/connectthrive/community-engine/internal/metrics"
	"github.com/connectthrive/community-engine/internal/models"
	"github.com/connectthrive/community-engine/internal/repository"
	"github.com/connectthrive/community-engine/internal/service/ledger"
	"github.com/connectthrive/community-engine/pkg/logger"
)

// BadgeRepository interface for badge storage operations.
type BadgeRepository interface {
	GetAll(ctx context.Context) ([]models.Badge, error)
	GetByID(ctx context.Context, id string) (*models.Badge, error)
	UpsertCatalog(ctx context.Context, badges []models.Badge) error
	UpsertProgress(ctx context.Context, userID, badgeID string, progress int) (*models.UserBadge, error)
	AwardIfUnearned(ctx context.Context, userID, badgeID string, earnedAt time.Time) (bool, error)
	GetUserBadges(ctx context.Context, userID string) ([]models.UserBadge, error)
	GetBadgeHoldersCount(ctx context.Context, badgeID string) (int64, error)
}

// LedgerService interface for the points operations the evaluator needs.
type LedgerService interface {
	Total(ctx context.Context, userID string) (int64, error)
	Append(ctx context.Context, userID string, amount int, reason, note string) (*models.PointsEvent, error)
}

// ProfileRepository interface for member listing during sweeps.
type ProfileRepository interface {
	List(ctx context.Context) ([]models.Profile, error)
}

// Notifier announces earned badges to an external channel.
type Notifier interface {
	BadgeEarned(ctx context.Context, userID, badgeName string)
}

// Service evaluates badge thresholds against point totals. The earned
// transition is monotonic: progress is a pure function of the current total
// and the catalog, while earned_at is set once through a storage-level
// check-and-set and survives any later point loss.
type Service struct {
	badgeRepo   BadgeRepository
	ledger      LedgerService
	profileRepo ProfileRepository
	notifier    Notifier
	log         *logger.Logger
}

// NewService creates a new badge service with concrete repository types.
func NewService(
	badgeRepo *repository.BadgeRepository,
	ledgerSvc *ledger.Service,
	profileRepo *repository.ProfileRepository,
	notifier Notifier,
	log *logger.Logger,
) *Service {
	return &Service{
		badgeRepo:   badgeRepo,
		ledger:      ledgerSvc,
		profileRepo: profileRepo,
		notifier:    notifier,
		log:         log,
	}
}

// NewServiceWithInterfaces creates a new badge service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(
	badgeRepo BadgeRepository,
	ledgerSvc LedgerService,
	profileRepo ProfileRepository,
	notifier Notifier,
	log *logger.Logger,
) *Service {
	return &Service{
		badgeRepo:   badgeRepo,
		ledger:      ledgerSvc,
		profileRepo: profileRepo,
		notifier:    notifier,
		log:         log,
	}
}

// SeedCatalog loads the catalog file and mirrors it into the database.
func (s *Service) SeedCatalog(ctx context.Context, path string) error {
	catalog, err := LoadCatalog(path)
	if err != nil {
		return err
	}
	if err := s.badgeRepo.UpsertCatalog(ctx, catalog); err != nil {
		return fmt.Errorf("failed to seed badge catalog: %w", err)
	}
	s.log.Info().Int("badges", len(catalog)).Str("path", path).Msg("Badge catalog seeded")
	return nil
}

// Evaluate recomputes the member's progress on every catalog badge and
// awards any badge whose threshold the current total has crossed. Safe to
// call after every points-changing operation and from concurrent requests:
// the conditional award update guarantees at-most-once earning.
func (s *Service) Evaluate(ctx context.Context, userID string) ([]models.UserBadge, error) {
	total, err := s.ledger.Total(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get point total: %w", err)
	}

	catalog, err := s.badgeRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get badge catalog: %w", err)
	}

	results := make([]models.UserBadge, 0, len(catalog))
	for _, badge := range catalog {
		progress := clampProgress(total, badge.PointsRequired)

		ub, err := s.badgeRepo.UpsertProgress(ctx, userID, badge.ID, progress)
		if err != nil {
			s.log.Error().
				Err(err).
				Str("user_id", userID).
				Str("badge_id", badge.ID).
				Msg("Failed to update badge progress")
			continue
		}

		if progress >= badge.PointsRequired {
			earnedAt := time.Now().UTC()
			awarded, err := s.badgeRepo.AwardIfUnearned(ctx, userID, badge.ID, earnedAt)
			if err != nil {
				s.log.Error().
					Err(err).
					Str("user_id", userID).
					Str("badge_id", badge.ID).
					Msg("Failed to award badge")
				continue
			}
			if awarded {
				s.onAwarded(ctx, userID, &badge)
				ub.EarnedAt = &earnedAt
			}
		}

		ub.Badge = badge
		results = append(results, *ub)
	}

	return results, nil
}

// EvaluateAll sweeps every member, catching awards missed at write time.
// Returns the number of badges awarded.
func (s *Service) EvaluateAll(ctx context.Context) (int, error) {
	start := time.Now()

	profiles, err := s.profileRepo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list profiles: %w", err)
	}

	awards := 0
	for _, profile := range profiles {
		before, err := s.badgeRepo.GetUserBadges(ctx, profile.ID)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", profile.ID).Msg("Failed to read badge state")
			continue
		}
		earnedBefore := countEarned(before)

		if _, err := s.Evaluate(ctx, profile.ID); err != nil {
			s.log.Error().Err(err).Str("user_id", profile.ID).Msg("Failed to evaluate badges")
			continue
		}

		after, err := s.badgeRepo.GetUserBadges(ctx, profile.ID)
		if err != nil {
			continue
		}
		awards += countEarned(after) - earnedBefore
	}

	s.log.Info().
		Int("members", len(profiles)).
		Int("badges_awarded", awards).
		Dur("duration", time.Since(start)).
		Msg("Badge sweep complete")

	return awards, nil
}

// UserBadges retrieves a member's badge state with catalog details.
func (s *Service) UserBadges(ctx context.Context, userID string) ([]models.UserBadge, error) {
	return s.badgeRepo.GetUserBadges(ctx, userID)
}

// Catalog retrieves all available badges.
func (s *Service) Catalog(ctx context.Context) ([]models.Badge, error) {
	return s.badgeRepo.GetAll(ctx)
}

// BadgeByID retrieves a badge by its ID.
func (s *Service) BadgeByID(ctx context.Context, badgeID string) (*models.Badge, error) {
	return s.badgeRepo.GetByID(ctx, badgeID)
}

// HoldersCount retrieves the number of members who have earned a badge.
func (s *Service) HoldersCount(ctx context.Context, badgeID string) (int64, error) {
	return s.badgeRepo.GetBadgeHoldersCount(ctx, badgeID)
}

// onAwarded handles the side effects of a fresh award: bonus points,
// metrics, and the notification webhook.
func (s *Service) onAwarded(ctx context.Context, userID string, badge *models.Badge) {
	s.log.Info().
		Str("user_id", userID).
		Str("badge", badge.Name).
		Msg("Badge awarded")

	prommetrics.RecordBadgeAwarded(badge.Name)

	if badge.BonusPoints > 0 {
		if _, err := s.ledger.Append(ctx, userID, badge.BonusPoints, models.ReasonBadgeBonus, "badge "+badge.ID); err != nil {
			s.log.Error().Err(err).Str("badge_id", badge.ID).Msg("Failed to append badge bonus")
		}
	}

	if count, err := s.badgeRepo.GetBadgeHoldersCount(ctx, badge.ID); err == nil {
		prommetrics.SetActiveBadgeHolders(badge.Name, int(count))
	}

	if s.notifier != nil {
		s.notifier.BadgeEarned(ctx, userID, badge.Name)
	}
}

// clampProgress computes min(total, required), floored at zero for members
// whose compensating events have driven the total negative.
func clampProgress(total int64, required int) int {
	if total <= 0 {
		return 0
	}
	if total >= int64(required) {
		return required
	}
	return int(total)
}

func countEarned(userBadges []models.UserBadge) int {
	earned := 0
	for i := range userBadges {
		if userBadges[i].Earned() {
			earned++
		}
	}
	return earned
}
