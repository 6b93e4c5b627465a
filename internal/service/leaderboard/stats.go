package leaderboard

import (
	"context"
	"fmt"

	"github.com/connectthrive/community-engine/internal/models"
)

// BadgeRepository interface for the badge lookups stats needs.
type BadgeRepository interface {
	GetUserBadges(ctx context.Context, userID string) ([]models.UserBadge, error)
}

// EngagementRepository interface for the activity counts stats needs.
type EngagementRepository interface {
	CountPostsByAuthor(ctx context.Context, authorID string) (int64, error)
	CountCommentsByAuthor(ctx context.Context, authorID string) (int64, error)
	LikesReceived(ctx context.Context, authorID string) (int64, error)
}

// LedgerService interface for the point total stats needs.
type LedgerService interface {
	Total(ctx context.Context, userID string) (int64, error)
}

// StatsService aggregates the profile-page view of one member.
type StatsService struct {
	board          *Service
	badgeRepo      BadgeRepository
	engagementRepo EngagementRepository
	ledger         LedgerService
}

// NewStatsService creates a stats aggregator on top of the leaderboard
// service.
func NewStatsService(board *Service, badgeRepo BadgeRepository, engagementRepo EngagementRepository, ledgerSvc LedgerService) *StatsService {
	return &StatsService{
		board:          board,
		badgeRepo:      badgeRepo,
		engagementRepo: engagementRepo,
		ledger:         ledgerSvc,
	}
}

// UserStats returns a member's activity counts, point total, earned badges,
// and global rank.
func (s *StatsService) UserStats(ctx context.Context, userID string) (*models.ProfileStats, error) {
	profile, err := s.board.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, err := s.ledger.Total(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get point total: %w", err)
	}

	stats := &models.ProfileStats{
		UserID:      userID,
		FullName:    profile.FullName,
		TotalPoints: total,
	}

	if stats.PostsCount, err = s.engagementRepo.CountPostsByAuthor(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	if stats.CommentsCount, err = s.engagementRepo.CountCommentsByAuthor(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}
	if stats.LikesReceived, err = s.engagementRepo.LikesReceived(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to count likes received: %w", err)
	}

	userBadges, err := s.badgeRepo.GetUserBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user badges: %w", err)
	}
	for i := range userBadges {
		if userBadges[i].Earned() && userBadges[i].Badge.ID != "" {
			stats.Badges = append(stats.Badges, userBadges[i].Badge)
		}
	}

	rank, err := s.board.GetUserRank(ctx, userID)
	if err != nil {
		// A member with no ledger events still appears in the ranking; a
		// missing rank means the ranking itself failed.
		s.board.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to get global rank")
	} else {
		stats.GlobalRank = rank
	}

	return stats, nil
}
