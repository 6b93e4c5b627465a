// Package leaderboard produces the ranked, paginated view of all members by
// point total.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/connectthrive/community-engine/internal/cache"
	prommetrics "github.com/connectthrive/community-engine/internal/metrics"
	"github.com/connectthrive/community-engine/internal/models"
	"github.com/connectthrive/community-engine/internal/repository"
	"github.com/connectthrive/community-engine/pkg/logger"
)

// LedgerRepository interface for the ranked aggregation.
type LedgerRepository interface {
	RankedTotals(ctx context.Context, offset, limit int) ([]repository.RankedTotal, error)
}

// ProfileRepository interface for member counting and lookup.
type ProfileRepository interface {
	Count(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// Entry represents a single row of the leaderboard. Ranks are 1-based,
// contiguous, and strict: the (total DESC, created ASC, id ASC) ordering
// leaves no ties to share a rank.
type Entry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	TotalPoints int64  `json:"total_points"`
}

// Page is one leaderboard page plus pagination metadata.
type Page struct {
	Entries []Entry `json:"entries"`
	Total   int64   `json:"total"`
	HasMore bool    `json:"has_more"`
}

// Service builds leaderboard pages. Pages are cached briefly in Redis; when
// the store is unreachable a read degrades to the cached last-known ranking
// instead of failing.
type Service struct {
	ledgerRepo  LedgerRepository
	profileRepo ProfileRepository
	cache       cache.Cache
	cacheTTL    time.Duration
	log         *logger.Logger
}

// NewService creates a new leaderboard service with concrete repository types.
func NewService(
	ledgerRepo *repository.LedgerRepository,
	profileRepo *repository.ProfileRepository,
	c cache.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return &Service{
		ledgerRepo:  ledgerRepo,
		profileRepo: profileRepo,
		cache:       c,
		cacheTTL:    cacheTTL,
		log:         log,
	}
}

// NewServiceWithInterfaces creates a new leaderboard service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(
	ledgerRepo LedgerRepository,
	profileRepo ProfileRepository,
	c cache.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return &Service{
		ledgerRepo:  ledgerRepo,
		profileRepo: profileRepo,
		cache:       c,
		cacheTTL:    cacheTTL,
		log:         log,
	}
}

// GetPage returns one leaderboard page. Totals changing between page reads
// is tolerated; consecutive reads with no intervening writes are identical.
func (s *Service) GetPage(ctx context.Context, offset, limit int) (*Page, error) {
	if offset < 0 {
		return nil, fmt.Errorf("offset must be non-negative")
	}
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive")
	}

	key := fmt.Sprintf("leaderboard:page:%d:%d", offset, limit)

	rows, err := s.ledgerRepo.RankedTotals(ctx, offset, limit)
	if err != nil {
		// Degrade to the last-known ranking if one is cached.
		if page := s.cachedPage(ctx, key); page != nil {
			s.log.Warn().Err(err).Msg("Serving leaderboard page from cache after store failure")
			return page, nil
		}
		return nil, fmt.Errorf("failed to build leaderboard page: %w", err)
	}

	total, err := s.profileRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, Entry{
			Rank:        offset + i + 1,
			UserID:      row.UserID,
			DisplayName: row.FullName,
			AvatarURL:   row.AvatarURL,
			TotalPoints: row.TotalPoints,
		})
	}

	page := &Page{
		Entries: entries,
		Total:   total,
		HasMore: int64(offset+len(entries)) < total,
	}

	prommetrics.LeaderboardSize.Set(float64(total))
	s.storePage(ctx, key, page)

	return page, nil
}

// GetUserRank returns a member's 1-based position in the full ranking.
func (s *Service) GetUserRank(ctx context.Context, userID string) (int, error) {
	rows, err := s.ledgerRepo.RankedTotals(ctx, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to rank members: %w", err)
	}
	for i, row := range rows {
		if row.UserID == userID {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("user %s not on leaderboard", userID)
}

func (s *Service) cachedPage(ctx context.Context, key string) *Page {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == "" {
		prommetrics.RecordCacheLookup("leaderboard_page", false)
		return nil
	}
	var page Page
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		return nil
	}
	prommetrics.RecordCacheLookup("leaderboard_page", true)
	return &page
}

func (s *Service) storePage(ctx context.Context, key string, page *Page) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(payload), s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Leaderboard cache write failed")
	}
}
