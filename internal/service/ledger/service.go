// Package ledger maintains the append-only points ledger and serves point
// totals, optionally fronted by a cache.
package ledger

import (
	"context"
	"strconv"
	"time"

	"github.com/connectthrive/community-engine/internal/cache"
	prommetrics "github.com/connectthrive/community-engine/internal/metrics"
	"github.com/connectthrive/community-engine/internal/models"
	"github.com/connectthrive/community-engine/internal/repository"
	"github.com/connectthrive/community-engine/pkg/logger"
)

// Repository interface for ledger storage operations.
type Repository interface {
	Append(ctx context.Context, event *models.PointsEvent) error
	SumByUser(ctx context.Context, userID string) (int64, error)
	EventsByUser(ctx context.Context, userID string, limit int) ([]models.PointsEvent, error)
}

const totalKeyPrefix = "points:total:"

// Service exposes the points ledger. The repository sum is always the
// authoritative total; the cache is a read accelerator invalidated on every
// append and reconcilable at any time.
type Service struct {
	repo     Repository
	cache    cache.Cache
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewService creates a new ledger service with concrete repository types.
func NewService(repo *repository.LedgerRepository, c cache.Cache, cacheTTL time.Duration, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, cacheTTL: cacheTTL, log: log}
}

// NewServiceWithInterfaces creates a new ledger service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(repo Repository, c cache.Cache, cacheTTL time.Duration, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, cacheTTL: cacheTTL, log: log}
}

// Append adds an event to the ledger and invalidates the user's cached
// total.
func (s *Service) Append(ctx context.Context, userID string, amount int, reason, note string) (*models.PointsEvent, error) {
	event := &models.PointsEvent{
		UserID: userID,
		Amount: amount,
		Reason: reason,
		Note:   note,
	}
	if err := s.repo.Append(ctx, event); err != nil {
		return nil, err
	}

	prommetrics.RecordPointsEvent(reason)
	s.InvalidateTotal(ctx, userID)

	s.log.Debug().
		Str("user_id", userID).
		Int("amount", amount).
		Str("reason", reason).
		Msg("Points event appended")

	return event, nil
}

// ManualAdjust appends a manual_adjustment event. Corrections always go
// through here; nothing ever rewrites past events.
func (s *Service) ManualAdjust(ctx context.Context, userID string, amount int, note string) (*models.PointsEvent, error) {
	return s.Append(ctx, userID, amount, models.ReasonManualAdjustment, note)
}

// Total returns the user's current point total, served from cache when warm.
// A cache failure degrades to the authoritative sum rather than erroring.
func (s *Service) Total(ctx context.Context, userID string) (int64, error) {
	key := totalKeyPrefix + userID

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("Total cache read failed")
		} else if cached != "" {
			if total, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
				prommetrics.RecordCacheLookup("points_total", true)
				return total, nil
			}
		}
		prommetrics.RecordCacheLookup("points_total", false)
	}

	total, err := s.repo.SumByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, strconv.FormatInt(total, 10), s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("Total cache write failed")
		}
	}

	return total, nil
}

// InvalidateTotal drops the cached total for a user.
func (s *Service) InvalidateTotal(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, totalKeyPrefix+userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Total cache invalidation failed")
	}
}

// Events returns the user's most recent ledger entries.
func (s *Service) Events(ctx context.Context, userID string, limit int) ([]models.PointsEvent, error) {
	return s.repo.EventsByUser(ctx, userID, limit)
}

// Reconcile recomputes the total from the full event log, compares it with
// the cached value, and rewrites the cache. Returns the authoritative total
// and whether the cache had drifted.
func (s *Service) Reconcile(ctx context.Context, userID string) (int64, bool, error) {
	total, err := s.repo.SumByUser(ctx, userID)
	if err != nil {
		return 0, false, err
	}

	drifted := false
	if s.cache != nil {
		key := totalKeyPrefix + userID
		cached, err := s.cache.Get(ctx, key)
		if err == nil && cached != "" {
			if cachedTotal, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil && cachedTotal != total {
				drifted = true
				s.log.Warn().
					Str("user_id", userID).
					Int64("cached", cachedTotal).
					Int64("actual", total).
					Msg("Cached total drifted from ledger sum")
			}
		}
		if err := s.cache.Set(ctx, key, strconv.FormatInt(total, 10), s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("Total cache rewrite failed")
		}
	}

	return total, drifted, nil
}
