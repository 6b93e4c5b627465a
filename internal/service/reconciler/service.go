// Package reconciler provides batch repair of derived engagement state: the
// denormalized post counters and the cached point totals. The ledger and the
// engagement rows are never touched; only derived values are rewritten.
package reconciler

import (
	"context"
	"fmt"

	"github.com/connectthrive/community-engine/internal/models"
	"github.com/connectthrive/community-engine/internal/repository"
	"github.com/connectthrive/community-engine/pkg/logger"
)

// EngagementRepository interface for counter repair.
type EngagementRepository interface {
	ReconcileCounters(ctx context.Context) error
}

// ProfileRepository interface for the member sweep.
type ProfileRepository interface {
	List(ctx context.Context) ([]models.Profile, error)
}

// LedgerService interface for per-member total reconciliation.
type LedgerService interface {
	Reconcile(ctx context.Context, userID string) (int64, bool, error)
}

// Service recomputes derived state from authoritative rows.
type Service struct {
	engagementRepo EngagementRepository
	profileRepo    ProfileRepository
	ledger         LedgerService
	log            *logger.Logger
}

// NewService creates a new reconciler service.
func NewService(
	engagementRepo *repository.EngagementRepository,
	profileRepo *repository.ProfileRepository,
	ledgerSvc LedgerService,
	log *logger.Logger,
) *Service {
	return &Service{
		engagementRepo: engagementRepo,
		profileRepo:    profileRepo,
		ledger:         ledgerSvc,
		log:            log,
	}
}

// NewServiceWithInterfaces creates a new reconciler service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(
	engagementRepo EngagementRepository,
	profileRepo ProfileRepository,
	ledgerSvc LedgerService,
	log *logger.Logger,
) *Service {
	return &Service{
		engagementRepo: engagementRepo,
		profileRepo:    profileRepo,
		ledger:         ledgerSvc,
		log:            log,
	}
}

// Result summarizes one reconciliation run.
type Result struct {
	MembersChecked int `json:"members_checked"`
	TotalsDrifted  int `json:"totals_drifted"`
}

// Run repairs the denormalized post counters from the engagement rows, then
// rewrites every member's cached total from the ledger sum. Per-member
// failures are logged and skipped so one bad row cannot stall the sweep.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	s.log.Info().Msg("Starting reconciliation run")

	if err := s.engagementRepo.ReconcileCounters(ctx); err != nil {
		return nil, fmt.Errorf("failed to reconcile counters: %w", err)
	}

	profiles, err := s.profileRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	result := &Result{}
	for _, profile := range profiles {
		_, drifted, err := s.ledger.Reconcile(ctx, profile.ID)
		if err != nil {
			s.log.Error().
				Err(err).
				Str("user_id", profile.ID).
				Msg("Failed to reconcile member total")
			continue
		}
		result.MembersChecked++
		if drifted {
			result.TotalsDrifted++
		}
	}

	s.log.Info().
		Int("members_checked", result.MembersChecked).
		Int("totals_drifted", result.TotalsDrifted).
		Msg("Reconciliation run completed")

	return result, nil
}
