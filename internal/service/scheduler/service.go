// Package scheduler runs the periodic background sweeps: the badge safety
// net and derived-state reconciliation.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/connectthrive/community-engine/internal/config"
	prommetrics "github.com/connectthrive/community-engine/internal/metrics"
	"github.com/connectthrive/community-engine/internal/service/badges"
	"github.com/connectthrive/community-engine/internal/service/reconciler"
	"github.com/connectthrive/community-engine/pkg/logger"
)

// Service handles background job scheduling.
type Service struct {
	config       *config.Config
	badgeService *badges.Service
	reconciler   *reconciler.Service
	log          *logger.Logger
	cron         *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(
	cfg *config.Config,
	badgeService *badges.Service,
	reconcilerService *reconciler.Service,
	log *logger.Logger,
) *Service {
	return &Service{
		config:       cfg,
		badgeService: badgeService,
		reconciler:   reconcilerService,
		log:          log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Scheduler.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := time.LoadLocation(s.config.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Scheduler.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	if s.config.Scheduler.BadgeSweepSchedule != "" && s.badgeService != nil {
		_, err = s.cron.AddFunc(s.config.Scheduler.BadgeSweepSchedule, func() {
			s.runBadgeSweep(context.Background())
		})
		if err != nil {
			return fmt.Errorf("failed to register badge sweep job: %w", err)
		}
		s.log.Info().
			Str("schedule", s.config.Scheduler.BadgeSweepSchedule).
			Msg("Badge sweep job registered")
	}

	if s.config.Scheduler.ReconcileSchedule != "" && s.reconciler != nil {
		_, err = s.cron.AddFunc(s.config.Scheduler.ReconcileSchedule, func() {
			s.runReconcile(context.Background())
		})
		if err != nil {
			return fmt.Errorf("failed to register reconcile job: %w", err)
		}
		s.log.Info().
			Str("schedule", s.config.Scheduler.ReconcileSchedule).
			Msg("Reconcile job registered")
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("timezone", s.config.Scheduler.Timezone).
		Int("jobs", len(entries)).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// runBadgeSweep re-evaluates every member's badges. The sweep is a safety
// net: awards normally happen inline after each points-changing write, so
// this only catches members missed by crashes or manual ledger edits.
func (s *Service) runBadgeSweep(ctx context.Context) {
	start := time.Now()
	s.log.Info().Msg("Running badge sweep job")

	awarded, err := s.badgeService.EvaluateAll(ctx)
	duration := time.Since(start)

	prommetrics.RecordSchedulerJobRun("badge_sweep", err)
	prommetrics.ObserveSchedulerJobDuration("badge_sweep", duration.Seconds())

	if err != nil {
		s.log.Error().
			Err(err).
			Dur("duration", duration).
			Msg("Badge sweep job failed")
		return
	}

	s.log.Info().
		Int("badges_awarded", awarded).
		Dur("duration", duration).
		Msg("Badge sweep job completed")
}

// runReconcile repairs denormalized counters and cached totals.
func (s *Service) runReconcile(ctx context.Context) {
	start := time.Now()
	s.log.Info().Msg("Running reconcile job")

	result, err := s.reconciler.Run(ctx)
	duration := time.Since(start)

	prommetrics.RecordSchedulerJobRun("reconcile", err)
	prommetrics.ObserveSchedulerJobDuration("reconcile", duration.Seconds())

	if err != nil {
		s.log.Error().
			Err(err).
			Dur("duration", duration).
			Msg("Reconcile job failed")
		return
	}

	s.log.Info().
		Int("members_checked", result.MembersChecked).
		Int("totals_drifted", result.TotalsDrifted).
		Dur("duration", duration).
		Msg("Reconcile job completed")
}
