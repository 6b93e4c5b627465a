// Command server runs the community engagement engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/connectthrive/community-engine/internal/api"
	"github.com/connectthrive/community-engine/internal/api/community"
	"github.com/connectthrive/community-engine/internal/cache"
	"github.com/connectthrive/community-engine/internal/config"
	"github.com/connectthrive/community-engine/internal/notify"
	"github.com/connectthrive/community-engine/internal/repository"
	"github.com/connectthrive/community-engine/internal/service/badges"
	"github.com/connectthrive/community-engine/internal/service/engagement"
	"github.com/connectthrive/community-engine/internal/service/leaderboard"
	"github.com/connectthrive/community-engine/internal/service/ledger"
	"github.com/connectthrive/community-engine/internal/service/reconciler"
	"github.com/connectthrive/community-engine/internal/service/scheduler"
	"github.com/connectthrive/community-engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)

	log.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("Starting community engagement engine")

	// Storage.
	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.Postgres.MigrationsPath != "" {
		if err := db.Migrate(cfg.Database.Postgres.MigrationsPath, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	} else if err := db.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to auto-migrate schema")
	}

	redisCache, err := cache.NewRedisCache(&cfg.Database.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisCache.Close()

	// Repositories.
	profileRepo := repository.NewProfileRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)

	cacheTTL := time.Duration(cfg.Leaderboard.CacheTTLSeconds) * time.Second

	// Services.
	webhookClient := notify.NewClient(&cfg.Notifications, log)
	ledgerService := ledger.NewService(ledgerRepo, redisCache, cacheTTL, log)
	badgeService := badges.NewService(badgeRepo, ledgerService, profileRepo, webhookClient, log)
	leaderboardService := leaderboard.NewService(ledgerRepo, profileRepo, redisCache, cacheTTL, log)
	statsService := leaderboard.NewStatsService(leaderboardService, badgeRepo, engagementRepo, ledgerService)
	engagementService := engagement.NewService(
		engagementRepo,
		profileRepo,
		ledgerService,
		badgeService,
		engagement.Points{
			PostCreated:      cfg.Points.PostCreated,
			CommentCreated:   cfg.Points.CommentCreated,
			PostLikedByOther: cfg.Points.PostLikedByOther,
		},
		log,
	)
	reconcilerService := reconciler.NewService(engagementRepo, profileRepo, ledgerService, log)

	ctx := context.Background()
	if err := badgeService.SeedCatalog(ctx, cfg.Badges.CatalogPath); err != nil {
		log.Fatal().Err(err).Str("path", cfg.Badges.CatalogPath).Msg("Failed to seed badge catalog")
	}

	// Background sweeps.
	schedulerService := scheduler.NewService(cfg, badgeService, reconcilerService, log)
	if err := schedulerService.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer schedulerService.Stop()

	// HTTP server.
	handler := community.NewHandler(
		engagementService,
		ledgerService,
		badgeService,
		leaderboardService,
		statsService,
		profileRepo,
		log,
	)
	router := api.NewRouter(cfg, handler, db)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Server stopped")
}
