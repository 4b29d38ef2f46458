package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"fleet-rollout-api/internal/api"
	"fleet-rollout-api/internal/api/handlers"
	"fleet-rollout-api/internal/auth"
	"fleet-rollout-api/internal/config"
	"fleet-rollout-api/internal/db"
	"fleet-rollout-api/internal/firmware"
	"fleet-rollout-api/internal/gateway"
	"fleet-rollout-api/internal/logging"
	"fleet-rollout-api/internal/notify"
	"fleet-rollout-api/internal/rollout"

	"github.com/rs/zerolog/log"

	_ "fleet-rollout-api/docs"
)

// @title        Fleet Rollout API
// @version      1.0
// @description  Firmware rollout orchestration for fleets of embedded devices
// @BasePath     /api

// @securityDefinitions.apikey ApiKeyAuth
// @in   header
// @name X-Admin-Key

// @securityDefinitions.apikey OperatorKeyAuth
// @in   header
// @name X-Operator-Key

// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
func main() {
	cfgPath := os.Getenv("RO_CONFIG_FILE")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}

	// Initialize logger
	if err := logging.Setup(cfg); err != nil {
		log.Fatal().Err(err).Msg("Logger setup failed")
	}

	log.Info().
		Str("version", "1.0.0").
		Str("listen_addr", cfg.ListenAddr).
		Msg("Fleet Rollout API starting")

	// Ensure directories exist
	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.StorageDir).Msg("Failed to create storage directory")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", filepath.Dir(cfg.DBPath)).Msg("Failed to create database directory")
	}

	// DB + migrations
	log.Info().Str("db_path", cfg.DBPath).Msg("Opening database")
	database := db.OpenSQLite(cfg.DBPath)
	log.Info().Msg("Running database migrations")
	db.RunMigrations(database, "./migrations")

	// Firmware layer
	fwRepo := &firmware.SQLiteRepo{DB: database}
	fwSvc := &firmware.Service{
		Repo:       fwRepo,
		Storage:    firmware.Storage{BaseDir: cfg.StorageDir},
		PublicBase: cfg.PublicBaseURL,
	}

	// Notification layer
	nRepo := &notify.SQLiteRepo{DB: database}
	nSvc := &notify.Service{
		Repo:       nRepo,
		Secret:     cfg.Notifications.Secret,
		TimeoutSec: cfg.Notifications.TimeoutSec,
		Retries:    cfg.Notifications.Retries,
	}

	// Device gateway
	gw := gateway.NewClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.APIKey,
		time.Duration(cfg.Gateway.PollIntervalSec)*time.Second,
	)

	// Rollout layer
	tuning := rollout.Tuning{
		MaxAttempts:     cfg.Rollout.MaxAttempts,
		BackoffBase:     time.Duration(cfg.Rollout.BackoffBaseMs) * time.Millisecond,
		BackoffMax:      time.Duration(cfg.Rollout.BackoffMaxMs) * time.Millisecond,
		DispatchTimeout: cfg.DispatchTimeout(),
		DownloadTimeout: time.Duration(cfg.Rollout.DownloadTimeoutSec) * time.Second,
		FlashTimeout:    time.Duration(cfg.Rollout.FlashTimeoutSec) * time.Second,
		VerifyTimeout:   time.Duration(cfg.Rollout.VerifyTimeoutSec) * time.Second,
	}
	roRepo := &rollout.SQLiteRepo{DB: database}
	orch := rollout.NewOrchestrator(roRepo, gw, gw, nSvc, fwSvc, tuning)
	roSvc := &rollout.Service{
		Repo:                        roRepo,
		Firmware:                    fwSvc,
		Selector:                    gw,
		Orch:                        orch,
		Notifier:                    nSvc,
		DefaultFailureRateThreshold: cfg.Rollout.FailureRateThreshold,
		DefaultAutoRollback:         cfg.Rollout.AutoRollback,
	}

	// Initialize OIDC verifier if enabled
	var oidcVerifier *auth.OIDCVerifier
	if cfg.OIDC.Enabled {
		log.Info().Str("issuer", cfg.OIDC.IssuerURL).Msg("Initializing OIDC authentication")
		ctx := context.Background()
		var err error
		oidcVerifier, err = auth.NewOIDCVerifier(
			ctx,
			cfg.OIDC.IssuerURL,
			cfg.OIDC.ClientID,
			cfg.OIDC.Audience,
			cfg.OIDC.AdminRole,
			cfg.OIDC.OperatorRole,
		)
		if err != nil {
			log.Warn().
				Err(err).
				Msg("OIDC enabled but failed to initialize, falling back to API key authentication only")
			cfg.OIDC.Enabled = false
		} else {
			log.Info().
				Str("issuer", cfg.OIDC.IssuerURL).
				Str("client_id", cfg.OIDC.ClientID).
				Str("admin_role", cfg.OIDC.AdminRole).
				Str("operator_role", cfg.OIDC.OperatorRole).
				Msg("OIDC authentication enabled")
		}
	}

	authHandler := auth.Auth{
		AdminKey:     cfg.AdminKey,
		OperatorKey:  cfg.OperatorKey,
		OIDCEnabled:  cfg.OIDC.Enabled,
		OIDCVerifier: oidcVerifier,
	}

	fwHandler := &handlers.FirmwareHandler{
		Auth:     authHandler,
		Service:  fwSvc,
		Notify:   nSvc,
		MaxBytes: cfg.MaxUploadMB * 1024 * 1024,
	}
	artHandler := &handlers.ArtifactHandler{
		Auth:    authHandler,
		Service: fwSvc,
		Notify:  nSvc,
	}
	roHandler := &handlers.RolloutHandler{
		Auth:    authHandler,
		Service: roSvc,
	}
	nHandler := &handlers.NotificationHandler{
		Auth: authHandler,
		Repo: nRepo,
	}

	router := api.NewRouter(fwHandler, artHandler, roHandler, nHandler)

	// Apply middlewares: logging first, then CORS
	handler := logging.HTTPLogger(router)
	handler = api.CORSMiddleware(handler)

	log.Info().
		Str("listen_addr", cfg.ListenAddr).
		Msg("Fleet Rollout API listening")

	if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatal().Err(err).Msg("HTTP server failed")
	}
}
