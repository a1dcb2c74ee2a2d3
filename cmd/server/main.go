package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"rateintake/internal/config"
	"rateintake/internal/email/noop"
	"rateintake/internal/email/ses"
	"rateintake/internal/extraction"
	"rateintake/internal/extraction/fixture"
	"rateintake/internal/extraction/httpapi"
	"rateintake/internal/handler"
	"rateintake/internal/logger"
	"rateintake/internal/port"
	"rateintake/internal/repository/postgres"
	redisstore "rateintake/internal/repository/redis"
	"rateintake/internal/router"
	"rateintake/internal/service"
	"rateintake/internal/session"
	miniostorage "rateintake/internal/storage/minio"
	s3storage "rateintake/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(&cfg.Log)
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	policy, err := session.PolicyFromConfig(&cfg.Pipeline)
	if err != nil {
		return fmt.Errorf("invalid pipeline config: %w", err)
	}

	if cfg.DB.AutoMigrate {
		version, err := postgres.MigrateUp(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		slog.Info("database migrated", "version", version)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize extraction
	extraction.Register(httpapi.ProviderName, httpapi.New)
	extraction.Register(fixture.ProviderName, fixture.New)
	extractionClient, err := extraction.NewClient(&cfg.Extraction)
	if err != nil {
		return fmt.Errorf("failed to initialize extraction client: %w", err)
	}
	slog.Info("extraction client ready", "provider", cfg.Extraction.Provider)

	// Initialize storage
	storage, err := newStorage(ctx, &cfg.Storage)
	if err != nil {
		return err
	}

	checks := map[string]handler.Pinger{"database": postgres.NewPinger(db)}

	// Initialize draft store
	var drafts port.DraftStore = redisstore.NoopDraftStore{}
	if cfg.Redis.Addr != "" {
		redisClient := redisstore.NewClient(&cfg.Redis)
		defer func() { _ = redisClient.Close() }()
		store := redisstore.NewDraftStore(redisClient, cfg.Redis.DraftTTL)
		drafts = store
		checks["redis"] = store
	} else {
		slog.Warn("redis not configured, drafts will not be saved")
	}

	// Initialize email
	emailSender, err := newEmailSender(ctx, &cfg.Email)
	if err != nil {
		return err
	}

	// Initialize services
	supplierRepo := postgres.NewSupplierRepo(db)
	onboardingSvc := service.NewOnboardingService(service.OnboardingDeps{
		Policy:     policy,
		Controller: session.NewController(extractionClient, cfg.Extraction.Timeout(), cfg.Extraction.CardType),
		Intake:     service.NewIntake(storage, cfg.Storage.Bucket, cfg.Pipeline.MaxFileSizeMB),
		Gateway:    service.NewConfirmationGateway(supplierRepo, extractionClient, cfg.Extraction.Timeout()),
		Drafts:     drafts,
		Email:      emailSender,
		Operators:  cfg.Email.Operators,
	})

	// Initialize handlers
	onboardingH := handler.NewOnboardingHandler(onboardingSvc)
	healthH := handler.NewHealthHandler(checks)

	// Setup router
	r := router.Setup(onboardingH, healthH, cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := onboardingSvc.Shutdown(shutdownCtx); err != nil {
		slog.Warn("in-flight extractions cancelled", "error", err)
	}
	slog.Info("server exited")
	return nil
}

func newStorage(ctx context.Context, cfg *config.StorageConfig) (port.ObjectStorage, error) {
	switch cfg.Provider {
	case "minio":
		client, err := miniostorage.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
		}
		if err := client.EnsureBucket(ctx, cfg.Bucket); err != nil {
			return nil, fmt.Errorf("failed to ensure bucket: %w", err)
		}
		return client, nil
	case "s3", "":
		client, err := s3storage.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

func newEmailSender(ctx context.Context, cfg *config.EmailConfig) (port.EmailSender, error) {
	if cfg.Provider != "ses" {
		return noop.NewNoopSender(cfg.FrontendURL), nil
	}
	sender, err := ses.NewSESSender(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SES sender: %w", err)
	}
	return sender, nil
}
