package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/leadwerk/leadwerk-engine/pkg/auth"
	"github.com/leadwerk/leadwerk-engine/pkg/config"
	"github.com/leadwerk/leadwerk-engine/pkg/database"
	"github.com/leadwerk/leadwerk-engine/pkg/handlers"
	"github.com/leadwerk/leadwerk-engine/pkg/logging"
	"github.com/leadwerk/leadwerk-engine/pkg/metrics"
	"github.com/leadwerk/leadwerk-engine/pkg/notify"
	"github.com/leadwerk/leadwerk-engine/pkg/repositories"
	"github.com/leadwerk/leadwerk-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// .env is optional; deployed environments inject real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Migrations run over database/sql; the app itself uses pgx natively.
	sqlDB, err := database.OpenSQL(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		return err
	}
	_ = sqlDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	var sink notify.Sink = notify.NoopSink{}
	if cfg.NATS.URL != "" {
		sink, err = notify.NewNATSSink(cfg.NATS.URL, cfg.NATS.Subject, cfg.NATS.Creds, logger)
		if err != nil {
			return err
		}
	}
	defer func() { _ = sink.Close() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	defaultLeadPrice, err := decimal.NewFromString(cfg.Billing.DefaultLeadPrice)
	if err != nil {
		return err
	}

	// Repositories
	leadRepo := repositories.NewLeadRepository(db)
	partnerRepo := repositories.NewPartnerRepository(db)
	statsRepo := repositories.NewStatsRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)
	subscriptionRepo := repositories.NewSubscriptionRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	industryRepo := repositories.NewIndustryRepository(db)
	assignmentLogRepo := repositories.NewAssignmentLogRepository(db)
	activityLogRepo := repositories.NewActivityLogRepository(db)

	// Services
	locker := services.NewPartnerLocker()
	selector := services.NewCandidateSelector(leadRepo, partnerRepo, statsRepo, settingsRepo, industryRepo, logger)
	gate := services.NewEligibilityGate(leadRepo, partnerRepo, subscriptionRepo, paymentRepo, industryRepo, defaultLeadPrice, logger)
	assigner := services.NewAssignmentService(db, selector, gate, locker,
		leadRepo, partnerRepo, subscriptionRepo, assignmentLogRepo, activityLogRepo, sink, m, logger)
	billing := services.NewBillingService(paymentRepo, partnerRepo, services.NewLoggingProvider(logger), logger)
	leadService := services.NewLeadService(db, leadRepo, partnerRepo, industryRepo,
		assignmentLogRepo, activityLogRepo, selector, assigner, billing, locker, sink, m, defaultLeadPrice, logger)
	settingsService := services.NewSettingsService(settingsRepo, logger)

	// Auth
	validator, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSURL:            cfg.Auth.JWKSURL,
		Issuer:             cfg.Auth.Issuer,
	})
	if err != nil {
		return err
	}
	defer validator.Close()
	authMiddleware := auth.NewMiddleware(validator, logger)

	// HTTP surface
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewLeadsHandler(leadService, assigner, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewRouterSettingsHandler(settingsService, logger).RegisterRoutes(mux, authMiddleware)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	if cfg.Sweeper.Enabled {
		sweeper := services.NewSweeper(leadRepo, assigner, m, cfg.Sweeper.Interval, cfg.Sweeper.BatchSize, logger)
		go sweeper.Run(ctx)
	}

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting leadwerk-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info("Shutting down")
	return server.Shutdown(shutdownCtx)
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
