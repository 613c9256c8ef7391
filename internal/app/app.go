package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wisbric/netguard/internal/audit"
	"github.com/wisbric/netguard/internal/auth"
	"github.com/wisbric/netguard/internal/config"
	"github.com/wisbric/netguard/internal/httpserver"
	"github.com/wisbric/netguard/internal/platform"
	"github.com/wisbric/netguard/internal/seed"
	"github.com/wisbric/netguard/internal/telemetry"
	"github.com/wisbric/netguard/pkg/apply"
	"github.com/wisbric/netguard/pkg/credential"
	"github.com/wisbric/netguard/pkg/device"
	"github.com/wisbric/netguard/pkg/plan"
	"github.com/wisbric/netguard/pkg/transport"
)

// Run is the main application entry point. It reads config, connects to
// infrastructure, and starts the requested mode (api or seed).
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting netguard", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := prometheus.NewRegistry()
	metricsReg.MustRegister(telemetry.All()...)

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, rdb, metricsReg)
	case "seed":
		return seed.Run(ctx, db, logger)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	// OIDC authenticator (optional — nil disables bearer authentication
	// entirely, leaving /api/v1 unreachable; only useful for local dev
	// against the unauthenticated health endpoints).
	var oidcAuth *auth.OIDCAuthenticator
	if cfg.OIDCIssuerURL != "" && cfg.OIDCClientID != "" {
		var err error
		oidcAuth, err = auth.NewOIDCAuthenticator(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID)
		if err != nil {
			return fmt.Errorf("initializing OIDC authenticator: %w", err)
		}
		logger.Info("OIDC authentication enabled", "issuer", cfg.OIDCIssuerURL)
	} else {
		logger.Info("OIDC authentication disabled (OIDC_ISSUER_URL not set)")
	}

	// Session manager, for the approval UI's short-lived cookie (not used by
	// the tool-invocation surface itself, which is bearer-token-only).
	sessionSecret := cfg.SessionSecret
	if sessionSecret == "" {
		sessionSecret = auth.GenerateDevSecret()
		logger.Info("session: using auto-generated dev secret (set NETGUARD_SESSION_SECRET in production)")
	}
	if _, err := auth.NewSessionManager(sessionSecret, cfg.SessionMaxAge); err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}

	gate := auth.NewGate(db)

	// Audit sink.
	var notifier audit.Notifier
	slackNotifier := audit.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackAlertChannel, logger)
	if cfg.SlackBotToken != "" {
		notifier = slackNotifier
		logger.Info("slack audit notifications enabled", "channel", cfg.SlackAlertChannel)
	} else {
		logger.Info("slack audit notifications disabled (SLACK_BOT_TOKEN not set)")
	}
	auditWriter := audit.NewWriter(db, logger, notifier)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	// Domain core.
	devices := device.NewService(db, logger)
	decryptor := credential.NewAESDecryptor(cfg.CredentialEncryptionKey)
	credentials := credential.NewService(db, decryptor)
	transports := &transport.Factory{ReadTimeout: cfg.ApplyTransportTimeout}

	planStore := plan.NewStore(db)
	planService := plan.NewService(planStore, devices, logger, cfg.ApprovalTTL)

	snapshots := apply.NewSnapshotStore(db)
	jobs := apply.NewJobStore(db)
	executor := apply.NewExecutor(planService, planStore, devices, credentials, transports, snapshots, jobs, auditWriter, logger, apply.Config{
		DeviceTimeout:    cfg.ApplyDeviceTimeout,
		TransportTimeout: cfg.ApplyTransportTimeout,
		CredentialKind:   credential.KindREST,
	})

	srv := httpserver.NewServer(cfg, logger, db, rdb, metricsReg, oidcAuth)

	srv.Router.Get("/status", srv.HandleStatus)

	planHandler := plan.NewHandler(planService, gate, auditWriter, logger)
	srv.APIRouter.Mount("/", planHandler.Routes())

	// Only one handler can be mounted at "/", so the apply routes are
	// registered on their exact paths.
	applyHandler := apply.NewHandler(executor, planService, gate, jobs, logger)
	applyRoutes := applyHandler.Routes()
	srv.APIRouter.Handle("/plans/{id}/apply", applyRoutes)
	srv.APIRouter.Handle("/jobs/{id}", applyRoutes)

	auditHandler := audit.NewHandler(db, logger)
	srv.APIRouter.Mount("/audit-log", auditHandler.Routes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
