// Package matchservice wires configuration, the store, the service
// layer and the HTTP server for the match service binary.
package matchservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/skillloop/skillloop-server/internal/api"
	"github.com/skillloop/skillloop-server/internal/auth"
	"github.com/skillloop/skillloop-server/internal/config"
	"github.com/skillloop/skillloop-server/internal/health"
	"github.com/skillloop/skillloop-server/internal/logger"
	"github.com/skillloop/skillloop-server/internal/services"
	"github.com/skillloop/skillloop-server/internal/store"
	"github.com/skillloop/skillloop-server/internal/store/memory"
	"github.com/skillloop/skillloop-server/internal/store/postgres"
	"github.com/skillloop/skillloop-server/internal/store/sqlite"
)

const (
	healthInterval     = 15 * time.Second
	healthProbeTimeout = 2 * time.Second
)

// Run starts the match service HTTP server and blocks until shutdown
// or a fatal error.
func Run() error {
	log := logger.New("match-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Msg("match service starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := newStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("store unavailable")
		return err
	}

	authorizer, err := newAuthorizer(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("invalid API key configuration")
		return err
	}

	svcHealth := startHealthCheckers(ctx, log, st)

	server := newHTTPServer(ctx, cfg, buildRouter(st, authorizer, log, svcHealth.IsHealthy))
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("server forced to shutdown")
			return err
		}
		log.Info().Msg("server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// newStore selects the store driver from configuration.
func newStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return postgres.New(db), nil
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return sqlite.New(ctx, db)
	case "memory":
		log.Warn().Msg("using in-memory store, data will not survive restarts")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported DB driver: %s", cfg.DBDriver)
	}
}

func newAuthorizer(cfg *config.Config, log zerolog.Logger) (auth.Authorizer, error) {
	if cfg.DevMode {
		log.Warn().Msg("dev mode: every bearer token resolves to a local admin")
		return auth.DevAuthorizer{}, nil
	}
	return auth.NewStaticAuthorizer(cfg.AdminKeys, cfg.SalesKeys, cfg.MemberKeys)
}

func buildRouter(st store.Store, authorizer auth.Authorizer, log zerolog.Logger, isHealthy func() bool) http.Handler {
	srv := api.NewServer(
		services.NewUserService(st),
		services.NewLeadService(st, log),
		services.NewMatchService(st),
		services.NewOrderService(st, log),
		services.NewAnalyticsService(st, log),
		authorizer,
		isHealthy,
	)
	return api.NewRouter(srv, log)
}

func startHealthCheckers(ctx context.Context, log zerolog.Logger, st store.Store) *health.ServiceChecker {
	storeChecker := health.NewStoreChecker(st, log, healthProbeTimeout)
	go storeChecker.Start(ctx, healthInterval)

	svcHealth := health.NewServiceChecker(log, storeChecker)
	go svcHealth.Start(ctx, healthInterval)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}
