package presenceservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/flagmap/flagmap/server/internal/api"
	"github.com/flagmap/flagmap/server/internal/api/recovery"
	"github.com/flagmap/flagmap/server/internal/auth"
	"github.com/flagmap/flagmap/server/internal/config"
	"github.com/flagmap/flagmap/server/internal/factory"
	"github.com/flagmap/flagmap/server/internal/health"
	"github.com/flagmap/flagmap/server/internal/logger"
	"github.com/flagmap/flagmap/server/internal/realtime"
	"github.com/flagmap/flagmap/server/internal/services"
	"github.com/flagmap/flagmap/server/internal/store"
)

// Run starts the presence service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("presence-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Msg("Presence service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	st, err := factory.NewStore(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Store adapter unavailable")
		return err
	}

	router, svcHealth := buildService(ctx, cfg, st, log)

	// Block startup until the store reports healthy. This also waits out a
	// concurrent data import running against the shared database.
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}
}

// buildService wires the realtime core, services, and HTTP routes, and
// starts the health checkers.
func buildService(ctx context.Context, cfg *config.Config, st store.Store, log zerolog.Logger) (*mux.Router, *health.ServiceChecker) {
	gateway := realtime.NewGateway(log)
	registry := realtime.NewRegistry()
	roster := realtime.NewRoster()

	challengeSvc := services.NewChallengeService(st)
	wsHandler := realtime.NewHandler(gateway, registry, roster, challengeSvc, cfg.AllowedOrigin, cfg.SendBuffer, log)

	actionLogSvc := services.NewActionLogService(st, gateway, log)
	resolver := auth.NewResolver(st, auth.NewJWTSessions(cfg.SessionSecret))

	svcHealth := startHealthCheckers(ctx, cfg, log, st)

	root := mux.NewRouter()
	root.Use(recovery.Middleware)

	root.Handle("/ws", wsHandler)
	api.NewActionLogHandler(actionLogSvc, resolver, log).Register(root)
	root.HandleFunc("/healthz", api.NewHealthHandler(svcHealth.IsHealthy).Check).Methods("GET")

	return root, svcHealth
}

// startHealthCheckers starts the store checker and the service aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store) *health.ServiceChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	pinger, ok := st.(health.Pinger)
	if !ok {
		// stores always ping; guard for fakes in tests
		pinger = noopPinger{}
	}
	storeChecker := health.NewComponentChecker("store", pinger, log, probeTimeout)
	go storeChecker.Start(ctx, interval)

	svcHealth := health.NewServiceChecker(log, storeChecker)
	go svcHealth.Start(ctx, interval)
	return svcHealth
}

type noopPinger struct{}

func (noopPinger) HealthPing(context.Context) error { return nil }

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceChecker) error {
	timeoutSeconds := startupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// startupHealthTimeout returns the startup window in seconds: two probe
// intervals with a one-minute floor, allowing the first probe cycle (and a
// running data import) to complete.
func startupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
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

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
