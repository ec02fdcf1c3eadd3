package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/webilytics/webinar-sync/internal/auth"
	"github.com/webilytics/webinar-sync/internal/config"
	"github.com/webilytics/webinar-sync/internal/events"
	"github.com/webilytics/webinar-sync/internal/handlers"
	"github.com/webilytics/webinar-sync/internal/jobs"
	"github.com/webilytics/webinar-sync/internal/platform"
	"github.com/webilytics/webinar-sync/internal/service"
	"github.com/webilytics/webinar-sync/internal/store"
	"github.com/webilytics/webinar-sync/internal/sync"
	"github.com/webilytics/webinar-sync/pkg/metrics"
	"github.com/webilytics/webinar-sync/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg      *config.Config
	store    store.Store
	listener net.Listener
}

// New returns a new instance of a webinar-sync API server.
func New(
	cfg *config.Config,
	store store.Store,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		listener: listener,
	}
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	tokens, err := auth.NewTokenProvider(s.cfg)
	if err != nil {
		if !errors.Is(err, auth.ErrConnectionNotConfigured) {
			return fmt.Errorf("failed to create token provider: %w", err)
		}
		// Boot anyway: every sync fails its validation stage until the
		// platform credentials are configured.
		zap.S().Named("api_server").Warn("webinar platform connection is not configured")
		tokens = auth.StaticTokenProvider("")
	}

	client := platform.NewClient(s.cfg, tokens)

	eventProducer := events.NewEventProducer(&events.StdoutWriter{})
	defer func() {
		_ = eventProducer.Close()
	}()

	engine := sync.NewEngine(s.cfg, s.store, client, tokens, sync.WithEventWriter(eventProducer))
	orchestrator := sync.NewOrchestrator(engine)

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()
	metrics.RegisterMetrics()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	// Pool sized for job processing plus River's LISTEN connection.
	dsn := fmt.Sprintf("host=%s user=%s password=%s port=%s dbname=%s",
		s.cfg.Database.Hostname,
		s.cfg.Database.User,
		s.cfg.Database.Password,
		s.cfg.Database.Port,
		s.cfg.Database.Name,
	)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("failed to parse pgx config: %w", err)
	}
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 5
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer dbPool.Close()

	queue, err := jobs.NewClient(ctx, dbPool, orchestrator, engine)
	if err != nil {
		return fmt.Errorf("failed to create river client: %w", err)
	}
	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start river: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := queue.Stop(stopCtx); err != nil {
			zap.S().Named("api_server").Warnw("failed to stop river client", "error", err)
		}
	}()

	zap.S().Named("api_server").Info("River job queue initialized")

	syncService := service.NewSyncService(s.store, engine, queue)

	if s.cfg.Service.DiscoveryInterval > 0 {
		scheduler := NewDiscoveryScheduler(syncService, s.cfg.Service.DiscoveryInterval)
		go scheduler.Run(ctx)
	}

	h := handlers.New(syncService, service.NewWebinarService(s.store))
	h.Routes(router)

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}
