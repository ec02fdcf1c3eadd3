package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	apiserver "github.com/webilytics/webinar-sync/internal/api_server"
	"github.com/webilytics/webinar-sync/internal/config"
	"github.com/webilytics/webinar-sync/internal/store"
	"github.com/webilytics/webinar-sync/pkg/log"
	"github.com/webilytics/webinar-sync/pkg/migrations"
)

const metricsAddress = ":8081"

func main() {
	cfg, err := config.New()
	if err != nil {
		zap.S().Fatalf("reading configuration: %v", err)
	}

	undo := log.Setup(cfg.Service.LogLevel)
	defer undo()

	logger := zap.S().Named("api")
	logger.Info("Starting webinar sync service")
	defer logger.Info("Webinar sync service stopped")

	logger.Info("Initializing data store")
	db, err := store.InitDB(cfg)
	if err != nil {
		logger.Fatalf("initializing data store: %v", err)
	}

	s := store.NewStore(db)
	defer s.Close()

	if cfg.Service.MigrationFolder != "" {
		pool, err := newMigrationPool(context.Background(), cfg)
		if err != nil {
			logger.Fatalf("connecting for migrations: %v", err)
		}
		if err := migrations.MigrateStore(db, cfg.Service.MigrationFolder, pool); err != nil {
			logger.Fatalf("running migrations: %v", err)
		}
		pool.Close()
	} else if err := s.InitialMigration(); err != nil {
		logger.Fatalf("running initial migration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	go func() {
		listener, err := newListener(cfg.Service.Address)
		if err != nil {
			logger.Fatalf("creating listener: %s", err)
		}

		server := apiserver.New(cfg, s, listener)
		if err := server.Run(ctx); err != nil {
			logger.Fatalf("Error running server: %s", err)
		}
		cancel()
	}()

	go func() {
		listener, err := newListener(metricsAddress)
		if err != nil {
			logger.Fatalf("creating metrics listener: %s", err)
		}

		metricsServer := apiserver.NewMetricServer(metricsAddress, listener)
		if err := metricsServer.Run(ctx); err != nil {
			logger.Fatalf("Error running metrics server: %s", err)
		}
		cancel()
	}()

	<-ctx.Done()
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}

func newMigrationPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s port=%s dbname=%s",
		cfg.Database.Hostname,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Port,
		cfg.Database.Name,
	)
	return pgxpool.New(ctx, dsn)
}
