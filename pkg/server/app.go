package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"BiasGuard/internal/domain/repository"
	"BiasGuard/pkg/config"
	xhttp "BiasGuard/pkg/http"
	applogger "BiasGuard/pkg/logger"
	"BiasGuard/pkg/store"
)

// App encapsulates the application lifecycle: one HTTP server in
// front of the consistency engine, with the store and the optional
// Kafka/ClickHouse sinks closed in reverse start order.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	store      store.Store
	publisher  repository.Publisher
	archiver   repository.Archiver
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	st store.Store,
	publisher repository.Publisher,
	archiver repository.Archiver,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		log:       l,
		store:     st,
		publisher: publisher,
		archiver:  archiver,
		handler:   handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}

	a.httpServer = xhttp.NewServer(a.handler, a.log,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.archiver != nil {
		if err := a.archiver.Close(); err != nil {
			a.log.Warn("archiver close error", applogger.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("store close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
