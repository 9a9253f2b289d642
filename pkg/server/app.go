package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"LoserLab/internal/domain/repository"
	"LoserLab/internal/usecase"
	"LoserLab/pkg/cache"
	pkgch "LoserLab/pkg/clickhouse"
	"LoserLab/pkg/config"
	xhttp "LoserLab/pkg/http"
	applogger "LoserLab/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg      *config.Config
	l        *applogger.Logger
	jobs     *usecase.JobManager
	sink     *usecase.ResultSink
	store    repository.RunStore
	chClient *pkgch.Client
	cache    cache.Service
	handlers []xhttp.Handler

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. store, chClient and
// c may be nil when their backend is not configured.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	jobs *usecase.JobManager,
	sink *usecase.ResultSink,
	store repository.RunStore,
	chClient *pkgch.Client,
	c cache.Service,
	handlers []xhttp.Handler,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:      cfg,
		l:        l,
		jobs:     jobs,
		sink:     sink,
		store:    store,
		chClient: chClient,
		cache:    c,
		handlers: handlers,
	}
}

// Start initialises storage and starts the HTTP server.
func (a *App) Start(ctx context.Context) error {
	if a.store != nil {
		if err := a.store.Init(ctx); err != nil {
			return err
		}
	}

	opts := []xhttp.ServerOption{
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORS),
		xhttp.WithLogger(a.l),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(a.cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}
	a.httpServer = xhttp.NewServer(a.handlers, opts...)

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("app started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("backend", a.cfg.Backend.Type),
		applogger.String("prices", a.cfg.Backend.Prices),
	)
	return nil
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.Shutdown(ctx)
}

// Shutdown stops accepting requests, cancels running backtests and closes
// infrastructure clients.
func (a *App) Shutdown(ctx context.Context) error {
	a.l.Info("shutting down...")

	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.jobs != nil {
		a.jobs.Shutdown()
	}
	if a.sink != nil {
		a.sink.Close()
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.l.Warn("cache close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
