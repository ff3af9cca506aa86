package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "SignalGate/internal/domain/repository"
	"SignalGate/internal/usecase"
	pkgcache "SignalGate/pkg/cache"
	pkgch "SignalGate/pkg/clickhouse"
	"SignalGate/pkg/config"
	xhttp "SignalGate/pkg/http"
	pkgkafka "SignalGate/pkg/kafka"
	applogger "SignalGate/pkg/logger"
)

// Components groups everything the application runs or owns.
type Components struct {
	Collector  *usecase.QuoteCollector
	Consumer   *pkgkafka.Consumer
	Evidence   *usecase.EvidenceHandler
	Analyzer   *usecase.AnalyzerWorker
	Watcher    *usecase.WatcherWorker
	Reconciler *usecase.ValidationReconciler
	Handler    xhttp.Handler
	Store      drepo.SignalStore
	Events     drepo.EventPublisher
	ClickHouse *pkgch.Client
	Redis      *pkgcache.RedisCache
}

// App encapsulates the entire application lifecycle: the live quote collector,
// the evidence consumer, the three interval workers, and the read-only HTTP
// surface.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	c          Components
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	return &App{cfg: cfg, l: l, c: c}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.c.Handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Live quote stream into the quote cache
	go func() {
		if err := a.c.Collector.Start(ctx); err != nil {
			a.l.Error("quote collector error", applogger.Error(err))
		}
	}()
	a.l.Info("quote collector started", applogger.Strings("assets", a.cfg.Engine.Assets))

	// Evidence intake from Kafka
	if a.c.Consumer != nil && a.c.Evidence != nil {
		a.c.Consumer.RegisterHandler(a.c.Evidence)
		go func() {
			if err := a.c.Consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka consumer started", applogger.String("topic", a.c.Evidence.Topic()))
	}

	// Interval workers
	go a.c.Analyzer.Run(ctx)
	go a.c.Watcher.Run(ctx)
	go a.c.Reconciler.Run(ctx)

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services. Workers already stopped via the run
// context; here we drain and close the outer resources.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.c.Collector.Shutdown(shutdownCtx); err != nil {
		a.l.Warn("collector stop error", applogger.Error(err))
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(shutdownCtx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.c.Events != nil {
		if err := a.c.Events.Close(); err != nil {
			a.l.Warn("event publisher close error", applogger.Error(err))
		}
	}
	if a.c.Store != nil {
		if err := a.c.Store.Close(); err != nil {
			a.l.Warn("signal store close error", applogger.Error(err))
		}
	}
	if a.c.ClickHouse != nil {
		if err := a.c.ClickHouse.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.c.Redis != nil {
		if err := a.c.Redis.Close(); err != nil {
			a.l.Warn("redis close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
