package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ForecastBench/internal/handler/api"
	icache "ForecastBench/internal/service/cache"
	"ForecastBench/internal/service/jobs"
	"ForecastBench/internal/usecase"
	pkgch "ForecastBench/pkg/clickhouse"
	"ForecastBench/pkg/config"
	xhttp "ForecastBench/pkg/http"
	pkgkafka "ForecastBench/pkg/kafka"
	applogger "ForecastBench/pkg/logger"
	pkgqueue "ForecastBench/pkg/queue"

	"github.com/labstack/echo/v4"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	rounds      *usecase.RoundCollector
	resolutions *usecase.ResolutionCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	queue       *pkgqueue.RedisQueue
	reports     *usecase.ReportsUseCase
	echoHandler *api.ReportsEchoHandler
	rawHandler  *api.ReportsHandler
	httpServer  *xhttp.Server
	OutcomeProc *usecase.OutcomeProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	rounds *usecase.RoundCollector,
	resolutions *usecase.ResolutionCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	queue *pkgqueue.RedisQueue,
	reports *usecase.ReportsUseCase,
	echoHandler *api.ReportsEchoHandler,
) *App {
	return &App{
		cfg:         cfg,
		rounds:      rounds,
		resolutions: resolutions,
		consumer:    consumer,
		kh:          kh,
		chClient:    chClient,
		queue:       queue,
		reports:     reports,
		echoHandler: echoHandler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return err
	}

	a.httpServer = xhttp.NewServer(a.echoHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	a.registerCachedRoutes(l)
	a.registerHealth()

	// Resolver feed first: labels can settle while the first round runs.
	if a.resolutions != nil {
		go func() {
			if err := a.resolutions.Start(ctx); err != nil {
				l.Error("resolution collector error", applogger.Error(err))
			}
		}()
		l.Info("resolution collector started", applogger.String("url", a.cfg.Resolver.WebSocketURL))
	}

	if a.rounds != nil {
		a.rounds.Start(ctx)
		l.Info("round collector started",
			applogger.Int("models", len(a.cfg.Models)),
			applogger.Duration("interval", a.cfg.Round.Interval))
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.queue != nil {
		a.queue.RegisterJob(jobs.NewReportRefreshJob(a.reports, l))
		if err := a.queue.Start(); err != nil {
			l.Warn("queue start error", applogger.Error(err))
		}
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx, l)
}

// registerCachedRoutes mounts the byte-cached report views next to the
// validated API.
func (a *App) registerCachedRoutes(l *applogger.Logger) {
	if a.reports == nil {
		return
	}
	raw := api.NewReportsHandler(a.reports)
	raw.SetLogger(l)

	var bc icache.BytesCache = icache.NewTTLCache()
	if a.cfg.Cache.Redis.Enabled {
		redisBC := icache.NewRedisCache(icache.RedisConfig{
			Addr:     a.cfg.Cache.Redis.Addr,
			Password: a.cfg.Cache.Redis.Password,
			DB:       a.cfg.Cache.Redis.DB,
		})
		bc = icache.NewLayeredBytes(redisBC, a.cfg.Cache.TTL)
	}
	raw.SetCache(bc)
	a.rawHandler = raw

	e := a.httpServer.Echo()
	e.GET("/api/v1/cached/leaderboard", echo.WrapHandler(raw.Leaderboard()))
	e.GET("/api/v1/cached/ensemble", echo.WrapHandler(raw.Ensemble()))
}

// registerHealth probes infrastructure dependencies.
func (a *App) registerHealth() {
	e := a.httpServer.Echo()
	e.GET("/healthz", func(c echo.Context) error {
		if a.chClient != nil {
			hctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
			defer cancel()
			if err := a.chClient.Health(hctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "clickhouse": err.Error()})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context, l *applogger.Logger) error {
	if a.rounds != nil {
		a.rounds.Stop()
	}

	if a.resolutions != nil {
		if err := a.resolutions.Shutdown(ctx); err != nil {
			l.Warn("resolution collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			l.Warn("queue stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.OutcomeProc != nil {
		a.OutcomeProc.Close()
	}

	l.Info("shutdown complete")
	return nil
}
