package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/agon/internal/adapters/http/api"
	"github.com/okian/agon/internal/adapters/http/swagger"
	"github.com/okian/agon/internal/adapters/ledger"
	"github.com/okian/agon/internal/adapters/ledger/endpoint"
	app "github.com/okian/agon/internal/app"
	"github.com/okian/agon/internal/config"
	"github.com/okian/agon/internal/epoch"
	"github.com/okian/agon/pkg/logger"
	"github.com/okian/agon/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics;
	// the system metrics updater covers the interesting ones.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	pool, err := endpoint.New(cfg.LedgerEndpoints)
	if err != nil {
		os.Stderr.WriteString("failed to build endpoint pool: " + err.Error() + "\n")
		return
	}
	gateway := ledger.NewClient(pool,
		ledger.WithRetryAttempts(cfg.RetryAttempts),
		ledger.WithRetryBackoff(cfg.RetryBackoff()),
		ledger.WithOperatorToken(cfg.OperatorToken),
	)

	svc := app.New(gateway,
		app.WithLogger(log),
		app.WithFee(cfg.FeeAmount),
		app.WithQuota(cfg.WeeklyQuota),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.EvalQueueSize),
		app.WithCacheTTL(cfg.CacheTTL()),
		app.WithRefreshInterval(cfg.RateLimitInterval()),
		app.WithScoringLatencyRange(
			time.Duration(cfg.ScoringLatencyMinMS)*time.Millisecond,
			time.Duration(cfg.ScoringLatencyMaxMS)*time.Millisecond,
		),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startEpochScheduler(ctx, svc, cfg.EpochPollInterval())

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, cfg.AdminToken).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// startEpochScheduler invokes the weekly transition sequence on a fixed
// cadence. Each invocation re-derives everything from authoritative state,
// so overlapping or repeated runs stay safe.
func startEpochScheduler(ctx context.Context, svc *app.Service, interval time.Duration) {
	log := logger.Get().Named("scheduler")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := svc.AdvanceEpoch(ctx)
			if err != nil {
				log.Warn(ctx, "epoch advance attempt failed", logger.Error(err))
				continue
			}
			if res.Status != epoch.StatusNotYetEnded {
				log.Info(ctx, "epoch advanced by scheduler",
					logger.Uint64("closedEpoch", res.Epoch),
					logger.Bool("rolledOver", res.RolledOver),
				)
			}
		}
	}
}

// startSystemMetricsUpdater refreshes process-level metrics periodically.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
