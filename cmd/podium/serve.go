package main

import (
	"context"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/podium/internal/adapters/http/api"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

const (
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func (c *cli) serve(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logger.Get()

	svc, err := c.newService(cmd)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		_ = svc.Stop(context.Background())
		return err
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	server := api.NewServer(svc,
		api.WithMaxLimit(c.cfg.MaxLeaderboardLimit),
		api.WithClientOrigin(c.cfg.ClientOrigin),
		api.WithLogger(log.Named("http")),
	)
	listenErr := make(chan error, 1)
	go func() { listenErr <- server.Listen(c.cfg.Addr) }()

	select {
	case <-ctx.Done():
		log.Info(ctx, "shutting down server...")
	case err = <-listenErr:
		log.Error(ctx, "HTTP server failed", logger.Error(err))
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if serr := server.Shutdown(shutdownCtx); serr != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(serr))
	}
	if serr := svc.Stop(shutdownCtx); serr != nil {
		log.Error(shutdownCtx, "service shutdown failed", logger.Error(serr))
	}
	log.Info(shutdownCtx, "server stopped")
	return err
}

// startSystemMetricsUpdater refreshes process metrics until ctx is done.
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

// startServiceMetricsUpdater mirrors service stats into gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := svc.Stats(ctx)
			metrics.UpdateQueueSize(st.QueueLength)
			metrics.UpdateRankedPlayers(st.RankedPlayers)
			metrics.UpdateWorkerCount(st.Workers)
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
