package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/plexsphere/splicefabric/internal/admin"
	"github.com/plexsphere/splicefabric/internal/admission"
	"github.com/plexsphere/splicefabric/internal/config"
	"github.com/plexsphere/splicefabric/internal/dataplan"
	"github.com/plexsphere/splicefabric/internal/geoip"
	"github.com/plexsphere/splicefabric/internal/housekeeping"
	"github.com/plexsphere/splicefabric/internal/ingress"
	"github.com/plexsphere/splicefabric/internal/metrics"
	"github.com/plexsphere/splicefabric/internal/pool"
	"github.com/plexsphere/splicefabric/internal/protocolmon"
	"github.com/plexsphere/splicefabric/internal/push"
	"github.com/plexsphere/splicefabric/internal/splice"
	"github.com/plexsphere/splicefabric/internal/store"
	"github.com/plexsphere/splicefabric/internal/whitelist"
)

// drainTimeout is the maximum time for graceful shutdown.
const drainTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the splice fabric backend",
	Long: "Start the splice fabric backend daemon: agent ingress, connection pool,\n" +
		"splice engine, protocol monitor, data-plan tracker, whitelist resolver,\n" +
		"admin surface, and housekeeping jobs.",
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("splicefabric serve: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting splicefabric", "version", buildVersion)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Warn("failed to create data dir", "dir", cfg.DataDir, "error", err)
	}
	devices := store.NewMemoryStore()
	if err := devices.LoadSnapshot(cfg.DataDir); err != nil {
		logger.Warn("failed to load device snapshot", "dir", cfg.DataDir, "error", err)
	}
	pusher := push.NewLoggingSender(logger)
	geo := geoip.StaticResolver{}
	admissionCtrl := admission.NewDefault(logger)

	connPool := pool.New(cfg.Pool, logger)
	wl := whitelist.New(cfg.Whitelist, logger)
	monitor := protocolmon.New(devices, wl, logger)
	tracker := dataplan.New(devices, logger)
	plugins := []splice.Plugin{monitor, tracker}

	ingressSrv := ingress.NewServer(cfg.Ingress, connPool, admissionCtrl, geo, devices, logger)
	engine := splice.New(cfg.Splice, connPool, plugins, logger)
	housekeepingJobs := housekeeping.New(cfg.Housekeeping, devices, logger)
	metricsMgr := metrics.NewManager(0, []metrics.Collector{poolCollector(connPool), engineCollector(engine)}, logger)
	adminSrv := admin.NewServer(cfg.Admin, connPool, engine, devices, pusher, metricsMgr, cfg.Splice.CountryToPort, logger)

	var wg sync.WaitGroup
	runners := []struct {
		name string
		run  func(context.Context) error
	}{
		{"ingress", ingressSrv.Run},
		{"splice", engine.Run},
		{"pool.keepalive", connPool.RunKeepAlive},
		{"pool.in_use_sweep", connPool.RunInUseSweep},
		{"whitelist", wl.Run},
		{"housekeeping.clean_devices", housekeepingJobs.RunCleanDevices},
		{"housekeeping.regenerate_asns", housekeepingJobs.RunRegenerateASNLists},
		{"metrics", metricsMgr.Run},
		{"admin", adminSrv.Run},
	}

	for _, r := range runners {
		wg.Add(1)
		go func(name string, run func(context.Context) error) {
			defer wg.Done()
			if err := run(ctx); err != nil {
				logger.Error("subsystem stopped", "subsystem", name, "error", err)
			}
		}(r.name, r.run)
	}

	<-ctx.Done()
	logger.Info("shutting down", "reason", ctx.Err())

	connPool.CloseAll()
	if err := devices.SnapshotToFile(cfg.DataDir); err != nil {
		logger.Warn("failed to write device snapshot", "dir", cfg.DataDir, "error", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drainTimeout):
		logger.Warn("drain timeout exceeded, forcing exit")
	}

	logger.Info("splicefabric stopped")
	return nil
}

// poolCollector adapts the connection pool's idle/in-use counts to the
// metrics package's Collector shape without pool importing metrics.
func poolCollector(p *pool.Pool) metrics.FuncCollector {
	return func() []metrics.Point {
		pts := make([]metrics.Point, 0, 1)
		for cc, n := range p.CountByCountry() {
			pts = append(pts, metrics.Point{Name: "idle_agents", Value: float64(n), Tags: map[string]string{"country": cc}})
		}
		pts = append(pts, metrics.Point{Name: "in_use_agents", Value: float64(p.InUseCount())})
		return pts
	}
}

// engineCollector adapts the splice engine's active-splice count to the
// metrics package's Collector shape without splice importing metrics.
func engineCollector(e *splice.Engine) metrics.FuncCollector {
	return func() []metrics.Point {
		return []metrics.Point{{Name: "active_splices", Value: float64(e.ActiveCount())}}
	}
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
