package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"mdining/internal/api"
	"mdining/internal/capacity"
	"mdining/internal/config"
	"mdining/internal/database"
	"mdining/internal/metrics"
	"mdining/internal/service"
	"mdining/internal/status"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.close()

	if st.sqlite != nil {
		db := st.sqlite
		err = config.WatchVenues(ctx, cfg.VenuesPath, cfg.VenuesReloadInterval(), &logger, func(ch config.CatalogChange) {
			if err := db.SyncVenuesFromConfig(ctx, ch.Catalog); err != nil {
				logger.Error().Err(err).Strs("added", ch.Added).Strs("removed", ch.Removed).Msg("venue sync failed")
			}
		})
		if err != nil {
			return fmt.Errorf("watch venues: %w", err)
		}
		if cfg.Backup.Enabled {
			go startBackupLoop(ctx, db)
		}
	}

	checks := []api.ReadinessCheck{{Name: "db", Ping: st.ping}}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		checks = append(checks, api.ReadinessCheck{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	var feed capacity.Fetcher
	if cfg.Capacity.Enabled {
		client := capacity.NewClient(cfg.Capacity.BaseURL, cfg.Capacity.APIKey, cfg.Capacity.RequestsPerSecond)
		if rdb != nil {
			client.UseRedisCache(rdb, cfg.CapacityCacheTTL())
		}
		poller := capacity.NewPoller(client, cfg.RefreshInterval(), &logger)
		go poller.Run(ctx)
		feed = poller
	}

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort)
	}

	svc := service.NewDiningService(st.store, status.NewResolver(cfg.Location()), feed, &logger)
	srv := api.NewHTTPServer(cfg.Server.Port, cfg.ReadTimeout(), svc, feed, &logger, checks...)

	logger.Info().Str("driver", cfg.Database.Driver).Bool("capacity", feed != nil).Msg("mdining started")
	return srv.Start(ctx)
}

func startMetricsServer(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func startBackupLoop(ctx context.Context, db *database.DB) {
	if err := os.MkdirAll(cfg.Backup.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create backup directory")
		return
	}

	// First backup after a short delay
	select {
	case <-time.After(1 * time.Minute):
		runBackupTask(db)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(cfg.BackupInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runBackupTask(db)
		case <-ctx.Done():
			return
		}
	}
}

func runBackupTask(db *database.DB) {
	dest := filepath.Join(cfg.Backup.Path, fmt.Sprintf("mdining_%s.db", time.Now().Format("20060102_150405")))

	logger.Info().Str("path", dest).Msg("starting database backup")
	if err := db.Backup(dest); err != nil {
		logger.Error().Err(err).Msg("backup failed")
	} else {
		logger.Info().Msg("backup completed successfully")
	}

	deleted, err := db.CleanupBackups(cfg.Backup.Path, cfg.BackupRetention())
	if err != nil {
		logger.Error().Err(err).Msg("backup cleanup failed")
	} else if deleted > 0 {
		logger.Info().Int("deleted", deleted).Msg("cleaned up old backups")
	}
}
