package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"roombook/internal/booking"
	"roombook/internal/config"
	"roombook/internal/httpapi"
	"roombook/internal/metrics"
	"roombook/internal/model"
	"roombook/internal/notify"
	"roombook/internal/plone"
	"roombook/internal/sheets"
	"roombook/internal/slots"
	"roombook/internal/snapshot"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("failed to read .env")
	}

	configPath := os.Getenv("ROOMBOOK_CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	grid, err := cfg.Grid()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid calendar settings")
	}

	store, err := snapshot.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open snapshot db error")
	}
	defer store.Close()

	client := plone.NewClient(cfg.API.BaseURL, cfg.API.BookingsPath, cfg.APITimeout(), &logger)
	client.UseRateLimit(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst)
	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.API.CacheTTLSeconds > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var notifier booking.Notifier
	if cfg.NotificationsEnabled() {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatIDs, grid.Location, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("telegram notifications disabled")
		} else {
			go tg.Run(ctx)
			notifier = tg
		}
	}

	factory := func(token string, user model.User, resolver *slots.Resolver) *booking.Controller {
		ctrl := booking.NewController(client.WithToken(token), store, resolver, user, &logger)
		if notifier != nil {
			ctrl.UseNotifier(notifier)
		}
		return ctrl
	}
	resolver := slots.NewResolver(grid, nil, &logger)
	api := httpapi.NewHTTPServer(cfg.HTTP.Port, resolver, factory, cfg.SessionTTL(), &logger)

	if err := config.Watch(ctx, configPath, 30*time.Second, &logger, func(updated *config.Config) {
		g, err := updated.Grid()
		if err != nil {
			logger.Error().Err(err).Msg("ignoring invalid calendar settings")
			return
		}
		api.SetGrid(slots.NewResolver(g, nil, &logger))
		logger.Info().Time("reloaded_at", time.Now()).Msg("calendar settings reloaded")
	}); err != nil {
		logger.Error().Err(err).Msg("config watch failed")
	}

	if cfg.SheetsEnabled() {
		pub, err := sheets.NewPublisher(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("sheet sync disabled")
		} else {
			go pub.Run(ctx, client.WithToken(cfg.Sheets.ServiceToken), api.Resolver, cfg.SheetSyncInterval())
		}
	}

	go startPruneLoop(ctx, store, cfg.SnapshotRetention(), &logger)
	if cfg.Database.BackupPath != "" {
		go startBackupLoop(ctx, store, cfg, &logger)
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, store, rdb, client, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Str("api", cfg.API.BaseURL).Msg("roombook started")
	if err := api.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("calendar api server error")
	}
}

func startPruneLoop(ctx context.Context, store *snapshot.Store, retention time.Duration, logger *zerolog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		deleted, err := store.Prune(ctx, time.Now().Add(-retention))
		if err != nil {
			logger.Error().Err(err).Msg("snapshot prune failed")
		} else if deleted > 0 {
			logger.Info().Int64("deleted", deleted).Msg("pruned old week snapshots")
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func startBackupLoop(ctx context.Context, store *snapshot.Store, cfg *config.Config, logger *zerolog.Logger) {
	select {
	case <-time.After(time.Minute):
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(cfg.BackupInterval())
	defer ticker.Stop()

	for {
		runBackupTask(ctx, store, cfg, logger)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func runBackupTask(ctx context.Context, store *snapshot.Store, cfg *config.Config, logger *zerolog.Logger) {
	dest, err := store.Backup(ctx, cfg.Database.BackupPath)
	if err != nil {
		logger.Error().Err(err).Msg("backup failed")
		return
	}
	logger.Info().Str("path", dest).Msg("backup completed successfully")

	deleted, err := store.CleanupBackups(cfg.Database.BackupPath, cfg.BackupRetention())
	if err != nil {
		logger.Error().Err(err).Msg("backup cleanup failed")
	} else if deleted > 0 {
		logger.Info().Int("deleted", deleted).Msg("cleaned up old backups")
	}
}

func startHealthServer(ctx context.Context, port int, store *snapshot.Store, rdb *redis.Client, client *plone.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := store.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if err := client.HealthCheck(ctxPing); err != nil {
			http.Error(w, "content api not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
