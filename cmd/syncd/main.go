package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"contentsync/internal/config"
	"contentsync/internal/engine"
	"contentsync/internal/logger"
	"contentsync/internal/media"
	"contentsync/internal/processor"
	"contentsync/internal/scheduler"
	"contentsync/internal/server"
	"contentsync/internal/settings"
	"contentsync/internal/source"
	"contentsync/internal/store"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the bootstrap config file")
	flag.Parse()

	logger.Init()
	defer logger.Log.Info("Application stopped")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Log.Fatalf("Config load error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Log.Fatalf("Config invalid: %v", err)
	}

	contentStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("DB connection error: %v", err)
	}
	defer contentStore.Close()

	if err := contentStore.Migrate(ctx); err != nil {
		logger.Log.Fatalf("Migration error: %v", err)
	}

	settingsStore := settings.New(contentStore.Pool)
	if err := settingsStore.Seed(ctx, cfg); err != nil {
		logger.Log.Fatalf("Settings seed error: %v", err)
	}

	mediaStore, err := media.NewDiskStore(cfg.MediaDir)
	if err != nil {
		logger.Log.Fatalf("Media dir error: %v", err)
	}

	eng := engine.New(
		source.NewClient(cfg.ProviderEndpoint),
		contentStore,
		settingsStore,
		processor.NewRegistry(contentStore),
		media.NewSideloader(mediaStore, contentStore),
	)

	sched := scheduler.New()
	sched.OnTick(func() {
		// The sync settings are mutable at runtime; each tick re-reads
		// them and keeps the registration in step with the interval.
		syncCfg, err := settingsStore.LoadSyncConfig(ctx)
		if err != nil {
			logger.Log.Errorf("Scheduler config read error: %v", err)
			return
		}
		if !syncCfg.AutoSync {
			sched.Clear()
			return
		}
		if syncCfg.IntervalMinutes != sched.Interval() {
			if err := sched.RegisterInterval(syncCfg.IntervalMinutes); err != nil {
				logger.Log.Errorf("Schedule re-registration error: %v", err)
			}
		}

		summary, err := eng.RunOnce(ctx)
		if err != nil {
			logger.Log.Errorf("Scheduled sync error: %v", err)
			return
		}
		logger.Log.Info(summary)
	})

	syncCfg, err := settingsStore.LoadSyncConfig(ctx)
	if err != nil {
		logger.Log.Fatalf("Settings read error: %v", err)
	}
	if syncCfg.AutoSync {
		if err := sched.RegisterInterval(syncCfg.IntervalMinutes); err != nil {
			logger.Log.Fatalf("Schedule registration error: %v", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := server.NewServer(eng, settingsStore, contentStore)
	http.HandleFunc("POST /api/sync/run", srv.RunNow)
	http.HandleFunc("POST /api/sync/clear", srv.ClearHistory)
	http.HandleFunc("GET /api/sync/log", srv.GetLog)
	http.HandleFunc("GET /health", srv.HealthCheck)
	http.Handle("GET /metrics", promhttp.Handler())

	httpServer := &http.Server{Addr: cfg.ListenAddr}
	go func() {
		logger.Log.Infof("Starting HTTP server on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down...")
	ctxShutdown, cancelShutdown := context.WithTimeout(ctx, 5*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		logger.Log.Fatalf("Forced shutdown: %v", err)
	}
}
