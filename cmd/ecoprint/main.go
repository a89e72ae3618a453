package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zafarze/ecoprint/internal/engine"
	"github.com/zafarze/ecoprint/internal/gateway"
	"github.com/zafarze/ecoprint/internal/orders"
	"github.com/zafarze/ecoprint/internal/settings"
	"github.com/zafarze/ecoprint/internal/snapcache"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded:", err)
	}
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	client := gateway.NewClient(
		getEnv("ECOPRINT_API_BASE_URL", "http://127.0.0.1:8000"),
		os.Getenv("ECOPRINT_CSRF_TOKEN"),
		nil,
	)
	store := orders.NewStore()

	cacheBackend, err := snapcache.BuildBackendFromDSN(os.Getenv("ECOPRINT_SNAPSHOT_CACHE_DSN"))
	if err != nil {
		logger.Fatal("failed to initialize snapshot cache", zap.Error(err))
	}
	if closer, ok := cacheBackend.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	prefsService, err := settings.NewService(os.Getenv("ECOPRINT_SETTINGS_FILE"), logger)
	if err != nil {
		logger.Fatal("failed to initialize settings", zap.Error(err))
	}
	if err := prefsService.Watch(); err != nil {
		logger.Warn("settings hot-reload unavailable", zap.Error(err))
	}
	defer func() { _ = prefsService.Close() }()

	renderer := NewConsoleRenderer(os.Stdout)
	alerts := NewConsoleAlertSink(os.Stdout, prefsService.Current)

	seedFromCache(cacheBackend, store, renderer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var coord *engine.Coordinator
	loop := engine.NewRefreshLoop(
		durationEnv("ECOPRINT_REFRESH_INTERVAL", engine.DefaultRefreshInterval),
		func(ctx context.Context) error {
			if err := coord.Refresh(ctx); err != nil {
				return err
			}
			saveSnapshot(cacheBackend, store, logger)
			return nil
		},
		logger,
	)
	coord = engine.NewCoordinator(store, client, engine.CoordinatorOptions{
		Renderer:  renderer,
		Alerts:    alerts,
		Logger:    logger,
		Refresher: loop,
	})

	if err := coord.Initialize(ctx); err != nil {
		logger.Warn("initial load failed, serving cached snapshot until refresh succeeds", zap.Error(err))
	} else {
		saveSnapshot(cacheBackend, store, logger)
	}

	notifier := engine.NewNotifier(store, alerts, engine.NotifierOptions{
		Preferences: prefsService.Current,
		Logger:      logger,
		Period:      durationEnv("ECOPRINT_NOTIFY_PERIOD", engine.DefaultNotifyPeriod),
	})
	notifier.Start()
	defer notifier.Stop()

	loop.Start(ctx)
	defer loop.Stop()

	logger.Info("ecoprint order engine running",
		zap.Duration("refreshInterval", durationEnv("ECOPRINT_REFRESH_INTERVAL", engine.DefaultRefreshInterval)))
	<-ctx.Done()
	logger.Info("shutting down")
}

func seedFromCache(backend snapcache.Backend, store *orders.Store, renderer *ConsoleRenderer, logger *zap.Logger) {
	if backend == nil {
		return
	}
	snapshot, err := backend.Load()
	if err != nil {
		logger.Warn("snapshot cache load failed", zap.Error(err))
		return
	}
	if snapshot == nil {
		return
	}
	store.SetOrders(snapshot.Orders)
	store.SetProductCatalog(snapshot.Products)
	store.SetUserCatalog(snapshot.Users)
	renderer.RenderOrders(orders.Visible(store.Orders(), store.FilterState(), store.SortConfig(), time.Now()))
	logger.Info("painted from snapshot cache", zap.Time("savedAt", snapshot.SavedAt))
}

func saveSnapshot(backend snapcache.Backend, store *orders.Store, logger *zap.Logger) {
	if backend == nil {
		return
	}
	err := backend.Save(&snapcache.Snapshot{
		Orders:   store.Orders(),
		Products: store.ProductCatalog(),
		Users:    store.UserCatalog(),
		SavedAt:  time.Now(),
	})
	if err != nil {
		logger.Warn("snapshot cache save failed", zap.Error(err))
	}
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	if level := strings.TrimSpace(os.Getenv("ECOPRINT_LOG_LEVEL")); level != "" {
		if parsed, err := zap.ParseAtomicLevel(level); err == nil {
			cfg.Level = parsed
		}
	}
	logger, err := cfg.Build()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	return logger
}

func getEnv(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func durationEnv(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using fallback %s", name, raw, fallback.String())
		return fallback
	}
	return value
}
