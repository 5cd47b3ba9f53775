package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/envdata-aggregation/internal/api/http"
	"github.com/i474232898/envdata-aggregation/internal/config"
	"github.com/i474232898/envdata-aggregation/internal/envdata"
	"github.com/i474232898/envdata-aggregation/internal/envdata/providers"
	"github.com/i474232898/envdata-aggregation/internal/geocode"
	"github.com/i474232898/envdata-aggregation/internal/logging"
	"github.com/i474232898/envdata-aggregation/internal/observability"
	"github.com/i474232898/envdata-aggregation/internal/scheduler"
	"github.com/i474232898/envdata-aggregation/internal/store"
)

const appName = "envdata-aggregation"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr := logging.New(cfg, appName)
	slog.SetDefault(logr)

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Shared HTTP client for outbound provider calls.
	httpCfg := providers.HTTPClientConfig{
		Client:  &http.Client{Timeout: cfg.HTTPTimeout},
		Backoff: providers.DefaultBackoff(),
		Metrics: metrics,
		Logger:  logr,
	}
	httpCfg.Backoff.MaxRetries = cfg.ProviderMaxRetries

	// Reverse geocoding is optional; without a key events carry "Unknown" labels.
	var resolver envdata.LocationResolver
	if cfg.GoogleGeocodingAPIKey != "" {
		resolver = geocode.NewCachedResolver(geocode.NewGoogleResolver(cfg.GoogleGeocodingAPIKey, logr), cfg.GeocodeCacheSize)
	} else {
		logr.Info("GOOGLE_GEOCODING_API_KEY not set; location names will not be resolved")
	}

	var (
		chain      []envdata.ForecastProvider
		airQuality envdata.AirQualityProvider
		history    envdata.HistoryProvider
	)
	switch cfg.ProviderMode {
	case config.ProviderModeMock:
		mock := providers.NewMockProvider(clock)
		chain = []envdata.ForecastProvider{mock}
		airQuality = mock
		history = mock
	default:
		chain = []envdata.ForecastProvider{
			providers.NewOpenMeteoProvider(httpCfg, cfg.RainChanceCoefficient),
			providers.NewOpenWeatherProvider(httpCfg, cfg.OpenWeatherAPIKey, cfg.RainChanceCoefficient),
			providers.NewWeatherAPIProvider(httpCfg, cfg.WeatherAPIKey, cfg.RainChanceCoefficient),
		}
		airQuality = providers.NewOpenMeteoAirQualityProvider(httpCfg)
		history = providers.NewNASAPowerProvider(httpCfg)
	}

	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	service := envdata.NewService(envdata.ServiceDeps{
		Readings: envdata.NewAggregator(chain, airQuality, metrics, logr),
		History:  envdata.NewHistoryAggregator(history, clock, cfg.HistoryLatencyDays, metrics, logr),
		Rules:    envdata.NewRuleEngine(),
		Store:    memStore,
		Resolver: resolver,
		Natural:  providers.NewEONETProvider(httpCfg, resolver, clock),
		Clock:    clock,
		Metrics:  metrics,
		Logger:   logr,
	})

	logr.Info("engine configured",
		"mode", cfg.ProviderMode,
		"providers", service.ForecastProviders(),
		"tracked_locations", len(cfg.Locations),
	)

	// Scheduler that periodically refreshes tracked locations.
	sched := scheduler.New(cfg.Locations, cfg.FetchInterval, service, logr)
	if err := sched.Start(); err != nil {
		logr.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("fiber server stopped", "error", err)
		}
	}()
	logr.Info("listening", "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logr.Error("error during shutdown", "error", err)
	}
}
