package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/envdata-aggregation/internal/envdata"
)

const (
	ProviderModeLive = "live"
	ProviderModeMock = "mock"
)

type AppConfig struct {
	AppEnv   string
	LogLevel slog.Level
	Port     string

	OpenWeatherAPIKey     string
	WeatherAPIKey         string
	GoogleGeocodingAPIKey string
	GeocodeCacheSize      int
	ProviderMode          string
	ProviderMaxRetries    int
	HTTPTimeout           time.Duration
	RainChanceCoefficient float64
	HistoryLatencyDays    int

	// FetchInterval controls how often tracked locations are refreshed.
	FetchInterval time.Duration

	// Locations to refresh in the background.
	Locations []envdata.Location

	// In-memory report cache retention.
	StoreMaxHistory int           // max number of reports per location (0 = unlimited)
	StoreMaxAge     time.Duration // max age of reports (0 = unlimited)
}

// Load reads configuration from the environment (and .env when present) with sensible defaults.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	if cfg.AppEnv != "dev" && cfg.AppEnv != "prod" {
		return nil, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level
	cfg.Port = getenvDefault("PORT", "8080")

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.GoogleGeocodingAPIKey = os.Getenv("GOOGLE_GEOCODING_API_KEY")
	cfg.GeocodeCacheSize = getenvInt("GEOCODE_CACHE_SIZE", 1000)

	cfg.ProviderMode = strings.ToLower(getenvDefault("PROVIDER_MODE", ProviderModeLive))
	if cfg.ProviderMode != ProviderModeLive && cfg.ProviderMode != ProviderModeMock {
		return nil, fmt.Errorf("invalid PROVIDER_MODE %q (allowed: live, mock)", cfg.ProviderMode)
	}

	cfg.ProviderMaxRetries = getenvInt("PROVIDER_MAX_RETRIES", 0)
	if cfg.ProviderMaxRetries < 0 {
		return nil, fmt.Errorf("invalid PROVIDER_MAX_RETRIES: must be >= 0")
	}

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	coef, err := strconv.ParseFloat(getenvDefault("RAIN_CHANCE_COEFFICIENT", "10"), 64)
	if err != nil || coef <= 0 {
		return nil, fmt.Errorf("invalid RAIN_CHANCE_COEFFICIENT: must be a positive number")
	}
	cfg.RainChanceCoefficient = coef

	cfg.HistoryLatencyDays = getenvInt("HISTORY_LATENCY_DAYS", envdata.DefaultHistoryLatencyDays)
	if cfg.HistoryLatencyDays < 1 || cfg.HistoryLatencyDays > 3 {
		return nil, fmt.Errorf("invalid HISTORY_LATENCY_DAYS: must be between 1 and 3")
	}

	// Refresh interval: default 15 minutes.
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 96) // roughly 24h at 15-minute intervals
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	locs, err := loadTrackedLocations()
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs

	return cfg, nil
}

// loadTrackedLocations zips the comma-separated TRACK_* variables. Cities and
// countries are optional but, when given, must match the coordinate count.
func loadTrackedLocations() ([]envdata.Location, error) {
	lats := splitList(os.Getenv("TRACK_LATITUDES"))
	lons := splitList(os.Getenv("TRACK_LONGITUDES"))
	cities := splitList(os.Getenv("TRACK_CITIES"))
	countries := splitList(os.Getenv("TRACK_COUNTRIES"))

	if len(lats) != len(lons) {
		return nil, fmt.Errorf("number of latitudes and longitudes must be the same")
	}
	if len(cities) > 0 && len(cities) != len(lats) {
		return nil, fmt.Errorf("number of cities must match number of coordinates")
	}
	if len(countries) > 0 && len(countries) != len(lats) {
		return nil, fmt.Errorf("number of countries must match number of coordinates")
	}

	var locs []envdata.Location
	for i := range lats {
		lat, err := strconv.ParseFloat(lats[i], 64)
		if err != nil || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("invalid latitude %q", lats[i])
		}
		lon, err := strconv.ParseFloat(lons[i], 64)
		if err != nil || lon < -180 || lon > 180 {
			return nil, fmt.Errorf("invalid longitude %q", lons[i])
		}
		loc := envdata.Location{Lat: lat, Lon: lon}
		if len(cities) > 0 {
			loc.City = cities[i]
		}
		if len(countries) > 0 {
			loc.Country = countries[i]
		}
		locs = append(locs, loc)
	}
	return locs, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
