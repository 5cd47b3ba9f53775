// Package geocode resolves coordinates to locality names for event labels.
package geocode

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/envdata-aggregation/internal/envdata"
)

var (
	// ErrNoAPIKey is returned when the Google geocoding key is not configured.
	ErrNoAPIKey = errors.New("google geocoding api key is not configured")
	// ErrNoResults is returned when the geocoder knows nothing about the coordinates.
	ErrNoResults = errors.New("no geocoding results")
)

// geocoder keeps its key in a package variable; set it once.
var setKeyOnce sync.Once

// GoogleResolver implements envdata.LocationResolver with the Google Geocoding API.
type GoogleResolver struct {
	apiKey  string
	reverse func(geocoder.Location) ([]geocoder.Address, error)
	logger  *slog.Logger
}

// NewGoogleResolver creates a resolver. An empty apiKey yields a resolver that always fails
// with ErrNoAPIKey.
func NewGoogleResolver(apiKey string, logger *slog.Logger) *GoogleResolver {
	if logger == nil {
		logger = slog.Default()
	}
	if apiKey != "" {
		setKeyOnce.Do(func() { geocoder.ApiKey = apiKey })
	}
	return &GoogleResolver{
		apiKey:  apiKey,
		reverse: geocoder.GeocodingReverse,
		logger:  logger,
	}
}

// Resolve reverse-geocodes lat/lon. The underlying client is not context-aware, so
// ctx is only checked before the call.
func (r *GoogleResolver) Resolve(ctx context.Context, lat, lon float64) (envdata.Place, error) {
	if r.apiKey == "" {
		return envdata.Place{}, ErrNoAPIKey
	}
	if err := ctx.Err(); err != nil {
		return envdata.Place{}, err
	}

	addresses, err := r.reverse(geocoder.Location{Latitude: lat, Longitude: lon})
	if err != nil {
		r.logger.Debug("google reverse geocoding failed", "lat", lat, "lon", lon, "error", err)
		return envdata.Place{}, err
	}

	for _, a := range addresses {
		city := a.City
		if city == "" {
			city = a.District
		}
		if city == "" && a.Country == "" {
			continue
		}
		return envdata.Place{
			City:             city,
			Country:          a.Country,
			FormattedAddress: a.FormattedAddress,
		}, nil
	}
	return envdata.Place{}, ErrNoResults
}
