package envdata

import (
	"context"
	"time"
)

// ForecastPoint is one provider-native forecast bucket, already in canonical units.
type ForecastPoint struct {
	Time         string
	TemperatureC float64
	RainChance   int
}

// ProviderReading is a single forecast provider's normalized partial reading.
// Fallback providers leave Daily and Hourly empty.
type ProviderReading struct {
	ProviderName string
	Timestamp    time.Time

	TemperatureC    float64
	MinTemperatureC float64
	MaxTemperatureC float64
	HumidityPct     float64
	RainChance      int
	PrecipMm        float64
	WindSpeedMS     float64
	Pressure        KiloPascal
	UVIndex         float64

	Daily  []ForecastPoint
	Hourly []ForecastPoint
}

// AirQualityReading is an air-quality provider's partial reading.
// HourlyPM25 is keyed by the same time labels forecast providers use for hourly buckets.
type AirQualityReading struct {
	ProviderName string
	Current      AirQuality
	HourlyPM25   map[string]float64
}

// HistorySeries holds per-date values returned by a historical provider, keyed by
// "2006-01-02". Sentinel values are already coerced to 0.
type HistorySeries struct {
	ProviderName string
	Days         map[string]HistoricalDataPoint
}

// ForecastProvider abstracts a current-conditions/forecast data source.
type ForecastProvider interface {
	Name() string
	FetchForecast(ctx context.Context, loc Location) (ProviderReading, error)
}

// AirQualityProvider abstracts a pollutant data source.
type AirQualityProvider interface {
	Name() string
	FetchAirQuality(ctx context.Context, loc Location) (AirQualityReading, error)
}

// HistoryProvider abstracts a daily historical-record source. start and end are inclusive dates.
type HistoryProvider interface {
	Name() string
	FetchHistory(ctx context.Context, loc Location, start, end time.Time) (HistorySeries, error)
}

// NaturalEventSource lists externally reported natural events (wildfires, storms, ...).
type NaturalEventSource interface {
	Name() string
	FetchNaturalEvents(ctx context.Context) ([]ClimateEvent, error)
}

// Place is a reverse-geocoded locality.
type Place struct {
	City             string
	Country          string
	FormattedAddress string
}

// LocationResolver fills in locality names for a coordinate pair.
type LocationResolver interface {
	Resolve(ctx context.Context, lat, lon float64) (Place, error)
}

// Store caches generated reports. It is a collaborator of the engine; the engine itself is stateless.
type Store interface {
	SaveReport(loc Location, report Report)
	GetLatest(loc Location) (Report, error)
	GetRange(loc Location, from, to time.Time) ([]Report, error)
}
