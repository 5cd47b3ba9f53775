package envdata

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/i474232898/envdata-aggregation/internal/observability"
)

const (
	dailyForecastLen  = 7
	hourlyForecastLen = 24
)

// Aggregator builds one EnvironmentalReading per location from an ordered
// forecast chain and an optional air-quality provider.
type Aggregator struct {
	chain      []ForecastProvider
	airQuality AirQualityProvider
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewAggregator creates an Aggregator. chain[0] is the primary provider; the rest
// are consulted in order only after the previous one failed. airQuality may be nil.
func NewAggregator(chain []ForecastProvider, airQuality AirQualityProvider, metrics *observability.Metrics, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		chain:      chain,
		airQuality: airQuality,
		metrics:    metrics,
		logger:     logger,
	}
}

// Providers returns the names of the forecast chain in fallback order.
func (a *Aggregator) Providers() []string {
	names := make([]string, 0, len(a.chain))
	for _, p := range a.chain {
		names = append(names, p.Name())
	}
	return names
}

// Aggregate fetches the forecast chain and air quality concurrently and assembles
// the canonical reading. Only an *AggregationError is returned on failure.
func (a *Aggregator) Aggregate(ctx context.Context, loc Location) (EnvironmentalReading, error) {
	if len(a.chain) == 0 {
		return EnvironmentalReading{}, &AggregationError{
			Message: ErrNoProviders.Error(),
			Errs:    []error{ErrNoProviders},
		}
	}

	var (
		g        errgroup.Group
		forecast ProviderReading
		winner   int
		errs     []error
		aq       *AirQualityReading
	)

	// Neither branch returns an error to the group, so one failing never cancels the other.
	g.Go(func() error {
		forecast, winner, errs = firstSuccess(a.chain, func(p ForecastProvider) (ProviderReading, error) {
			return a.fetchForecast(ctx, p, loc)
		})
		return nil
	})

	if a.airQuality != nil {
		g.Go(func() error {
			start := time.Now()
			r, err := a.airQuality.FetchAirQuality(ctx, loc)
			a.metrics.ObserveProviderRequest(a.airQuality.Name(), err, time.Since(start))
			if err != nil {
				a.logger.Warn("air quality unavailable",
					"provider", a.airQuality.Name(), "location", loc.Key(), "error", err)
				a.metrics.ObserveAirQualityMiss()
				return nil
			}
			aq = &r
			return nil
		})
	}

	_ = g.Wait()

	if winner < 0 {
		a.metrics.ObserveAggregation("failed", true)
		a.logger.Error("all forecast providers failed", "location", loc.Key(), "attempted", a.Providers())
		return EnvironmentalReading{}, &AggregationError{
			AttemptedProviders: a.Providers(),
			Message:            "all forecast providers failed",
			Errs:               errs,
		}
	}

	tier := SourcePrimary
	if winner > 0 {
		tier = SourceFallback
		a.logger.Info("reading satisfied by fallback provider",
			"provider", forecast.ProviderName, "location", loc.Key(), "failed", len(errs))
	}
	a.metrics.ObserveAggregation(string(tier), winner > 0)

	return buildReading(forecast, tier, aq), nil
}

func (a *Aggregator) fetchForecast(ctx context.Context, p ForecastProvider, loc Location) (ProviderReading, error) {
	start := time.Now()
	r, err := p.FetchForecast(ctx, loc)
	a.metrics.ObserveProviderRequest(p.Name(), err, time.Since(start))
	if err != nil {
		a.logger.Warn("forecast provider failed", "provider", p.Name(), "location", loc.Key(), "error", err)
		return ProviderReading{}, err
	}
	if r.ProviderName == "" {
		r.ProviderName = p.Name()
	}
	return r, nil
}

// firstSuccess folds over providers in order and returns the first successful
// result with its index. When every attempt fails the index is -1 and errs holds
// one error per provider.
func firstSuccess[P, R any](providers []P, try func(P) (R, error)) (result R, index int, errs []error) {
	for i, p := range providers {
		r, err := try(p)
		if err == nil {
			return r, i, errs
		}
		errs = append(errs, err)
	}
	return result, -1, errs
}

func buildReading(pr ProviderReading, tier Source, aq *AirQualityReading) EnvironmentalReading {
	reading := EnvironmentalReading{
		Source:         tier,
		Provider:       pr.ProviderName,
		ObservedAt:     pr.Timestamp.UTC(),
		Temperature:    RoundDisplay(pr.TemperatureC),
		MinTemperature: round1(pr.MinTemperatureC),
		MaxTemperature: round1(pr.MaxTemperatureC),
		Humidity:       RoundDisplay(pr.HumidityPct),
		RainChance:     ClampPercent(float64(pr.RainChance)),
		Precipitation:  round2(pr.PrecipMm),
		WindSpeed:      round1(pr.WindSpeedMS),
		Pressure:       KiloPascal(round2(float64(pr.Pressure))),
		UVIndex:        round1(pr.UVIndex),
		DailyForecast:  []Forecast{},
		HourlyForecast: []Forecast{},
	}

	var hourlyPM25 map[string]float64
	if aq != nil {
		current := AirQuality{
			PM10: optionalConcentration(aq.Current.PM10),
			PM25: RoundConcentration(aq.Current.PM25),
			O3:   optionalConcentration(aq.Current.O3),
			CO:   optionalConcentration(aq.Current.CO),
			NO2:  optionalConcentration(aq.Current.NO2),
		}
		reading.AirQuality = &current
		reading.AirQualityProvider = aq.ProviderName
		hourlyPM25 = aq.HourlyPM25
	}

	// Fallback providers only satisfy current conditions.
	if tier != SourcePrimary {
		return reading
	}

	for i, p := range pr.Daily {
		if i == dailyForecastLen {
			break
		}
		reading.DailyForecast = append(reading.DailyForecast, Forecast{
			Time:             p.Time,
			Temperature:      RoundDisplay(p.TemperatureC),
			RainChance:       ClampPercent(float64(p.RainChance)),
			AirQualityStatus: StatusNotAvailable,
		})
	}

	for i, p := range pr.Hourly {
		if i == hourlyForecastLen {
			break
		}
		status := StatusNotAvailable
		if v, ok := hourlyPM25[p.Time]; ok {
			status = pm25Status(&v)
		}
		reading.HourlyForecast = append(reading.HourlyForecast, Forecast{
			Time:             p.Time,
			Temperature:      RoundDisplay(p.TemperatureC),
			RainChance:       ClampPercent(float64(p.RainChance)),
			AirQualityStatus: status,
		})
	}

	return reading
}

func round1(v float64) float64 {
	return RoundDisplay(v*10) / 10
}
