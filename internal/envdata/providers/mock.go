package providers

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/envdata-aggregation/internal/envdata"
)

// MockProvider simulates forecast, air-quality and historical data for development.
// Output is pseudo-random but deterministic per location and day.
type MockProvider struct {
	clock clockwork.Clock
}

func NewMockProvider(clock clockwork.Clock) *MockProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MockProvider{clock: clock}
}

func (p *MockProvider) Name() string {
	return "Mock"
}

func (p *MockProvider) rng(loc envdata.Location, salt string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(loc.Key()))
	_, _ = h.Write([]byte(p.clock.Now().UTC().Format(envdata.DateLayout)))
	_, _ = h.Write([]byte(salt))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func (p *MockProvider) FetchForecast(_ context.Context, loc envdata.Location) (envdata.ProviderReading, error) {
	r := p.rng(loc, "forecast")
	now := p.clock.Now().UTC()

	base := 20 + r.Float64()*10 - 5
	precip := math.Max(0, r.Float64()*15-10)

	reading := envdata.ProviderReading{
		ProviderName:    p.Name(),
		Timestamp:       now,
		TemperatureC:    base,
		MinTemperatureC: base - 4,
		MaxTemperatureC: base + 4,
		HumidityPct:     40 + r.Float64()*40,
		RainChance:      envdata.RainChanceFromAmount(precip, envdata.DefaultRainChanceCoefficient),
		PrecipMm:        precip,
		WindSpeedMS:     r.Float64() * 8,
		Pressure:        envdata.HectoPascal(1000 + r.Float64()*30).KPa(),
		UVIndex:         math.Round(r.Float64() * 10),
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		reading.Daily = append(reading.Daily, envdata.ForecastPoint{
			Time:         today.AddDate(0, 0, i).Format(envdata.DateLayout),
			TemperatureC: base + math.Sin(float64(i)/3)*2,
			RainChance:   r.Intn(101),
		})
	}

	hour := now.Truncate(time.Hour)
	for i := 0; i < 24; i++ {
		reading.Hourly = append(reading.Hourly, envdata.ForecastPoint{
			Time:         hour.Add(time.Duration(i) * time.Hour).Format(openMeteoTimeLayout),
			TemperatureC: base + math.Sin(float64(i)/4)*3,
			RainChance:   r.Intn(101),
		})
	}

	return reading, nil
}

func (p *MockProvider) FetchAirQuality(_ context.Context, loc envdata.Location) (envdata.AirQualityReading, error) {
	r := p.rng(loc, "airquality")
	now := p.clock.Now().UTC()

	pm10 := 10 + r.Float64()*40
	o3 := 20 + r.Float64()*80
	co := 150 + r.Float64()*300
	no2 := 5 + r.Float64()*30

	hourly := make(map[string]float64, 24)
	hour := now.Truncate(time.Hour)
	for i := 0; i < 24; i++ {
		hourly[hour.Add(time.Duration(i)*time.Hour).Format(openMeteoTimeLayout)] = math.Max(5, r.Float64()*50-5+math.Sin(float64(i)/5)*10)
	}

	return envdata.AirQualityReading{
		ProviderName: p.Name(),
		Current: envdata.AirQuality{
			PM10: &pm10,
			PM25: math.Max(5, r.Float64()*50-5),
			O3:   &o3,
			CO:   &co,
			NO2:  &no2,
		},
		HourlyPM25: hourly,
	}, nil
}

func (p *MockProvider) FetchHistory(_ context.Context, loc envdata.Location, start, end time.Time) (envdata.HistorySeries, error) {
	r := p.rng(loc, "history")
	days := make(map[string]envdata.HistoricalDataPoint)
	i := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(envdata.DateLayout)
		days[key] = envdata.HistoricalDataPoint{
			Date:        key,
			Temperature: 20 + r.Float64()*10 - 5 + math.Sin(float64(i)/3)*2,
			Rainfall:    math.Max(0, r.Float64()*15-10),
			Pressure:    envdata.HectoPascal(1000 + r.Float64()*30).KPa(),
		}
		i++
	}
	return envdata.HistorySeries{ProviderName: p.Name(), Days: days}, nil
}
