package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/envdata-aggregation/internal/envdata"
)

// openMeteoTimeLayout is the ISO-8601 local time format Open-Meteo returns with timezone=UTC.
const openMeteoTimeLayout = "2006-01-02T15:04"

// OpenMeteoProvider is the primary forecast provider: current conditions plus
// 7-day daily and 24-hour hourly forecasts in one call.
type OpenMeteoProvider struct {
	name            string
	baseURL         string
	rainCoefficient float64
	httpCfg         HTTPClientConfig
	circuit         *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(cfg HTTPClientConfig, rainCoefficient float64) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:            "Open-Meteo",
		baseURL:         "https://api.open-meteo.com/v1/forecast",
		rainCoefficient: rainCoefficient,
		httpCfg:         cfg,
		circuit:         newBreaker("openmeteo", cfg),
	}
}

// WithBaseURL overrides the upstream endpoint.
func (p *OpenMeteoProvider) WithBaseURL(u string) *OpenMeteoProvider {
	p.baseURL = u
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

type openMeteoForecast struct {
	Current *struct {
		Time                     string   `json:"time"`
		Temperature              *float64 `json:"temperature_2m"`
		RelativeHumidity         *float64 `json:"relative_humidity_2m"`
		Precipitation            *float64 `json:"precipitation"`
		PrecipitationProbability *float64 `json:"precipitation_probability"`
		WindSpeed                *float64 `json:"wind_speed_10m"`
		SurfacePressure          *float64 `json:"surface_pressure"`
		UVIndex                  *float64 `json:"uv_index"`
	} `json:"current"`
	Daily struct {
		Time                        []string   `json:"time"`
		TemperatureMax              []*float64 `json:"temperature_2m_max"`
		TemperatureMin              []*float64 `json:"temperature_2m_min"`
		PrecipitationProbabilityMax []*float64 `json:"precipitation_probability_max"`
		PrecipitationSum            []*float64 `json:"precipitation_sum"`
	} `json:"daily"`
	Hourly struct {
		Time                     []string   `json:"time"`
		Temperature              []*float64 `json:"temperature_2m"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
		Precipitation            []*float64 `json:"precipitation"`
	} `json:"hourly"`
}

func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, loc envdata.Location) (envdata.ProviderReading, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", loc.Lat))
		values.Set("longitude", fmt.Sprintf("%f", loc.Lon))
		values.Set("current", "temperature_2m,relative_humidity_2m,precipitation,precipitation_probability,wind_speed_10m,surface_pressure,uv_index")
		values.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_probability_max,precipitation_sum")
		values.Set("hourly", "temperature_2m,precipitation_probability,precipitation")
		values.Set("wind_speed_unit", "ms")
		values.Set("timezone", "UTC")
		values.Set("forecast_days", "7")
		values.Set("forecast_hours", "24")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload openMeteoForecast
	if err := getJSON(ctx, p.name, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return envdata.ProviderReading{}, err
	}

	cur := payload.Current
	if cur == nil || cur.Temperature == nil {
		return envdata.ProviderReading{}, envdata.NewMalformedError(p.name, "missing current conditions")
	}

	ts, err := time.Parse(openMeteoTimeLayout, cur.Time)
	if err != nil {
		ts = time.Now().UTC()
	}

	precip := envdata.Float(cur.Precipitation)
	rainChance := envdata.RainChanceFromAmount(precip, p.rainCoefficient)
	if cur.PrecipitationProbability != nil {
		rainChance = envdata.ClampPercent(*cur.PrecipitationProbability)
	}

	temp := envdata.Float(cur.Temperature)
	reading := envdata.ProviderReading{
		ProviderName:    p.name,
		Timestamp:       ts.UTC(),
		TemperatureC:    temp,
		MinTemperatureC: temp,
		MaxTemperatureC: temp,
		HumidityPct:     envdata.Float(cur.RelativeHumidity),
		RainChance:      rainChance,
		PrecipMm:        precip,
		WindSpeedMS:     envdata.Float(cur.WindSpeed),
		Pressure:        envdata.HectoPascal(envdata.Float(cur.SurfacePressure)).KPa(),
		UVIndex:         envdata.Float(cur.UVIndex),
	}

	if v := at(payload.Daily.TemperatureMax, 0); v != nil {
		reading.MaxTemperatureC = *v
	}
	if v := at(payload.Daily.TemperatureMin, 0); v != nil {
		reading.MinTemperatureC = *v
	}

	for i, t := range payload.Daily.Time {
		reading.Daily = append(reading.Daily, envdata.ForecastPoint{
			Time:         t,
			TemperatureC: envdata.Float(at(payload.Daily.TemperatureMax, i)),
			RainChance: p.chance(
				at(payload.Daily.PrecipitationProbabilityMax, i),
				at(payload.Daily.PrecipitationSum, i),
			),
		})
	}

	for i, t := range payload.Hourly.Time {
		reading.Hourly = append(reading.Hourly, envdata.ForecastPoint{
			Time:         t,
			TemperatureC: envdata.Float(at(payload.Hourly.Temperature, i)),
			RainChance: p.chance(
				at(payload.Hourly.PrecipitationProbability, i),
				at(payload.Hourly.Precipitation, i),
			),
		})
	}

	return reading, nil
}

// chance prefers a native probability and derives one from the amount otherwise.
func (p *OpenMeteoProvider) chance(probability, amount *float64) int {
	if probability != nil {
		return envdata.ClampPercent(*probability)
	}
	return envdata.RainChanceFromAmount(envdata.Float(amount), p.rainCoefficient)
}

// at returns the i-th element of a nullable series, or nil when out of range.
func at(series []*float64, i int) *float64 {
	if i < 0 || i >= len(series) {
		return nil
	}
	return series[i]
}
