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

// WeatherAPIProvider is the last-resort fallback for current conditions from WeatherAPI.com.
type WeatherAPIProvider struct {
	name            string
	apiKey          string
	baseURL         string
	rainCoefficient float64
	httpCfg         HTTPClientConfig
	circuit         *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(cfg HTTPClientConfig, apiKey string, rainCoefficient float64) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:            "WeatherAPI",
		apiKey:          apiKey,
		baseURL:         "https://api.weatherapi.com/v1/current.json",
		rainCoefficient: rainCoefficient,
		httpCfg:         cfg,
		circuit:         newBreaker("weatherapi", cfg),
	}
}

// WithBaseURL overrides the upstream endpoint.
func (p *WeatherAPIProvider) WithBaseURL(u string) *WeatherAPIProvider {
	p.baseURL = u
	return p
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, loc envdata.Location) (envdata.ProviderReading, error) {
	if p.apiKey == "" {
		return envdata.ProviderReading{}, &envdata.ConfigurationError{MissingKey: "WEATHERAPI_API_KEY"}
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// WeatherAPI accepts "lat,lon" in q.
		values.Set("q", fmt.Sprintf("%f,%f", loc.Lat, loc.Lon))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload struct {
		Location struct {
			LocaltimeEpoch int64 `json:"localtime_epoch"`
		} `json:"location"`
		Current *struct {
			TempC      *float64 `json:"temp_c"`
			Humidity   float64  `json:"humidity"`
			WindKph    float64  `json:"wind_kph"`
			PressureMb float64  `json:"pressure_mb"`
			PrecipMm   float64  `json:"precip_mm"`
			UV         float64  `json:"uv"`
		} `json:"current"`
	}

	if err := getJSON(ctx, p.name, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return envdata.ProviderReading{}, err
	}
	if payload.Current == nil || payload.Current.TempC == nil {
		return envdata.ProviderReading{}, envdata.NewMalformedError(p.name, "missing current block")
	}

	ts := time.Unix(payload.Location.LocaltimeEpoch, 0).UTC()
	if payload.Location.LocaltimeEpoch == 0 {
		ts = time.Now().UTC()
	}

	temp := *payload.Current.TempC

	return envdata.ProviderReading{
		ProviderName:    p.name,
		Timestamp:       ts,
		TemperatureC:    temp,
		MinTemperatureC: temp,
		MaxTemperatureC: temp,
		HumidityPct:     payload.Current.Humidity,
		RainChance:      envdata.RainChanceFromAmount(payload.Current.PrecipMm, p.rainCoefficient),
		PrecipMm:        payload.Current.PrecipMm,
		// kph to m/s.
		WindSpeedMS: payload.Current.WindKph / 3.6,
		Pressure:    envdata.HectoPascal(payload.Current.PressureMb).KPa(),
		UVIndex:     payload.Current.UV,
	}, nil
}
