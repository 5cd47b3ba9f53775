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

// OpenWeatherProvider is a fallback provider for current conditions from OpenWeatherMap.
type OpenWeatherProvider struct {
	name            string
	apiKey          string
	baseURL         string
	rainCoefficient float64
	httpCfg         HTTPClientConfig
	circuit         *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(cfg HTTPClientConfig, apiKey string, rainCoefficient float64) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:            "OpenWeatherMap",
		apiKey:          apiKey,
		baseURL:         "https://api.openweathermap.org/data/2.5/weather",
		rainCoefficient: rainCoefficient,
		httpCfg:         cfg,
		circuit:         newBreaker("openweather", cfg),
	}
}

// WithBaseURL overrides the upstream endpoint.
func (p *OpenWeatherProvider) WithBaseURL(u string) *OpenWeatherProvider {
	p.baseURL = u
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, loc envdata.Location) (envdata.ProviderReading, error) {
	if p.apiKey == "" {
		return envdata.ProviderReading{}, &envdata.ConfigurationError{MissingKey: "OPENWEATHER_API_KEY"}
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		values.Set("lat", fmt.Sprintf("%f", loc.Lat))
		values.Set("lon", fmt.Sprintf("%f", loc.Lon))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload struct {
		Dt   int64 `json:"dt"`
		Main *struct {
			Temp     *float64 `json:"temp"`
			TempMin  *float64 `json:"temp_min"`
			TempMax  *float64 `json:"temp_max"`
			Humidity float64  `json:"humidity"`
			Pressure float64  `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Rain struct {
			OneH   float64 `json:"1h"`
			ThreeH float64 `json:"3h"`
		} `json:"rain"`
	}

	if err := getJSON(ctx, p.name, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return envdata.ProviderReading{}, err
	}
	if payload.Main == nil || payload.Main.Temp == nil {
		return envdata.ProviderReading{}, envdata.NewMalformedError(p.name, "missing main block")
	}

	ts := time.Unix(payload.Dt, 0).UTC()
	if payload.Dt == 0 {
		ts = time.Now().UTC()
	}

	precip := payload.Rain.OneH
	if precip == 0 {
		precip = payload.Rain.ThreeH
	}

	temp := *payload.Main.Temp
	minTemp, maxTemp := temp, temp
	if payload.Main.TempMin != nil {
		minTemp = *payload.Main.TempMin
	}
	if payload.Main.TempMax != nil {
		maxTemp = *payload.Main.TempMax
	}

	return envdata.ProviderReading{
		ProviderName:    p.name,
		Timestamp:       ts,
		TemperatureC:    temp,
		MinTemperatureC: minTemp,
		MaxTemperatureC: maxTemp,
		HumidityPct:     payload.Main.Humidity,
		RainChance:      envdata.RainChanceFromAmount(precip, p.rainCoefficient),
		PrecipMm:        precip,
		WindSpeedMS:     payload.Wind.Speed,
		Pressure:        envdata.HectoPascal(payload.Main.Pressure).KPa(),
	}, nil
}
