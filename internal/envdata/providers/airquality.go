package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/envdata-aggregation/internal/envdata"
)

// OpenMeteoAirQualityProvider fetches current pollutant concentrations and a
// 24-hour PM2.5 forecast from the Open-Meteo air-quality API.
type OpenMeteoAirQualityProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoAirQualityProvider(cfg HTTPClientConfig) *OpenMeteoAirQualityProvider {
	return &OpenMeteoAirQualityProvider{
		name:    "Open-Meteo AQI",
		baseURL: "https://air-quality-api.open-meteo.com/v1/air-quality",
		httpCfg: cfg,
		circuit: newBreaker("openmeteo-aqi", cfg),
	}
}

// WithBaseURL overrides the upstream endpoint.
func (p *OpenMeteoAirQualityProvider) WithBaseURL(u string) *OpenMeteoAirQualityProvider {
	p.baseURL = u
	return p
}

func (p *OpenMeteoAirQualityProvider) Name() string {
	return p.name
}

func (p *OpenMeteoAirQualityProvider) FetchAirQuality(ctx context.Context, loc envdata.Location) (envdata.AirQualityReading, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", loc.Lat))
		values.Set("longitude", fmt.Sprintf("%f", loc.Lon))
		values.Set("current", "pm10,pm2_5,ozone,carbon_monoxide,nitrogen_dioxide")
		values.Set("hourly", "pm2_5")
		values.Set("timezone", "UTC")
		values.Set("forecast_hours", "24")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload struct {
		Current *struct {
			PM10            *float64 `json:"pm10"`
			PM25            *float64 `json:"pm2_5"`
			Ozone           *float64 `json:"ozone"`
			CarbonMonoxide  *float64 `json:"carbon_monoxide"`
			NitrogenDioxide *float64 `json:"nitrogen_dioxide"`
		} `json:"current"`
		Hourly struct {
			Time []string   `json:"time"`
			PM25 []*float64 `json:"pm2_5"`
		} `json:"hourly"`
	}

	if err := getJSON(ctx, p.name, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return envdata.AirQualityReading{}, err
	}
	if payload.Current == nil || payload.Current.PM25 == nil {
		return envdata.AirQualityReading{}, envdata.NewMalformedError(p.name, "missing current pm2_5")
	}

	hourly := make(map[string]float64, len(payload.Hourly.Time))
	for i, t := range payload.Hourly.Time {
		if v := at(payload.Hourly.PM25, i); v != nil {
			hourly[t] = *v
		}
	}

	return envdata.AirQualityReading{
		ProviderName: p.name,
		Current: envdata.AirQuality{
			PM10: payload.Current.PM10,
			PM25: *payload.Current.PM25,
			O3:   payload.Current.Ozone,
			CO:   payload.Current.CarbonMonoxide,
			NO2:  payload.Current.NitrogenDioxide,
		},
		HourlyPM25: hourly,
	}, nil
}
