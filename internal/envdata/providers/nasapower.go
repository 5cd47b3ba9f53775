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

const powerDateLayout = "20060102"

// NASAPowerProvider fetches daily temperature (T2M), corrected precipitation
// (PRECTOTCORR, mm/day) and surface pressure (PS, kPa) from NASA POWER.
type NASAPowerProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewNASAPowerProvider(cfg HTTPClientConfig) *NASAPowerProvider {
	return &NASAPowerProvider{
		name:    "NASA POWER",
		baseURL: "https://power.larc.nasa.gov/api/temporal/daily/point",
		httpCfg: cfg,
		circuit: newBreaker("nasapower", cfg),
	}
}

// WithBaseURL overrides the upstream endpoint.
func (p *NASAPowerProvider) WithBaseURL(u string) *NASAPowerProvider {
	p.baseURL = u
	return p
}

func (p *NASAPowerProvider) Name() string {
	return p.name
}

func (p *NASAPowerProvider) FetchHistory(ctx context.Context, loc envdata.Location, start, end time.Time) (envdata.HistorySeries, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("start", start.Format(powerDateLayout))
		values.Set("end", end.Format(powerDateLayout))
		values.Set("latitude", fmt.Sprintf("%f", loc.Lat))
		values.Set("longitude", fmt.Sprintf("%f", loc.Lon))
		values.Set("community", "RE")
		values.Set("parameters", "T2M,PRECTOTCORR,PS")
		values.Set("format", "JSON")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload struct {
		Header struct {
			FillValue *float64 `json:"fill_value"`
		} `json:"header"`
		Properties *struct {
			Parameter map[string]map[string]float64 `json:"parameter"`
		} `json:"properties"`
	}

	if err := getJSON(ctx, p.name, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return envdata.HistorySeries{}, err
	}
	if payload.Properties == nil || payload.Properties.Parameter == nil {
		return envdata.HistorySeries{}, envdata.NewMalformedError(p.name, "missing properties.parameter")
	}

	t2m, ok := payload.Properties.Parameter["T2M"]
	if !ok {
		return envdata.HistorySeries{}, envdata.NewMalformedError(p.name, "missing T2M series")
	}
	precip := payload.Properties.Parameter["PRECTOTCORR"]
	ps := payload.Properties.Parameter["PS"]

	fill := envdata.FillValue
	if payload.Header.FillValue != nil {
		fill = *payload.Header.FillValue
	}

	// Absent keys and sentinels both yield 0.
	value := func(series map[string]float64, key string) float64 {
		v, ok := series[key]
		if !ok {
			return 0
		}
		return envdata.CoerceSentinel(v, fill)
	}

	days := make(map[string]envdata.HistoricalDataPoint, len(t2m))
	for key := range t2m {
		d, err := time.Parse(powerDateLayout, key)
		if err != nil {
			continue
		}
		date := d.Format(envdata.DateLayout)
		days[date] = envdata.HistoricalDataPoint{
			Date:        date,
			Temperature: value(t2m, key),
			Rainfall:    value(precip, key),
			Pressure:    envdata.KiloPascal(value(ps, key)),
		}
	}

	return envdata.HistorySeries{ProviderName: p.name, Days: days}, nil
}
