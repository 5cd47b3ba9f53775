package providers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/envdata-aggregation/internal/envdata"
)

func TestOpenWeather_FetchForecast_Success(t *testing.T) {
	body := `{
	  "dt": 1792152000,
	  "main": {"temp": 18.6, "temp_min": 16.1, "temp_max": 20.3, "humidity": 71, "pressure": 1009},
	  "wind": {"speed": 5.4},
	  "rain": {"3h": 2.5}
	}`
	srv := serveJSON(t, http.StatusOK, body, func(r *http.Request) {
		assert.Equal(t, "ow-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
	})

	p := NewOpenWeatherProvider(testConfig(), "ow-key", 10).WithBaseURL(srv.URL)
	r, err := p.FetchForecast(context.Background(), testLocation)
	require.NoError(t, err)

	assert.Equal(t, "OpenWeatherMap", r.ProviderName)
	assert.Equal(t, time.Unix(1792152000, 0).UTC(), r.Timestamp)
	assert.Equal(t, 18.6, r.TemperatureC)
	assert.Equal(t, 16.1, r.MinTemperatureC)
	assert.Equal(t, 20.3, r.MaxTemperatureC)
	assert.Equal(t, 2.5, r.PrecipMm, "falls back to the 3h accumulation")
	assert.Equal(t, 25, r.RainChance)
	assert.InDelta(t, 100.9, float64(r.Pressure), 1e-9)
	assert.Empty(t, r.Daily)
	assert.Empty(t, r.Hourly)
}

func TestOpenWeather_MissingKey(t *testing.T) {
	p := NewOpenWeatherProvider(testConfig(), "", 10).WithBaseURL("http://127.0.0.1:1")
	_, err := p.FetchForecast(context.Background(), testLocation)

	var cfgErr *envdata.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "OPENWEATHER_API_KEY", cfgErr.MissingKey)
}

func TestOpenWeather_Unauthorized(t *testing.T) {
	srv := serveJSON(t, http.StatusUnauthorized, `{"cod": 401, "message": "Invalid API key"}`, nil)

	p := NewOpenWeatherProvider(testConfig(), "bad", 10).WithBaseURL(srv.URL)
	_, err := p.FetchForecast(context.Background(), testLocation)

	var fe *envdata.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusUnauthorized, fe.StatusCode)
	assert.Equal(t, "OpenWeatherMap: status 401: Invalid API key", fe.Error())
}

func TestOpenWeather_MissingMain(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `{"wind": {"speed": 1}}`, nil)

	p := NewOpenWeatherProvider(testConfig(), "k", 10).WithBaseURL(srv.URL)
	_, err := p.FetchForecast(context.Background(), testLocation)
	assert.ErrorIs(t, err, envdata.ErrMalformedPayload)
}

func TestWeatherAPI_FetchForecast_Success(t *testing.T) {
	body := `{
	  "location": {"localtime_epoch": 1792152000},
	  "current": {"temp_c": 17.2, "humidity": 80, "wind_kph": 36, "pressure_mb": 1015, "precip_mm": 0.8, "uv": 3}
	}`
	srv := serveJSON(t, http.StatusOK, body, func(r *http.Request) {
		assert.Equal(t, "wa-key", r.URL.Query().Get("key"))
		assert.Equal(t, "40.710000,-74.000000", r.URL.Query().Get("q"))
	})

	p := NewWeatherAPIProvider(testConfig(), "wa-key", 10).WithBaseURL(srv.URL)
	r, err := p.FetchForecast(context.Background(), testLocation)
	require.NoError(t, err)

	assert.Equal(t, "WeatherAPI", r.ProviderName)
	assert.Equal(t, 17.2, r.TemperatureC)
	assert.InDelta(t, 10.0, r.WindSpeedMS, 1e-9)
	assert.InDelta(t, 101.5, float64(r.Pressure), 1e-9)
	assert.Equal(t, 8, r.RainChance)
	assert.Equal(t, 3.0, r.UVIndex)
}

func TestWeatherAPI_MissingKey(t *testing.T) {
	p := NewWeatherAPIProvider(testConfig(), "", 10)
	_, err := p.FetchForecast(context.Background(), testLocation)

	var cfgErr *envdata.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "WEATHERAPI_API_KEY", cfgErr.MissingKey)
}

func TestWeatherAPI_ErrorBody(t *testing.T) {
	srv := serveJSON(t, http.StatusForbidden, `{"error": {"code": 2008, "message": "API key has been disabled."}}`, nil)

	p := NewWeatherAPIProvider(testConfig(), "k", 10).WithBaseURL(srv.URL)
	_, err := p.FetchForecast(context.Background(), testLocation)

	var fe *envdata.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusForbidden, fe.StatusCode)
	assert.Equal(t, "API key has been disabled.", fe.Message)
}
