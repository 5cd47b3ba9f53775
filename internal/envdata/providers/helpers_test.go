package providers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/i474232898/envdata-aggregation/internal/envdata"
	"github.com/i474232898/envdata-aggregation/internal/observability"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

var testLocation = envdata.Location{Lat: 40.71, Lon: -74.0, City: "New York", Country: "US"}

func testConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Client:  &http.Client{Timeout: 5 * time.Second},
		Backoff: DefaultBackoff(),
		Metrics: observability.NewMetricsForTesting(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// serveJSON starts a server answering every request with status and body.
func serveJSON(t *testing.T, status int, body string, inspect func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}
