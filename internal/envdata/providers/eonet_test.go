package providers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/envdata-aggregation/internal/envdata"
)

type fakeResolver struct {
	places map[float64]envdata.Place
}

func (f fakeResolver) Resolve(_ context.Context, lat, _ float64) (envdata.Place, error) {
	p, ok := f.places[lat]
	if !ok {
		return envdata.Place{}, errors.New("no results")
	}
	return p, nil
}

const eonetBody = `{
  "title": "EONET Events",
  "events": [
    {
      "id": "EONET_1",
      "title": "Wildfire - Valparaiso, Chile",
      "description": null,
      "sources": [{"id": "InciWeb", "url": "https://example.org"}],
      "geometry": [
        {"date": "2026-10-10T00:00:00Z", "type": "Point", "coordinates": [-71.6, -33.0]},
        {"date": "2026-10-14T12:00:00Z", "type": "Point", "coordinates": [-71.5, -33.1]}
      ]
    },
    {
      "id": "EONET_2",
      "title": "Iceberg A23A",
      "description": "Drifting iceberg",
      "sources": [],
      "geometry": [
        {"date": "2026-10-16T06:00:00Z", "type": "Polygon", "coordinates": [[[0, 0], [1, 1], [1, 0], [0, 0]]]}
      ]
    },
    {
      "id": "EONET_3",
      "title": "Tropical Storm",
      "sources": [{"id": "JTWC"}],
      "geometry": [
        {"date": "2026-10-15T00:00:00Z", "type": "Point", "coordinates": [120.0, 15.0]}
      ]
    },
    {
      "id": "EONET_4",
      "title": "No geometry",
      "geometry": []
    }
  ]
}`

func TestEONET_FetchNaturalEvents(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, eonetBody, func(r *http.Request) {
		assert.Equal(t, "30", r.URL.Query().Get("days"))
		assert.Equal(t, "all", r.URL.Query().Get("status"))
	})
	resolver := fakeResolver{places: map[float64]envdata.Place{
		-33.1: {City: "Valparaiso", Country: "Chile", FormattedAddress: "Valparaíso, Chile"},
	}}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))

	p := NewEONETProvider(testConfig(), resolver, clock).WithBaseURL(srv.URL)
	events, err := p.FetchNaturalEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 3)

	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })

	fire := events[0]
	assert.Equal(t, "EONET_1", fire.ID)
	assert.Equal(t, "InciWeb", fire.Source)
	assert.Equal(t, "No description available.", fire.Description)
	assert.Equal(t, "2026-10-14", fire.Date)
	assert.Equal(t, "Valparaíso, Chile", fire.Location)
	assert.Equal(t, envdata.EventGeneral, fire.Type)
	assert.Equal(t, envdata.SeverityLow, fire.Severity)
	assert.Equal(t, envdata.StatusPast, fire.Status)

	ice := events[1]
	assert.Equal(t, "NASA EONET", ice.Source)
	assert.Equal(t, "Drifting iceberg", ice.Description)
	assert.Equal(t, "Multiple Locations", ice.Location)
	assert.Equal(t, envdata.StatusOngoing, ice.Status)

	storm := events[2]
	assert.Equal(t, "Unknown Location", storm.Location)
	assert.Equal(t, "JTWC", storm.Source)
}

func TestEONET_MissingEvents(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `{"title": "EONET Events"}`, nil)

	p := NewEONETProvider(testConfig(), nil, nil).WithBaseURL(srv.URL)
	_, err := p.FetchNaturalEvents(context.Background())
	assert.ErrorIs(t, err, envdata.ErrMalformedPayload)
}

func TestEONET_NoResolver(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, eonetBody, nil)

	p := NewEONETProvider(testConfig(), nil, clockwork.NewFakeClockAt(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC))).WithBaseURL(srv.URL)
	events, err := p.FetchNaturalEvents(context.Background())
	require.NoError(t, err)
	for _, ev := range events {
		assert.Contains(t, []string{"Unknown Location", "Multiple Locations"}, ev.Location)
	}
}

func TestStatusFor(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, envdata.StatusPast, statusFor(now.AddDate(0, -3, 0), now))
	assert.Equal(t, envdata.StatusUpcoming, statusFor(now.AddDate(0, 1, 0), now))
	assert.Equal(t, envdata.StatusOngoing, statusFor(now.Add(3*time.Hour), now))
}
