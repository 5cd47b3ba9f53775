package envdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/envdata-aggregation/internal/observability"
)

type stubResolver struct {
	place Place
	err   error
	calls int
}

func (r *stubResolver) Resolve(_ context.Context, _, _ float64) (Place, error) {
	r.calls++
	return r.place, r.err
}

type mapStore struct {
	mu      sync.Mutex
	reports map[string][]Report
}

func (s *mapStore) SaveReport(loc Location, r Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reports == nil {
		s.reports = map[string][]Report{}
	}
	s.reports[loc.Key()] = append(s.reports[loc.Key()], r)
}

func (s *mapStore) GetLatest(loc Location) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.reports[loc.Key()]
	if len(rs) == 0 {
		return Report{}, errors.New("not found")
	}
	return rs[len(rs)-1], nil
}

func (s *mapStore) GetRange(loc Location, _, _ time.Time) ([]Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports[loc.Key()], nil
}

type stubNatural struct {
	events []ClimateEvent
	err    error
}

func (s *stubNatural) Name() string { return "stub-natural" }

func (s *stubNatural) FetchNaturalEvents(context.Context) ([]ClimateEvent, error) {
	return s.events, s.err
}

func TestServiceReportEndToEnd(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC))
	primary := &stubForecast{name: "Open-Meteo", reading: ProviderReading{
		Timestamp:       clock.Now(),
		TemperatureC:    38,
		MinTemperatureC: 27,
		MaxTemperatureC: 38,
		HumidityPct:     55,
		PrecipMm:        25,
		RainChance:      100,
		WindSpeedMS:     12,
		Pressure:        HectoPascal(1005).KPa(),
	}}
	aq := &stubAirQuality{reading: AirQualityReading{ProviderName: "Open-Meteo AQI", Current: AirQuality{PM25: 60}}}
	metrics := observability.NewMetricsForTesting()

	svc := NewService(ServiceDeps{
		Readings: NewAggregator([]ForecastProvider{primary}, aq, metrics, nil),
		Clock:    clock,
		Metrics:  metrics,
	})

	report, err := svc.Report(context.Background(), Location{Lat: 40.71, Lon: -74.00})
	require.NoError(t, err)

	assert.Equal(t, SourcePrimary, report.Reading.Source)
	assert.Equal(t, string(AQIUnhealthy), AirQualityStatus(report.Reading.AirQuality))
	assert.Equal(t, clock.Now(), report.GeneratedAt)
	require.Len(t, report.Events, 4)

	byType := eventsByType(report.Events)
	assert.Equal(t, SeverityHigh, byType[EventTemperature].Severity)
	assert.Equal(t, SeverityHigh, byType[EventRainfall].Severity)
	assert.Equal(t, SeverityHigh, byType[EventAirQuality].Severity)
	assert.Equal(t, SeverityModerate, byType[EventWind].Severity)
	for _, ev := range report.Events {
		assert.Equal(t, "Unknown, Unknown", ev.Location)
		assert.Equal(t, "2026-10-16", ev.Date)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsDerived.WithLabelValues("Wind", "Moderate")))
}

func TestServiceResolvesMissingLabels(t *testing.T) {
	resolver := &stubResolver{place: Place{City: "New York", Country: "United States"}}
	svc := NewService(ServiceDeps{
		Readings: NewAggregator([]ForecastProvider{&stubForecast{name: "p", reading: ProviderReading{WindSpeedMS: 11}}}, nil, nil, nil),
		Resolver: resolver,
	})

	report, err := svc.Report(context.Background(), Location{Lat: 40.71, Lon: -74.00})
	require.NoError(t, err)
	assert.Equal(t, "New York", report.Location.City)
	require.Len(t, report.Events, 1)
	assert.Equal(t, "New York, United States", report.Events[0].Location)

	loc := svc.ResolveLocation(context.Background(), Location{City: "Paris", Country: "FR"})
	assert.Equal(t, "Paris", loc.City)
	assert.Equal(t, 1, resolver.calls)

	resolver.err = errors.New("quota")
	loc = svc.ResolveLocation(context.Background(), Location{Lat: 1, Lon: 1, Country: "KE"})
	assert.Empty(t, loc.City)
	assert.Equal(t, "KE", loc.Country)
}

func TestServiceFetchAndStore(t *testing.T) {
	st := &mapStore{}
	failing := &stubForecast{name: "p", err: errors.New("down")}
	ok := &stubForecast{name: "p", reading: ProviderReading{TemperatureC: 10}}

	svc := NewService(ServiceDeps{
		Readings: NewAggregator([]ForecastProvider{ok}, nil, nil, nil),
		Store:    st,
	})
	require.NoError(t, svc.FetchAndStore(context.Background(), nyc))

	latest, err := svc.GetLatest(nyc)
	require.NoError(t, err)
	assert.Equal(t, 10.0, latest.Reading.Temperature)

	svc.readings = NewAggregator([]ForecastProvider{failing}, nil, nil, nil)
	err = svc.FetchAndStore(context.Background(), nyc)
	var aggErr *AggregationError
	require.ErrorAs(t, err, &aggErr)

	latest, err = svc.GetLatest(nyc)
	require.NoError(t, err)
	assert.Equal(t, 10.0, latest.Reading.Temperature, "last good report is kept")
}

func TestServiceWithoutOptionalCollaborators(t *testing.T) {
	svc := NewService(ServiceDeps{})

	_, err := svc.Reading(context.Background(), nyc)
	assert.ErrorIs(t, err, ErrNotConfigured)
	history, err := svc.History(context.Background(), nyc, 7)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NotNil(t, history)
	assert.ErrorIs(t, svc.FetchAndStore(context.Background(), nyc), ErrNotConfigured)
	_, err = svc.GetLatest(nyc)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = svc.NaturalEvents(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Nil(t, svc.ForecastProviders())
}

func TestServiceNaturalEvents(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC))
	natural := &stubNatural{events: []ClimateEvent{
		{ID: "old", Date: "2026-10-01", Type: EventGeneral},
		{ID: "today", Date: "2026-10-16", Type: EventGeneral},
		{ID: "recent", Date: "2026-10-12", Type: EventGeneral},
	}}
	svc := NewService(ServiceDeps{Natural: natural, Clock: clock})

	buckets, err := svc.NaturalEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets.Past, 2)
	assert.Equal(t, "recent", buckets.Past[0].ID)
	require.Len(t, buckets.Ongoing, 1)
	assert.Equal(t, "today", buckets.Ongoing[0].ID)

	natural.err = errors.New("eonet down")
	buckets, err = svc.NaturalEvents(context.Background())
	require.Error(t, err)
	assert.Empty(t, buckets.Past)
}
