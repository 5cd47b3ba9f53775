package envdata

import (
	"context"
	"sync/atomic"
	"time"
)

type stubForecast struct {
	name    string
	reading ProviderReading
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (s *stubForecast) Name() string { return s.name }

func (s *stubForecast) FetchForecast(ctx context.Context, _ Location) (ProviderReading, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ProviderReading{}, ctx.Err()
		}
	}
	if s.err != nil {
		return ProviderReading{}, s.err
	}
	r := s.reading
	if r.ProviderName == "" {
		r.ProviderName = s.name
	}
	return r, nil
}

type stubAirQuality struct {
	reading AirQualityReading
	err     error
	delay   time.Duration
}

func (s *stubAirQuality) Name() string { return "stub-aq" }

func (s *stubAirQuality) FetchAirQuality(_ context.Context, _ Location) (AirQualityReading, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return AirQualityReading{}, s.err
	}
	r := s.reading
	if r.ProviderName == "" {
		r.ProviderName = "stub-aq"
	}
	return r, nil
}

type stubHistory struct {
	series     HistorySeries
	err        error
	start, end time.Time
}

func (s *stubHistory) Name() string { return "stub-history" }

func (s *stubHistory) FetchHistory(_ context.Context, _ Location, start, end time.Time) (HistorySeries, error) {
	s.start, s.end = start, end
	if s.err != nil {
		return HistorySeries{}, s.err
	}
	return s.series, nil
}

func ptr(v float64) *float64 { return &v }
