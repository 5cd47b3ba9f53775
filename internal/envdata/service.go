package envdata

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/envdata-aggregation/internal/observability"
)

// Service wires the aggregators and the rule engine for callers (HTTP API,
// scheduler, assistant tools). Store, resolver and natural events are optional.
type Service struct {
	readings *Aggregator
	history  *HistoryAggregator
	rules    *RuleEngine
	store    Store
	resolver LocationResolver
	natural  NaturalEventSource
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// ServiceDeps bundles Service collaborators.
type ServiceDeps struct {
	Readings *Aggregator
	History  *HistoryAggregator
	Rules    *RuleEngine
	Store    Store
	Resolver LocationResolver
	Natural  NaturalEventSource
	Clock    clockwork.Clock
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// NewService creates a new Service.
func NewService(deps ServiceDeps) *Service {
	s := &Service{
		readings: deps.Readings,
		history:  deps.History,
		rules:    deps.Rules,
		store:    deps.Store,
		resolver: deps.Resolver,
		natural:  deps.Natural,
		clock:    deps.Clock,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}
	if s.rules == nil {
		s.rules = NewRuleEngine()
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ErrNotConfigured is returned when an optional collaborator is missing.
var ErrNotConfigured = errors.New("capability not configured")

// Reading aggregates the current reading for loc.
func (s *Service) Reading(ctx context.Context, loc Location) (EnvironmentalReading, error) {
	if s.readings == nil {
		return EnvironmentalReading{}, ErrNotConfigured
	}
	return s.readings.Aggregate(ctx, loc)
}

// ForecastProviders lists the configured forecast chain in fallback order.
func (s *Service) ForecastProviders() []string {
	if s.readings == nil {
		return nil
	}
	return s.readings.Providers()
}

// History returns the daily series for loc.
func (s *Service) History(ctx context.Context, loc Location, days int) ([]HistoricalDataPoint, error) {
	if s.history == nil {
		return []HistoricalDataPoint{}, ErrNotConfigured
	}
	return s.history.FetchHistory(ctx, loc, days)
}

// Report aggregates a reading for loc and derives its events as of today.
// City/Country are resolved first when missing and a resolver is configured.
func (s *Service) Report(ctx context.Context, loc Location) (Report, error) {
	loc = s.ResolveLocation(ctx, loc)

	reading, err := s.Reading(ctx, loc)
	if err != nil {
		return Report{}, err
	}

	now := s.clock.Now().UTC()
	events := s.rules.DeriveEvents(reading, loc, now)
	for _, ev := range events {
		s.metrics.ObserveEvent(string(ev.Type), string(ev.Severity))
	}

	return Report{
		Location:    loc,
		Reading:     reading,
		Events:      events,
		GeneratedAt: now,
	}, nil
}

// FetchAndStore builds a report for loc and caches it. Failed aggregations keep
// the last good report.
func (s *Service) FetchAndStore(ctx context.Context, loc Location) error {
	if s.store == nil {
		return ErrNotConfigured
	}
	report, err := s.Report(ctx, loc)
	if err != nil {
		s.logger.Warn("report refresh failed; keeping last good report", "location", loc.Key(), "error", err)
		return err
	}
	s.store.SaveReport(loc, report)
	s.logger.Debug("report stored", "location", loc.Key(), "events", len(report.Events), "source", report.Reading.Source)
	return nil
}

// GetLatest returns the most recent cached report for loc.
func (s *Service) GetLatest(loc Location) (Report, error) {
	if s.store == nil {
		return Report{}, ErrNotConfigured
	}
	return s.store.GetLatest(loc)
}

// GetRange returns cached reports for loc between from and to.
func (s *Service) GetRange(loc Location, from, to time.Time) ([]Report, error) {
	if s.store == nil {
		return nil, ErrNotConfigured
	}
	return s.store.GetRange(loc, from, to)
}

// ResolveLocation fills a missing City or Country through the resolver.
// Resolution failures leave the location unchanged.
func (s *Service) ResolveLocation(ctx context.Context, loc Location) Location {
	if s.resolver == nil || (loc.City != "" && loc.Country != "") {
		return loc
	}
	place, err := s.resolver.Resolve(ctx, loc.Lat, loc.Lon)
	if err != nil {
		s.logger.Debug("reverse geocoding failed", "location", loc.Key(), "error", err)
		return loc
	}
	if loc.City == "" {
		loc.City = place.City
	}
	if loc.Country == "" {
		loc.Country = place.Country
	}
	return loc
}

// NaturalEvents lists externally reported events bucketed relative to today.
func (s *Service) NaturalEvents(ctx context.Context) (EventBuckets, error) {
	if s.natural == nil {
		return BucketEvents(nil, s.clock.Now()), ErrNotConfigured
	}
	events, err := s.natural.FetchNaturalEvents(ctx)
	if err != nil {
		return BucketEvents(nil, s.clock.Now()), err
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date > events[j].Date })
	return BucketEvents(events, s.clock.Now()), nil
}
