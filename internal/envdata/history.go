package envdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/envdata-aggregation/internal/observability"
)

// DefaultHistoryLatencyDays keeps the most recent days out of the window while
// upstream publication catches up.
const DefaultHistoryLatencyDays = 3

// HistoryAggregator produces contiguous daily series from a HistoryProvider.
type HistoryAggregator struct {
	provider    HistoryProvider
	clock       clockwork.Clock
	latencyDays int
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewHistoryAggregator creates a HistoryAggregator. latencyDays outside 1..3 falls back to the default.
func NewHistoryAggregator(provider HistoryProvider, clock clockwork.Clock, latencyDays int, metrics *observability.Metrics, logger *slog.Logger) *HistoryAggregator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if latencyDays < 1 || latencyDays > 3 {
		latencyDays = DefaultHistoryLatencyDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryAggregator{
		provider:    provider,
		clock:       clock,
		latencyDays: latencyDays,
		metrics:     metrics,
		logger:      logger,
	}
}

// Window returns the inclusive [start, end] UTC dates for a series of the given length.
func (h *HistoryAggregator) Window(days int) (time.Time, time.Time) {
	now := h.clock.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today.AddDate(0, 0, -h.latencyDays)
	start := end.AddDate(0, 0, -(days - 1))
	return start, end
}

// FetchHistory returns exactly days contiguous entries in ascending date order.
// Dates the provider did not report are emitted with zero values. On failure the
// returned slice is empty, never partial.
func (h *HistoryAggregator) FetchHistory(ctx context.Context, loc Location, days int) ([]HistoricalDataPoint, error) {
	if days != 7 && days != 30 {
		return []HistoricalDataPoint{}, fmt.Errorf("%w: got %d", ErrInvalidDays, days)
	}

	start, end := h.Window(days)

	begin := h.clock.Now()
	series, err := h.provider.FetchHistory(ctx, loc, start, end)
	h.metrics.ObserveProviderRequest(h.provider.Name(), err, h.clock.Since(begin))
	h.metrics.ObserveHistory(err)
	if err != nil {
		h.logger.Warn("history unavailable", "provider", h.provider.Name(), "location", loc.Key(), "days", days, "error", err)
		return []HistoricalDataPoint{}, err
	}

	points := make([]HistoricalDataPoint, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(DateLayout)
		p, ok := series.Days[key]
		if !ok {
			h.logger.Debug("history gap filled with zero", "date", key, "location", loc.Key())
		}
		points = append(points, HistoricalDataPoint{
			Date:        key,
			Temperature: round2(CoerceSentinel(p.Temperature, FillValue)),
			Rainfall:    round2(CoerceSentinel(p.Rainfall, FillValue)),
			Pressure:    KiloPascal(round2(CoerceSentinel(float64(p.Pressure), FillValue))),
		})
	}
	return points, nil
}
