package envdata

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Conditions is the reduced projection of a reading that the event rules consume.
type Conditions struct {
	Precipitation  float64
	MaxTemperature float64
	WindSpeed      float64
	PM25           *float64

	Provider           string
	AirQualityProvider string
}

// Conditions projects the reading onto the fields the event rules evaluate.
func (r EnvironmentalReading) Conditions() Conditions {
	c := Conditions{
		Precipitation:      r.Precipitation,
		MaxTemperature:     r.MaxTemperature,
		WindSpeed:          r.WindSpeed,
		Provider:           r.Provider,
		AirQualityProvider: r.AirQualityProvider,
	}
	if r.AirQuality != nil {
		pm25 := r.AirQuality.PM25
		c.PM25 = &pm25
	}
	return c
}

type tier struct {
	above    float64
	severity Severity
}

// rule fires at the first tier whose threshold the metric strictly exceeds.
// Tiers are ordered from most to least severe.
type rule struct {
	title  string
	kind   EventType
	unit   string
	metric func(Conditions) (float64, bool)
	source func(Conditions) string
	tiers  []tier
}

var defaultRules = []rule{
	{
		title:  "Heavy Rainfall",
		kind:   EventRainfall,
		unit:   "mm",
		metric: func(c Conditions) (float64, bool) { return c.Precipitation, true },
		source: weatherSource,
		tiers:  []tier{{20, SeverityHigh}, {5, SeverityModerate}},
	},
	{
		title:  "Heat Wave Warning",
		kind:   EventTemperature,
		unit:   "°C",
		metric: func(c Conditions) (float64, bool) { return c.MaxTemperature, true },
		source: weatherSource,
		tiers:  []tier{{35, SeverityHigh}, {30, SeverityModerate}},
	},
	{
		title: "Air Pollution Event",
		kind:  EventAirQuality,
		unit:  "µg/m³ PM2.5",
		metric: func(c Conditions) (float64, bool) {
			if c.PM25 == nil {
				return 0, false
			}
			return *c.PM25, true
		},
		source: func(c Conditions) string {
			if c.AirQualityProvider != "" {
				return c.AirQualityProvider
			}
			return weatherSource(c)
		},
		tiers: []tier{{55, SeverityHigh}, {35, SeverityModerate}},
	},
	{
		title:  "High Wind Alert",
		kind:   EventWind,
		unit:   "m/s",
		metric: func(c Conditions) (float64, bool) { return c.WindSpeed, true },
		source: weatherSource,
		tiers:  []tier{{10, SeverityModerate}},
	},
}

func weatherSource(c Conditions) string {
	if c.Provider == "" {
		return "Unknown"
	}
	return c.Provider
}

// RuleEngine derives climate events from a reading using fixed threshold rules.
type RuleEngine struct {
	rules []rule
	newID func() string
}

// NewRuleEngine creates a RuleEngine with the standard threshold table.
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{rules: defaultRules, newID: uuid.NewString}
}

// DeriveEvents evaluates every rule independently against the reading. The result is
// never nil; an empty slice means stable conditions.
func (e *RuleEngine) DeriveEvents(reading EnvironmentalReading, loc Location, asOf time.Time) []ClimateEvent {
	return e.Evaluate(reading.Conditions(), loc, asOf)
}

// Evaluate runs the rules over a projected set of conditions.
func (e *RuleEngine) Evaluate(c Conditions, loc Location, asOf time.Time) []ClimateEvent {
	events := make([]ClimateEvent, 0, len(e.rules))
	date := asOf.Format(DateLayout)
	label := loc.Label()

	for _, r := range e.rules {
		v, ok := r.metric(c)
		if !ok || !finite(v) {
			continue
		}
		for _, t := range r.tiers {
			if v <= t.above {
				continue
			}
			events = append(events, ClimateEvent{
				ID:    e.newID(),
				Title: r.title,
				Description: fmt.Sprintf("%s of %.1f %s exceeds the %s threshold of %g %s.",
					metricName(r.kind), v, r.unit, t.severity, t.above, r.unit),
				Type:     r.kind,
				Source:   r.source(c),
				Severity: t.severity,
				Date:     date,
				Location: label,
				Status:   StatusOngoing,
			})
			break
		}
	}

	for i := range events {
		if events[i].ID == "" {
			events[i].ID = uuid.NewString()
		}
	}
	return events
}

func metricName(kind EventType) string {
	switch kind {
	case EventRainfall:
		return "Precipitation"
	case EventTemperature:
		return "Maximum temperature"
	case EventAirQuality:
		return "PM2.5 concentration"
	case EventWind:
		return "Wind speed"
	default:
		return "Measurement"
	}
}

// ClassifyStatus places an event date relative to now: today is ongoing, the
// previous 30 days are past and the next 7 days are upcoming. Dates outside
// those windows report ok=false.
func ClassifyStatus(date, now time.Time) (EventStatus, bool) {
	d := truncateDay(date)
	today := truncateDay(now)

	switch {
	case d.Equal(today):
		return StatusOngoing, true
	case !d.Before(today.AddDate(0, 0, -30)) && d.Before(today):
		return StatusPast, true
	case d.After(today) && !d.After(today.AddDate(0, 0, 7)):
		return StatusUpcoming, true
	default:
		return "", false
	}
}

// EventBuckets groups events for calendar-style listings.
type EventBuckets struct {
	Past     []ClimateEvent `json:"past"`
	Ongoing  []ClimateEvent `json:"ongoing"`
	Upcoming []ClimateEvent `json:"upcoming"`
}

// BucketEvents reclassifies events by their date relative to now. Past events are
// sorted newest first and upcoming events soonest first. Events with unparsable
// dates or outside every window are dropped.
func BucketEvents(events []ClimateEvent, now time.Time) EventBuckets {
	b := EventBuckets{
		Past:     []ClimateEvent{},
		Ongoing:  []ClimateEvent{},
		Upcoming: []ClimateEvent{},
	}
	for _, ev := range events {
		d, err := time.Parse(DateLayout, ev.Date)
		if err != nil {
			continue
		}
		status, ok := ClassifyStatus(d, now.UTC())
		if !ok {
			continue
		}
		ev.Status = status
		switch status {
		case StatusPast:
			b.Past = append(b.Past, ev)
		case StatusOngoing:
			b.Ongoing = append(b.Ongoing, ev)
		case StatusUpcoming:
			b.Upcoming = append(b.Upcoming, ev)
		}
	}
	sort.SliceStable(b.Past, func(i, j int) bool { return b.Past[i].Date > b.Past[j].Date })
	sort.SliceStable(b.Upcoming, func(i, j int) bool { return b.Upcoming[i].Date < b.Upcoming[j].Date })
	return b
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
