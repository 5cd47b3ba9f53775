package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/envdata-aggregation/internal/envdata"
)

const eonetGeocodeConcurrency = 5

// EONETProvider lists natural events reported by NASA's Earth Observatory
// Natural Event Tracker over the last 30 days.
type EONETProvider struct {
	name     string
	baseURL  string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
	resolver envdata.LocationResolver
	clock    clockwork.Clock
}

// NewEONETProvider creates the provider. resolver may be nil, in which case point
// events report "Unknown Location".
func NewEONETProvider(cfg HTTPClientConfig, resolver envdata.LocationResolver, clock clockwork.Clock) *EONETProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EONETProvider{
		name:     "NASA EONET",
		baseURL:  "https://eonet.gsfc.nasa.gov/api/v3/events",
		httpCfg:  cfg,
		circuit:  newBreaker("eonet", cfg),
		resolver: resolver,
		clock:    clock,
	}
}

// WithBaseURL overrides the upstream endpoint.
func (p *EONETProvider) WithBaseURL(u string) *EONETProvider {
	p.baseURL = u
	return p
}

func (p *EONETProvider) Name() string {
	return p.name
}

type eonetGeometry struct {
	Date        string          `json:"date"`
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type eonetEvent struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Sources     []struct {
		ID string `json:"id"`
	} `json:"sources"`
	Geometry []eonetGeometry `json:"geometry"`
}

func (p *EONETProvider) FetchNaturalEvents(ctx context.Context) ([]envdata.ClimateEvent, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("days", "30")
		values.Set("status", "all")
		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil)
	}

	var payload struct {
		Events *[]eonetEvent `json:"events"`
	}
	if err := getJSON(ctx, p.name, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return nil, err
	}
	if payload.Events == nil {
		return nil, envdata.NewMalformedError(p.name, "missing events")
	}

	now := p.clock.Now().UTC()
	var (
		g      errgroup.Group
		mu     sync.Mutex
		events = make([]envdata.ClimateEvent, 0, len(*payload.Events))
	)
	g.SetLimit(eonetGeocodeConcurrency)

	for _, ev := range *payload.Events {
		if len(ev.Geometry) == 0 {
			continue
		}
		ev := ev
		g.Go(func() error {
			latest := ev.Geometry[len(ev.Geometry)-1]
			date, err := time.Parse(time.RFC3339, latest.Date)
			if err != nil {
				return nil
			}

			description := "No description available."
			if ev.Description != nil && strings.TrimSpace(*ev.Description) != "" {
				description = *ev.Description
			}
			source := p.name
			if len(ev.Sources) > 0 && ev.Sources[0].ID != "" {
				source = ev.Sources[0].ID
			}

			out := envdata.ClimateEvent{
				ID:          ev.ID,
				Title:       ev.Title,
				Description: description,
				Type:        envdata.EventGeneral,
				Source:      source,
				Severity:    envdata.SeverityLow,
				Date:        date.UTC().Format(envdata.DateLayout),
				Location:    p.locate(ctx, latest),
				Status:      statusFor(date, now),
			}

			mu.Lock()
			events = append(events, out)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return events, nil
}

func (p *EONETProvider) locate(ctx context.Context, geom eonetGeometry) string {
	if geom.Type != "Point" {
		return "Multiple Locations"
	}
	// Coordinates are [lon, lat] or [lon, lat, elevation].
	var coords []float64
	if err := json.Unmarshal(geom.Coordinates, &coords); err != nil || len(coords) < 2 || p.resolver == nil {
		return "Unknown Location"
	}
	place, err := p.resolver.Resolve(ctx, coords[1], coords[0])
	if err != nil {
		p.httpCfg.logger().Debug("eonet reverse geocoding failed", "error", err)
		return "Unknown Location"
	}
	switch {
	case place.FormattedAddress != "":
		return place.FormattedAddress
	case place.City != "" || place.Country != "":
		return envdata.Location{City: place.City, Country: place.Country}.Label()
	default:
		return "Unknown Location"
	}
}

func statusFor(date, now time.Time) envdata.EventStatus {
	if s, ok := envdata.ClassifyStatus(date, now); ok {
		return s
	}
	if date.Before(now) {
		return envdata.StatusPast
	}
	return envdata.StatusUpcoming
}
