package envdata

import (
	"fmt"
	"time"
)

// Source tags which tier of the forecast chain satisfied a reading.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// DateLayout is the ISO calendar date format used by history points and events.
const DateLayout = "2006-01-02"

// Location represents a place for which environmental data is requested.
// Its identity is the coordinate pair; City/Country are optional labels.
type Location struct {
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	City          string  `json:"city,omitempty"`
	Country       string  `json:"country,omitempty"`
	HealthContext string  `json:"healthContext,omitempty"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return fmt.Sprintf("%.4f,%.4f", l.Lat, l.Lon)
}

// Label formats the location as "<city>, <country>" with "Unknown" placeholders.
func (l Location) Label() string {
	city, country := l.City, l.Country
	if city == "" {
		city = "Unknown"
	}
	if country == "" {
		country = "Unknown"
	}
	return city + ", " + country
}

// AirQuality holds pollutant concentrations in µg/m³. PM25 is always present;
// the others depend on provider capability.
type AirQuality struct {
	PM10 *float64 `json:"pm10,omitempty"`
	PM25 float64  `json:"pm25"`
	O3   *float64 `json:"o3,omitempty"`
	CO   *float64 `json:"co,omitempty"`
	NO2  *float64 `json:"no2,omitempty"`
}

// Forecast is one time-bucketed projection.
type Forecast struct {
	Time             string  `json:"time"`
	Temperature      float64 `json:"temperature"`
	RainChance       int     `json:"rainChance"`
	AirQualityStatus string  `json:"airQualityStatus"`
}

// EnvironmentalReading is the canonical current-conditions snapshot for a location.
type EnvironmentalReading struct {
	Source         Source      `json:"source"`
	Provider       string      `json:"provider"`
	ObservedAt     time.Time   `json:"observedAt"`
	Temperature    float64     `json:"temperature"`
	MinTemperature float64     `json:"minTemperature"`
	MaxTemperature float64     `json:"maxTemperature"`
	Humidity       float64     `json:"humidity"`
	RainChance     int         `json:"rainChance"`
	Precipitation  float64     `json:"precipitation"` // mm
	WindSpeed      float64     `json:"windSpeed"`     // m/s
	Pressure       KiloPascal  `json:"pressure"`
	UVIndex        float64     `json:"uvIndex"`
	AirQuality     *AirQuality `json:"airQuality,omitempty"`

	AirQualityProvider string `json:"airQualityProvider,omitempty"`

	DailyForecast  []Forecast `json:"dailyForecast"`
	HourlyForecast []Forecast `json:"hourlyForecast"`
}

// HistoricalDataPoint is one day of a historical series.
type HistoricalDataPoint struct {
	Date        string     `json:"date"`
	Temperature float64    `json:"temperature"`
	Rainfall    float64    `json:"rainfall"` // mm
	Pressure    KiloPascal `json:"pressure"`
}

// EventType is the category of a climate event.
type EventType string

const (
	EventAirQuality  EventType = "Air Quality"
	EventRainfall    EventType = "Rainfall"
	EventTemperature EventType = "Temperature"
	EventWind        EventType = "Wind"
	EventGeneral     EventType = "General"
)

// Severity is the assessed severity of a climate event.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityModerate Severity = "Moderate"
	SeverityHigh     Severity = "High"
)

// EventStatus places an event relative to the current date.
type EventStatus string

const (
	StatusPast     EventStatus = "past"
	StatusOngoing  EventStatus = "ongoing"
	StatusUpcoming EventStatus = "upcoming"
)

// ClimateEvent is a rule-triggered (or upstream-reported) environmental event.
type ClimateEvent struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Type        EventType   `json:"type"`
	Source      string      `json:"source"`
	Severity    Severity    `json:"severity"`
	Date        string      `json:"date"`
	Location    string      `json:"location"`
	Status      EventStatus `json:"status"`
}

// Report bundles a reading with the events derived from it.
type Report struct {
	Location    Location             `json:"location"`
	Reading     EnvironmentalReading `json:"reading"`
	Events      []ClimateEvent       `json:"events"`
	GeneratedAt time.Time            `json:"generatedAt"` // always UTC
}
