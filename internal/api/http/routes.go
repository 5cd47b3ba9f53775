package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/envdata-aggregation/internal/assistant"
	"github.com/i474232898/envdata-aggregation/internal/envdata"
	"github.com/i474232898/envdata-aggregation/internal/store"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *envdata.Service) {
	tools := assistant.NewDispatcher(service)
	v1 := app.Group("/api/v1")

	v1.Get("/reading", func(c *fiber.Ctx) error {
		locReq, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.Report(c.UserContext(), locReq.toLocation())
		if err != nil {
			return engineError(err)
		}
		return c.JSON(report)
	})

	v1.Get("/reading/latest", func(c *fiber.Ctx) error {
		locReq, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.GetLatest(locReq.toLocation())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no reading cached for requested location")
			}
			return engineError(err)
		}
		return c.JSON(report)
	})

	v1.Get("/reading/range", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := req.Location.toLocation()
		reports, err := service.GetRange(loc, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no readings cached for requested range")
			}
			return engineError(err)
		}

		return c.JSON(fiber.Map{
			"location": loc,
			"from":     req.From,
			"to":       req.To,
			"reports":  reports,
		})
	})

	v1.Get("/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		data, err := service.History(c.UserContext(), req.Location.toLocation(), req.Days)
		if err != nil {
			if errors.Is(err, envdata.ErrInvalidDays) || errors.Is(err, envdata.ErrNotConfigured) {
				return engineError(err)
			}
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
				"data":    []envdata.HistoricalDataPoint{},
			})
		}
		return c.JSON(fiber.Map{"days": req.Days, "data": data})
	})

	v1.Get("/events", func(c *fiber.Ctx) error {
		locReq, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.Report(c.UserContext(), locReq.toLocation())
		if err != nil {
			return engineError(err)
		}
		return c.JSON(fiber.Map{
			"location": report.Location.Label(),
			"events":   report.Events,
		})
	})

	v1.Get("/events/natural", func(c *fiber.Ctx) error {
		buckets, err := service.NaturalEvents(c.UserContext())
		if err != nil {
			return engineError(err)
		}
		return c.JSON(buckets)
	})

	v1.Get("/air-quality/category", func(c *fiber.Ctx) error {
		raw := c.Query("pm25")
		if raw == "" {
			return fiber.NewError(fiber.StatusBadRequest, "pm25 query parameter is required")
		}
		pm25, err := strconv.ParseFloat(raw, 64)
		if err != nil || pm25 < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "pm25 must be a non-negative number")
		}
		return c.JSON(fiber.Map{
			"pm25":     pm25,
			"category": envdata.ClassifyPM25(pm25),
		})
	})

	v1.Post("/tools", func(c *fiber.Ctx) error {
		var call assistant.Call
		if err := c.BodyParser(&call); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid tool call body")
		}
		if err := tools.Validate(call); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := tools.Dispatch(c.UserContext(), call)
		if err != nil {
			return engineError(err)
		}
		return c.JSON(result)
	})
}

// engineError maps engine failures onto HTTP status codes.
func engineError(err error) error {
	var aggErr *envdata.AggregationError
	switch {
	case errors.As(err, &aggErr):
		return fiber.NewError(fiber.StatusBadGateway, aggErr.Error())
	case errors.Is(err, envdata.ErrInvalidDays):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, envdata.ErrNotConfigured):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
}

// locationQuery holds query parameters for identifying a location.
type locationQuery struct {
	Lat     *float64 `validate:"required,gte=-90,lte=90"`
	Lon     *float64 `validate:"required,gte=-180,lte=180"`
	City    string   `validate:"max=128"`
	Country string   `validate:"max=128"`
}

func (l locationQuery) toLocation() envdata.Location {
	return envdata.Location{
		Lat:     *l.Lat,
		Lon:     *l.Lon,
		City:    l.City,
		Country: l.Country,
	}
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	var q locationQuery

	lat, err := parseOptionalFloat(c.Query("lat"))
	if err != nil {
		return q, errors.New("lat must be a number")
	}
	lon, err := parseOptionalFloat(c.Query("lon"))
	if err != nil {
		return q, errors.New("lon must be a number")
	}
	q.Lat, q.Lon = lat, lon
	q.City = c.Query("city")
	q.Country = c.Query("country")

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Location locationQuery
	Days     int `validate:"required,oneof=7 30"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return err
	}
	h.Location = loc

	days, err := strconv.Atoi(c.Query("days", "7"))
	if err != nil {
		return errors.New("days must be an integer")
	}
	h.Days = days
	return nil
}

// rangeQuery holds query parameters for the cached range endpoint.
type rangeQuery struct {
	Location locationQuery
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (r *rangeQuery) bind(c *fiber.Ctx) error {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return err
	}
	r.Location = loc

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	r.From = from
	r.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
