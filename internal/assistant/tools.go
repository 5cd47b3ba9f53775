// Package assistant exposes the engine to an AI tool-calling layer through a
// narrow, validated contract.
package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/envdata-aggregation/internal/envdata"
)

// ToolName tags which tool a call targets.
type ToolName string

const (
	ToolGetReading ToolName = "getReading"
	ToolGetHistory ToolName = "getHistory"
)

// ErrUnknownTool is returned for a call whose tag is not a known tool.
var ErrUnknownTool = errors.New("unknown tool")

// Coordinates is the location input shared by every tool.
type Coordinates struct {
	Lat     float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon     float64 `json:"lon" validate:"gte=-180,lte=180"`
	City    string  `json:"city,omitempty" validate:"max=128"`
	Country string  `json:"country,omitempty" validate:"max=128"`
}

func (c Coordinates) location() envdata.Location {
	return envdata.Location{Lat: c.Lat, Lon: c.Lon, City: c.City, Country: c.Country}
}

// GetReadingInput is the input of the getReading tool.
type GetReadingInput struct {
	Location Coordinates `json:"location"`
}

// GetHistoryInput is the input of the getHistory tool.
type GetHistoryInput struct {
	Location Coordinates `json:"location"`
	Days     int         `json:"days" validate:"required,oneof=7 30"`
}

// Call is a tagged union: exactly one input matching Tool must be set.
type Call struct {
	Tool       ToolName         `json:"tool" validate:"required,oneof=getReading getHistory"`
	GetReading *GetReadingInput `json:"getReading,omitempty"`
	GetHistory *GetHistoryInput `json:"getHistory,omitempty"`
}

// Result is the tagged output of a tool call.
type Result struct {
	Tool    ToolName                      `json:"tool"`
	Reading *envdata.EnvironmentalReading `json:"reading,omitempty"`
	History []envdata.HistoricalDataPoint `json:"history,omitempty"`
	Events  []envdata.ClimateEvent        `json:"events,omitempty"`
}

// Engine is the subset of envdata.Service the tools call.
type Engine interface {
	Report(ctx context.Context, loc envdata.Location) (envdata.Report, error)
	History(ctx context.Context, loc envdata.Location, days int) ([]envdata.HistoricalDataPoint, error)
}

// Dispatcher validates tool calls and routes them to the engine.
type Dispatcher struct {
	engine   Engine
	validate *validator.Validate
}

func NewDispatcher(engine Engine) *Dispatcher {
	return &Dispatcher{engine: engine, validate: validator.New()}
}

// Validate checks the tag and that exactly the matching input is present and valid.
func (d *Dispatcher) Validate(call Call) error {
	if err := d.validate.Struct(call); err != nil {
		return err
	}
	switch call.Tool {
	case ToolGetReading:
		if call.GetReading == nil || call.GetHistory != nil {
			return fmt.Errorf("tool %s requires only the getReading input", call.Tool)
		}
		return d.validate.Struct(call.GetReading)
	case ToolGetHistory:
		if call.GetHistory == nil || call.GetReading != nil {
			return fmt.Errorf("tool %s requires only the getHistory input", call.Tool)
		}
		return d.validate.Struct(call.GetHistory)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTool, call.Tool)
	}
}

// Dispatch validates and executes a tool call.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (Result, error) {
	if err := d.Validate(call); err != nil {
		return Result{}, err
	}

	switch call.Tool {
	case ToolGetReading:
		report, err := d.engine.Report(ctx, call.GetReading.Location.location())
		if err != nil {
			return Result{}, err
		}
		return Result{Tool: call.Tool, Reading: &report.Reading, Events: report.Events}, nil
	case ToolGetHistory:
		history, err := d.engine.History(ctx, call.GetHistory.Location.location(), call.GetHistory.Days)
		if err != nil {
			return Result{}, err
		}
		return Result{Tool: call.Tool, History: history}, nil
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownTool, call.Tool)
	}
}
