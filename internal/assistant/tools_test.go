package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/envdata-aggregation/internal/envdata"
)

type fakeEngine struct {
	report    envdata.Report
	history   []envdata.HistoricalDataPoint
	err       error
	gotLoc    envdata.Location
	gotDays   int
	callCount int
}

func (f *fakeEngine) Report(_ context.Context, loc envdata.Location) (envdata.Report, error) {
	f.callCount++
	f.gotLoc = loc
	return f.report, f.err
}

func (f *fakeEngine) History(_ context.Context, loc envdata.Location, days int) ([]envdata.HistoricalDataPoint, error) {
	f.callCount++
	f.gotLoc, f.gotDays = loc, days
	return f.history, f.err
}

func TestDispatch_GetReading(t *testing.T) {
	engine := &fakeEngine{report: envdata.Report{
		Reading: envdata.EnvironmentalReading{Temperature: 24, Source: envdata.SourcePrimary},
		Events:  []envdata.ClimateEvent{{Type: envdata.EventWind}},
	}}
	d := NewDispatcher(engine)

	res, err := d.Dispatch(context.Background(), Call{
		Tool:       ToolGetReading,
		GetReading: &GetReadingInput{Location: Coordinates{Lat: -1.29, Lon: 36.82, City: "Nairobi"}},
	})
	require.NoError(t, err)

	assert.Equal(t, ToolGetReading, res.Tool)
	require.NotNil(t, res.Reading)
	assert.Equal(t, 24.0, res.Reading.Temperature)
	assert.Len(t, res.Events, 1)
	assert.Equal(t, envdata.Location{Lat: -1.29, Lon: 36.82, City: "Nairobi"}, engine.gotLoc)
}

func TestDispatch_GetHistory(t *testing.T) {
	engine := &fakeEngine{history: []envdata.HistoricalDataPoint{{Date: "2026-10-10"}}}
	d := NewDispatcher(engine)

	res, err := d.Dispatch(context.Background(), Call{
		Tool:       ToolGetHistory,
		GetHistory: &GetHistoryInput{Location: Coordinates{Lat: 10, Lon: 20}, Days: 30},
	})
	require.NoError(t, err)
	assert.Equal(t, ToolGetHistory, res.Tool)
	assert.Len(t, res.History, 1)
	assert.Equal(t, 30, engine.gotDays)
}

func TestDispatch_RejectsInvalidCalls(t *testing.T) {
	tests := []struct {
		name string
		call Call
	}{
		{"unknown tool", Call{Tool: "getForecast"}},
		{"missing tool", Call{}},
		{"missing input", Call{Tool: ToolGetReading}},
		{"mismatched input", Call{Tool: ToolGetReading, GetHistory: &GetHistoryInput{Days: 7}}},
		{"both inputs", Call{
			Tool:       ToolGetHistory,
			GetReading: &GetReadingInput{},
			GetHistory: &GetHistoryInput{Days: 7},
		}},
		{"bad days", Call{Tool: ToolGetHistory, GetHistory: &GetHistoryInput{Days: 14}}},
		{"latitude out of range", Call{Tool: ToolGetReading, GetReading: &GetReadingInput{Location: Coordinates{Lat: 91}}}},
		{"longitude out of range", Call{Tool: ToolGetHistory, GetHistory: &GetHistoryInput{Location: Coordinates{Lon: -181}, Days: 7}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{}
			_, err := NewDispatcher(engine).Dispatch(context.Background(), tt.call)
			assert.Error(t, err)
			assert.Zero(t, engine.callCount)
		})
	}
}

func TestDispatch_PropagatesEngineErrors(t *testing.T) {
	aggErr := &envdata.AggregationError{AttemptedProviders: []string{"Open-Meteo"}, Message: "all forecast providers failed"}
	engine := &fakeEngine{err: aggErr}

	_, err := NewDispatcher(engine).Dispatch(context.Background(), Call{
		Tool:       ToolGetReading,
		GetReading: &GetReadingInput{Location: Coordinates{Lat: 1, Lon: 1}},
	})

	var got *envdata.AggregationError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, []string{"Open-Meteo"}, got.AttemptedProviders)
}
