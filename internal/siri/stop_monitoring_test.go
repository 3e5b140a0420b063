package siri

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"siriproxy.transitrt.org/internal/transit"
)

var queryTime = time.Date(2018, time.December, 15, 13, 0, 0, 0, time.UTC)

func monitoredVisits(t *testing.T, response *SiriResponse) []MonitoredStopVisit {
	t.Helper()
	require.NotNil(t, response.Siri.ServiceDelivery)
	require.Len(t, response.Siri.ServiceDelivery.StopMonitoringDelivery, 1)
	return response.Siri.ServiceDelivery.StopMonitoringDelivery[0].MonitoredStopVisit
}

func TestStopMonitoringScheduled(t *testing.T) {
	ds := demoDataset(t)
	start := naive(t, "2018-12-15T05:22:00")
	params := StopMonitoringParams{
		MonitoringRef:     "EMSI",
		StartTime:         &start,
		DataFreshness:     Scheduled,
		MaximumStopVisits: 3,
	}

	response, err := StopMonitoring(emptyRT(ds), params, queryTime)
	require.NoError(t, err)

	visits := monitoredVisits(t, response)
	require.Len(t, visits, 3)

	first := visits[0]
	assert.Equal(t, "EMSI", first.MonitoringRef)
	vj := first.MonitoredVehicleJourney
	assert.Equal(t, "CITY", vj.LineRef)
	require.NotNil(t, vj.OperatorRef)
	assert.Equal(t, "DTA", *vj.OperatorRef)

	call := vj.MonitoredCall
	require.NotNil(t, call)
	assert.Equal(t, uint32(5), call.Order)
	assert.Equal(t, "E Main St / S Irving St (Demo)", call.StopPointName)
	assert.Equal(t, "2018-12-15T06:26:00", call.AimedArrivalTime.String())
	assert.Equal(t, "2018-12-15T06:28:00", call.AimedDepartureTime.String())
	assert.Nil(t, call.ExpectedArrivalTime)
	assert.Nil(t, call.ExpectedDepartureTime)

	// without realtime data the recording time falls back to the load time
	assert.Equal(t, demoLoadedAt.Format(time.RFC3339), first.RecordedAtTime)
	assert.Equal(t, "EMSI:CITY1", first.ItemIdentifier)
}

func TestStopMonitoringRealtimeOverlay(t *testing.T) {
	ds := demoDataset(t)
	rt := rtWithUpdate(t, ds, "CITY1", transit.NewDate(2018, time.December, 15), 5,
		"2018-12-15T06:26:30", "2018-12-15T06:28:30")

	start := naive(t, "2018-12-15T05:22:00")
	params := StopMonitoringParams{
		MonitoringRef:     "EMSI",
		StartTime:         &start,
		DataFreshness:     RealTime,
		MaximumStopVisits: 2,
	}

	response, err := StopMonitoring(rt, params, queryTime)
	require.NoError(t, err)

	visits := monitoredVisits(t, response)
	require.Len(t, visits, 2)

	call := visits[0].MonitoredVehicleJourney.MonitoredCall
	require.NotNil(t, call)
	// aimed times are untouched, expected times come from the overlay
	assert.Equal(t, "2018-12-15T06:26:00", call.AimedArrivalTime.String())
	assert.Equal(t, "2018-12-15T06:28:00", call.AimedDepartureTime.String())
	require.NotNil(t, call.ExpectedArrivalTime)
	require.NotNil(t, call.ExpectedDepartureTime)
	assert.Equal(t, "2018-12-15T06:26:30", call.ExpectedArrivalTime.String())
	assert.Equal(t, "2018-12-15T06:28:30", call.ExpectedDepartureTime.String())
}

func TestStopMonitoringScheduledFreshnessIgnoresOverlay(t *testing.T) {
	ds := demoDataset(t)
	rt := rtWithUpdate(t, ds, "CITY1", transit.NewDate(2018, time.December, 15), 5,
		"2018-12-15T06:26:30", "2018-12-15T06:28:30")

	start := naive(t, "2018-12-15T05:22:00")
	params := StopMonitoringParams{
		MonitoringRef:     "EMSI",
		StartTime:         &start,
		DataFreshness:     Scheduled,
		MaximumStopVisits: 1,
	}

	response, err := StopMonitoring(rt, params, queryTime)
	require.NoError(t, err)
	call := monitoredVisits(t, response)[0].MonitoredVehicleJourney.MonitoredCall
	assert.Nil(t, call.ExpectedArrivalTime)
	assert.Nil(t, call.ExpectedDepartureTime)
}

func TestStopMonitoringPreviewInterval(t *testing.T) {
	ds := demoDataset(t)
	start := naive(t, "2018-12-15T05:22:00")
	interval := time.Hour
	params := StopMonitoringParams{
		MonitoringRef:     "BEATTY_AIRPORT",
		StartTime:         &start,
		PreviewInterval:   &interval,
		DataFreshness:     Scheduled,
		MaximumStopVisits: 10,
	}

	response, err := StopMonitoring(emptyRT(ds), params, queryTime)
	require.NoError(t, err)

	// only the 06:20 STBA call fits in [05:22, 06:22]; the 08:00 one is out
	visits := monitoredVisits(t, response)
	require.Len(t, visits, 1)
	call := visits[0].MonitoredVehicleJourney.MonitoredCall
	assert.Equal(t, "2018-12-15T06:20:00", call.AimedDepartureTime.String())
	assert.Equal(t, uint32(2), call.Order)
}

func TestStopMonitoringLineFilter(t *testing.T) {
	ds := demoDataset(t)
	start := naive(t, "2018-12-15T05:22:00")
	params := StopMonitoringParams{
		MonitoringRef:     "BEATTY_AIRPORT",
		StartTime:         &start,
		LineRef:           "AB",
		DataFreshness:     Scheduled,
		MaximumStopVisits: 10,
	}

	response, err := StopMonitoring(emptyRT(ds), params, queryTime)
	require.NoError(t, err)
	for _, visit := range monitoredVisits(t, response) {
		assert.Equal(t, "AB", visit.MonitoredVehicleJourney.LineRef)
	}
}

func TestStopMonitoringUnknownStop(t *testing.T) {
	ds := demoDataset(t)
	params := StopMonitoringParams{MonitoringRef: "NOWHERE", MaximumStopVisits: 2, DataFreshness: RealTime}

	_, err := StopMonitoring(emptyRT(ds), params, queryTime)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStopMonitoringBaseUnavailable(t *testing.T) {
	rt := emptyRT(nil)
	rt.BaseErr = errors.New("gtfs build failed")
	params := StopMonitoringParams{MonitoringRef: "EMSI", MaximumStopVisits: 2, DataFreshness: RealTime}

	_, err := StopMonitoring(rt, params, queryTime)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestParseStopMonitoringParams(t *testing.T) {
	params, err := ParseStopMonitoringParams(url.Values{
		"MonitoringRef":   {"EMSI"},
		"StartTime":       {"2018-12-15T05:22:00"},
		"PreviewInterval": {"PT1H"},
		"DataFreshness":   {"Scheduled"},
	})
	require.NoError(t, err)
	assert.Equal(t, "EMSI", params.MonitoringRef)
	assert.Equal(t, naive(t, "2018-12-15T05:22:00"), *params.StartTime)
	assert.Equal(t, time.Hour, *params.PreviewInterval)
	assert.Equal(t, Scheduled, params.DataFreshness)
	assert.Equal(t, 2, params.MaximumStopVisits)
}

func TestParseStopMonitoringParamsValidation(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
	}{
		{name: "missing MonitoringRef", query: url.Values{}},
		{name: "bad StartTime", query: url.Values{"MonitoringRef": {"EMSI"}, "StartTime": {"noon"}}},
		{name: "bad PreviewInterval", query: url.Values{"MonitoringRef": {"EMSI"}, "PreviewInterval": {"1h"}}},
		{name: "bad DataFreshness", query: url.Values{"MonitoringRef": {"EMSI"}, "DataFreshness": {"Psychic"}}},
		{name: "bad MaximumStopVisits", query: url.Values{"MonitoringRef": {"EMSI"}, "MaximumStopVisits": {"-3"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStopMonitoringParams(tt.query)
			assert.Error(t, err)
		})
	}
}

func TestParseStopMonitoringParamsCapsVisits(t *testing.T) {
	params, err := ParseStopMonitoringParams(url.Values{
		"MonitoringRef":     {"EMSI"},
		"MaximumStopVisits": {"500"},
	})
	require.NoError(t, err)
	assert.Equal(t, 20, params.MaximumStopVisits)
}
