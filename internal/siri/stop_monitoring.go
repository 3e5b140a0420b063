package siri

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sosodev/duration"
	"siriproxy.transitrt.org/internal/dataset"
	"siriproxy.transitrt.org/internal/transit"
)

// DataFreshness controls whether the realtime overlay is applied to the
// monitored visits or only the base schedule is served.
type DataFreshness string

const (
	RealTime  DataFreshness = "RealTime"
	Scheduled DataFreshness = "Scheduled"
)

const (
	defaultStopVisits = 2
	// arbitrary bound so a query can never ask for an unlimited page
	maxStopVisits = 20
)

// StopMonitoringParams are the parsed query parameters of a stop-monitoring
// request.
type StopMonitoringParams struct {
	// Id of the stop_point on which we want the next departures
	MonitoringRef string
	// Filter the departures of the given line's id
	LineRef string
	// StartTime is the datetime from which we want the next departures.
	// The default is the current time of the query.
	StartTime *time.Time
	// ISO 8601 duration used to filter the departures/arrivals within the
	// period [StartTime, StartTime + PreviewInterval], e.g. 'PT10H'
	PreviewInterval *time.Duration
	DataFreshness   DataFreshness
	// Maximum number of departures to display
	MaximumStopVisits int
}

// ParseStopMonitoringParams reads and validates the query string.
func ParseStopMonitoringParams(query url.Values) (StopMonitoringParams, error) {
	params := StopMonitoringParams{
		MonitoringRef:     query.Get("MonitoringRef"),
		LineRef:           query.Get("LineRef"),
		DataFreshness:     RealTime,
		MaximumStopVisits: defaultStopVisits,
	}
	if params.MonitoringRef == "" {
		return params, fmt.Errorf("the MonitoringRef parameter is required")
	}

	if s := query.Get("StartTime"); s != "" {
		t, err := ParseDateTime(s)
		if err != nil {
			return params, fmt.Errorf("invalid StartTime: %w", err)
		}
		params.StartTime = &t
	}
	if s := query.Get("PreviewInterval"); s != "" {
		d, err := duration.Parse(s)
		if err != nil {
			return params, fmt.Errorf("invalid PreviewInterval: %w", err)
		}
		interval := d.ToTimeDuration()
		params.PreviewInterval = &interval
	}
	if s := query.Get("DataFreshness"); s != "" {
		switch DataFreshness(s) {
		case RealTime, Scheduled:
			params.DataFreshness = DataFreshness(s)
		default:
			return params, fmt.Errorf("invalid DataFreshness %q", s)
		}
	}
	if s := query.Get("MaximumStopVisits"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return params, fmt.Errorf("invalid MaximumStopVisits %q", s)
		}
		params.MaximumStopVisits = n
	}
	// silently bound the maximum stop visits
	if params.MaximumStopVisits > maxStopVisits {
		params.MaximumStopVisits = maxStopVisits
	}
	return params, nil
}

// StopMonitoring computes the next visits at a stop from one consistent
// realtime snapshot. now is the absolute query time, used when no StartTime
// was given and as the response timestamp.
func StopMonitoring(rt *dataset.RealTimeDataset, params StopMonitoringParams, now time.Time) (*SiriResponse, error) {
	data, err := rt.Dataset()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	stopIdx, ok := data.Model.StopPointIdxByID(params.MonitoringRef)
	if !ok {
		return nil, fmt.Errorf("%w: impossible to find stop: '%s'", ErrNotFound, params.MonitoringRef)
	}

	startTime := transit.NaiveLocal(now, data.Timezone)
	if params.StartTime != nil {
		startTime = *params.StartTime
	}

	visits := make([]MonitoredStopVisit, 0, params.MaximumStopVisits)
	for idx := range data.Timetable.Connections {
		if len(visits) >= params.MaximumStopVisits {
			break
		}
		connection := &data.Timetable.Connections[idx]
		if connection.DepTime.Before(startTime) {
			continue
		}
		if connection.StopPoint != stopIdx {
			continue
		}
		if params.LineRef != "" && lineRef(connection, data.Model) != params.LineRef {
			continue
		}
		if !isInInterval(connection, startTime, params.PreviewInterval) {
			continue
		}

		var updated *dataset.RealTimeConnection
		if params.DataFreshness == RealTime {
			if rtc, ok := rt.UpdatedTimetable.RealTimeConnections[idx]; ok {
				updated = &rtc
			}
		}
		visits = append(visits, newMonitoredStopVisit(data, connection, updated))
	}

	return &SiriResponse{
		Siri: Siri{
			ServiceDelivery: &ServiceDelivery{
				ResponseTimestamp: now.Format(time.RFC3339),
				StopMonitoringDelivery: []StopMonitoringDelivery{{
					Version:            "2.0",
					ResponseTimestamp:  now.Format(time.RFC3339),
					Status:             true,
					MonitoredStopVisit: visits,
				}},
			},
		},
	}, nil
}

func lineRef(connection *dataset.Connection, model *transit.Model) string {
	vj := &model.VehicleJourneys[connection.DatedVJ.VJ]
	return model.Routes[vj.Route].LineID
}

// isInInterval keeps a connection until both its times fall outside the
// preview window.
func isInInterval(connection *dataset.Connection, startTime time.Time, interval *time.Duration) bool {
	if interval == nil {
		return true
	}
	limit := startTime.Add(*interval)
	return !connection.DepTime.After(limit) || !connection.ArrTime.After(limit)
}

func newMonitoredStopVisit(
	data *dataset.Dataset,
	connection *dataset.Connection,
	updated *dataset.RealTimeConnection,
) MonitoredStopVisit {
	model := data.Model
	stop := &model.StopPoints[connection.StopPoint]
	vj := &model.VehicleJourneys[connection.DatedVJ.VJ]

	// the siri operator is the transmodel company
	var operatorRef *string
	if vj.Company != transit.NoCompany {
		ref := model.Companies[vj.Company].ID
		operatorRef = &ref
	}

	// without realtime data the best recording time we have is the base
	// schedule loading time
	updateTime := data.LoadedAt
	if updated != nil {
		updateTime = updated.UpdateTime
	}

	call := MonitoredCall{
		Order:              connection.Sequence,
		StopPointName:      stop.Name,
		AimedArrivalTime:   newDateTime(connection.ArrTime),
		AimedDepartureTime: newDateTime(connection.DepTime),
	}
	if updated != nil {
		if updated.ArrTime != nil {
			call.ExpectedArrivalTime = newDateTime(*updated.ArrTime)
		}
		if updated.DepTime != nil {
			call.ExpectedDepartureTime = newDateTime(*updated.DepTime)
		}
	}

	return MonitoredStopVisit{
		MonitoringRef:  stop.ID,
		RecordedAtTime: updateTime.Format(time.RFC3339),
		ItemIdentifier: fmt.Sprintf("%s:%s", stop.ID, vj.ID),
		MonitoredVehicleJourney: MonitoredVehicleJourney{
			LineRef:       model.Routes[vj.Route].LineID,
			OperatorRef:   operatorRef,
			MonitoredCall: &call,
		},
	}
}
