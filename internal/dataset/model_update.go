package dataset

import (
	"fmt"
	"log/slog"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"siriproxy.transitrt.org/internal/transit"
)

// StopTimeUpdate carries the updated times for one call of a trip.
// We do not read the delay fields: only the updated times are used, and the
// delay is recomputed against our own schedule. This avoids drift when the
// producer's schedule differs from ours.
type StopTimeUpdate struct {
	StopPoint        transit.StopPointIdx
	HasStopPoint     bool
	UpdatedArrival   *time.Time
	UpdatedDeparture *time.Time
}

// TripUpdate groups the stop time updates of one dated vehicle journey.
type TripUpdate struct {
	StopTimeUpdatesBySequence map[uint32]StopTimeUpdate
	UpdateTime                time.Time
}

// ModelUpdate is the decoded realtime state, resolved against the model:
// for each dated vehicle journey, its stop time updates keyed by sequence.
type ModelUpdate struct {
	Trips map[DatedVehicleJourney]*TripUpdate
}

// BuildModelUpdate reads the trip updates of the decoded feeds and resolves
// each one against the model. Entities that cannot be resolved are skipped
// and logged; they never fail the whole update. Later entities for the same
// dated vehicle journey overwrite earlier ones.
func BuildModelUpdate(
	model *transit.Model,
	feeds []*gtfsproto.FeedMessage,
	tz *time.Location,
	now time.Time,
	logger *slog.Logger,
) *ModelUpdate {
	modelUpdate := &ModelUpdate{Trips: make(map[DatedVehicleJourney]*TripUpdate)}
	unhandled := 0

	for _, feed := range feeds {
		for _, entity := range feed.Entity {
			tripUpdate := entity.GetTripUpdate()
			if tripUpdate == nil {
				unhandled++
				continue
			}
			datedVJ, err := resolveDatedVJ(model, tripUpdate.GetTrip(), entity.GetId(), tz, now)
			if err != nil {
				logger.Warn("skipping trip update", slog.String("error", err.Error()))
				continue
			}
			modelUpdate.Trips[datedVJ] = &TripUpdate{
				StopTimeUpdatesBySequence: buildStopTimeUpdates(model, tripUpdate, tz, logger),
				UpdateTime:                time.Unix(int64(tripUpdate.GetTimestamp()), 0).UTC(),
			}
		}
	}

	logger.Debug("trip updates resolved",
		slog.Int("trips", len(modelUpdate.Trips)),
		slog.Int("unhandled_entities", unhandled))

	return modelUpdate
}

// resolveDatedVJ identifies the dated vehicle journey a trip descriptor talks
// about. A known trip_id wins; otherwise alternative trip matching by
// (route, direction, date, first departure) is applied and must be unambiguous.
func resolveDatedVJ(
	model *transit.Model,
	trip *gtfsproto.TripDescriptor,
	entityID string,
	tz *time.Location,
	now time.Time,
) (DatedVehicleJourney, error) {
	date, err := tripDate(trip, tz, now)
	if err != nil {
		return DatedVehicleJourney{}, err
	}

	if vjIdx, ok := model.VehicleJourneyIdxByID(trip.GetTripId()); ok {
		return DatedVehicleJourney{VJ: vjIdx, Date: date}, nil
	}

	if trip.RouteId == nil || trip.DirectionId == nil || trip.StartTime == nil {
		return DatedVehicleJourney{}, fmt.Errorf(
			"impossible to find trip %q for entity %s and no route_id was provided",
			trip.GetTripId(), entityID)
	}

	startTime, err := parseGtfsTime(trip.GetStartTime())
	if err != nil {
		return DatedVehicleJourney{}, fmt.Errorf("for entity %s: %w", entityID, err)
	}

	candidates, err := findCorrespondingVJs(model, trip.GetRouteId(), int(trip.GetDirectionId()), date, startTime)
	if err != nil {
		return DatedVehicleJourney{}, fmt.Errorf("for entity %s: %w", entityID, err)
	}
	switch len(candidates) {
	case 1:
		return DatedVehicleJourney{VJ: candidates[0], Date: date}, nil
	case 0:
		return DatedVehicleJourney{}, fmt.Errorf("for entity %s, impossible to find a matching trip", entityID)
	default:
		return DatedVehicleJourney{}, fmt.Errorf(
			"for entity %s, there is no trip id, and %d matching trips, we can't choose one",
			entityID, len(candidates))
	}
}

// findCorrespondingVJs enumerates the vehicle journeys of the direction-keyed
// route whose service runs on the date and whose first call departs at
// startTime.
func findCorrespondingVJs(
	model *transit.Model,
	gtfsRouteID string,
	directionID int,
	date transit.Date,
	startTime time.Duration,
) ([]transit.VehicleJourneyIdx, error) {
	if directionID != 0 && directionID != 1 {
		return nil, fmt.Errorf("%d is not a valid GTFS direction", directionID)
	}
	routeID := transit.RouteID(gtfsRouteID, directionID)
	routeIdx, ok := model.RouteIdxByID(routeID)
	if !ok {
		return nil, fmt.Errorf("impossible to find route %s", routeID)
	}

	var candidates []transit.VehicleJourneyIdx
	for _, vjIdx := range model.VehicleJourneysOfRoute(routeIdx) {
		vj := &model.VehicleJourneys[vjIdx]
		calendar, ok := model.Calendars[vj.ServiceID]
		if !ok || !calendar.ActiveOn(date) {
			continue
		}
		if len(vj.StopTimes) == 0 || vj.StopTimes[0].Departure != startTime {
			continue
		}
		candidates = append(candidates, vjIdx)
	}
	return candidates, nil
}

// buildStopTimeUpdates reads the stop time updates of one trip update. Holes
// in the sequence are tolerated; an update without a stop_sequence or with an
// unknown stop id is skipped.
func buildStopTimeUpdates(
	model *transit.Model,
	tripUpdate *gtfsproto.TripUpdate,
	tz *time.Location,
	logger *slog.Logger,
) map[uint32]StopTimeUpdate {
	updates := make(map[uint32]StopTimeUpdate)

	for _, stu := range tripUpdate.GetStopTimeUpdate() {
		if stu.StopSequence == nil {
			logger.Warn("no stop_sequence provided in stop time update, skipping",
				slog.String("trip", tripUpdate.GetTrip().GetTripId()))
			continue
		}

		update := StopTimeUpdate{
			UpdatedArrival:   readStopTimeEvent(stu.GetArrival(), tz),
			UpdatedDeparture: readStopTimeEvent(stu.GetDeparture(), tz),
		}
		if stu.StopId != nil {
			stopIdx, ok := model.StopPointIdxByID(stu.GetStopId())
			if !ok {
				logger.Warn("impossible to find stop for trip update, skipping",
					slog.String("stop", stu.GetStopId()),
					slog.String("trip", tripUpdate.GetTrip().GetTripId()))
				continue
			}
			update.StopPoint = stopIdx
			update.HasStopPoint = true
		}

		updates[stu.GetStopSequence()] = update
	}
	return updates
}

// readStopTimeEvent converts a feed's epoch time to a naive local datetime in
// the dataset timezone.
func readStopTimeEvent(event *gtfsproto.TripUpdate_StopTimeEvent, tz *time.Location) *time.Time {
	if event == nil || event.Time == nil {
		return nil
	}
	naive := transit.NaiveLocal(time.Unix(event.GetTime(), 0), tz)
	return &naive
}

// tripDate resolves the service date of a trip descriptor, defaulting to
// today in the dataset timezone.
func tripDate(trip *gtfsproto.TripDescriptor, tz *time.Location, now time.Time) (transit.Date, error) {
	if trip.StartDate == nil {
		return transit.DateOf(now.In(tz)), nil
	}
	date, err := transit.ParseDate(trip.GetStartDate())
	if err != nil {
		return transit.Date{}, fmt.Errorf("impossible to parse date: %w", err)
	}
	return date, nil
}

// parseGtfsTime parses a GTFS "HH:MM:SS" time as a duration since midnight.
// Hours may exceed 24.
func parseGtfsTime(s string) (time.Duration, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		return 0, fmt.Errorf("impossible to parse time %q: %w", s, err)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}
