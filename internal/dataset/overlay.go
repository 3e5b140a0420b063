package dataset

import (
	"log/slog"
)

// applyTripUpdates walks the base timetable and records, keyed by connection
// index, the realtime entry of every connection covered by the model update.
// Connections are sorted by scheduled departure so the walk is a single pass.
// Returns the overlay and the number of updates dropped because their stop id
// disagreed with the schedule at that sequence.
func applyTripUpdates(ds *Dataset, modelUpdate *ModelUpdate, logger *slog.Logger) (UpdatedTimetable, int) {
	updatedTimetable := NewUpdatedTimetable()
	incoherentStops := 0

	for idx := range ds.Timetable.Connections {
		connection := &ds.Timetable.Connections[idx]
		tripUpdate, ok := modelUpdate.Trips[connection.DatedVJ]
		if !ok {
			continue
		}
		stopTimeUpdate, ok := tripUpdate.StopTimeUpdatesBySequence[connection.Sequence]
		if !ok {
			continue
		}
		if stopTimeUpdate.HasStopPoint && stopTimeUpdate.StopPoint != connection.StopPoint {
			logger.Warn("invalid stop connection: feed stop does not match schedule at this sequence",
				slog.String("vehicle_journey", ds.Model.VehicleJourneys[connection.DatedVJ.VJ].ID),
				slog.Uint64("sequence", uint64(connection.Sequence)),
				slog.String("scheduled_stop", ds.Model.StopPoints[connection.StopPoint].ID),
				slog.String("feed_stop", ds.Model.StopPoints[stopTimeUpdate.StopPoint].ID))
			incoherentStops++
			continue
		}
		updatedTimetable.RealTimeConnections[idx] = RealTimeConnection{
			DepTime:              stopTimeUpdate.UpdatedDeparture,
			ArrTime:              stopTimeUpdate.UpdatedArrival,
			ScheduleRelationship: Scheduled,
			UpdateTime:           tripUpdate.UpdateTime,
		}
	}

	return updatedTimetable, incoherentStops
}
