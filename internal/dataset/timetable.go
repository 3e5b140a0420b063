package dataset

import (
	"log/slog"
	"sort"
	"time"

	"siriproxy.transitrt.org/internal/logging"
	"siriproxy.transitrt.org/internal/transit"
)

// buildTimetable expands every vehicle journey over its service calendar and
// flattens the result into one departure-time-sorted sequence of connections.
func buildTimetable(model *transit.Model, period Period, logger *slog.Logger) Timetable {
	start := time.Now()
	timetable := Timetable{}

	for vjIdx := range model.VehicleJourneys {
		vj := &model.VehicleJourneys[vjIdx]
		calendar, ok := model.Calendars[vj.ServiceID]
		if !ok {
			logger.Warn("service not found for vehicle journey, skipping",
				slog.String("service_id", vj.ServiceID),
				slog.String("vehicle_journey", vj.ID))
			continue
		}

		dates := activeDatesInPeriod(calendar, period)
		for _, st := range vj.StopTimes {
			for _, date := range dates {
				// times past 24h spill into the next day on purpose
				midnight := date.Midnight()
				timetable.Connections = append(timetable.Connections, Connection{
					DatedVJ:   DatedVehicleJourney{VJ: transit.VehicleJourneyIdx(vjIdx), Date: date},
					StopPoint: st.StopPoint,
					DepTime:   midnight.Add(st.Departure),
					ArrTime:   midnight.Add(st.Arrival),
					Sequence:  st.Sequence,
				})
			}
		}
	}

	sort.SliceStable(timetable.Connections, func(i, j int) bool {
		return timetable.Connections[i].DepTime.Before(timetable.Connections[j].DepTime)
	})

	logging.LogOperation(logger, "timetable_computed",
		slog.Int("connections", len(timetable.Connections)),
		slog.String("begin", period.Begin.String()),
		slog.Duration("elapsed", time.Since(start)))

	return timetable
}

// activeDatesInPeriod lists the service's active days inside the window, in
// ascending order so repeated builds emit connections in the same order.
func activeDatesInPeriod(calendar *transit.Calendar, period Period) []transit.Date {
	var dates []transit.Date
	for date := range calendar.Dates {
		if period.Contains(date) {
			dates = append(dates, date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
