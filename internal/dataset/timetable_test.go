package dataset

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"siriproxy.transitrt.org/internal/testutil"
	"siriproxy.transitrt.org/internal/transit"
)

func TestTimetableCreation(t *testing.T) {
	model := modelFromZip(t, testutil.AltMatchGTFS(t))
	date := transit.NewDate(2019, time.February, 6)
	period := Period{Begin: date, Horizon: 24 * time.Hour}

	timetable := buildTimetable(model, period, slog.Default())

	// 4 trips with 3+2+3+3 stop times, each active one day
	assert.Len(t, timetable.Connections, 11)

	vj1, ok := model.VehicleJourneyIdxByID("vj1")
	require.True(t, ok)
	stopA, ok := model.StopPointIdxByID("A")
	require.True(t, ok)

	first := timetable.Connections[0]
	assert.Equal(t, DatedVehicleJourney{VJ: vj1, Date: date}, first.DatedVJ)
	assert.Equal(t, stopA, first.StopPoint)
	assert.Equal(t, date.Midnight().Add(10*time.Hour+1*time.Minute), first.DepTime)
	assert.Equal(t, date.Midnight().Add(10*time.Hour), first.ArrTime)
	assert.Equal(t, uint32(1), first.Sequence)
}

func TestTimetableIsSorted(t *testing.T) {
	ds := demoDataset(t)

	require.NotEmpty(t, ds.Timetable.Connections)
	for i := 1; i < len(ds.Timetable.Connections); i++ {
		previous := ds.Timetable.Connections[i-1].DepTime
		current := ds.Timetable.Connections[i].DepTime
		assert.False(t, current.Before(previous), "connection %d departs before its predecessor", i)
	}
}

func TestTimetableHorizonWindow(t *testing.T) {
	ds := demoDataset(t)

	begin := demoPeriod().Begin
	end := demoPeriod().End()
	for _, connection := range ds.Timetable.Connections {
		date := connection.DatedVJ.Date
		assert.False(t, date.Before(begin))
		assert.True(t, date.Before(end))
	}

	// 14 stop times per day over a 2-day horizon
	assert.Len(t, ds.Timetable.Connections, 28)
}

func TestTimetableRebuildIsIdempotent(t *testing.T) {
	model := modelFromZip(t, testutil.DemoGTFS(t))
	first := buildTimetable(model, demoPeriod(), slog.Default())
	second := buildTimetable(model, demoPeriod(), slog.Default())
	assert.Equal(t, first.Connections, second.Connections)
}

func TestTimetableSkipsUnknownService(t *testing.T) {
	zipBytes := testutil.BuildZip(t, map[string]string{
		"agency.txt": `agency_id,agency_name,agency_url,agency_timezone
OP,Operator,http://example.com,UTC
`,
		"stops.txt": `stop_id,stop_name,stop_lat,stop_lon
A,Stop A,45.0,0.0
B,Stop B,45.1,0.1
`,
		"routes.txt": `route_id,agency_id,route_short_name,route_long_name,route_type
l1,OP,l1,ligne 1,3
`,
		"trips.txt": `route_id,service_id,trip_id,direction_id
l1,c,good,0
l1,ghost,orphan,0
`,
		"stop_times.txt": `trip_id,arrival_time,departure_time,stop_id,stop_sequence
good,10:00:00,10:01:00,A,1
good,11:00:00,11:01:00,B,2
orphan,10:00:00,10:01:00,A,1
`,
		"calendar.txt": `service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
c,1,1,1,1,1,1,1,20190206,20190206
`,
	})
	model := modelFromZip(t, zipBytes)
	period := Period{Begin: transit.NewDate(2019, time.February, 6), Horizon: 24 * time.Hour}

	timetable := buildTimetable(model, period, slog.Default())

	// the orphan trip contributes nothing, and the build does not fail
	assert.Len(t, timetable.Connections, 2)
}

func TestTimetableOvernightStopTimes(t *testing.T) {
	zipBytes := testutil.BuildZip(t, map[string]string{
		"agency.txt": `agency_id,agency_name,agency_url,agency_timezone
OP,Operator,http://example.com,UTC
`,
		"stops.txt": `stop_id,stop_name,stop_lat,stop_lon
A,Stop A,45.0,0.0
B,Stop B,45.1,0.1
`,
		"routes.txt": `route_id,agency_id,route_short_name,route_long_name,route_type
n1,OP,n1,night line,3
`,
		"trips.txt": `route_id,service_id,trip_id,direction_id
n1,c,night,0
`,
		"stop_times.txt": `trip_id,arrival_time,departure_time,stop_id,stop_sequence
night,23:50:00,23:55:00,A,1
night,26:00:00,26:05:00,B,2
`,
		"calendar.txt": `service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
c,1,1,1,1,1,1,1,20190206,20190206
`,
	})
	model := modelFromZip(t, zipBytes)
	date := transit.NewDate(2019, time.February, 6)
	period := Period{Begin: date, Horizon: 24 * time.Hour}

	timetable := buildTimetable(model, period, slog.Default())

	require.Len(t, timetable.Connections, 2)
	last := timetable.Connections[1]
	// 26:00 carries into the next day, and stays attached to its service date
	assert.Equal(t, time.Date(2019, time.February, 7, 2, 0, 0, 0, time.UTC), last.ArrTime)
	assert.Equal(t, time.Date(2019, time.February, 7, 2, 5, 0, 0, time.UTC), last.DepTime)
	assert.Equal(t, date, last.DatedVJ.Date)
}
