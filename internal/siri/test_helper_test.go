package siri

import (
	"testing"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"github.com/stretchr/testify/require"
	"siriproxy.transitrt.org/internal/dataset"
	"siriproxy.transitrt.org/internal/models"
	"siriproxy.transitrt.org/internal/testutil"
	"siriproxy.transitrt.org/internal/transit"
)

var demoLoadedAt = time.Date(2018, time.December, 15, 4, 0, 0, 0, time.UTC)

// demoDataset expands the demo feed over [2018-12-15, +48h).
func demoDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	static, err := gtfs.ParseStatic(testutil.DemoGTFS(t), gtfs.ParseStaticOptions{})
	require.NoError(t, err)
	model, err := transit.NewModel(static)
	require.NoError(t, err)

	info := models.DatasetInfo{ID: "default", Name: "default name", Gtfs: "gtfs.zip"}
	period := dataset.Period{Begin: transit.NewDate(2018, time.December, 15), Horizon: 48 * time.Hour}
	ds, err := dataset.NewDataset(model, info, period)
	require.NoError(t, err)
	ds.LoadedAt = demoLoadedAt
	return ds
}

func emptyRT(ds *dataset.Dataset) *dataset.RealTimeDataset {
	return dataset.NewRealTimeDataset(ds, nil, nil)
}

// rtWithUpdate builds an overlay entry for one (vj, date, sequence) triple.
func rtWithUpdate(t *testing.T, ds *dataset.Dataset, vjID string, date transit.Date, sequence uint32, arr, dep string) *dataset.RealTimeDataset {
	t.Helper()
	rt := dataset.NewRealTimeDataset(ds, nil, nil)
	idx := findConnection(t, ds, vjID, date, sequence)
	rtc := dataset.RealTimeConnection{
		ScheduleRelationship: dataset.Scheduled,
		UpdateTime:           time.Date(2018, time.December, 15, 14, 0, 0, 0, time.UTC),
	}
	if arr != "" {
		at := naive(t, arr)
		rtc.ArrTime = &at
	}
	if dep != "" {
		dt := naive(t, dep)
		rtc.DepTime = &dt
	}
	rt.UpdatedTimetable.RealTimeConnections[idx] = rtc
	return rt
}

func findConnection(t *testing.T, ds *dataset.Dataset, vjID string, date transit.Date, sequence uint32) int {
	t.Helper()
	vjIdx, ok := ds.Model.VehicleJourneyIdxByID(vjID)
	require.True(t, ok)
	for idx, connection := range ds.Timetable.Connections {
		if connection.DatedVJ.VJ == vjIdx && connection.DatedVJ.Date == date && connection.Sequence == sequence {
			return idx
		}
	}
	t.Fatalf("no connection for %s %s seq %d", vjID, date, sequence)
	return -1
}

func naive(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := ParseDateTime(value)
	require.NoError(t, err)
	return parsed
}
