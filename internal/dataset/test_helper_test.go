package dataset

import (
	"testing"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/OneBusAway/go-gtfs"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"siriproxy.transitrt.org/internal/models"
	"siriproxy.transitrt.org/internal/testutil"
	"siriproxy.transitrt.org/internal/transit"
)

func modelFromZip(t *testing.T, zipBytes []byte) *transit.Model {
	t.Helper()
	static, err := gtfs.ParseStatic(zipBytes, gtfs.ParseStaticOptions{})
	require.NoError(t, err)
	model, err := transit.NewModel(static)
	require.NoError(t, err)
	return model
}

func datasetFromZip(t *testing.T, zipBytes []byte, period Period) *Dataset {
	t.Helper()
	model := modelFromZip(t, zipBytes)
	ds, err := NewDataset(model, models.DatasetInfo{ID: "default", Name: "default name"}, period)
	require.NoError(t, err)
	return ds
}

func demoPeriod() Period {
	return Period{Begin: transit.NewDate(2018, time.December, 15), Horizon: 48 * time.Hour}
}

func demoDataset(t *testing.T) *Dataset {
	t.Helper()
	return datasetFromZip(t, testutil.DemoGTFS(t), demoPeriod())
}

func toTimestamp(t *testing.T, value string) int64 {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed.Unix()
}

// makeStu builds a stop time update; arrival and departure are RFC-3339
// datetimes with an offset, or empty to leave the side unset.
func makeStu(t *testing.T, stopID string, sequence uint32, arrival, departure string) *gtfsproto.TripUpdate_StopTimeUpdate {
	t.Helper()
	stu := &gtfsproto.TripUpdate_StopTimeUpdate{
		StopSequence: proto.Uint32(sequence),
	}
	if stopID != "" {
		stu.StopId = proto.String(stopID)
	}
	if arrival != "" {
		stu.Arrival = &gtfsproto.TripUpdate_StopTimeEvent{Time: proto.Int64(toTimestamp(t, arrival))}
	}
	if departure != "" {
		stu.Departure = &gtfsproto.TripUpdate_StopTimeEvent{Time: proto.Int64(toTimestamp(t, departure))}
	}
	return stu
}

func makeFeed(entities ...*gtfsproto.FeedEntity) *gtfsproto.FeedMessage {
	return &gtfsproto.FeedMessage{
		Header: &gtfsproto.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfsproto.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(1),
		},
		Entity: entities,
	}
}

func makeTripUpdateEntity(entityID, tripID, startDate string, stus ...*gtfsproto.TripUpdate_StopTimeUpdate) *gtfsproto.FeedEntity {
	trip := &gtfsproto.TripDescriptor{}
	if tripID != "" {
		trip.TripId = proto.String(tripID)
	}
	if startDate != "" {
		trip.StartDate = proto.String(startDate)
	}
	return &gtfsproto.FeedEntity{
		Id: proto.String(entityID),
		TripUpdate: &gtfsproto.TripUpdate{
			Trip:           trip,
			StopTimeUpdate: stus,
		},
	}
}

// connectionIndex finds the timetable index of a (vj, date, sequence) triple.
func connectionIndex(t *testing.T, ds *Dataset, vjID string, date transit.Date, sequence uint32) int {
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
