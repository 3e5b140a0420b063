package dataset

import (
	"fmt"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// DecodeFeed parses a raw GTFS-RT payload.
func DecodeFeed(data []byte) (*gtfsproto.FeedMessage, error) {
	feed := &gtfsproto.FeedMessage{}
	if err := proto.Unmarshal(data, feed); err != nil {
		return nil, fmt.Errorf("unable to decode feed message: %w", err)
	}
	return feed, nil
}

// AggregateFeeds merges the decoded feeds into one canonical feed: the header
// is cloned from the first feed, the entity list is the concatenation of all
// entity lists. The result is re-encoded so /gtfs-rt can serve it verbatim.
func AggregateFeeds(feeds []*gtfsproto.FeedMessage, fetchedAt time.Time) (*GtfsRT, error) {
	merged := &gtfsproto.FeedMessage{}

	if len(feeds) > 0 && feeds[0].Header != nil {
		merged.Header = proto.Clone(feeds[0].Header).(*gtfsproto.FeedHeader)
	} else {
		merged.Header = &gtfsproto.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfsproto.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(fetchedAt.Unix())),
		}
	}
	for _, feed := range feeds {
		merged.Entity = append(merged.Entity, feed.Entity...)
	}

	data, err := proto.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("unable to encode aggregated feed: %w", err)
	}
	return &GtfsRT{Data: data, FetchedAt: fetchedAt}, nil
}
