package dataset

import (
	"time"
)

// GtfsRT is a raw protobuf payload stamped with its fetch time.
type GtfsRT struct {
	Data      []byte
	FetchedAt time.Time
}

// ScheduleRelationship qualifies a realtime connection.
type ScheduleRelationship int

const (
	Scheduled ScheduleRelationship = iota
	Skipped
	NoData
)

// RealTimeConnection carries the updated times for one connection. Either
// side may be absent when the feed supplied only one of them.
type RealTimeConnection struct {
	DepTime              *time.Time
	ArrTime              *time.Time
	ScheduleRelationship ScheduleRelationship
	UpdateTime           time.Time
}

// UpdatedTimetable is the sparse realtime overlay. Keys are indices into the
// connections of the base timetable it was built against; an absent key means
// the scheduled times stand.
type UpdatedTimetable struct {
	RealTimeConnections map[int]RealTimeConnection
}

// NewUpdatedTimetable returns an empty overlay.
func NewUpdatedTimetable() UpdatedTimetable {
	return UpdatedTimetable{RealTimeConnections: make(map[int]RealTimeConnection)}
}

// RealTimeDataset pairs a realtime overlay with the exact base dataset it was
// computed against, so a reader holding it never needs to correlate two
// independent swaps.
type RealTimeDataset struct {
	Base             *Dataset
	BaseErr          error
	GtfsRT           *GtfsRT
	ProviderURLs     []string
	UpdatedTimetable UpdatedTimetable
}

// NewRealTimeDataset builds the empty overlay published before the first
// realtime tick completes.
func NewRealTimeDataset(base *Dataset, baseErr error, urls []string) *RealTimeDataset {
	return &RealTimeDataset{
		Base:             base,
		BaseErr:          baseErr,
		ProviderURLs:     urls,
		UpdatedTimetable: NewUpdatedTimetable(),
	}
}

// Dataset returns the base schedule this overlay was computed against, or the
// build error that stands in for it.
func (rt *RealTimeDataset) Dataset() (*Dataset, error) {
	return rt.Base, rt.BaseErr
}
