// Package dataset owns the per-dataset lifecycle: building the base schedule
// timetable, fetching and applying GTFS-RT feeds, and publishing consistent
// snapshots for the query layer.
package dataset

import (
	"fmt"
	"log/slog"
	"time"

	"siriproxy.transitrt.org/internal/models"
	"siriproxy.transitrt.org/internal/transit"
)

// DatedVehicleJourney is a vehicle journey bound to a concrete service date.
type DatedVehicleJourney struct {
	VJ   transit.VehicleJourneyIdx
	Date transit.Date
}

// Connection is one stop event of the expanded base timetable. Times are
// naive local datetimes in the dataset's timezone.
type Connection struct {
	DatedVJ   DatedVehicleJourney
	StopPoint transit.StopPointIdx
	DepTime   time.Time
	ArrTime   time.Time
	Sequence  uint32
}

// Timetable is the flat sequence of connections, sorted by departure time.
type Timetable struct {
	Connections []Connection
}

// Period is the generation window of a timetable: [Begin, Begin+Horizon).
type Period struct {
	Begin   transit.Date
	Horizon time.Duration
}

// End returns the first day outside the window.
func (p Period) End() transit.Date {
	return transit.DateOf(p.Begin.Midnight().Add(p.Horizon))
}

// Contains reports whether the day falls inside the window.
func (p Period) Contains(d transit.Date) bool {
	return !d.Before(p.Begin) && d.Before(p.End())
}

// FeedConstructionInfo records how a dataset was built.
type FeedConstructionInfo struct {
	DatasetInfo      models.DatasetInfo
	GenerationPeriod Period
}

// Dataset is the immutable base-schedule artefact: the parsed model plus the
// materialised timetable. It is shared read-only and replaced wholesale on
// reload, never mutated.
type Dataset struct {
	Model                *transit.Model
	Timetable            Timetable
	Timezone             *time.Location
	LoadedAt             time.Time
	FeedConstructionInfo FeedConstructionInfo
}

// Build reads the GTFS source of a dataset and materialises its timetable for
// the generation period.
func Build(info models.DatasetInfo, period Period) (*Dataset, error) {
	model, err := transit.Load(info.Gtfs)
	if err != nil {
		return nil, fmt.Errorf("building dataset %s: %w", info.ID, err)
	}
	return NewDataset(model, info, period)
}

// NewDataset materialises the timetable of an already-parsed model.
func NewDataset(model *transit.Model, info models.DatasetInfo, period Period) (*Dataset, error) {
	logger := slog.Default().With(
		slog.String("component", "dataset_builder"),
		slog.String("dataset", info.ID))

	// All scheduled times are local and GTFS-RT feeds are UTC; without the
	// dataset timezone the two cannot be reconciled.
	tz, err := model.Timezone()
	if err != nil {
		return nil, fmt.Errorf("building dataset %s: %w", info.ID, err)
	}

	return &Dataset{
		Model:     model,
		Timetable: buildTimetable(model, period, logger),
		Timezone:  tz,
		LoadedAt:  time.Now().UTC(),
		FeedConstructionInfo: FeedConstructionInfo{
			DatasetInfo:      info,
			GenerationPeriod: period,
		},
	}, nil
}
