// Package transit adapts a parsed GTFS archive into the indexed, read-only
// model the rest of the service works with. Objects reference each other by
// stable integer indices into the model's collections; an index is only valid
// for the lifetime of the Model it came from.
package transit

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"github.com/tidwall/rtree"
)

// Typed indices into the Model's collections.
type (
	StopPointIdx      int
	RouteIdx          int
	VehicleJourneyIdx int
	CompanyIdx        int
)

// NoCompany marks a vehicle journey with no associated company.
const NoCompany = CompanyIdx(-1)

// StopPoint is one boarding location.
type StopPoint struct {
	ID       string
	Name     string
	Lon      float64
	Lat      float64
	ParentID string
}

// Route is a line in one direction. GTFS routes are split per direction: the
// forward route keeps the GTFS id, the backward one gets a "_R" suffix, and
// both share the GTFS id as LineID.
type Route struct {
	ID          string
	Name        string
	LineID      string
	DirectionID int
}

// StopTime is one scheduled call of a vehicle journey at a stop. Times are
// durations since service-day midnight and may exceed 24h, meaning the call
// happens on the following day.
type StopTime struct {
	StopPoint StopPointIdx
	Sequence  uint32
	Arrival   time.Duration
	Departure time.Duration
}

// VehicleJourney is one scheduled run of a vehicle along a route.
type VehicleJourney struct {
	ID        string
	Route     RouteIdx
	ServiceID string
	Company   CompanyIdx
	StopTimes []StopTime
}

// Calendar is the set of days a service runs on.
type Calendar struct {
	ID    string
	Dates map[Date]bool
}

// ActiveOn reports whether the service runs on the given day.
func (c *Calendar) ActiveOn(date Date) bool {
	return c.Dates[date]
}

type Company struct {
	ID   string
	Name string
}

type Network struct {
	ID       string
	Name     string
	Timezone string
}

// ErrNoTimezone is returned when no network of the dataset carries a usable
// timezone; without it GTFS-RT timestamps cannot be interpreted.
var ErrNoTimezone = errors.New("no usable timezone in dataset")

// Model is the read-only indexed transit network.
type Model struct {
	StopPoints      []StopPoint
	Routes          []Route
	VehicleJourneys []VehicleJourney
	Companies       []Company
	Networks        []Network
	Calendars       map[string]*Calendar

	stopPointsByID         map[string]StopPointIdx
	routesByID             map[string]RouteIdx
	vehicleJourneysByID    map[string]VehicleJourneyIdx
	vehicleJourneysByRoute map[RouteIdx][]VehicleJourneyIdx
	routesByStopPoint      map[StopPointIdx][]RouteIdx
	spatialIndex           rtree.RTreeG[StopPointIdx]
}

// NewModel converts a parsed GTFS static feed into the indexed model.
func NewModel(static *gtfs.Static) (*Model, error) {
	if static == nil {
		return nil, fmt.Errorf("no static data")
	}

	m := &Model{
		Calendars:              make(map[string]*Calendar, len(static.Services)),
		stopPointsByID:         make(map[string]StopPointIdx, len(static.Stops)),
		routesByID:             make(map[string]RouteIdx),
		vehicleJourneysByID:    make(map[string]VehicleJourneyIdx, len(static.Trips)),
		vehicleJourneysByRoute: make(map[RouteIdx][]VehicleJourneyIdx),
		routesByStopPoint:      make(map[StopPointIdx][]RouteIdx),
	}

	for i := range static.Stops {
		s := &static.Stops[i]
		if s.Latitude == nil || s.Longitude == nil {
			// generic nodes and boarding areas may lack coordinates
			continue
		}
		sp := StopPoint{
			ID:   s.Id,
			Name: s.Name,
			Lon:  *s.Longitude,
			Lat:  *s.Latitude,
		}
		if s.Parent != nil {
			sp.ParentID = s.Parent.Id
		}
		idx := StopPointIdx(len(m.StopPoints))
		m.StopPoints = append(m.StopPoints, sp)
		m.stopPointsByID[sp.ID] = idx
		m.spatialIndex.Insert([2]float64{sp.Lon, sp.Lat}, [2]float64{sp.Lon, sp.Lat}, idx)
	}

	companyIdxByID := make(map[string]CompanyIdx, len(static.Agencies))
	for i := range static.Agencies {
		a := &static.Agencies[i]
		companyIdxByID[a.Id] = CompanyIdx(len(m.Companies))
		m.Companies = append(m.Companies, Company{ID: a.Id, Name: a.Name})
		m.Networks = append(m.Networks, Network{ID: a.Id, Name: a.Name, Timezone: a.Timezone})
	}

	for _, service := range static.Services {
		m.Calendars[service.Id] = expandCalendar(service)
	}

	for i := range static.Trips {
		t := &static.Trips[i]
		if t.Route == nil {
			continue
		}
		direction := 0
		if int(t.DirectionId) == 1 {
			direction = 1
		}
		routeIdx := m.ensureRoute(t.Route, direction)

		company := NoCompany
		if t.Route.Agency != nil {
			if idx, ok := companyIdxByID[t.Route.Agency.Id]; ok {
				company = idx
			}
		} else if len(m.Companies) == 1 {
			company = CompanyIdx(0)
		}

		serviceID := ""
		if t.Service != nil {
			serviceID = t.Service.Id
		}

		vj := VehicleJourney{
			ID:        t.ID,
			Route:     routeIdx,
			ServiceID: serviceID,
			Company:   company,
		}
		for _, st := range t.StopTimes {
			if st.Stop == nil {
				continue
			}
			spIdx, ok := m.stopPointsByID[st.Stop.Id]
			if !ok {
				continue
			}
			vj.StopTimes = append(vj.StopTimes, StopTime{
				StopPoint: spIdx,
				Sequence:  uint32(st.StopSequence),
				Arrival:   st.ArrivalTime,
				Departure: st.DepartureTime,
			})
		}

		vjIdx := VehicleJourneyIdx(len(m.VehicleJourneys))
		m.VehicleJourneys = append(m.VehicleJourneys, vj)
		m.vehicleJourneysByID[vj.ID] = vjIdx
		m.vehicleJourneysByRoute[routeIdx] = append(m.vehicleJourneysByRoute[routeIdx], vjIdx)

		for _, st := range vj.StopTimes {
			m.addRouteToStop(st.StopPoint, routeIdx)
		}
	}

	return m, nil
}

// ensureRoute registers the direction-specific route for a GTFS route,
// creating it on first sight.
func (m *Model) ensureRoute(gtfsRoute *gtfs.Route, direction int) RouteIdx {
	id := RouteID(gtfsRoute.Id, direction)
	if idx, ok := m.routesByID[id]; ok {
		return idx
	}
	name := gtfsRoute.ShortName
	if name == "" {
		name = gtfsRoute.LongName
	}
	idx := RouteIdx(len(m.Routes))
	m.Routes = append(m.Routes, Route{
		ID:          id,
		Name:        name,
		LineID:      gtfsRoute.Id,
		DirectionID: direction,
	})
	m.routesByID[id] = idx
	return idx
}

func (m *Model) addRouteToStop(stop StopPointIdx, route RouteIdx) {
	for _, existing := range m.routesByStopPoint[stop] {
		if existing == route {
			return
		}
	}
	m.routesByStopPoint[stop] = append(m.routesByStopPoint[stop], route)
}

// RouteID computes the internal id of the direction-specific route for a GTFS
// route id. Direction 0 keeps the id, direction 1 appends "_R".
func RouteID(gtfsRouteID string, direction int) string {
	if direction == 1 {
		return gtfsRouteID + "_R"
	}
	return gtfsRouteID
}

// expandCalendar materialises the set of active days of a service from its
// weekday pattern and its explicit exceptions.
func expandCalendar(service gtfs.Service) *Calendar {
	cal := &Calendar{ID: service.Id, Dates: make(map[Date]bool)}

	weekdays := map[time.Weekday]bool{
		time.Monday:    service.Monday,
		time.Tuesday:   service.Tuesday,
		time.Wednesday: service.Wednesday,
		time.Thursday:  service.Thursday,
		time.Friday:    service.Friday,
		time.Saturday:  service.Saturday,
		time.Sunday:    service.Sunday,
	}

	if !service.StartDate.IsZero() && !service.EndDate.IsZero() {
		for day := service.StartDate; !day.After(service.EndDate); day = day.AddDate(0, 0, 1) {
			if weekdays[day.Weekday()] {
				cal.Dates[DateOf(day)] = true
			}
		}
	}
	for _, day := range service.AddedDates {
		cal.Dates[DateOf(day)] = true
	}
	for _, day := range service.RemovedDates {
		delete(cal.Dates, DateOf(day))
	}
	return cal
}

// StopPointIdxByID resolves a stop id.
func (m *Model) StopPointIdxByID(id string) (StopPointIdx, bool) {
	idx, ok := m.stopPointsByID[id]
	return idx, ok
}

// RouteIdxByID resolves an internal (direction-specific) route id.
func (m *Model) RouteIdxByID(id string) (RouteIdx, bool) {
	idx, ok := m.routesByID[id]
	return idx, ok
}

// VehicleJourneyIdxByID resolves a vehicle journey id.
func (m *Model) VehicleJourneyIdxByID(id string) (VehicleJourneyIdx, bool) {
	idx, ok := m.vehicleJourneysByID[id]
	return idx, ok
}

// VehicleJourneysOfRoute lists the vehicle journeys of a route.
func (m *Model) VehicleJourneysOfRoute(route RouteIdx) []VehicleJourneyIdx {
	return m.vehicleJourneysByRoute[route]
}

// RoutesServingStop lists the routes calling at a stop.
func (m *Model) RoutesServingStop(stop StopPointIdx) []RouteIdx {
	return m.routesByStopPoint[stop]
}

// StopPointsInBox returns the stops inside the bounding box, in stable
// collection order so paginated queries are deterministic.
func (m *Model) StopPointsInBox(minLon, minLat, maxLon, maxLat float64) []StopPointIdx {
	var found []StopPointIdx
	m.spatialIndex.Search(
		[2]float64{minLon, minLat},
		[2]float64{maxLon, maxLat},
		func(_, _ [2]float64, idx StopPointIdx) bool {
			found = append(found, idx)
			return true
		},
	)
	sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })
	return found
}

// Timezone resolves the dataset's timezone from the first network carrying
// one. All the scheduled times of a dataset are local to this zone.
func (m *Model) Timezone() (*time.Location, error) {
	for _, network := range m.Networks {
		if network.Timezone == "" {
			continue
		}
		loc, err := time.LoadLocation(network.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q for network %s: %w", network.Timezone, network.ID, err)
		}
		return loc, nil
	}
	return nil, ErrNoTimezone
}
