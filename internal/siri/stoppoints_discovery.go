package siri

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"siriproxy.transitrt.org/internal/dataset"
)

const defaultDiscoveryLimit = 20

// StopPointsDiscoveryParams are the parsed query parameters of a
// stoppoints-discovery request. The bounding box defaults to the whole world.
type StopPointsDiscoveryParams struct {
	// case-insensitive substring filter on the stop name
	Q      string
	MinLon float64
	MaxLon float64
	MinLat float64
	MaxLat float64
	Limit  int
	Offset int
}

// ParseStopPointsDiscoveryParams reads and validates the query string. The
// bounding box uses the SIRI parameter names (upper-left / lower-right).
func ParseStopPointsDiscoveryParams(query url.Values) (StopPointsDiscoveryParams, error) {
	params := StopPointsDiscoveryParams{
		Q:      query.Get("q"),
		MinLon: -180.,
		MaxLon: 180.,
		MinLat: -90.,
		MaxLat: 90.,
		Limit:  defaultDiscoveryLimit,
	}

	var err error
	readFloat := func(name string, into *float64) {
		if err != nil {
			return
		}
		if s := query.Get(name); s != "" {
			var v float64
			if v, err = strconv.ParseFloat(s, 64); err != nil {
				err = fmt.Errorf("invalid %s: %w", name, err)
				return
			}
			*into = v
		}
	}
	readFloat("BoundingBoxStructure.UpperLeft.Longitude", &params.MinLon)
	readFloat("BoundingBoxStructure.UpperLeft.Latitude", &params.MaxLat)
	readFloat("BoundingBoxStructure.LowerRight.Longitude", &params.MaxLon)
	readFloat("BoundingBoxStructure.LowerRight.Latitude", &params.MinLat)
	if err != nil {
		return params, err
	}

	if s := query.Get("limit"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil || n < 0 {
			return params, fmt.Errorf("invalid limit %q", s)
		}
		params.Limit = n
	}
	if s := query.Get("offset"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil || n < 0 {
			return params, fmt.Errorf("invalid offset %q", s)
		}
		params.Offset = n
	}
	return params, nil
}

// StopPointsDiscovery lists the stops matching the name filter inside the
// bounding box, with the lines serving each of them.
func StopPointsDiscovery(data *dataset.Dataset, params StopPointsDiscoveryParams, now time.Time) *SiriResponse {
	model := data.Model
	q := strings.ToLower(params.Q)

	var annotated []AnnotatedStopPoint
	skipped := 0
	for _, idx := range model.StopPointsInBox(params.MinLon, params.MinLat, params.MaxLon, params.MaxLat) {
		stop := &model.StopPoints[idx]
		if q != "" && !strings.Contains(strings.ToLower(stop.Name), q) {
			continue
		}
		if skipped < params.Offset {
			skipped++
			continue
		}
		if len(annotated) >= params.Limit {
			break
		}

		routes := model.RoutesServingStop(idx)
		lines := make([]Line, 0, len(routes))
		for _, routeIdx := range routes {
			lines = append(lines, Line{LineRef: model.Routes[routeIdx].ID})
		}
		annotated = append(annotated, AnnotatedStopPoint{
			StopPointRef: stop.ID,
			StopName:     stop.Name,
			Lines:        lines,
			Location: Location{
				Longitude: stop.Lon,
				Latitude:  stop.Lat,
			},
		})
	}
	if annotated == nil {
		annotated = []AnnotatedStopPoint{}
	}

	return &SiriResponse{
		Siri: Siri{
			StopPointsDelivery: &StopPointsDelivery{
				CommonDelivery:     newCommonDelivery(now),
				AnnotatedStopPoint: annotated,
			},
		},
	}
}
