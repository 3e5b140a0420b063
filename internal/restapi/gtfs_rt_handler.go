package restapi

import (
	"net/http"

	"google.golang.org/protobuf/encoding/protojson"
	"siriproxy.transitrt.org/internal/dataset"
)

// gtfsRTHandler serves the aggregated feed verbatim, as protobuf bytes.
func (api *RestAPI) gtfsRTHandler(w http.ResponseWriter, r *http.Request) {
	manager, ok := api.managerFor(w, r)
	if !ok {
		return
	}
	rt := manager.Holder.RealtimeDataset()
	if rt.GtfsRT == nil {
		api.sendError(w, r, http.StatusNotFound, "no realtime data available")
		return
	}

	w.Header().Set("Content-Type", "application/x-protobuf")
	_, _ = w.Write(rt.GtfsRT.Data)
}

// gtfsRTJSONHandler serves the aggregated feed decoded to JSON.
func (api *RestAPI) gtfsRTJSONHandler(w http.ResponseWriter, r *http.Request) {
	manager, ok := api.managerFor(w, r)
	if !ok {
		return
	}
	rt := manager.Holder.RealtimeDataset()
	if rt.GtfsRT == nil {
		api.sendError(w, r, http.StatusNotFound, "no realtime data available")
		return
	}

	feed, err := dataset.DecodeFeed(rt.GtfsRT.Data)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	body, err := protojson.Marshal(feed)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	setJSONResponseType(w)
	_, _ = w.Write(body)
}
