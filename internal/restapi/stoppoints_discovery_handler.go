package restapi

import (
	"net/http"

	"siriproxy.transitrt.org/internal/siri"
)

// stopPointsDiscoveryHandler searches the stops of the base schedule by name
// and bounding box.
func (api *RestAPI) stopPointsDiscoveryHandler(w http.ResponseWriter, r *http.Request) {
	manager, ok := api.managerFor(w, r)
	if !ok {
		return
	}
	params, err := siri.ParseStopPointsDiscoveryParams(r.URL.Query())
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ds, err := manager.Holder.Dataset()
	if err != nil {
		api.sendError(w, r, http.StatusBadGateway, "theoretical dataset temporarily unavailable")
		return
	}
	api.sendResponse(w, r, siri.StopPointsDiscovery(ds, params, api.Clock.Now()))
}
