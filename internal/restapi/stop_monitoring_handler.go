package restapi

import (
	"net/http"

	"siriproxy.transitrt.org/internal/siri"
)

// stopMonitoringHandler answers the next-departures query for one stop,
// fusing the base schedule with the realtime overlay of a single snapshot.
func (api *RestAPI) stopMonitoringHandler(w http.ResponseWriter, r *http.Request) {
	manager, ok := api.managerFor(w, r)
	if !ok {
		return
	}
	params, err := siri.ParseStopMonitoringParams(r.URL.Query())
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	response, err := siri.StopMonitoring(manager.Holder.RealtimeDataset(), params, api.Clock.Now())
	if err != nil {
		api.sendSiriError(w, r, err)
		return
	}
	api.sendResponse(w, r, response)
}
