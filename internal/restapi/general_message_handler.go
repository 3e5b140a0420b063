package restapi

import (
	"net/http"

	"siriproxy.transitrt.org/internal/siri"
)

// generalMessageHandler lists the disruption messages of the aggregated feed
// active at the requested time.
func (api *RestAPI) generalMessageHandler(w http.ResponseWriter, r *http.Request) {
	manager, ok := api.managerFor(w, r)
	if !ok {
		return
	}
	params, err := siri.ParseGeneralMessageParams(r.URL.Query())
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	response, err := siri.GeneralMessage(manager.Holder.RealtimeDataset(), params, api.Clock.Now())
	if err != nil {
		api.sendSiriError(w, r, err)
		return
	}
	api.sendResponse(w, r, response)
}
