package restapi

import (
	"net/http"
)

type siriIndex struct {
	Links Links `json:"_links"`
}

// siriIndexHandler lists the SIRI-lite endpoints of a dataset.
func (api *RestAPI) siriIndexHandler(w http.ResponseWriter, r *http.Request) {
	manager, ok := api.managerFor(w, r)
	if !ok {
		return
	}
	prefix := "/" + manager.Info.ID + "/siri/2.0"
	api.sendResponse(w, r, siriIndex{
		Links: Links{
			"stop-monitoring":      link(r, prefix+"/stop-monitoring.json"),
			"stoppoints-discovery": link(r, prefix+"/stoppoints-discovery.json"),
			"general-message":      link(r, prefix+"/general-message.json"),
		},
	})
}
