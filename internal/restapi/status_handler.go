package restapi

import (
	"net/http"
	"time"

	"siriproxy.transitrt.org/internal/models"
)

type datasetStatus struct {
	models.DatasetInfo
	LoadedAt time.Time `json:"loaded_at"`
	Links    Links     `json:"_links,omitempty"`
}

// statusHandler describes one dataset: its configuration, when its base
// schedule was loaded, and its sub-resources.
func (api *RestAPI) statusHandler(w http.ResponseWriter, r *http.Request) {
	manager, ok := api.managerFor(w, r)
	if !ok {
		return
	}
	ds, err := manager.Holder.Dataset()
	if err != nil {
		api.sendError(w, r, http.StatusBadGateway, "theoretical dataset temporarily unavailable")
		return
	}

	api.sendResponse(w, r, datasetStatus{
		DatasetInfo: ds.FeedConstructionInfo.DatasetInfo,
		LoadedAt:    ds.LoadedAt,
		Links:       datasetLinks(r, manager.Info.ID),
	})
}
