package restapi

import (
	"net/http"

	"siriproxy.transitrt.org/internal/models"
)

type exposedDataset struct {
	models.DatasetInfo
	Links Links `json:"_links,omitempty"`
}

type apiEntryPoint struct {
	Datasets []exposedDataset `json:"datasets"`
	Links    Links            `json:"_links,omitempty"`
}

// entryPointHandler lists the hosted datasets with links to their detail
// pages.
func (api *RestAPI) entryPointHandler(w http.ResponseWriter, r *http.Request) {
	datasets := make([]exposedDataset, 0, len(api.Datasets.Datasets))
	for _, info := range api.Datasets.Datasets {
		datasets = append(datasets, exposedDataset{
			DatasetInfo: info,
			Links: Links{
				"self": link(r, "/"+info.ID+"/"),
			},
		})
	}

	api.sendResponse(w, r, apiEntryPoint{
		Datasets: datasets,
		Links: Links{
			"dataset_detail": {Href: baseURL(r) + "/{id}/", Templated: true},
		},
	})
}
