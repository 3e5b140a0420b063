package restapi

import (
	"encoding/json"
	"net/http"
)

// HealthResponse represents the JSON response from the health endpoint.
type HealthResponse struct {
	Status   string            `json:"status"`
	Datasets map[string]string `json:"datasets,omitempty"`
}

// healthHandler reports readiness. A dataset whose base build failed makes
// the whole process unhealthy, which keeps cold or broken instances out of
// rotation.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := "ok"
	datasets := make(map[string]string, len(api.Datasets.Datasets))
	for _, manager := range api.Managers() {
		if manager.Holder == nil {
			status = "starting"
			datasets[manager.Info.ID] = "loading"
			continue
		}
		if _, err := manager.Holder.Dataset(); err != nil {
			status = "unavailable"
			datasets[manager.Info.ID] = err.Error()
			continue
		}
		datasets[manager.Info.ID] = "ok"
	}

	if status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(HealthResponse{Status: status, Datasets: datasets})
}
