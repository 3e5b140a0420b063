// Package restapi exposes the datasets over HTTP: the hypermedia entry
// points, the raw and JSON GTFS-RT feeds, and the SIRI-lite queries.
package restapi

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"siriproxy.transitrt.org/internal/app"
	"siriproxy.transitrt.org/internal/dataset"
)

// RestAPI holds the handlers of the HTTP surface.
type RestAPI struct {
	*app.Application
}

// New creates the REST API over an application.
func New(application *app.Application) *RestAPI {
	return &RestAPI{Application: application}
}

// Handler builds the routed handler with the full middleware chain.
func (api *RestAPI) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", api.entryPointHandler)
	mux.HandleFunc("GET /health", api.healthHandler)
	if api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET /{datasetID}/{$}", api.statusHandler)
	mux.HandleFunc("GET /{datasetID}/gtfs-rt", api.gtfsRTHandler)
	mux.HandleFunc("GET /{datasetID}/gtfs-rt.json", api.gtfsRTJSONHandler)
	mux.HandleFunc("GET /{datasetID}/siri/2.0/{$}", api.siriIndexHandler)
	mux.HandleFunc("GET /{datasetID}/siri/2.0/stop-monitoring.json", api.stopMonitoringHandler)
	mux.HandleFunc("GET /{datasetID}/siri/2.0/stoppoints-discovery.json", api.stopPointsDiscoveryHandler)
	mux.HandleFunc("GET /{datasetID}/siri/2.0/general-message.json", api.generalMessageHandler)

	var handler http.Handler = mux
	handler = gzhttp.GzipHandler(handler)
	handler = MetricsHandler(api.Metrics)(handler)
	if api.Config.RateLimit > 0 {
		handler = NewRateLimitMiddleware(api.Config.RateLimit, api.Clock).Handler()(handler)
	}
	handler = NewRequestLoggingMiddleware(api.Logger)(handler)
	handler = RequestIDMiddleware(handler)
	return handler
}

// managerFor resolves the dataset of the request, rendering a 404 when the id
// is unknown. The second return value reports whether the caller may proceed.
func (api *RestAPI) managerFor(w http.ResponseWriter, r *http.Request) (*dataset.Manager, bool) {
	id := r.PathValue("datasetID")
	manager, ok := api.Manager(id)
	if !ok {
		api.sendError(w, r, http.StatusNotFound, "impossible to find dataset: '"+id+"'")
		return nil, false
	}
	if manager.Holder == nil {
		api.sendError(w, r, http.StatusInternalServerError, "dataset not initialized")
		return nil, false
	}
	return manager, true
}
