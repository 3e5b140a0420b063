// Package webui serves the non-production debug pages.
package webui

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"siriproxy.transitrt.org/internal/app"
	"siriproxy.transitrt.org/internal/appconf"
)

var debugTemplate = template.Must(template.New("debug").Parse(
	`<!DOCTYPE html><html><head><title>{{.Title}}</title></head><body><h1>{{.Title}}</h1><pre>{{.Pre}}</pre></body></html>`))

type debugData struct {
	Title string
	Pre   string
}

// WebUI exposes debugging views over the application state.
type WebUI struct {
	*app.Application
}

func New(application *app.Application) *WebUI {
	return &WebUI{Application: application}
}

// DebugHandler dumps the state of one dataset: its construction info, the
// size of its timetable and of the current overlay. Disabled in production.
func (webUI *WebUI) DebugHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}

	type datasetDump struct {
		ID              string
		BaseError       string
		LoadedAt        string
		Connections     int
		UpdatedEntries  int
		FeedProviders   []string
		AggregatedBytes int
	}

	var dumps []datasetDump
	for _, manager := range webUI.Managers() {
		dump := datasetDump{ID: manager.Info.ID, FeedProviders: manager.Info.GtfsRTUrls}
		if manager.Holder == nil {
			dump.BaseError = "not initialized"
			dumps = append(dumps, dump)
			continue
		}
		if ds, err := manager.Holder.Dataset(); err != nil {
			dump.BaseError = err.Error()
		} else {
			dump.LoadedAt = ds.LoadedAt.String()
			dump.Connections = len(ds.Timetable.Connections)
		}
		rt := manager.Holder.RealtimeDataset()
		dump.UpdatedEntries = len(rt.UpdatedTimetable.RealTimeConnections)
		if rt.GtfsRT != nil {
			dump.AggregatedBytes = len(rt.GtfsRT.Data)
		}
		dumps = append(dumps, dump)
	}

	w.Header().Set("Content-Type", "text/html")
	err := debugTemplate.Execute(w, debugData{
		Title: "datasets",
		Pre:   spew.Sdump(dumps),
	})
	if err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
