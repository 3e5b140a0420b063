package restapi

import (
	"net/http"
)

// Link as described in "JSON Hypertext Application Language"
// https://tools.ietf.org/html/draft-kelly-json-hal-08
type Link struct {
	Href      string `json:"href"`
	Templated bool   `json:"templated,omitempty"`
}

// Links is the "_links" object attached to hypermedia responses.
type Links map[string]Link

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func link(r *http.Request, path string) Link {
	return Link{Href: baseURL(r) + path}
}

// datasetLinks are the sub-resources of one dataset.
func datasetLinks(r *http.Request, datasetID string) Links {
	prefix := "/" + datasetID
	return Links{
		"gtfs-rt":               link(r, prefix+"/gtfs-rt"),
		"gtfs-rt.json":          link(r, prefix+"/gtfs-rt.json"),
		"siri-lite":             link(r, prefix+"/siri/2.0/"),
		"stop-monitoring":       link(r, prefix+"/siri/2.0/stop-monitoring.json"),
		"stoppoints-discovery":  link(r, prefix+"/siri/2.0/stoppoints-discovery.json"),
		"general-message":       link(r, prefix+"/siri/2.0/general-message.json"),
	}
}
