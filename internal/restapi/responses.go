package restapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"siriproxy.transitrt.org/internal/logging"
	"siriproxy.transitrt.org/internal/siri"
)

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func setJSONResponseType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
}

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response any) {
	setJSONResponseType(w)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		api.serverErrorResponse(w, r, err)
	}
}

func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, code int, message string) {
	setJSONResponseType(w)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(errorResponse{Code: code, Message: message}); err != nil {
		logging.LogError(api.Logger, "unable to encode error response", err)
	}
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(api.Logger, "internal server error", err)
	api.sendError(w, r, http.StatusInternalServerError, "internal server error")
}

// sendSiriError maps a query layer error onto the HTTP surface: unknown
// objects are 404, a dataset whose base build failed is a bad gateway, and
// anything else is internal.
func (api *RestAPI) sendSiriError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, siri.ErrNotFound):
		api.sendError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, siri.ErrUnavailable):
		api.sendError(w, r, http.StatusBadGateway, err.Error())
	default:
		api.serverErrorResponse(w, r, err)
	}
}
