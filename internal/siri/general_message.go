package siri

import (
	"fmt"
	"net/url"
	"sort"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"siriproxy.transitrt.org/internal/dataset"
	"siriproxy.transitrt.org/internal/transit"
)

// GeneralMessageParams are the parsed query parameters of a general-message
// request.
type GeneralMessageParams struct {
	// datetime at which messages must be active; defaults to the query time
	RequestTimestamp *time.Time
}

// ParseGeneralMessageParams reads the query string.
func ParseGeneralMessageParams(query url.Values) (GeneralMessageParams, error) {
	var params GeneralMessageParams
	if s := query.Get("RequestTimestamp"); s != "" {
		t, err := ParseDateTime(s)
		if err != nil {
			return params, fmt.Errorf("invalid RequestTimestamp: %w", err)
		}
		params.RequestTimestamp = &t
	}
	return params, nil
}

// GeneralMessage lists the alerts of the aggregated feed active at the
// requested time. The feed is decoded at query time; ticks are infrequent
// enough that caching the decoded form has not been worth it.
func GeneralMessage(rt *dataset.RealTimeDataset, params GeneralMessageParams, now time.Time) (*SiriResponse, error) {
	data, err := rt.Dataset()
	if err != nil {
		return nil, fmt.Errorf("%w: theoretical dataset temporarily unavailable", ErrUnavailable)
	}
	tz := data.Timezone

	requestedDt := transit.NaiveLocal(now, tz)
	if params.RequestTimestamp != nil {
		requestedDt = *params.RequestTimestamp
	}

	if rt.GtfsRT == nil {
		return nil, fmt.Errorf("%w: no realtime data available", ErrNotFound)
	}
	feed, err := dataset.DecodeFeed(rt.GtfsRT.Data)
	if err != nil {
		return nil, fmt.Errorf("impossible to decode protobuf message: %w", err)
	}

	var infoMessages []InfoMessage
	for _, entity := range feed.Entity {
		alert := entity.GetAlert()
		if alert == nil {
			continue
		}
		if !displayAlert(alert, requestedDt, tz) {
			continue
		}
		infoMessages = append(infoMessages, InfoMessage{
			Content:        readContent(alert),
			ValidUntilTime: maxValidity(alert, tz),
		})
	}
	if infoMessages == nil {
		infoMessages = []InfoMessage{}
	}

	return &SiriResponse{
		Siri: Siri{
			ServiceDelivery: &ServiceDelivery{
				ResponseTimestamp: now.Format(time.RFC3339),
				GeneralMessageDelivery: []GeneralMessageDelivery{{
					CommonDelivery:           newCommonDelivery(now),
					InfoMessages:             infoMessages,
					InfoMessagesCancellation: []InfoMessage{},
				}},
			},
		},
	}, nil
}

// readPbfDt converts a feed epoch second to the dataset's naive local time.
func readPbfDt(t *uint64, tz *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	naive := transit.NaiveLocal(time.Unix(int64(*t), 0), tz)
	return &naive
}

// displayAlert reports whether one of the alert's active periods contains the
// requested time. A missing bound is open-ended on that side, and an alert
// without periods is always active, following the protobuf convention.
func displayAlert(alert *gtfsproto.Alert, requestedDt time.Time, tz *time.Location) bool {
	if len(alert.GetActivePeriod()) == 0 {
		return true
	}
	for _, period := range alert.GetActivePeriod() {
		start := readPbfDt(period.Start, tz)
		end := readPbfDt(period.End, tz)
		if (start == nil || !requestedDt.Before(*start)) && (end == nil || !requestedDt.After(*end)) {
			return true
		}
	}
	return false
}

// maxValidity is the latest end across the alert's active periods.
func maxValidity(alert *gtfsproto.Alert, tz *time.Location) *DateTime {
	var max *time.Time
	for _, period := range alert.GetActivePeriod() {
		end := readPbfDt(period.End, tz)
		if end == nil {
			continue
		}
		if max == nil || end.After(*max) {
			max = end
		}
	}
	if max == nil {
		return nil
	}
	return newDateTime(*max)
}

// messages builds one message per translation of a translated string.
func messages(ts *gtfsproto.TranslatedString, messageType string) []Message {
	if ts == nil {
		return nil
	}
	var out []Message
	for _, translation := range ts.GetTranslation() {
		msgType := messageType
		out = append(out, Message{
			MessageType: &msgType,
			MessageText: NaturalLangString{
				Lang:  translation.Language,
				Value: translation.GetText(),
			},
		})
	}
	return out
}

// readContent flattens an alert into the SIRI general message structure. Each
// header translation becomes a short message and each description translation
// a long one.
func readContent(alert *gtfsproto.Alert) GeneralMessageStructure {
	// informed entities carry lots of duplicates
	lineRefs := make(map[string]bool)
	stopPointRefs := make(map[string]bool)
	for _, informed := range alert.GetInformedEntity() {
		if informed.RouteId != nil {
			lineRefs[informed.GetRouteId()] = true
		}
		if informed.StopId != nil {
			stopPointRefs[informed.GetStopId()] = true
		}
	}

	structure := GeneralMessageStructure{
		LineRef:      sortedKeys(lineRefs),
		StopPointRef: sortedKeys(stopPointRefs),
		Message: append(
			messages(alert.GetHeaderText(), ShortMessage),
			messages(alert.GetDescriptionText(), LongMessage)...,
		),
	}
	if structure.Message == nil {
		structure.Message = []Message{}
	}
	return structure
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
