// Package siri holds the SIRI-lite response model and the pure query
// functions that compute deliveries from dataset snapshots.
package siri

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound marks queries referencing an unknown object (404).
var ErrNotFound = errors.New("not found")

// ErrUnavailable marks queries that need the base schedule while the dataset
// is in error (502-class).
var ErrUnavailable = errors.New("dataset unavailable")

const datetimeLayout = "2006-01-02T15:04:05"

// DateTime is a naive local datetime as exchanged on the SIRI surface:
// ISO-8601 without an offset.
type DateTime time.Time

func (d DateTime) String() string {
	return time.Time(d).Format(datetimeLayout)
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("datetime format not valid: %s", s)
	}
	t, err := ParseDateTime(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = DateTime(t)
	return nil
}

// ParseDateTime parses the naive local datetime format of query parameters.
func ParseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(datetimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("datetime format not valid: %w", err)
	}
	return t, nil
}

func newDateTime(t time.Time) *DateTime {
	d := DateTime(t)
	return &d
}

// SiriResponse is the root of every SIRI-lite payload.
type SiriResponse struct {
	Siri Siri `json:"Siri"`
}

type Siri struct {
	StopPointsDelivery *StopPointsDelivery `json:"StopPointsDelivery,omitempty"`
	ServiceDelivery    *ServiceDelivery    `json:"ServiceDelivery,omitempty"`
}

// CommonDelivery carries the fields shared by all the SIRI deliveries.
type CommonDelivery struct {
	Version           string  `json:"Version"`
	ResponseTimestamp string  `json:"ResponseTimestamp"`
	RequestMessageRef *string `json:"RequestMessageRef,omitempty"`
	Status            *bool   `json:"Status,omitempty"`
}

func newCommonDelivery(responseTimestamp time.Time) CommonDelivery {
	status := true
	return CommonDelivery{
		Version:           "2.0",
		ResponseTimestamp: responseTimestamp.Format(time.RFC3339),
		Status:            &status,
	}
}

type ServiceDelivery struct {
	ResponseTimestamp      string                   `json:"ResponseTimestamp"`
	ProducerRef            *string                  `json:"ProducerRef,omitempty"`
	StopMonitoringDelivery []StopMonitoringDelivery `json:"StopMonitoringDelivery,omitempty"`
	GeneralMessageDelivery []GeneralMessageDelivery `json:"GeneralMessageDelivery,omitempty"`
}

type StopMonitoringDelivery struct {
	Version            string               `json:"Version"`
	ResponseTimestamp  string               `json:"ResponseTimestamp"`
	RequestMessageRef  *string              `json:"RequestMessageRef,omitempty"`
	Status             bool                 `json:"Status"`
	MonitoredStopVisit []MonitoredStopVisit `json:"MonitoredStopVisit"`
}

type MonitoredStopVisit struct {
	// Id of the stop point
	MonitoringRef string `json:"MonitoringRef"`
	// Datetime of the information update, UTC RFC-3339
	RecordedAtTime string `json:"RecordedAtTime"`
	// Id of the couple Stop / VehicleJourney
	ItemIdentifier          string                  `json:"ItemIdentifier"`
	MonitoredVehicleJourney MonitoredVehicleJourney `json:"MonitoredVehicleJourney"`
}

type MonitoredVehicleJourney struct {
	// Id of the line
	LineRef string `json:"LineRef"`
	// Id of the operator
	OperatorRef *string `json:"OperatorRef,omitempty"`
	// Id of the journey pattern
	JourneyPatternRef *string        `json:"JourneyPatternRef,omitempty"`
	MonitoredCall     *MonitoredCall `json:"MonitoredCall,omitempty"`
}

type MonitoredCall struct {
	Order         uint32 `json:"Order"`
	StopPointName string `json:"StopPointName"`
	// true if the vehicle is at the stop
	VehicleAtStop *bool `json:"VehicleAtStop,omitempty"`
	// Destination on the headsign of the vehicle
	DestinationDisplay *string `json:"DestinationDisplay,omitempty"`
	// Scheduled arrival time
	AimedArrivalTime *DateTime `json:"AimedArrivalTime,omitempty"`
	// Scheduled departure time
	AimedDepartureTime *DateTime `json:"AimedDepartureTime,omitempty"`
	// Estimated arrival time
	ExpectedArrivalTime *DateTime `json:"ExpectedArrivalTime,omitempty"`
	// Estimated departure time
	ExpectedDepartureTime *DateTime `json:"ExpectedDepartureTime,omitempty"`
}

type StopPointsDelivery struct {
	CommonDelivery
	AnnotatedStopPoint []AnnotatedStopPoint `json:"AnnotatedStopPoint"`
}

type AnnotatedStopPoint struct {
	StopPointRef string   `json:"StopPointRef"`
	StopName     string   `json:"StopName"`
	Lines        []Line   `json:"Lines"`
	Location     Location `json:"Location"`
}

type Line struct {
	LineRef string `json:"LineRef"`
}

type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

type GeneralMessageDelivery struct {
	CommonDelivery
	InfoMessages             []InfoMessage `json:"InfoMessages"`
	InfoMessagesCancellation []InfoMessage `json:"InfoMessagesCancellation"`
}

// Message types used on the general-message surface.
const (
	ShortMessage = "shortMessage"
	LongMessage  = "longMessage"
)

type InfoMessage struct {
	// reference of the format used in the message
	Format *string `json:"Format,omitempty"`
	// datetime of the recording of the message
	RecordedAtTime *DateTime `json:"RecordedAtTime,omitempty"`
	ItemIdentifier *string   `json:"ItemIdentifier,omitempty"`
	// identifier reused when this message is updated
	InfoMessageIdentifier *string `json:"InfoMessageIdentifier,omitempty"`
	InfoMessageVersion    *string `json:"InfoMessageVersion,omitempty"`
	// datetime until which this message is valid
	ValidUntilTime *DateTime               `json:"ValidUntilTime,omitempty"`
	Content        GeneralMessageStructure `json:"Content"`
}

type GeneralMessageStructure struct {
	// Ids of the impacted lines
	LineRef []string `json:"LineRef,omitempty"`
	// Ids of the impacted stop points
	StopPointRef []string `json:"StopPointRef,omitempty"`
	// Ids of the impacted destinations
	DestinationRef []string  `json:"DestinationRef,omitempty"`
	Message        []Message `json:"Message"`
}

type Message struct {
	MessageType *string           `json:"MessageType,omitempty"`
	MessageText NaturalLangString `json:"MessageText"`
}

type NaturalLangString struct {
	Lang  *string `json:"Lang,omitempty"`
	Value string  `json:"Value"`
}
