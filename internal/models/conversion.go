package models

import "time"

// DefaultEventType is recorded when the client does not name the conversion.
const DefaultEventType = "typeform_click"

// ConversionEvent is one appended conversion.
// Variant is whatever the client reported; it is not checked against the
// visitor's assignment.
type ConversionEvent struct {
	ID        string
	VisitorID string
	Variant   Variant
	EventType string
	ClientIP  string
	CreatedAt time.Time
}

// TrackConversionRequest is the POST /track-conversion payload.
// EventType is limited to 20 bytes and VisitorID to 64.
type TrackConversionRequest struct {
	VisitorID string `json:"visitor_id"`
	Variant   string `json:"variant"`
	EventType string `json:"event_type,omitempty"`
}

// TrackConversionResponse is always returned by POST /track-conversion.
type TrackConversionResponse struct {
	Success bool `json:"success"`
}
