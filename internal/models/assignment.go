package models

import "time"

// Visitor is the pseudo-identity derived for one inbound request.
// Two clients sharing IP and user agent resolve to the same ID.
type Visitor struct {
	ID        string
	IP        string
	UserAgent string
}

// VisitorAssignment is the persisted variant for a visitor.
// At most one row exists per VisitorID and its Variant is never rewritten.
type VisitorAssignment struct {
	ID        string
	VisitorID string
	Variant   Variant
	ClientIP  string
	UserAgent string
	CreatedAt time.Time
}
