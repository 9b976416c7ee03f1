package models

import (
	"time"
)

// EventKind identifies which of the three ingestible payload shapes a record is.
type EventKind string

const (
	KindTransaction     EventKind = "TRANSACTION"
	KindStateTransition EventKind = "STATE_TRANSITION"
	KindLog             EventKind = "LOG_EVENT"
)

// Keys the service injects into stored records.
const (
	FieldTimestamp = "timestamp"
	FieldType      = "type"
)

// TimestampLayout is ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a timestamp produced by FormatTimestamp. Any RFC 3339
// value is accepted as well.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// StateTransition is the typed view of a state payload.
type StateTransition struct {
	PreviousState string  `json:"previousState"`
	CurrentState  string  `json:"currentState"`
	Balance       float64 `json:"balance"`
}

// LogEvent is the typed view of a log payload.
type LogEvent struct {
	Message string `json:"message"`
}

// Event is a stamped record ready to be written to both stores.
type Event struct {
	Kind      EventKind
	Timestamp string
	Record    Record

	// State and Log are set for their respective kinds.
	State *StateTransition
	Log   *LogEvent
}

// Document is the full persisted history.
type Document struct {
	Transactions []Record `json:"transactions"`
	StartTime    string   `json:"startTime"`
}

// NewDocument returns an empty history started at t.
func NewDocument(t time.Time) Document {
	return Document{
		Transactions: []Record{},
		StartTime:    FormatTimestamp(t),
	}
}

// Normalize replaces a nil transaction list with an empty one so the
// document always serializes "transactions": [].
func (d *Document) Normalize() {
	if d.Transactions == nil {
		d.Transactions = []Record{}
	}
}

// IngestResponse acknowledges a stored event.
type IngestResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ClearResponse acknowledges a history reset.
type ClearResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
