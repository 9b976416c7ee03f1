// Package notify fans stored history events out to a message bus.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vendlabs/vmhistory/internal/models"
)

// Subject suffixes appended to the configured prefix.
const (
	SubjectTransaction = "transaction"
	SubjectState       = "state"
	SubjectLog         = "log"
	SubjectCleared     = "cleared"
)

// Message is the JSON body published for every stored event.
type Message struct {
	Kind      models.EventKind `json:"kind"`
	Timestamp string           `json:"timestamp"`
	Record    models.Record    `json:"record"`
}

// ClearedMessage is published after the history is reset.
type ClearedMessage struct {
	StartTime string `json:"startTime"`
}

// Publisher delivers events to subscribers. Implementations must be safe
// for concurrent use. Delivery is best effort.
type Publisher interface {
	PublishEvent(ctx context.Context, ev models.Event) error
	PublishCleared(ctx context.Context, startTime time.Time) error
	Close() error
}

// SubjectFor maps an event kind to its subject suffix.
func SubjectFor(kind models.EventKind) string {
	switch kind {
	case models.KindStateTransition:
		return SubjectState
	case models.KindLog:
		return SubjectLog
	default:
		return SubjectTransaction
	}
}

func encodeEvent(ev models.Event) ([]byte, error) {
	return json.Marshal(Message{
		Kind:      ev.Kind,
		Timestamp: ev.Timestamp,
		Record:    ev.Record,
	})
}

// NoOpPublisher drops everything (used when the bus is disabled).
type NoOpPublisher struct{}

func (NoOpPublisher) PublishEvent(ctx context.Context, ev models.Event) error { return nil }

func (NoOpPublisher) PublishCleared(ctx context.Context, startTime time.Time) error { return nil }

func (NoOpPublisher) Close() error { return nil }
