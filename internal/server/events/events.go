// Package events publishes signature lifecycle events for downstream
// consumers. Publication is best effort: callers log failures and carry on.
package events

import (
	"context"
	"time"
)

// Type names a lifecycle transition and doubles as the routing key.
type Type string

const (
	SignatureIssued  Type = "signature.issued"
	SignatureRevoked Type = "signature.revoked"
)

// Event is the JSON body of a published message.
type Event struct {
	Type        Type      `json:"type"`
	SignatureID string    `json:"signature_id"`
	CreatedBy   string    `json:"created_by"`
	At          time.Time `json:"at"`
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
