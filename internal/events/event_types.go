package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTokenIssued   EventType = "token_issued"
	EventLoginRejected EventType = "login_rejected"
	EventAccessDenied  EventType = "access_denied"
)

// Event is an audit record emitted by the issuer or an interceptor.
// It never carries token material.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Service   string    `json:"service"`
	Subject   string    `json:"subject,omitempty"`
	Role      string    `json:"role,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent stamps a new event with an ID and the current time.
func NewEvent(eventType EventType, service string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Service:   service,
		Timestamp: time.Now().UTC(),
	}
}
