// Package events defines all event types used in sftplister.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event.
type EventType string

const (
	// File events
	EventTypeFileDiscovered EventType = "file_discovered"

	// Cycle events
	EventTypeCycleCompleted EventType = "cycle_completed"
	EventTypeCycleFailed    EventType = "cycle_failed"

	// Connection events
	EventTypeHeartbeat EventType = "heartbeat"
)

// Event is the base interface for all events.
type Event interface {
	// ID returns the unique event identifier.
	ID() string

	// Type returns the event type.
	Type() EventType

	// Timestamp returns when the event occurred.
	Timestamp() time.Time

	// ToJSON serializes the event to JSON.
	ToJSON() ([]byte, error)
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType EventType   `json:"event"`
	EventID   string      `json:"id"`
	EventTime time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ID returns the unique event identifier.
func (e *BaseEvent) ID() string {
	return e.EventID
}

// Type returns the event type.
func (e *BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e *BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// ToJSON serializes the event to JSON.
func (e *BaseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewEvent creates a new base event with the given type and payload.
func NewEvent(eventType EventType, payload interface{}) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventID:   uuid.New().String(),
		EventTime: time.Now().UTC(),
		Payload:   payload,
	}
}

// HeartbeatPayload is sent periodically to connected stream clients.
type HeartbeatPayload struct {
	Sequence      int64 `json:"sequence"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// NewHeartbeatEvent creates a new heartbeat event.
func NewHeartbeatEvent(seq, uptimeSeconds int64) *BaseEvent {
	return NewEvent(EventTypeHeartbeat, HeartbeatPayload{
		Sequence:      seq,
		UptimeSeconds: uptimeSeconds,
	})
}
