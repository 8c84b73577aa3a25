package dto

import (
	"time"

	"github.com/google/uuid"
)

// Domain event types appended to the flight event stream.
const (
	EventFlightCreated    = "FLIGHT_CREATED"
	EventFlightUpdated    = "FLIGHT_UPDATED"
	EventFlightCancelled  = "FLIGHT_CANCELLED"
	EventStatusChanged    = "FLIGHT_STATUS_CHANGED"
	EventConflictDetected = "CONFLICT_DETECTED"
	EventConflictResolved = "CONFLICT_RESOLVED"
	EventBatchCompleted   = "BATCH_COMPLETED"
	EventBatchFailed      = "BATCH_FAILED"
)

// FlightEvent is a domain event describing a change to the schedule.
type FlightEvent struct {
	EventType    string     `json:"eventType"`
	FlightID     *uuid.UUID `json:"flightId,omitempty"`
	BatchID      *uuid.UUID `json:"batchId,omitempty"`
	FlightNumber string     `json:"flightNumber,omitempty"`
	AirlineCode  string     `json:"airlineCode,omitempty"`
	FlightDate   string     `json:"flightDate,omitempty"`
	Detail       string     `json:"detail,omitempty"`
	OccurredAt   time.Time  `json:"occurredAt"`
}

// ReferenceEvent is consumed from the reference manager's change channel and
// drives cache invalidation.
type ReferenceEvent struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Action     string `json:"action"`
}
