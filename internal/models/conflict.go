package models

import (
	"time"

	"github.com/google/uuid"
)

// ConflictType classifies a detected scheduling conflict.
type ConflictType string

const (
	ConflictFlightNumberDuplicate ConflictType = "FLIGHT_NUMBER_DUPLICATE"
	ConflictAircraftDoubleBooking ConflictType = "AIRCRAFT_DOUBLE_BOOKING"
	ConflictSlotConflict          ConflictType = "SLOT_CONFLICT"
)

// ConflictSeverity ranks how blocking a conflict is.
type ConflictSeverity string

const (
	SeverityCritical ConflictSeverity = "CRITICAL"
	SeverityHigh     ConflictSeverity = "HIGH"
	SeverityMedium   ConflictSeverity = "MEDIUM"
)

// SeverityFor maps each conflict type onto its severity.
func SeverityFor(t ConflictType) ConflictSeverity {
	switch t {
	case ConflictFlightNumberDuplicate:
		return SeverityCritical
	case ConflictAircraftDoubleBooking:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// Conflict is a persisted scheduling conflict between a candidate flight and
// an existing one. ExistingFlightID may be nil when the conflicting flight
// was never persisted. RowNumber and CandidateData tie a batch conflict back
// to its source row so operators can resolve it manually; both stay empty
// for single-flight conflicts.
type Conflict struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	BatchID          *uuid.UUID       `db:"batch_id" json:"batchId,omitempty"`
	RowNumber        *int             `db:"row_number" json:"rowNumber,omitempty"`
	FlightID         *uuid.UUID       `db:"flight_id" json:"flightId,omitempty"`
	ExistingFlightID *uuid.UUID       `db:"existing_flight_id" json:"existingFlightId,omitempty"`
	Type             ConflictType     `db:"conflict_type" json:"conflictType"`
	Severity         ConflictSeverity `db:"severity" json:"severity"`
	Description      string           `db:"description" json:"description"`
	FlightNumber     string           `db:"flight_number" json:"flightNumber"`
	FlightDate       time.Time        `db:"flight_date" json:"flightDate"`
	CandidateData    []byte           `db:"candidate_data" json:"-"`

	Resolved   bool       `db:"resolved" json:"resolved"`
	Resolution *string    `db:"resolution" json:"resolution,omitempty"`
	ResolvedBy *string    `db:"resolved_by" json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolvedAt,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}
