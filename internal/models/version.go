package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ChangeType classifies what changed between two revisions of a flight.
type ChangeType string

const (
	ChangeCreated      ChangeType = "CREATED"
	ChangeAircraft     ChangeType = "AIRCRAFT_CHANGE"
	ChangeTime         ChangeType = "TIME_CHANGE"
	ChangeSchedule     ChangeType = "SCHEDULE_CHANGE"
	ChangeStatusUpdate ChangeType = "STATUS_UPDATE"
	ChangeCancellation ChangeType = "CANCELLATION"
)

// FlightVersion is one audit entry in a flight's change history. Major
// changes bump the flight version; minor changes share the current one.
// BeforeSnapshot is empty on the CREATED entry.
type FlightVersion struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	FlightID       uuid.UUID      `db:"flight_id" json:"flightId"`
	Version        int            `db:"version" json:"version"`
	ChangeType     ChangeType     `db:"change_type" json:"changeType"`
	ChangedBy      string         `db:"changed_by" json:"changedBy"`
	Summary        string         `db:"summary" json:"summary"`
	ChangedFields  pq.StringArray `db:"changed_fields" json:"changedFields"`
	BeforeSnapshot []byte         `db:"before_snapshot" json:"-"`
	AfterSnapshot  []byte         `db:"after_snapshot" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
}
