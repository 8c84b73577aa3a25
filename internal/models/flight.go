package models

import (
	"time"

	"github.com/google/uuid"
)

// FlightStatus is the operational lifecycle state of a flight.
type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "SCHEDULED"
	FlightStatusDelayed   FlightStatus = "DELAYED"
	FlightStatusDeparted  FlightStatus = "DEPARTED"
	FlightStatusArrived   FlightStatus = "ARRIVED"
	FlightStatusCancelled FlightStatus = "CANCELLED"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s FlightStatus) Valid() bool {
	switch s {
	case FlightStatusScheduled, FlightStatusDelayed, FlightStatusDeparted,
		FlightStatusArrived, FlightStatusCancelled:
		return true
	}
	return false
}

// FlightType distinguishes passenger and cargo operations.
type FlightType string

const (
	FlightTypePassenger FlightType = "PASSENGER"
	FlightTypeCargo     FlightType = "CARGO"
	FlightTypeFerry     FlightType = "FERRY"
)

// Flight is a single scheduled flight instance. The triple of flight number,
// airline code and flight date forms the natural key; Version increments only
// on major schedule changes.
type Flight struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	FlightNumber string       `db:"flight_number" json:"flightNumber"`
	AirlineCode  string       `db:"airline_code" json:"airlineCode"`
	AirlineName  string       `db:"airline_name" json:"airlineName"`
	AircraftType string       `db:"aircraft_type" json:"aircraftType"`
	AircraftName string       `db:"aircraft_name" json:"aircraftName"`
	FlightDate   time.Time    `db:"flight_date" json:"flightDate"`
	Departure    time.Time    `db:"departure_time" json:"departureTime"`
	Arrival      time.Time    `db:"arrival_time" json:"arrivalTime"`
	OriginICAO   string       `db:"origin_icao" json:"originIcao"`
	OriginName   string       `db:"origin_name" json:"originName"`
	DestICAO     string       `db:"dest_icao" json:"destIcao"`
	DestName     string       `db:"dest_name" json:"destName"`
	FlightType   FlightType   `db:"flight_type" json:"flightType"`
	Status       FlightStatus `db:"status" json:"status"`
	Gate         *string      `db:"gate" json:"gate,omitempty"`
	Terminal     *string      `db:"terminal" json:"terminal,omitempty"`

	ActualDeparture *time.Time `db:"actual_departure" json:"actualDeparture,omitempty"`
	ActualArrival   *time.Time `db:"actual_arrival" json:"actualArrival,omitempty"`
	DelayMinutes    int        `db:"delay_minutes" json:"delayMinutes"`

	Version  int        `db:"version" json:"version"`
	IsActive bool       `db:"is_active" json:"isActive"`
	BatchID  *uuid.UUID `db:"batch_id" json:"batchId,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NaturalKey identifies a flight independently of its row ID.
type NaturalKey struct {
	FlightNumber string
	AirlineCode  string
	FlightDate   time.Time
}

// Key returns the flight's natural key.
func (f *Flight) Key() NaturalKey {
	return NaturalKey{
		FlightNumber: f.FlightNumber,
		AirlineCode:  f.AirlineCode,
		FlightDate:   f.FlightDate,
	}
}

// OnTime reports whether the flight operated within the on-time threshold.
func (f *Flight) OnTime() bool {
	return f.DelayMinutes <= OnTimeThresholdMinutes
}

// OnTimeThresholdMinutes is the maximum delay still counted as on time.
const OnTimeThresholdMinutes = 15
