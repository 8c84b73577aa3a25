package dto

import (
	"time"

	"github.com/flightmgmt/flight-ops-api/internal/models"
)

// CreateFlightRequest creates a single flight outside of a batch upload.
type CreateFlightRequest struct {
	FlightNumber string  `json:"flightNumber" binding:"required,min=3,max=8"`
	AirlineCode  string  `json:"airlineCode" binding:"required,len=2"`
	AircraftType string  `json:"aircraftType" binding:"required"`
	FlightDate   string  `json:"flightDate" binding:"required,datetime=2006-01-02"`
	Departure    string  `json:"departureTime" binding:"required,datetime=15:04"`
	Arrival      string  `json:"arrivalTime" binding:"required,datetime=15:04"`
	OriginICAO   string  `json:"originIcao" binding:"required,len=4"`
	DestICAO     string  `json:"destIcao" binding:"required,len=4"`
	FlightType   string  `json:"flightType" binding:"required,oneof=PASSENGER CARGO FERRY"`
	Gate         *string `json:"gate"`
	Terminal     *string `json:"terminal"`
}

// UpdateFlightRequest modifies an existing flight. Version carries the
// revision the caller read; a stale version is rejected.
type UpdateFlightRequest struct {
	AircraftType *string `json:"aircraftType"`
	Departure    *string `json:"departureTime" binding:"omitempty,datetime=15:04"`
	Arrival      *string `json:"arrivalTime" binding:"omitempty,datetime=15:04"`
	OriginICAO   *string `json:"originIcao" binding:"omitempty,len=4"`
	DestICAO     *string `json:"destIcao" binding:"omitempty,len=4"`
	Gate         *string `json:"gate"`
	Terminal     *string `json:"terminal"`
	Version      int     `json:"version" binding:"required,min=1"`
}

// UpdateStatusRequest transitions a flight's operational status.
type UpdateStatusRequest struct {
	Status          string     `json:"status" binding:"required,oneof=SCHEDULED DELAYED DEPARTED ARRIVED CANCELLED"`
	ActualDeparture *time.Time `json:"actualDeparture"`
	ActualArrival   *time.Time `json:"actualArrival"`
	Reason          string     `json:"reason"`
}

// FlightFilter narrows flight list queries.
type FlightFilter struct {
	AirlineCode string
	OriginICAO  string
	DestICAO    string
	Status      string
	DateFrom    *time.Time
	DateTo      *time.Time
}

// FlightResponse is the public view of a flight.
type FlightResponse struct {
	models.Flight
	OnTime bool `json:"onTime"`
}

// NewFlightResponse wraps a flight with derived fields.
func NewFlightResponse(f models.Flight) FlightResponse {
	return FlightResponse{Flight: f, OnTime: f.OnTime()}
}

// DashboardOverview aggregates today's operational picture.
type DashboardOverview struct {
	Date                string         `json:"date"`
	TotalFlights        int            `json:"totalFlights"`
	ByStatus            map[string]int `json:"byStatus"`
	DelayedFlights      int            `json:"delayedFlights"`
	CancelledFlights    int            `json:"cancelledFlights"`
	OnTimeRate          float64        `json:"onTimeRate"`
	AverageDelayMinutes float64        `json:"averageDelayMinutes"`
	OpenConflicts       int            `json:"openConflicts"`
	ActiveBatches       int            `json:"activeBatches"`
}

// VersionHistoryResponse lists a flight's audit trail.
type VersionHistoryResponse struct {
	FlightID string                 `json:"flightId"`
	Current  int                    `json:"currentVersion"`
	Entries  []models.FlightVersion `json:"entries"`
}
