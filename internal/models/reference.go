package models

// ReferenceKind identifies a class of reference data entity.
type ReferenceKind string

const (
	ReferenceAirline  ReferenceKind = "airline"
	ReferenceStation  ReferenceKind = "station"
	ReferenceAircraft ReferenceKind = "aircraft"
)

// ReferenceOrigin records where a resolved reference entity came from.
type ReferenceOrigin string

const (
	OriginLive     ReferenceOrigin = "live"
	OriginCache    ReferenceOrigin = "cache"
	OriginFallback ReferenceOrigin = "fallback"
)

// ReferenceEntity is a normalised reference data record. Code is the public
// identifier (IATA airline code, ICAO station code, aircraft type code).
type ReferenceEntity struct {
	ID     string          `json:"id"`
	Kind   ReferenceKind   `json:"kind"`
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Active bool            `json:"active"`
	Origin ReferenceOrigin `json:"-"`
}

// Sentinel placeholder codes used when reference data cannot be resolved.
const (
	FallbackAirlineCode     = "XX"
	FallbackStationICAO     = "XXXX"
	FallbackDestinationICAO = "YYYY"
	FallbackAircraftName    = "Unknown"
)

// FallbackFor returns the placeholder entity for a kind. The destination
// flag selects the alternate station sentinel so origin and destination stay
// distinguishable on unresolved routes.
func FallbackFor(kind ReferenceKind, destination bool) ReferenceEntity {
	e := ReferenceEntity{Kind: kind, Origin: OriginFallback}
	switch kind {
	case ReferenceAirline:
		e.Code = FallbackAirlineCode
		e.Name = "Unknown Airline"
	case ReferenceStation:
		if destination {
			e.Code = FallbackDestinationICAO
		} else {
			e.Code = FallbackStationICAO
		}
		e.Name = "Unknown Station"
	case ReferenceAircraft:
		e.Name = FallbackAircraftName
	}
	return e
}
