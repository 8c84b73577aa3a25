package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims are the custom claims carried by access tokens. AirlineCode
// scopes non-admin users to their own airline's flights.
type JWTClaims struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	AirlineCode string `json:"airlineCode,omitempty"`
	jwt.RegisteredClaims
}

// Roles recognised by the API.
const (
	RoleAdmin      = "ADMIN"
	RoleOperator   = "OPERATOR"
	RoleAirlineOps = "AIRLINE_OPS"
)

// IsAdmin reports whether the claims grant unrestricted access.
func (c *JWTClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CanAccessAirline reports whether the claims permit acting on flights of
// the given airline.
func (c *JWTClaims) CanAccessAirline(airlineCode string) bool {
	if c.IsAdmin() || c.Role == RoleOperator {
		return true
	}
	return c.AirlineCode == airlineCode
}
