package models

import "github.com/google/uuid"

// Role determines both what an actor may see and which transitions it may
// trigger. It is a closed set: adding a role means revisiting every switch
// over it.
type Role string

const (
	RoleUser          Role = "user"
	RolePoliceStation Role = "police_station"
	RoleFireStation   Role = "fire_station"
	RoleAmbulance     Role = "ambulance"
	RoleAdmin         Role = "admin"
)

// Valid reports whether the role is part of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RolePoliceStation, RoleFireStation, RoleAmbulance, RoleAdmin:
		return true
	}
	return false
}

// CanRespond reports whether the role may trigger status transitions.
// Civilians report incidents; they never move them through the lifecycle.
func (r Role) CanRespond() bool {
	switch r {
	case RolePoliceStation, RoleFireStation, RoleAmbulance, RoleAdmin:
		return true
	case RoleUser:
		return false
	}
	return false
}

// ServiceCategory returns the emergency-service category a station role is
// scoped to. Roles without a category scope (user, admin) return false.
func (r Role) ServiceCategory() (Category, bool) {
	switch r {
	case RolePoliceStation:
		return CategoryPolice, true
	case RoleFireStation:
		return CategoryFire, true
	case RoleAmbulance:
		return CategoryAmbulance, true
	}
	return "", false
}

// Actor is the authenticated party performing an operation. The role comes
// from the identity collaborator and is never mutated here.
type Actor struct {
	ID        uuid.UUID `json:"id"`
	Role      Role      `json:"role"`
	StationID string    `json:"station_id,omitempty"`
}
