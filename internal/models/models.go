package models

import (
	"encoding/json"
	"time"
)

// WorkOrderStatus represents work order status
type WorkOrderStatus string

const (
	WorkOrderOpen       WorkOrderStatus = "open"
	WorkOrderInProgress WorkOrderStatus = "in_progress"
	WorkOrderCompleted  WorkOrderStatus = "completed"
	WorkOrderCancelled  WorkOrderStatus = "cancelled"
)

// Priority represents work order priority
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// UnitStatus represents unit occupancy status
type UnitStatus string

const (
	UnitVacant      UnitStatus = "vacant"
	UnitOccupied    UnitStatus = "occupied"
	UnitMaintenance UnitStatus = "maintenance"
)

// WorkOrder represents a maintenance work order
type WorkOrder struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	UnitID         string          `json:"unit_id,omitempty"`
	ContractorID   string          `json:"contractor_id,omitempty"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Status         WorkOrderStatus `json:"status"`
	Priority       Priority        `json:"priority"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	Latitude       *float64        `json:"latitude,omitempty"`
	Longitude      *float64        `json:"longitude,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Unit represents a rentable unit at a physical address
type Unit struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Name           string     `json:"name"`
	Address        string     `json:"address,omitempty"`
	Status         UnitStatus `json:"status"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Contractor represents a vendor who can be assigned work orders
type Contractor struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Specialty      string    `json:"specialty,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Rating         float64   `json:"rating,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CachedRecord is the last known state of one remote row. The payload is the
// full serialized snapshot; it is never partially patched.
type CachedRecord struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Payload        json.RawMessage `json:"payload"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Position is a device GPS fix. Never persisted.
type Position struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	Timestamp      time.Time `json:"timestamp"`
}

// ProximityMatch is a cached geotagged record annotated with its distance
// from a position. Produced transiently by the proximity matcher.
type ProximityMatch struct {
	EntityType     string       `json:"entity_type"`
	Record         CachedRecord `json:"record"`
	Latitude       float64      `json:"latitude"`
	Longitude      float64      `json:"longitude"`
	DistanceMeters float64      `json:"distance_meters"`
}

// IsValidWorkOrderStatus checks if a status is valid
func IsValidWorkOrderStatus(s WorkOrderStatus) bool {
	switch s {
	case WorkOrderOpen, WorkOrderInProgress, WorkOrderCompleted, WorkOrderCancelled:
		return true
	}
	return false
}

// IsValidPriority checks if a priority is valid
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// IsValidUnitStatus checks if a unit status is valid
func IsValidUnitStatus(s UnitStatus) bool {
	switch s {
	case UnitVacant, UnitOccupied, UnitMaintenance:
		return true
	}
	return false
}

// NormalizePriority converts alternate priority spellings to canonical form.
// Accepts "med" as an alias for "medium" and "critical" for "urgent".
func NormalizePriority(p string) Priority {
	switch p {
	case "med":
		return PriorityMedium
	case "critical":
		return PriorityUrgent
	default:
		return Priority(p)
	}
}
