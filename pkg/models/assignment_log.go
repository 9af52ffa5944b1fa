package models

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentLog is an append-only record of one assignment decision. It is
// never mutated after insert and preserves the full factor breakdown, raw
// stats snapshot, and router settings in effect, so decisions stay
// explainable and weights can be tuned against history.
type AssignmentLog struct {
	ID         uuid.UUID `json:"id"`
	LeadID     uuid.UUID `json:"lead_id"`
	AssignedTo uuid.UUID `json:"assigned_to"`
	AssignedBy string    `json:"assigned_by"` // auto | manual | admin
	Score      float64   `json:"score"`

	// RawFactors holds the factor breakdown, the performance sub-factor
	// breakdown, the router settings used, and the stats snapshot.
	RawFactors map[string]any `json:"raw_factors"`

	CreatedAt time.Time `json:"created_at"`
}

// LeadActivity is a timeline entry shown in the lead's conversation view.
type LeadActivity struct {
	ID          uuid.UUID      `json:"id"`
	LeadID      uuid.UUID      `json:"lead_id"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	CreatedBy   *uuid.UUID     `json:"created_by,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

const ActivityTypeStatusChanged = "status_changed"
