package notify

import (
	"context"

	"github.com/google/uuid"
)

// Event kinds published on the bus.
const (
	EventLeadAssigned = "lead.assigned"
	EventLeadAccepted = "lead.accepted"
	EventLeadApproved = "lead.approved"
)

// Event is the payload published for downstream consumers (partner
// notifications, CRM sync, analytics).
type Event struct {
	Kind      string     `json:"kind"`
	LeadID    uuid.UUID  `json:"lead_id"`
	PartnerID *uuid.UUID `json:"partner_id,omitempty"`

	// Metadata carries event-specific details (score, assigned_by, price).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Sink delivers events to interested consumers. Publishing is best-effort:
// callers log failures and continue, delivery never gates an assignment.
type Sink interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
