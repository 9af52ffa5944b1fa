package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription statuses relevant for quota.
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusPaused    = "paused"
	SubscriptionStatusCancelled = "cancelled"
)

// Subscription carries a partner's monthly lead quota. A partner may hold
// several; quota is summed over active/paused rows. A nil LeadsPerMonth row
// contributes nothing to the sum (absence of quota means zero, not
// unlimited).
type Subscription struct {
	ID            uuid.UUID `json:"id"`
	PartnerID     uuid.UUID `json:"user_id"`
	LeadsPerMonth *int      `json:"leads_per_month,omitempty"`
	Status        string    `json:"status"`
	IsPaused      bool      `json:"is_paused"`
	CreatedAt     time.Time `json:"created_at"`
}

// MonthlyUsage is the per-partner, per-calendar-month usage view
// (v_monthly_lead_usage).
type MonthlyUsage struct {
	PartnerID      uuid.UUID `json:"user_id"`
	ApprovedCount  int       `json:"approved_count"`
	EffectiveCount int       `json:"effective_count"`

	// AssignedCount additionally counts assigned-but-unresolved leads.
	// Unlike EffectiveCount it moves on every assignment commit, so it is
	// the number the commit transaction re-checks quota against.
	AssignedCount int `json:"assigned_count"`
}
