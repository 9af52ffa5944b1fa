package models

import (
	"time"

	"github.com/google/uuid"
)

// PerformanceStats is a rolling-window performance snapshot per partner,
// materialized by an external job (partner_performance_stats view). The
// routing core only reads it and tolerates staleness; any field may be null,
// which the scoring engine treats as "no signal".
type PerformanceStats struct {
	PartnerID uuid.UUID `json:"partner_id"`

	OpenLeadsCount     int        `json:"open_leads_count"`
	LeadsAssigned30d   int        `json:"leads_assigned_30d"`
	LastLeadAssignedAt *time.Time `json:"last_lead_assigned_at,omitempty"`

	AvgFirstResponseTimeMinutes30d *float64 `json:"avg_first_response_time_minutes_30d,omitempty"`
	PctContactedWithin1h30d        *float64 `json:"pct_contacted_within_1h_30d,omitempty"`
	PctContactedWithin24h30d       *float64 `json:"pct_contacted_within_24h_30d,omitempty"`

	AITrustScore *float64 `json:"ai_trust_score,omitempty"` // 0-100
	DealRate30d  *float64 `json:"deal_rate_30d,omitempty"`  // 0-100

	PctLeadsMin2Attempts30d     *float64 `json:"pct_leads_min_2_attempts_30d,omitempty"`
	AvgContactAttemptsPerLead30d *float64 `json:"avg_contact_attempts_per_lead_30d,omitempty"`

	AvgCustomerRating30d *float64 `json:"avg_customer_rating_30d,omitempty"` // 1-5
	NumRatings30d        int      `json:"num_ratings_30d"`

	ComplaintRate30d *float64 `json:"complaint_rate_30d,omitempty"`
	Complaints30d    int      `json:"complaints_30d"`

	AvgDealValue30d  *float64 `json:"avg_deal_value_30d,omitempty"`
	ConsistencyScore *float64 `json:"consistency_score,omitempty"` // 0-100, 7d vs 30d stability
}
