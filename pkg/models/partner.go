package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultMaxOpenLeads applies when a partner profile has no explicit
// max_open_leads.
const DefaultMaxOpenLeads = 5

// Partner is the routing-relevant view of a partner account profile.
type Partner struct {
	ID             uuid.UUID `json:"id"`
	CompanyName    string    `json:"company_name"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	PrimaryBranch  string    `json:"primary_branch"`
	Regions        []string  `json:"regions"`
	LeadIndustries []string  `json:"lead_industries"`
	LeadLocations  []string  `json:"lead_locations"`

	MaxOpenLeads       *int            `json:"max_open_leads,omitempty"`
	IsActiveForRouting bool            `json:"is_active_for_routing"`
	RoutingPriority    int             `json:"routing_priority"`
	Balance            decimal.Decimal `json:"balance"`

	CreatedAt time.Time `json:"created_at"`
}

// MaxOpenLeadsOrDefault returns the configured capacity or the default.
func (p *Partner) MaxOpenLeadsOrDefault() int {
	if p.MaxOpenLeads != nil && *p.MaxOpenLeads > 0 {
		return *p.MaxOpenLeads
	}
	return DefaultMaxOpenLeads
}
