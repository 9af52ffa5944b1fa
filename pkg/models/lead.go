package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lead status lifecycle. Once a lead reaches accepted or approved, its core
// identifying fields become immutable (enforced by LeadService, not the
// database) and the lead is never hard-deleted.
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusProposal  = "proposal"
	LeadStatusAccepted  = "accepted"
	LeadStatusApproved  = "approved"
	LeadStatusRejected  = "rejected"
	LeadStatusPaid      = "paid"
	LeadStatusClosed    = "closed"
)

// AssignedBy values recorded on assignment.
const (
	AssignedByAuto   = "auto"
	AssignedByManual = "manual"
	AssignedByAdmin  = "admin"
)

// Lead is a prospective customer inquiry to be matched to a partner.
type Lead struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	IndustryID *uuid.UUID `json:"industry_id,omitempty"`
	Province   string     `json:"province"`
	Postcode   string     `json:"postcode"`
	IsUrgent   bool       `json:"is_urgent"`
	Status     string     `json:"status"`

	// Assignment provenance, set by the assignment executor.
	AssignedTo        *uuid.UUID     `json:"assigned_to,omitempty"`
	UserID            *uuid.UUID     `json:"user_id,omitempty"` // mirror of AssignedTo, kept for older clients
	AssignedBy        *string        `json:"assigned_by,omitempty"`
	AssignmentScore   *float64       `json:"assignment_score,omitempty"`
	AssignmentFactors map[string]any `json:"assignment_factors,omitempty"`

	PriceAtPurchase *decimal.Decimal `json:"price_at_purchase,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

// IsFinal reports whether the lead already reached a terminal
// accepted/rejected state and must not be (re)assigned.
func (l *Lead) IsFinal() bool {
	return l.Status == LeadStatusAccepted || l.Status == LeadStatusRejected
}

// IsImmutable reports whether core identifying fields may no longer change.
func (l *Lead) IsImmutable() bool {
	switch l.Status {
	case LeadStatusAccepted, LeadStatusApproved, LeadStatusPaid, LeadStatusClosed:
		return true
	}
	return false
}

// LeadFilter narrows listing queries.
type LeadFilter struct {
	Status     string
	Unassigned bool
	IndustryID *uuid.UUID
	Limit      int
}

// LeadDetailsUpdate carries the contact fields a caller may change before a
// lead is accepted. Nil fields are left untouched.
type LeadDetailsUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Province *string `json:"province,omitempty"`
	Postcode *string `json:"postcode,omitempty"`
	IsUrgent *bool   `json:"is_urgent,omitempty"`
}

// LeadAssignmentUpdate is the atomic set of fields the assignment executor
// writes when committing a lead to a partner.
type LeadAssignmentUpdate struct {
	AssignedTo        uuid.UUID
	AssignedBy        string
	AssignmentScore   float64
	AssignmentFactors map[string]any
	AssignedAt        time.Time
}
