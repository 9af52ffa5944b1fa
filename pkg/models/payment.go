package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment method types and statuses.
const (
	PaymentMethodSEPA       = "sepa"
	PaymentMethodCreditCard = "credit_card"

	PaymentMethodStatusActive  = "active"
	PaymentMethodStatusPending = "pending"
	PaymentMethodStatusFailed  = "failed"
)

// PaymentMethod is a partner's registered way to pay. The routing core only
// reads these for the eligibility gate; mutation belongs to the payments
// surface.
type PaymentMethod struct {
	ID                      uuid.UUID `json:"id"`
	PartnerID               uuid.UUID `json:"user_id"`
	Type                    string    `json:"type"`
	Status                  string    `json:"status"`
	IsDefault               bool      `json:"is_default"`
	Provider                string    `json:"provider"`
	ProviderPaymentMethodID string    `json:"provider_payment_method_id"`
	CreatedAt               time.Time `json:"created_at"`
}

// Billing strategies for charging a lead.
const (
	BillingBalanceOnly     = "balance_only"
	BillingBalanceThenSEPA = "balance_then_sepa"
	BillingSEPAOnly        = "sepa_only"
)

// Payment statuses.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Payment is a billing record for a charged lead.
type Payment struct {
	ID          uuid.UUID       `json:"id"`
	PartnerID   uuid.UUID       `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Details     map[string]any  `json:"payment_details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Industry is a lead category with its price.
type Industry struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	PricePerLead decimal.Decimal `json:"price_per_lead"`
}
