package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/leadwerk/leadwerk-engine/pkg/apperrors"
	"github.com/leadwerk/leadwerk-engine/pkg/models"
	"github.com/leadwerk/leadwerk-engine/pkg/repositories"
)

// Eligibility is the validated context produced by a full gate pass, so the
// caller can commit without re-fetching.
type Eligibility struct {
	Lead      *models.Lead
	PartnerID uuid.UUID

	TotalQuota    int
	UsedEffective int
	Remaining     int

	HasSEPAMandate bool
	HasCreditCard  bool
	Balance        decimal.Decimal
	LeadPrice      decimal.Decimal
}

// EligibilityGate runs the quota & billing checks that must pass before a
// lead may be assigned to a partner. Every check fails closed with a typed
// *apperrors.EligibilityError; these are expected user conditions, not
// system errors.
type EligibilityGate interface {
	Check(ctx context.Context, leadID, partnerID uuid.UUID) (*Eligibility, error)
}

type eligibilityGate struct {
	leads         repositories.LeadRepository
	partners      repositories.PartnerRepository
	subscriptions repositories.SubscriptionRepository
	payments      repositories.PaymentRepository
	industries    repositories.IndustryRepository

	defaultLeadPrice decimal.Decimal
	logger           *zap.Logger
}

// NewEligibilityGate creates a new EligibilityGate. defaultLeadPrice applies
// when a lead's industry has no price_per_lead configured.
func NewEligibilityGate(
	leads repositories.LeadRepository,
	partners repositories.PartnerRepository,
	subscriptions repositories.SubscriptionRepository,
	payments repositories.PaymentRepository,
	industries repositories.IndustryRepository,
	defaultLeadPrice decimal.Decimal,
	logger *zap.Logger,
) EligibilityGate {
	return &eligibilityGate{
		leads:            leads,
		partners:         partners,
		subscriptions:    subscriptions,
		payments:         payments,
		industries:       industries,
		defaultLeadPrice: defaultLeadPrice,
		logger:           logger.Named("eligibility-gate"),
	}
}

var _ EligibilityGate = (*eligibilityGate)(nil)

func (g *eligibilityGate) Check(ctx context.Context, leadID, partnerID uuid.UUID) (*Eligibility, error) {
	lead, err := g.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	// Industry access. A lead without an industry can never match a
	// preference, so it fails closed like any other mismatch.
	preferences, err := g.partners.ListEnabledIndustryPreferences(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("fetch industry preferences: %w", err)
	}
	if lead.IndustryID == nil || !containsUUID(preferences, *lead.IndustryID) {
		return nil, &apperrors.EligibilityError{Reason: apperrors.ReasonIndustryMismatch}
	}

	// Quota over all active/paused subscriptions. A nil leads_per_month row
	// contributes nothing: absence of quota means zero, not unlimited.
	subs, err := g.subscriptions.ListByPartner(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("fetch subscriptions: %w", err)
	}
	totalQuota := 0
	isPaused := false
	for _, s := range subs {
		if s.Status != models.SubscriptionStatusActive && s.Status != models.SubscriptionStatusPaused {
			continue
		}
		if s.LeadsPerMonth != nil {
			totalQuota += *s.LeadsPerMonth
		}
		if s.IsPaused || s.Status == models.SubscriptionStatusPaused {
			isPaused = true
		}
	}
	if totalQuota <= 0 {
		return nil, &apperrors.EligibilityError{Reason: apperrors.ReasonNoQuota}
	}
	if isPaused {
		return nil, &apperrors.EligibilityError{Reason: apperrors.ReasonPartnerPaused}
	}

	usage, err := g.subscriptions.GetMonthlyUsage(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("fetch monthly usage: %w", err)
	}
	remaining := totalQuota - usage.EffectiveCount
	if remaining <= 0 {
		return nil, &apperrors.EligibilityError{
			Reason:    apperrors.ReasonQuotaExceeded,
			Quota:     totalQuota,
			Used:      usage.EffectiveCount,
			Remaining: 0,
		}
	}

	// Payment methods: active SEPA defers billing to the periodic run; a
	// card-only partner must hold enough balance for this lead's price.
	methods, err := g.payments.ListPaymentMethods(ctx, partnerID,
		[]string{models.PaymentMethodStatusActive, models.PaymentMethodStatusPending})
	if err != nil {
		return nil, fmt.Errorf("fetch payment methods: %w", err)
	}
	if len(methods) == 0 {
		return nil, &apperrors.EligibilityError{Reason: apperrors.ReasonNoPaymentMethod}
	}

	hasSEPA := false
	hasCard := false
	for _, m := range methods {
		switch {
		case m.Type == models.PaymentMethodSEPA && m.Status == models.PaymentMethodStatusActive:
			hasSEPA = true
		case m.Type == models.PaymentMethodCreditCard:
			hasCard = true
		}
	}

	partner, err := g.partners.GetByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	leadPrice := g.resolveLeadPrice(ctx, lead)
	if !hasSEPA && hasCard && partner.Balance.LessThan(leadPrice) {
		return nil, &apperrors.EligibilityError{
			Reason:           apperrors.ReasonInsufficientBalance,
			RequiredBalance:  leadPrice,
			AvailableBalance: partner.Balance,
		}
	}

	return &Eligibility{
		Lead:           lead,
		PartnerID:      partnerID,
		TotalQuota:     totalQuota,
		UsedEffective:  usage.EffectiveCount,
		Remaining:      remaining,
		HasSEPAMandate: hasSEPA,
		HasCreditCard:  hasCard,
		Balance:        partner.Balance,
		LeadPrice:      leadPrice,
	}, nil
}

// resolveLeadPrice returns the lead's purchase price: the recorded price if
// already set, the industry price otherwise, or the flat default.
func (g *eligibilityGate) resolveLeadPrice(ctx context.Context, lead *models.Lead) decimal.Decimal {
	if lead.PriceAtPurchase != nil {
		return *lead.PriceAtPurchase
	}
	if lead.IndustryID != nil {
		industry, err := g.industries.GetByID(ctx, *lead.IndustryID)
		if err == nil && industry.PricePerLead.IsPositive() {
			return industry.PricePerLead
		}
		if err != nil {
			g.logger.Warn("Failed to resolve industry price, using default",
				zap.String("lead_id", lead.ID.String()),
				zap.Error(err))
		}
	}
	return g.defaultLeadPrice
}

func containsUUID(ids []uuid.UUID, target uuid.UUID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
