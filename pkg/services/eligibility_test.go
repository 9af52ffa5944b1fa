package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leadwerk/leadwerk-engine/pkg/apperrors"
	"github.com/leadwerk/leadwerk-engine/pkg/models"
)

func ip(v int) *int { return &v }

// gateFixture wires an eligibility gate over happy-path mocks. Tests
// override individual mock functions to force each rejection.
type gateFixture struct {
	leadID    uuid.UUID
	partnerID uuid.UUID

	leads         *mockLeadRepo
	partners      *mockPartnerRepo
	subscriptions *mockSubscriptionRepo
	payments      *mockPaymentRepo
	industries    *mockIndustryRepo
}

func newGateFixture() *gateFixture {
	leadID := uuid.New()
	partnerID := uuid.New()
	industryID := uuid.New()

	f := &gateFixture{leadID: leadID, partnerID: partnerID}

	f.leads = &mockLeadRepo{
		getByID: func(_ context.Context, id uuid.UUID) (*models.Lead, error) {
			return &models.Lead{ID: id, IndustryID: &industryID, Status: models.LeadStatusNew}, nil
		},
	}
	f.partners = &mockPartnerRepo{
		listEnabledIndustryPreferences: func(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
			return []uuid.UUID{industryID}, nil
		},
		getByID: func(_ context.Context, id uuid.UUID) (*models.Partner, error) {
			return &models.Partner{ID: id, Balance: decimal.NewFromInt(100)}, nil
		},
	}
	f.subscriptions = &mockSubscriptionRepo{
		listByPartner: func(_ context.Context, _ uuid.UUID) ([]*models.Subscription, error) {
			return []*models.Subscription{
				{Status: models.SubscriptionStatusActive, LeadsPerMonth: ip(10)},
			}, nil
		},
		getMonthlyUsage: func(_ context.Context, _ uuid.UUID) (*models.MonthlyUsage, error) {
			return &models.MonthlyUsage{EffectiveCount: 3}, nil
		},
	}
	f.payments = &mockPaymentRepo{
		listPaymentMethods: func(_ context.Context, _ uuid.UUID, _ []string) ([]*models.PaymentMethod, error) {
			return []*models.PaymentMethod{
				{Type: models.PaymentMethodSEPA, Status: models.PaymentMethodStatusActive},
			}, nil
		},
	}
	f.industries = &mockIndustryRepo{
		getByID: func(_ context.Context, id uuid.UUID) (*models.Industry, error) {
			return &models.Industry{ID: id, Name: "Dakdekker", PricePerLead: decimal.NewFromInt(35)}, nil
		},
	}
	return f
}

func (f *gateFixture) gate() EligibilityGate {
	return NewEligibilityGate(f.leads, f.partners, f.subscriptions, f.payments, f.industries,
		decimal.NewFromInt(25), zap.NewNop())
}

func requireRejection(t *testing.T, err error, reason apperrors.EligibilityReason) *apperrors.EligibilityError {
	t.Helper()
	require.Error(t, err)
	ee, ok := apperrors.AsEligibility(err)
	require.True(t, ok, "expected eligibility error, got %v", err)
	assert.Equal(t, reason, ee.Reason)
	return ee
}

func TestEligibilityGate_Pass(t *testing.T) {
	f := newGateFixture()

	result, err := f.gate().Check(context.Background(), f.leadID, f.partnerID)

	require.NoError(t, err)
	assert.Equal(t, f.partnerID, result.PartnerID)
	assert.Equal(t, 10, result.TotalQuota)
	assert.Equal(t, 3, result.UsedEffective)
	assert.Equal(t, 7, result.Remaining)
	assert.True(t, result.HasSEPAMandate)
	assert.True(t, result.LeadPrice.Equal(decimal.NewFromInt(35)))
}

func TestEligibilityGate_IndustryMismatch(t *testing.T) {
	f := newGateFixture()
	f.partners.listEnabledIndustryPreferences = func(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
		return []uuid.UUID{uuid.New()}, nil
	}

	_, err := f.gate().Check(context.Background(), f.leadID, f.partnerID)

	requireRejection(t, err, apperrors.ReasonIndustryMismatch)
}

func TestEligibilityGate_LeadWithoutIndustryFailsClosed(t *testing.T) {
	f := newGateFixture()
	f.leads.getByID = func(_ context.Context, id uuid.UUID) (*models.Lead, error) {
		return &models.Lead{ID: id, Status: models.LeadStatusNew}, nil
	}

	_, err := f.gate().Check(context.Background(), f.leadID, f.partnerID)

	requireRejection(t, err, apperrors.ReasonIndustryMismatch)
}

func TestEligibilityGate_NoQuota(t *testing.T) {
	t.Run("no subscriptions", func(t *testing.T) {
		f := newGateFixture()
		f.subscriptions.listByPartner = func(_ context.Context, _ uuid.UUID) ([]*models.Subscription, error) {
			return nil, nil
		}
		_, err := f.gate().Check(context.Background(), f.leadID, f.partnerID)
		requireRejection(t, err, apperrors.ReasonNoQuota)
	})

	t.Run("cancelled subscriptions do not count", func(t *testing.T) {
		f := newGateFixture()
		f.subscriptions.listByPartner = func(_ context.Context, _ uuid.UUID) ([]*models.Subscription, error) {
			return []*models.Subscription{
				{Status: models.SubscriptionStatusCancelled, LeadsPerMonth: ip(10)},
			}, nil
		}
		_, err := f.gate().Check(context.Background(), f.leadID, f.partnerID)
		requireRejection(t, err, apperrors.ReasonNoQuota)
	})

	t.Run("nil leads_per_month contributes nothing", func(t *testing.T) {
		f := newGateFixture()
		f.subscriptions.listByPartner = func(_ context.Context, _ uuid.UUID) ([]*models.Subscription, error) {
			return []*models.Subscription{
				{Status: models.SubscriptionStatusActive},
			}, nil
		}
		_, err := f.gate().Check(context.Background(), f.leadID, f.partnerID)
		requireRejection(t, err, apperrors.ReasonNoQuota)
	})
}

func TestEligibilityGate_QuotaSumsAcrossSubscriptions(t *testing.T) {
	f := newGateFixture()
	f.subscriptions.listByPartner = func(_ context.Context, _ uuid.UUID) ([]*models.Subscription, error) {
		return []*models.Subscription{
			{Status: models.SubscriptionStatusActive, LeadsPerMonth: ip(5)},
			{Status: models.SubscriptionStatusActive, LeadsPerMonth: ip(8)},
			{Status: models.SubscriptionStatusCancelled, LeadsPerMonth: ip(100)},
		}, nil
	}

	result, err := f.gate().Check(context.Background(), f.leadID, f.partnerID)

	require.NoError(t, err)
	assert.Equal(t, 13, result.TotalQuota)
}

func TestEligibilityGate_PartnerPaused(t *testing.T) {
	f := newGateFixture()
	f.subscriptions.listByPartner = func(_ context.Context, _ uuid.UUID) ([]*models.Subscription, error) {
		return []*models.Subscription{
			{Status: models.SubscriptionStatusPaused, LeadsPerMonth: ip(10)},
		}, nil
	}

	_, err := f.gate().Check(context.Background(), f.leadID, f.partnerID)

	// Paused quota still counts toward the sum, but the pause itself blocks.
	requireRejection(t, err, apperrors.ReasonPartnerPaused)
}

func TestEligibilityGate_QuotaExceeded(t *testing.T) {
	f := newGateFixture()
	f.subscriptions.getMonthlyUsage = func(_ context.Context, _ uuid.UUID) (*models.MonthlyUsage, error) {
		return &models.MonthlyUsage{EffectiveCount: 10}, nil
	}

	_, err := f.gate().Check(context.Background(), f.leadID, f.partnerID)

	ee := requireRejection(t, err, apperrors.ReasonQuotaExceeded)
	assert.Equal(t, 10, ee.Quota)
	assert.Equal(t, 10, ee.Used)
	assert.Equal(t, 0, ee.Remaining)
}

func TestEligibilityGate_NoPaymentMethod(t *testing.T) {
	f := newGateFixture()
	f.payments.listPaymentMethods = func(_ context.Context, _ uuid.UUID, _ []string) ([]*models.PaymentMethod, error) {
		return nil, nil
	}

	_, err := f.gate().Check(context.Background(), f.leadID, f.partnerID)

	requireRejection(t, err, apperrors.ReasonNoPaymentMethod)
}

func TestEligibilityGate_CardOnlyInsufficientBalance(t *testing.T) {
	f := newGateFixture()
	f.payments.listPaymentMethods = func(_ context.Context, _ uuid.UUID, _ []string) ([]*models.PaymentMethod, error) {
		return []*models.PaymentMethod{
			{Type: models.PaymentMethodCreditCard, Status: models.PaymentMethodStatusActive},
		}, nil
	}
	f.partners.getByID = func(_ context.Context, id uuid.UUID) (*models.Partner, error) {
		return &models.Partner{ID: id, Balance: decimal.NewFromInt(20)}, nil
	}

	_, err := f.gate().Check(context.Background(), f.leadID, f.partnerID)

	ee := requireRejection(t, err, apperrors.ReasonInsufficientBalance)
	assert.True(t, ee.RequiredBalance.Equal(decimal.NewFromInt(35)))
	assert.True(t, ee.AvailableBalance.Equal(decimal.NewFromInt(20)))
}

func TestEligibilityGate_SEPAPassesWithoutBalance(t *testing.T) {
	f := newGateFixture()
	f.partners.getByID = func(_ context.Context, id uuid.UUID) (*models.Partner, error) {
		return &models.Partner{ID: id, Balance: decimal.Zero}, nil
	}

	result, err := f.gate().Check(context.Background(), f.leadID, f.partnerID)

	require.NoError(t, err)
	assert.True(t, result.HasSEPAMandate)
	assert.True(t, result.Balance.IsZero())
}

func TestEligibilityGate_PendingSEPADoesNotDeferBilling(t *testing.T) {
	f := newGateFixture()
	f.payments.listPaymentMethods = func(_ context.Context, _ uuid.UUID, _ []string) ([]*models.PaymentMethod, error) {
		return []*models.PaymentMethod{
			{Type: models.PaymentMethodSEPA, Status: models.PaymentMethodStatusPending},
			{Type: models.PaymentMethodCreditCard, Status: models.PaymentMethodStatusActive},
		}, nil
	}
	f.partners.getByID = func(_ context.Context, id uuid.UUID) (*models.Partner, error) {
		return &models.Partner{ID: id, Balance: decimal.NewFromInt(10)}, nil
	}

	_, err := f.gate().Check(context.Background(), f.leadID, f.partnerID)

	requireRejection(t, err, apperrors.ReasonInsufficientBalance)
}

func TestEligibilityGate_LeadPriceResolution(t *testing.T) {
	t.Run("recorded price wins", func(t *testing.T) {
		f := newGateFixture()
		price := decimal.NewFromInt(55)
		industryID := uuid.New()
		f.leads.getByID = func(_ context.Context, id uuid.UUID) (*models.Lead, error) {
			return &models.Lead{ID: id, IndustryID: &industryID, PriceAtPurchase: &price}, nil
		}
		f.partners.listEnabledIndustryPreferences = func(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
			return []uuid.UUID{industryID}, nil
		}

		result, err := f.gate().Check(context.Background(), f.leadID, f.partnerID)
		require.NoError(t, err)
		assert.True(t, result.LeadPrice.Equal(price))
	})

	t.Run("industry lookup failure falls back to default", func(t *testing.T) {
		f := newGateFixture()
		f.industries.getByID = func(_ context.Context, _ uuid.UUID) (*models.Industry, error) {
			return nil, apperrors.ErrNotFound
		}

		result, err := f.gate().Check(context.Background(), f.leadID, f.partnerID)
		require.NoError(t, err)
		assert.True(t, result.LeadPrice.Equal(decimal.NewFromInt(25)))
	})
}
