package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/leadwerk/leadwerk-engine/pkg/models"
	"github.com/leadwerk/leadwerk-engine/pkg/repositories"
	"github.com/leadwerk/leadwerk-engine/pkg/retry"
)

// PaymentProvider charges a registered payment method at the external PSP.
type PaymentProvider interface {
	// ChargeSEPA initiates a SEPA direct debit and returns the provider's
	// reference for the collection.
	ChargeSEPA(ctx context.Context, method *models.PaymentMethod, amount decimal.Decimal, description string) (string, error)
}

// BillingCharge describes how one lead acceptance was billed. FromSEPA is
// the remainder the provider still has to collect after the balance
// deduction; zero means the charge settled entirely in the transaction.
type BillingCharge struct {
	Strategy    string
	FromBalance decimal.Decimal
	FromSEPA    decimal.Decimal
	SEPAMethod  *models.PaymentMethod
	Payment     *models.Payment
}

// BillingService charges partners for accepted leads.
type BillingService interface {
	// ChargeTx picks the billing strategy from the partner's payment
	// methods, deducts the balance portion and records the payment row
	// inside the caller's transaction, and returns any SEPA remainder.
	// The caller holds the partner row lock; the partner argument carries
	// the locked row's balance.
	ChargeTx(ctx context.Context, tx pgx.Tx, partner *models.Partner, lead *models.Lead, price decimal.Decimal) (*BillingCharge, error)

	// CollectSEPA runs the external provider collection for a charge with
	// a SEPA remainder. Called after the acceptance transaction commits;
	// failures are logged for reconciliation, the acceptance stands.
	CollectSEPA(ctx context.Context, charge *BillingCharge)
}

type billingService struct {
	payments repositories.PaymentRepository
	partners repositories.PartnerRepository
	provider PaymentProvider
	logger   *zap.Logger
}

// NewBillingService creates a new BillingService.
func NewBillingService(
	payments repositories.PaymentRepository,
	partners repositories.PartnerRepository,
	provider PaymentProvider,
	logger *zap.Logger,
) BillingService {
	return &billingService{
		payments: payments,
		partners: partners,
		provider: provider,
		logger:   logger.Named("billing-service"),
	}
}

var _ BillingService = (*billingService)(nil)

func (s *billingService) ChargeTx(ctx context.Context, tx pgx.Tx, partner *models.Partner, lead *models.Lead, price decimal.Decimal) (*BillingCharge, error) {
	methods, err := s.payments.ListPaymentMethods(ctx, partner.ID,
		[]string{models.PaymentMethodStatusActive, models.PaymentMethodStatusPending})
	if err != nil {
		return nil, fmt.Errorf("fetch payment methods: %w", err)
	}

	charge, err := s.planCharge(partner, price, methods)
	if err != nil {
		return nil, err
	}

	if charge.FromBalance.IsPositive() {
		newBalance := partner.Balance.Sub(charge.FromBalance)
		if err := s.partners.UpdateBalanceTx(ctx, tx, partner.ID, newBalance); err != nil {
			return nil, fmt.Errorf("deduct balance: %w", err)
		}
	}

	status := models.PaymentStatusPaid
	if charge.FromSEPA.IsPositive() {
		// Settles when the provider confirms the collection.
		status = models.PaymentStatusPending
	}

	payment := &models.Payment{
		PartnerID:   partner.ID,
		Amount:      price,
		Description: fmt.Sprintf("Lead: %s", lead.Name),
		Status:      status,
		Details: map[string]any{
			"lead_id":      lead.ID.String(),
			"strategy":     charge.Strategy,
			"from_balance": charge.FromBalance.StringFixed(2),
			"from_sepa":    charge.FromSEPA.StringFixed(2),
		},
	}
	if err := s.payments.CreatePaymentTx(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	charge.Payment = payment

	return charge, nil
}

// planCharge decides the strategy. With an active SEPA mandate the balance
// covers what it can and the mandate collects the rest; without one the
// balance must cover the full price. The eligibility gate already enforced
// the balance requirement, so a shortfall here is a system error.
func (s *billingService) planCharge(partner *models.Partner, price decimal.Decimal, methods []*models.PaymentMethod) (*BillingCharge, error) {
	var sepa *models.PaymentMethod
	for _, m := range methods {
		if m.Type == models.PaymentMethodSEPA && m.Status == models.PaymentMethodStatusActive {
			sepa = m
			break
		}
	}

	if sepa == nil {
		if partner.Balance.LessThan(price) {
			return nil, fmt.Errorf("balance %s below lead price %s without SEPA mandate",
				partner.Balance.StringFixed(2), price.StringFixed(2))
		}
		return &BillingCharge{
			Strategy:    models.BillingBalanceOnly,
			FromBalance: price,
			FromSEPA:    decimal.Zero,
		}, nil
	}

	fromBalance := decimal.Min(partner.Balance, price)
	if fromBalance.IsNegative() {
		fromBalance = decimal.Zero
	}
	fromSEPA := price.Sub(fromBalance)

	strategy := models.BillingBalanceThenSEPA
	if fromBalance.IsZero() {
		strategy = models.BillingSEPAOnly
	}

	return &BillingCharge{
		Strategy:    strategy,
		FromBalance: fromBalance,
		FromSEPA:    fromSEPA,
		SEPAMethod:  sepa,
	}, nil
}

func (s *billingService) CollectSEPA(ctx context.Context, charge *BillingCharge) {
	if charge == nil || !charge.FromSEPA.IsPositive() || charge.SEPAMethod == nil {
		return
	}

	var reference string
	err := retry.DoIfRetryable(ctx, retry.ProviderConfig(), func() error {
		ref, chargeErr := s.provider.ChargeSEPA(ctx, charge.SEPAMethod, charge.FromSEPA, charge.Payment.Description)
		if chargeErr != nil {
			return chargeErr
		}
		reference = ref
		return nil
	})
	if err != nil {
		// The payment row stays pending; reconciliation picks it up.
		s.logger.Error("SEPA collection failed",
			zap.String("payment_id", charge.Payment.ID.String()),
			zap.String("amount", charge.FromSEPA.StringFixed(2)),
			zap.Error(err))
		return
	}

	s.logger.Info("SEPA collection initiated",
		zap.String("payment_id", charge.Payment.ID.String()),
		zap.String("provider_reference", reference),
		zap.String("amount", charge.FromSEPA.StringFixed(2)))
}

// loggingProvider stands in when no PSP is configured. It approves every
// charge and logs it, which keeps development and test environments flowing.
type loggingProvider struct {
	logger *zap.Logger
}

// NewLoggingProvider creates a PaymentProvider that only logs charges.
func NewLoggingProvider(logger *zap.Logger) PaymentProvider {
	return &loggingProvider{logger: logger.Named("payment-provider")}
}

var _ PaymentProvider = (*loggingProvider)(nil)

func (p *loggingProvider) ChargeSEPA(_ context.Context, method *models.PaymentMethod, amount decimal.Decimal, description string) (string, error) {
	p.logger.Info("SEPA charge (no provider configured)",
		zap.String("method_id", method.ID.String()),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("description", description))
	return "local-" + method.ID.String(), nil
}
