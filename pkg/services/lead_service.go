package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/leadwerk/leadwerk-engine/pkg/apperrors"
	"github.com/leadwerk/leadwerk-engine/pkg/database"
	"github.com/leadwerk/leadwerk-engine/pkg/metrics"
	"github.com/leadwerk/leadwerk-engine/pkg/models"
	"github.com/leadwerk/leadwerk-engine/pkg/notify"
	"github.com/leadwerk/leadwerk-engine/pkg/repositories"
)

// DefaultRecommendations is how many candidates a recommendation request
// returns when no limit is given.
const DefaultRecommendations = 5

// LeadService covers the lead lifecycle around the routing core: intake,
// acceptance with billing, admin approval, and the read surfaces.
type LeadService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	List(ctx context.Context, filter models.LeadFilter) ([]*models.Lead, error)

	// Create stores a new lead. When auto-assign is enabled it immediately
	// runs the auto flow; a routing failure leaves the lead unassigned
	// rather than failing intake.
	Create(ctx context.Context, lead *models.Lead) (*models.Lead, error)

	// Accept bills the partner for an assigned lead and marks it accepted.
	// Balance deduction, the payment record, and the status change commit
	// in one transaction under the partner lock; only the external SEPA
	// collection runs after commit.
	Accept(ctx context.Context, leadID, partnerID uuid.UUID) (*models.Lead, error)

	// Approve marks an accepted lead approved, which makes it count toward
	// effective monthly usage.
	Approve(ctx context.Context, leadID uuid.UUID) error

	// UpdateDetails changes contact fields on a lead that has not been
	// accepted yet. Accepted and later leads return
	// apperrors.ErrAcceptedLeadImmutable.
	UpdateDetails(ctx context.Context, leadID uuid.UUID, update models.LeadDetailsUpdate) (*models.Lead, error)

	// Recommendations returns the top candidates for a lead without
	// assigning it.
	Recommendations(ctx context.Context, leadID uuid.UUID, limit int) ([]*Candidate, error)

	// AssignmentHistory returns the append-only assignment log for a lead.
	AssignmentHistory(ctx context.Context, leadID uuid.UUID) ([]*models.AssignmentLog, error)
}

type leadService struct {
	db         *database.DB
	leads      repositories.LeadRepository
	partners   repositories.PartnerRepository
	industries repositories.IndustryRepository
	logs       repositories.AssignmentLogRepository
	activities repositories.ActivityLogRepository
	selector   CandidateSelector
	assigner   AssignmentService
	billing    BillingService
	locker     PartnerLocker
	sink       notify.Sink
	metrics    *metrics.Metrics

	defaultLeadPrice decimal.Decimal
	logger           *zap.Logger
	now              func() time.Time
}

// NewLeadService creates a new LeadService.
func NewLeadService(
	db *database.DB,
	leads repositories.LeadRepository,
	partners repositories.PartnerRepository,
	industries repositories.IndustryRepository,
	logs repositories.AssignmentLogRepository,
	activities repositories.ActivityLogRepository,
	selector CandidateSelector,
	assigner AssignmentService,
	billing BillingService,
	locker PartnerLocker,
	sink notify.Sink,
	m *metrics.Metrics,
	defaultLeadPrice decimal.Decimal,
	logger *zap.Logger,
) LeadService {
	return &leadService{
		db:               db,
		leads:            leads,
		partners:         partners,
		industries:       industries,
		logs:             logs,
		activities:       activities,
		selector:         selector,
		assigner:         assigner,
		billing:          billing,
		locker:           locker,
		sink:             sink,
		metrics:          m,
		defaultLeadPrice: defaultLeadPrice,
		logger:           logger.Named("lead-service"),
		now:              time.Now,
	}
}

var _ LeadService = (*leadService)(nil)

func (s *leadService) Get(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	return s.leads.GetByID(ctx, id)
}

func (s *leadService) List(ctx context.Context, filter models.LeadFilter) ([]*models.Lead, error) {
	return s.leads.List(ctx, filter)
}

func (s *leadService) Create(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}

	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}

	if lead.AssignedTo == nil {
		result, err := s.assigner.AutoAssign(ctx, lead.ID)
		switch {
		case err == nil:
			return result.Lead, nil
		case errors.Is(err, apperrors.ErrAutoAssignDisabled):
			// Intake without routing is a normal mode.
		case errors.Is(err, apperrors.ErrNoEligiblePartner):
			s.logger.Info("No eligible partner at intake, lead stays unassigned",
				zap.String("lead_id", lead.ID.String()))
		default:
			s.logger.Warn("Auto-assign at intake failed, lead stays unassigned",
				zap.String("lead_id", lead.ID.String()),
				zap.Error(err))
		}
	}

	return lead, nil
}

func (s *leadService) Accept(ctx context.Context, leadID, partnerID uuid.UUID) (*models.Lead, error) {
	release := s.locker.Lock(partnerID)
	defer release()

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.IsFinal() {
		return nil, apperrors.ErrLeadAlreadyFinal
	}
	if lead.AssignedTo == nil || *lead.AssignedTo != partnerID {
		return nil, fmt.Errorf("lead %s is not assigned to partner %s: %w",
			leadID, partnerID, apperrors.ErrNotFound)
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin acceptance transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row lock gives a balance read no concurrent acceptance can stale.
	partner, err := s.partners.GetForUpdateTx(ctx, tx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("lock partner row: %w", err)
	}

	price := s.resolvePrice(ctx, lead)

	charge, err := s.billing.ChargeTx(ctx, tx, partner, lead, price)
	if err != nil {
		return nil, fmt.Errorf("charge for lead: %w", err)
	}

	updated, err := s.leads.UpdateAcceptanceTx(ctx, tx, leadID, price, s.now())
	if err != nil {
		return nil, fmt.Errorf("mark lead accepted: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit acceptance transaction: %w", err)
	}

	s.metrics.Payments.WithLabelValues(charge.Strategy).Inc()
	s.billing.CollectSEPA(ctx, charge)
	s.afterAccept(ctx, updated, partnerID, charge)

	return updated, nil
}

func (s *leadService) Approve(ctx context.Context, leadID uuid.UUID) error {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.Status != models.LeadStatusAccepted {
		return fmt.Errorf("lead %s has status %q, only accepted leads can be approved",
			leadID, lead.Status)
	}

	if err := s.leads.UpdateApproval(ctx, leadID, s.now()); err != nil {
		return fmt.Errorf("approve lead: %w", err)
	}

	if err := s.sink.Publish(ctx, notify.Event{
		Kind:      notify.EventLeadApproved,
		LeadID:    leadID,
		PartnerID: lead.AssignedTo,
	}); err != nil {
		s.logger.Warn("Failed to publish approval event",
			zap.String("lead_id", leadID.String()),
			zap.Error(err))
	}

	return nil
}

func (s *leadService) UpdateDetails(ctx context.Context, leadID uuid.UUID, update models.LeadDetailsUpdate) (*models.Lead, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.IsImmutable() {
		return nil, apperrors.ErrAcceptedLeadImmutable
	}

	return s.leads.UpdateDetails(ctx, leadID, update)
}

func (s *leadService) Recommendations(ctx context.Context, leadID uuid.UUID, limit int) ([]*Candidate, error) {
	if limit <= 0 {
		limit = DefaultRecommendations
	}

	candidates, err := s.selector.GetCandidates(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (s *leadService) AssignmentHistory(ctx context.Context, leadID uuid.UUID) ([]*models.AssignmentLog, error) {
	if _, err := s.leads.GetByID(ctx, leadID); err != nil {
		return nil, err
	}
	return s.logs.ListByLead(ctx, leadID)
}

func (s *leadService) afterAccept(ctx context.Context, lead *models.Lead, partnerID uuid.UUID, charge *BillingCharge) {
	if err := s.activities.Create(ctx, &models.LeadActivity{
		LeadID:      lead.ID,
		Type:        models.ActivityTypeStatusChanged,
		Description: "Lead geaccepteerd",
		Metadata: map[string]any{
			"partner_id": partnerID.String(),
			"strategy":   charge.Strategy,
			"price":      charge.Payment.Amount.StringFixed(2),
		},
	}); err != nil {
		s.logger.Warn("Failed to write lead activity",
			zap.String("lead_id", lead.ID.String()),
			zap.Error(err))
	}

	if err := s.sink.Publish(ctx, notify.Event{
		Kind:      notify.EventLeadAccepted,
		LeadID:    lead.ID,
		PartnerID: &partnerID,
		Metadata: map[string]any{
			"strategy": charge.Strategy,
			"price":    charge.Payment.Amount.StringFixed(2),
		},
	}); err != nil {
		s.logger.Warn("Failed to publish acceptance event",
			zap.String("lead_id", lead.ID.String()),
			zap.Error(err))
	}
}

// resolvePrice mirrors the eligibility gate's price chain so the amount
// billed matches the amount the gate validated against.
func (s *leadService) resolvePrice(ctx context.Context, lead *models.Lead) decimal.Decimal {
	if lead.PriceAtPurchase != nil {
		return *lead.PriceAtPurchase
	}
	if lead.IndustryID != nil {
		industry, err := s.industries.GetByID(ctx, *lead.IndustryID)
		if err == nil && industry.PricePerLead.IsPositive() {
			return industry.PricePerLead
		}
		if err != nil {
			s.logger.Warn("Failed to resolve industry price, using default",
				zap.String("lead_id", lead.ID.String()),
				zap.Error(err))
		}
	}
	return s.defaultLeadPrice
}
