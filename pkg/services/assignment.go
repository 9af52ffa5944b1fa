package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadwerk/leadwerk-engine/pkg/apperrors"
	"github.com/leadwerk/leadwerk-engine/pkg/database"
	"github.com/leadwerk/leadwerk-engine/pkg/metrics"
	"github.com/leadwerk/leadwerk-engine/pkg/models"
	"github.com/leadwerk/leadwerk-engine/pkg/notify"
	"github.com/leadwerk/leadwerk-engine/pkg/repositories"
	"github.com/leadwerk/leadwerk-engine/pkg/retry"
)

// AssignmentResult is the outcome of a successful assignment.
type AssignmentResult struct {
	Lead        *models.Lead
	PartnerID   uuid.UUID
	Score       ScoreResult
	Eligibility *Eligibility
}

// BatchItem reports the per-lead outcome of a bulk auto-assign run.
type BatchItem struct {
	LeadID     uuid.UUID  `json:"lead_id"`
	AssignedTo *uuid.UUID `json:"assigned_to,omitempty"`
	Score      float64    `json:"score,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// BatchResult aggregates a bulk auto-assign run. One lead's failure never
// aborts the rest of the batch.
type BatchResult struct {
	Assigned int         `json:"assigned"`
	Failed   int         `json:"failed"`
	Items    []BatchItem `json:"items"`
}

// AssignmentService commits leads to partners. All writes for one
// assignment happen in a single transaction under a per-partner lock, so a
// partner's quota can never be oversubscribed by concurrent assignments.
type AssignmentService interface {
	// AssignToPartner assigns a lead to a specific partner, chosen by a
	// human. assignedBy records who decided (manual or admin). The
	// eligibility gate still applies; the auto-assign threshold does not.
	AssignToPartner(ctx context.Context, leadID, partnerID uuid.UUID, assignedBy string) (*AssignmentResult, error)

	// AutoAssign walks the ranked candidate list and assigns the lead to
	// the best partner that passes the eligibility gate and meets the
	// configured score threshold. Returns apperrors.ErrNoEligiblePartner
	// when the list is exhausted.
	AutoAssign(ctx context.Context, leadID uuid.UUID) (*AssignmentResult, error)

	// AutoAssignBatch runs AutoAssign over many leads with per-lead error
	// isolation, checking ctx between items.
	AutoAssignBatch(ctx context.Context, leadIDs []uuid.UUID) (*BatchResult, error)
}

type assignmentService struct {
	db            *database.DB
	selector      CandidateSelector
	gate          EligibilityGate
	locker        PartnerLocker
	leads         repositories.LeadRepository
	partners      repositories.PartnerRepository
	subscriptions repositories.SubscriptionRepository
	logs          repositories.AssignmentLogRepository
	activities    repositories.ActivityLogRepository
	sink          notify.Sink
	metrics       *metrics.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(
	db *database.DB,
	selector CandidateSelector,
	gate EligibilityGate,
	locker PartnerLocker,
	leads repositories.LeadRepository,
	partners repositories.PartnerRepository,
	subscriptions repositories.SubscriptionRepository,
	logs repositories.AssignmentLogRepository,
	activities repositories.ActivityLogRepository,
	sink notify.Sink,
	m *metrics.Metrics,
	logger *zap.Logger,
) AssignmentService {
	return &assignmentService{
		db:            db,
		selector:      selector,
		gate:          gate,
		locker:        locker,
		leads:         leads,
		partners:      partners,
		subscriptions: subscriptions,
		logs:          logs,
		activities:    activities,
		sink:          sink,
		metrics:       m,
		logger:        logger.Named("assignment-service"),
		now:           time.Now,
	}
}

var _ AssignmentService = (*assignmentService)(nil)

func (s *assignmentService) AssignToPartner(ctx context.Context, leadID, partnerID uuid.UUID, assignedBy string) (*AssignmentResult, error) {
	candidate, err := s.selector.ScorePartner(ctx, leadID, partnerID)
	if err != nil {
		s.countOutcome(assignedBy, "error")
		return nil, err
	}

	result, err := s.tryAssign(ctx, leadID, candidate, assignedBy)
	if err != nil {
		if eligErr, ok := apperrors.AsEligibility(err); ok {
			s.metrics.EligibilityRejections.WithLabelValues(string(eligErr.Reason)).Inc()
			s.countOutcome(assignedBy, "ineligible")
		} else {
			s.countOutcome(assignedBy, "error")
		}
		return nil, err
	}

	s.countOutcome(assignedBy, "assigned")
	return result, nil
}

func (s *assignmentService) AutoAssign(ctx context.Context, leadID uuid.UUID) (*AssignmentResult, error) {
	settings := s.selector.Settings(ctx)
	if !settings.AutoAssignEnabled {
		return nil, apperrors.ErrAutoAssignDisabled
	}

	start := s.now()
	candidates, err := s.selector.GetCandidates(ctx, leadID)
	if err != nil {
		s.countOutcome(models.AssignedByAuto, "error")
		return nil, err
	}
	s.metrics.ObserveSelection(start)

	for _, candidate := range candidates {
		if candidate.Score.TotalScore < float64(settings.AutoAssignThreshold) {
			// List is sorted descending, nothing after this passes either.
			break
		}

		result, err := s.tryAssign(ctx, leadID, candidate, models.AssignedByAuto)
		if err != nil {
			if eligErr, ok := apperrors.AsEligibility(err); ok {
				s.metrics.EligibilityRejections.WithLabelValues(string(eligErr.Reason)).Inc()
				s.logger.Debug("Candidate rejected by eligibility gate, trying next",
					zap.String("lead_id", leadID.String()),
					zap.String("partner_id", candidate.PartnerID.String()),
					zap.String("reason", string(eligErr.Reason)))
				continue
			}
			s.countOutcome(models.AssignedByAuto, "error")
			return nil, err
		}

		s.countOutcome(models.AssignedByAuto, "assigned")
		return result, nil
	}

	s.countOutcome(models.AssignedByAuto, "no_candidate")
	return nil, apperrors.ErrNoEligiblePartner
}

func (s *assignmentService) AutoAssignBatch(ctx context.Context, leadIDs []uuid.UUID) (*BatchResult, error) {
	result := &BatchResult{Items: make([]BatchItem, 0, len(leadIDs))}

	for _, leadID := range leadIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		assigned, err := s.AutoAssign(ctx, leadID)
		if err != nil {
			result.Failed++
			result.Items = append(result.Items, BatchItem{LeadID: leadID, Error: err.Error()})
			continue
		}

		result.Assigned++
		result.Items = append(result.Items, BatchItem{
			LeadID:     leadID,
			AssignedTo: &assigned.PartnerID,
			Score:      assigned.Score.TotalScore,
		})
	}

	return result, nil
}

// tryAssign runs the eligibility gate and, if it passes, commits the
// assignment. The per-partner lock covers the whole gate-then-commit
// sequence so two in-flight assignments to the same partner serialize.
func (s *assignmentService) tryAssign(ctx context.Context, leadID uuid.UUID, candidate *Candidate, assignedBy string) (*AssignmentResult, error) {
	release := s.locker.Lock(candidate.PartnerID)
	defer release()

	eligibility, err := s.gate.Check(ctx, leadID, candidate.PartnerID)
	if err != nil {
		return nil, err
	}

	lead, err := s.commit(ctx, eligibility, candidate, assignedBy)
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, lead, candidate, assignedBy)

	return &AssignmentResult{
		Lead:        lead,
		PartnerID:   candidate.PartnerID,
		Score:       candidate.Score,
		Eligibility: eligibility,
	}, nil
}

// commit performs every durable write of one assignment in a single
// transaction: a partner row lock, a fresh usage count under that lock, the
// lead update, and the append-only audit record. If the usage re-check trips
// the quota, nothing is written.
func (s *assignmentService) commit(ctx context.Context, eligibility *Eligibility, candidate *Candidate, assignedBy string) (*models.Lead, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin assignment transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.partners.GetForUpdateTx(ctx, tx, candidate.PartnerID); err != nil {
		return nil, fmt.Errorf("lock partner row: %w", err)
	}

	usage, err := s.subscriptions.GetMonthlyUsageTx(ctx, tx, candidate.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("re-check monthly usage: %w", err)
	}
	// AssignedCount, not EffectiveCount: the commit itself only sets
	// assigned_to/assigned_at, so the re-check must count those too or two
	// racing assignments with one remaining slot would both pass.
	if usage.AssignedCount >= eligibility.TotalQuota {
		return nil, &apperrors.EligibilityError{
			Reason:    apperrors.ReasonQuotaExceeded,
			Quota:     eligibility.TotalQuota,
			Used:      usage.AssignedCount,
			Remaining: 0,
		}
	}

	assignedAt := s.now()
	lead, err := s.leads.UpdateAssignmentTx(ctx, tx, eligibility.Lead.ID, models.LeadAssignmentUpdate{
		AssignedTo:        candidate.PartnerID,
		AssignedBy:        assignedBy,
		AssignmentScore:   candidate.Score.TotalScore,
		AssignmentFactors: candidate.Score.FactorMap(),
		AssignedAt:        assignedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("update lead assignment: %w", err)
	}

	if err := s.logs.CreateTx(ctx, tx, &models.AssignmentLog{
		LeadID:     lead.ID,
		AssignedTo: candidate.PartnerID,
		AssignedBy: assignedBy,
		Score:      candidate.Score.TotalScore,
		RawFactors: rawFactors(candidate),
	}); err != nil {
		return nil, fmt.Errorf("write assignment log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit assignment transaction: %w", err)
	}

	return lead, nil
}

// afterCommit runs side effects that must not gate the assignment. Failures
// are logged and swallowed.
func (s *assignmentService) afterCommit(ctx context.Context, lead *models.Lead, candidate *Candidate, assignedBy string) {
	if err := s.activities.Create(ctx, &models.LeadActivity{
		LeadID:      lead.ID,
		Type:        models.ActivityTypeStatusChanged,
		Description: fmt.Sprintf("Lead toegewezen (%s)", assignedBy),
		Metadata: map[string]any{
			"assigned_to": candidate.PartnerID.String(),
			"assigned_by": assignedBy,
			"score":       candidate.Score.TotalScore,
		},
	}); err != nil {
		s.logger.Warn("Failed to write lead activity",
			zap.String("lead_id", lead.ID.String()),
			zap.Error(err))
	}

	partnerID := candidate.PartnerID
	if err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		return s.sink.Publish(ctx, notify.Event{
			Kind:      notify.EventLeadAssigned,
			LeadID:    lead.ID,
			PartnerID: &partnerID,
			Metadata: map[string]any{
				"assigned_by": assignedBy,
				"score":       candidate.Score.TotalScore,
			},
		})
	}); err != nil {
		s.logger.Warn("Failed to publish assignment event",
			zap.String("lead_id", lead.ID.String()),
			zap.Error(err))
	}
}

// rawFactors assembles the full audit payload stored with the assignment
// log: factor breakdown, performance sub-factors, the settings the score was
// computed with, and the stats snapshot it was computed from.
func rawFactors(candidate *Candidate) map[string]any {
	raw := map[string]any{
		"totalScore":         candidate.Score.TotalScore,
		"factors":            candidate.Score.FactorMap(),
		"performanceDetails": candidate.Score.Performance,
		"settings": map[string]any{
			"regionWeight":      candidate.Settings.RegionWeight,
			"performanceWeight": candidate.Settings.PerformanceWeight,
			"fairnessWeight":    candidate.Settings.FairnessWeight,
		},
	}
	if candidate.Stats != nil {
		raw["statsSnapshot"] = candidate.Stats
	}
	return raw
}

func (s *assignmentService) countOutcome(mode, outcome string) {
	s.metrics.Assignments.WithLabelValues(mode, outcome).Inc()
}
