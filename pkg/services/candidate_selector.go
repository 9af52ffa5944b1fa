package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadwerk/leadwerk-engine/pkg/apperrors"
	"github.com/leadwerk/leadwerk-engine/pkg/models"
	"github.com/leadwerk/leadwerk-engine/pkg/repositories"
)

// Candidate is a partner scored for a specific lead. Settings holds the
// router settings the score was computed with, so the audit trail records
// those rather than whatever is current at commit time.
type Candidate struct {
	PartnerID uuid.UUID
	Partner   *models.Partner
	Stats     *models.PerformanceStats
	Score     ScoreResult
	Settings  models.RouterSettings
}

// CandidateSelector produces ranked candidate lists for leads.
type CandidateSelector interface {
	// GetCandidates returns all positive-scoring active partners for the
	// lead, sorted descending by score with a deterministic tie-break on
	// partner id. Returns apperrors.ErrLeadAlreadyFinal for leads that
	// already reached accepted/rejected.
	GetCandidates(ctx context.Context, leadID uuid.UUID) ([]*Candidate, error)

	// ScorePartner computes one specific partner's score for a lead,
	// regardless of ranking. Used by directed assignment for audit.
	// Returns apperrors.ErrLeadAlreadyFinal for accepted/rejected leads.
	ScorePartner(ctx context.Context, leadID, partnerID uuid.UUID) (*Candidate, error)

	// Settings returns the current router settings, falling back to
	// defaults with a warning when the store is unavailable. Never fails.
	Settings(ctx context.Context) models.RouterSettings
}

type candidateSelector struct {
	leads      repositories.LeadRepository
	partners   repositories.PartnerRepository
	stats      repositories.StatsRepository
	settings   repositories.SettingsRepository
	industries repositories.IndustryRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewCandidateSelector creates a new CandidateSelector.
func NewCandidateSelector(
	leads repositories.LeadRepository,
	partners repositories.PartnerRepository,
	stats repositories.StatsRepository,
	settings repositories.SettingsRepository,
	industries repositories.IndustryRepository,
	logger *zap.Logger,
) CandidateSelector {
	return &candidateSelector{
		leads:      leads,
		partners:   partners,
		stats:      stats,
		settings:   settings,
		industries: industries,
		logger:     logger.Named("candidate-selector"),
		now:        time.Now,
	}
}

var _ CandidateSelector = (*candidateSelector)(nil)

func (s *candidateSelector) GetCandidates(ctx context.Context, leadID uuid.UUID) ([]*Candidate, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.IsFinal() {
		return nil, apperrors.ErrLeadAlreadyFinal
	}

	industryName := s.resolveIndustryName(ctx, lead)

	partners, err := s.partners.ListActiveRouting(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch routing partners: %w", err)
	}

	// One batch fetch for all partners; scoring must never go N+1.
	statsByPartner, err := s.statsMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch performance stats: %w", err)
	}

	settings := s.Settings(ctx)
	now := s.now()

	candidates := make([]*Candidate, 0, len(partners))
	for _, partner := range partners {
		stats := statsByPartner[partner.ID]
		score := CalculateScore(lead, industryName, partner, stats, settings, now)
		if score.TotalScore <= 0 {
			continue
		}
		candidates = append(candidates, &Candidate{
			PartnerID: partner.ID,
			Partner:   partner,
			Stats:     stats,
			Score:     score,
			Settings:  settings,
		})
	}

	// Descending by score; equal scores order by partner id so repeated
	// runs on unchanged data yield identical lists.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score.TotalScore != candidates[j].Score.TotalScore {
			return candidates[i].Score.TotalScore > candidates[j].Score.TotalScore
		}
		return strings.Compare(candidates[i].PartnerID.String(), candidates[j].PartnerID.String()) < 0
	})

	return candidates, nil
}

func (s *candidateSelector) ScorePartner(ctx context.Context, leadID, partnerID uuid.UUID) (*Candidate, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.IsFinal() {
		return nil, apperrors.ErrLeadAlreadyFinal
	}

	partner, err := s.partners.GetByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	stats, err := s.stats.GetByPartner(ctx, partnerID)
	if err != nil {
		// A stats read failure only costs precision for this one partner.
		s.logger.Warn("Failed to fetch performance stats, scoring without signal",
			zap.String("partner_id", partnerID.String()),
			zap.Error(err))
		stats = nil
	}

	industryName := s.resolveIndustryName(ctx, lead)
	settings := s.Settings(ctx)

	return &Candidate{
		PartnerID: partnerID,
		Partner:   partner,
		Stats:     stats,
		Score:     CalculateScore(lead, industryName, partner, stats, settings, s.now()),
		Settings:  settings,
	}, nil
}

func (s *candidateSelector) Settings(ctx context.Context) models.RouterSettings {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.Warn("Failed to fetch router settings, using defaults", zap.Error(err))
		return models.DefaultRouterSettings()
	}
	return settings
}

func (s *candidateSelector) statsMap(ctx context.Context) (map[uuid.UUID]*models.PerformanceStats, error) {
	all, err := s.stats.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	byPartner := make(map[uuid.UUID]*models.PerformanceStats, len(all))
	for _, stats := range all {
		byPartner[stats.PartnerID] = stats
	}
	return byPartner, nil
}

// resolveIndustryName resolves the lead's industry id to its display name.
// Scoring treats an unresolvable industry as "no branch signal" rather than
// failing the evaluation.
func (s *candidateSelector) resolveIndustryName(ctx context.Context, lead *models.Lead) string {
	if lead.IndustryID == nil {
		return ""
	}
	industry, err := s.industries.GetByID(ctx, *lead.IndustryID)
	if err != nil {
		s.logger.Warn("Failed to resolve lead industry name",
			zap.String("lead_id", lead.ID.String()),
			zap.Error(err))
		return ""
	}
	return industry.Name
}
