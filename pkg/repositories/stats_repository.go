package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/leadwerk/leadwerk-engine/pkg/database"
	"github.com/leadwerk/leadwerk-engine/pkg/models"
)

const statsColumns = `
	partner_id, open_leads_count, leads_assigned_30d, last_lead_assigned_at,
	avg_first_response_time_minutes_30d, pct_contacted_within_1h_30d, pct_contacted_within_24h_30d,
	ai_trust_score, deal_rate_30d,
	pct_leads_min_2_attempts_30d, avg_contact_attempts_per_lead_30d,
	avg_customer_rating_30d, num_ratings_30d,
	complaint_rate_30d, complaints_30d,
	avg_deal_value_30d, consistency_score`

// StatsRepository reads the partner_performance_stats materialized view.
// The view is refreshed by an external job; staleness is tolerated and the
// routing core never blocks on freshness.
type StatsRepository interface {
	// ListAll returns the snapshot for every partner in one batch.
	ListAll(ctx context.Context) ([]*models.PerformanceStats, error)

	// GetByPartner returns one partner's snapshot, or nil without error when
	// the view has no row yet (new partners score with "no signal").
	GetByPartner(ctx context.Context, partnerID uuid.UUID) (*models.PerformanceStats, error)
}

type statsRepository struct {
	db *database.DB
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(db *database.DB) StatsRepository {
	return &statsRepository{db: db}
}

var _ StatsRepository = (*statsRepository)(nil)

func (r *statsRepository) ListAll(ctx context.Context) ([]*models.PerformanceStats, error) {
	rows, err := r.db.Query(ctx, `SELECT `+statsColumns+` FROM partner_performance_stats`)
	if err != nil {
		return nil, fmt.Errorf("failed to list performance stats: %w", err)
	}
	defer rows.Close()

	var all []*models.PerformanceStats
	for rows.Next() {
		stats, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan performance stats: %w", err)
		}
		all = append(all, stats)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating performance stats: %w", err)
	}
	return all, nil
}

func (r *statsRepository) GetByPartner(ctx context.Context, partnerID uuid.UUID) (*models.PerformanceStats, error) {
	query := `SELECT ` + statsColumns + ` FROM partner_performance_stats WHERE partner_id = $1`

	stats, err := scanStats(r.db.QueryRow(ctx, query, partnerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get performance stats: %w", err)
	}
	return stats, nil
}

func scanStats(row pgx.Row) (*models.PerformanceStats, error) {
	var s models.PerformanceStats
	err := row.Scan(
		&s.PartnerID, &s.OpenLeadsCount, &s.LeadsAssigned30d, &s.LastLeadAssignedAt,
		&s.AvgFirstResponseTimeMinutes30d, &s.PctContactedWithin1h30d, &s.PctContactedWithin24h30d,
		&s.AITrustScore, &s.DealRate30d,
		&s.PctLeadsMin2Attempts30d, &s.AvgContactAttemptsPerLead30d,
		&s.AvgCustomerRating30d, &s.NumRatings30d,
		&s.ComplaintRate30d, &s.Complaints30d,
		&s.AvgDealValue30d, &s.ConsistencyScore,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
