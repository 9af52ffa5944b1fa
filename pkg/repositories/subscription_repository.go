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

// SubscriptionRepository provides quota data for the eligibility gate.
type SubscriptionRepository interface {
	// ListByPartner returns all of a partner's subscriptions.
	ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]*models.Subscription, error)

	// GetMonthlyUsage returns the current calendar month's usage. A partner
	// with no usage row gets zero counts, not an error.
	GetMonthlyUsage(ctx context.Context, partnerID uuid.UUID) (*models.MonthlyUsage, error)

	// GetMonthlyUsageTx is GetMonthlyUsage inside the caller's transaction,
	// used for the usage re-check after the partner row lock is held.
	GetMonthlyUsageTx(ctx context.Context, tx pgx.Tx, partnerID uuid.UUID) (*models.MonthlyUsage, error)
}

type subscriptionRepository struct {
	db *database.DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db *database.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

var _ SubscriptionRepository = (*subscriptionRepository)(nil)

func (r *subscriptionRepository) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]*models.Subscription, error) {
	query := `
		SELECT id, user_id, leads_per_month, status, is_paused, created_at
		FROM subscriptions
		WHERE user_id = $1`

	rows, err := r.db.Query(ctx, query, partnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		var s models.Subscription
		if err := rows.Scan(&s.ID, &s.PartnerID, &s.LeadsPerMonth, &s.Status, &s.IsPaused, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}
	return subs, nil
}

const monthlyUsageQuery = `
	SELECT user_id, approved_count, effective_count, assigned_count
	FROM v_monthly_lead_usage
	WHERE user_id = $1`

func (r *subscriptionRepository) GetMonthlyUsage(ctx context.Context, partnerID uuid.UUID) (*models.MonthlyUsage, error) {
	return scanMonthlyUsage(r.db.QueryRow(ctx, monthlyUsageQuery, partnerID), partnerID)
}

func (r *subscriptionRepository) GetMonthlyUsageTx(ctx context.Context, tx pgx.Tx, partnerID uuid.UUID) (*models.MonthlyUsage, error) {
	return scanMonthlyUsage(tx.QueryRow(ctx, monthlyUsageQuery, partnerID), partnerID)
}

func scanMonthlyUsage(row pgx.Row, partnerID uuid.UUID) (*models.MonthlyUsage, error) {
	var usage models.MonthlyUsage
	err := row.Scan(&usage.PartnerID, &usage.ApprovedCount, &usage.EffectiveCount, &usage.AssignedCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &models.MonthlyUsage{PartnerID: partnerID}, nil
		}
		return nil, fmt.Errorf("failed to get monthly usage: %w", err)
	}
	return &usage, nil
}
