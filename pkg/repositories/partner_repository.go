package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/leadwerk/leadwerk-engine/pkg/apperrors"
	"github.com/leadwerk/leadwerk-engine/pkg/database"
	"github.com/leadwerk/leadwerk-engine/pkg/models"
)

const partnerColumns = `
	id, company_name, first_name, last_name, primary_branch,
	regions, lead_industries, lead_locations,
	max_open_leads, is_active_for_routing, routing_priority, balance::text, created_at`

// PartnerRepository provides data access for partner profiles.
type PartnerRepository interface {
	// GetByID returns a partner or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Partner, error)

	// ListActiveRouting returns all partners flagged active for routing,
	// ordered by id for deterministic iteration.
	ListActiveRouting(ctx context.Context) ([]*models.Partner, error)

	// ListEnabledIndustryPreferences returns the industry ids a partner has
	// enabled for lead delivery.
	ListEnabledIndustryPreferences(ctx context.Context, partnerID uuid.UUID) ([]uuid.UUID, error)

	// GetForUpdateTx locks the partner row for the duration of the caller's
	// transaction. This is the deployment-wide serialization point for
	// quota evaluation and balance deduction.
	GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Partner, error)

	// UpdateBalanceTx writes a new balance inside the caller's transaction.
	UpdateBalanceTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error
}

type partnerRepository struct {
	db *database.DB
}

// NewPartnerRepository creates a new PartnerRepository.
func NewPartnerRepository(db *database.DB) PartnerRepository {
	return &partnerRepository{db: db}
}

var _ PartnerRepository = (*partnerRepository)(nil)

func (r *partnerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM profiles WHERE id = $1 AND is_admin = false`

	partner, err := scanPartner(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	return partner, nil
}

func (r *partnerRepository) ListActiveRouting(ctx context.Context) ([]*models.Partner, error) {
	query := `SELECT ` + partnerColumns + `
		FROM profiles
		WHERE is_admin = false AND is_active_for_routing = true
		ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list routing partners: %w", err)
	}
	defer rows.Close()

	var partners []*models.Partner
	for rows.Next() {
		partner, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, partner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating partners: %w", err)
	}
	return partners, nil
}

func (r *partnerRepository) ListEnabledIndustryPreferences(ctx context.Context, partnerID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT industry_id
		FROM user_industry_preferences
		WHERE user_id = $1 AND is_enabled = true`

	rows, err := r.db.Query(ctx, query, partnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list industry preferences: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan industry preference: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating industry preferences: %w", err)
	}
	return ids, nil
}

func (r *partnerRepository) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM profiles WHERE id = $1 FOR UPDATE`

	partner, err := scanPartner(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock partner row: %w", err)
	}
	return partner, nil
}

func (r *partnerRepository) UpdateBalanceTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	tag, err := tx.Exec(ctx, `UPDATE profiles SET balance = $2 WHERE id = $1`, id, balance.String())
	if err != nil {
		return fmt.Errorf("failed to update partner balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanPartner(row pgx.Row) (*models.Partner, error) {
	var p models.Partner
	var balanceText *string

	err := row.Scan(
		&p.ID, &p.CompanyName, &p.FirstName, &p.LastName, &p.PrimaryBranch,
		&p.Regions, &p.LeadIndustries, &p.LeadLocations,
		&p.MaxOpenLeads, &p.IsActiveForRouting, &p.RoutingPriority,
		&balanceText, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if balanceText != nil {
		balance, err := decimal.NewFromString(*balanceText)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance: %w", err)
		}
		p.Balance = balance
	}
	return &p, nil
}
