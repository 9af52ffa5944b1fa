package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/leadwerk/leadwerk-engine/pkg/apperrors"
	"github.com/leadwerk/leadwerk-engine/pkg/database"
	"github.com/leadwerk/leadwerk-engine/pkg/models"
)

const leadColumns = `
	id, name, email, phone, industry_id, province, postcode, is_urgent, status,
	assigned_to, user_id, assigned_by, assignment_score, assignment_factors,
	price_at_purchase::text, created_at, assigned_at, accepted_at, approved_at`

// LeadRepository provides data access for leads.
type LeadRepository interface {
	// GetByID returns a lead or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)

	// List returns leads matching the filter, newest first.
	List(ctx context.Context, filter models.LeadFilter) ([]*models.Lead, error)

	// Create inserts a new lead with status "new".
	Create(ctx context.Context, lead *models.Lead) error

	// UpdateAssignmentTx atomically writes the assignment fields inside the
	// caller's transaction and returns the committed lead row.
	UpdateAssignmentTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, update models.LeadAssignmentUpdate) (*models.Lead, error)

	// UpdateAcceptanceTx marks a lead accepted with its purchase price inside
	// the caller's transaction.
	UpdateAcceptanceTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, price decimal.Decimal, acceptedAt time.Time) (*models.Lead, error)

	// UpdateApproval marks an accepted lead approved.
	UpdateApproval(ctx context.Context, leadID uuid.UUID, approvedAt time.Time) error

	// UpdateDetails patches contact fields; nil fields stay untouched.
	UpdateDetails(ctx context.Context, leadID uuid.UUID, update models.LeadDetailsUpdate) (*models.Lead, error)
}

type leadRepository struct {
	db *database.DB
}

// NewLeadRepository creates a new LeadRepository.
func NewLeadRepository(db *database.DB) LeadRepository {
	return &leadRepository{db: db}
}

var _ LeadRepository = (*leadRepository)(nil)

func (r *leadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	lead, err := scanLead(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

func (r *leadRepository) List(ctx context.Context, filter models.LeadFilter) ([]*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Unassigned {
		query += " AND assigned_to IS NULL"
	}
	if filter.IndustryID != nil {
		args = append(args, *filter.IndustryID)
		query += fmt.Sprintf(" AND industry_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leads: %w", err)
	}
	return leads, nil
}

func (r *leadRepository) Create(ctx context.Context, lead *models.Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}
	lead.CreatedAt = time.Now()

	query := `
		INSERT INTO leads (id, name, email, phone, industry_id, province, postcode, is_urgent, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.IndustryID,
		lead.Province, lead.Postcode, lead.IsUrgent, lead.Status, lead.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

func (r *leadRepository) UpdateAssignmentTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, update models.LeadAssignmentUpdate) (*models.Lead, error) {
	factorsJSON, err := json.Marshal(update.AssignmentFactors)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal assignment factors: %w", err)
	}

	query := `
		UPDATE leads
		SET assigned_to = $2,
		    user_id = $2,
		    assigned_by = $3,
		    assignment_score = $4,
		    assignment_factors = $5,
		    assigned_at = $6
		WHERE id = $1
		RETURNING ` + leadColumns

	lead, err := scanLead(tx.QueryRow(ctx, query,
		leadID, update.AssignedTo, update.AssignedBy,
		update.AssignmentScore, factorsJSON, update.AssignedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update lead assignment: %w", err)
	}
	return lead, nil
}

func (r *leadRepository) UpdateAcceptanceTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, price decimal.Decimal, acceptedAt time.Time) (*models.Lead, error) {
	query := `
		UPDATE leads
		SET status = $2, accepted_at = $3, price_at_purchase = $4
		WHERE id = $1
		RETURNING ` + leadColumns

	lead, err := scanLead(tx.QueryRow(ctx, query,
		leadID, models.LeadStatusAccepted, acceptedAt, price.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update lead acceptance: %w", err)
	}
	return lead, nil
}

func (r *leadRepository) UpdateApproval(ctx context.Context, leadID uuid.UUID, approvedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE leads SET status = $2, approved_at = $3 WHERE id = $1`,
		leadID, models.LeadStatusApproved, approvedAt)
	if err != nil {
		return fmt.Errorf("failed to update lead approval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *leadRepository) UpdateDetails(ctx context.Context, leadID uuid.UUID, update models.LeadDetailsUpdate) (*models.Lead, error) {
	query := `
		UPDATE leads
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    phone = COALESCE($4, phone),
		    province = COALESCE($5, province),
		    postcode = COALESCE($6, postcode),
		    is_urgent = COALESCE($7, is_urgent)
		WHERE id = $1
		RETURNING ` + leadColumns

	lead, err := scanLead(r.db.QueryRow(ctx, query,
		leadID, update.Name, update.Email, update.Phone,
		update.Province, update.Postcode, update.IsUrgent))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update lead details: %w", err)
	}
	return lead, nil
}

func scanLead(row pgx.Row) (*models.Lead, error) {
	var lead models.Lead
	var factorsJSON []byte
	var priceText *string

	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Email, &lead.Phone, &lead.IndustryID,
		&lead.Province, &lead.Postcode, &lead.IsUrgent, &lead.Status,
		&lead.AssignedTo, &lead.UserID, &lead.AssignedBy,
		&lead.AssignmentScore, &factorsJSON, &priceText,
		&lead.CreatedAt, &lead.AssignedAt, &lead.AcceptedAt, &lead.ApprovedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(factorsJSON) > 0 && string(factorsJSON) != "null" {
		if err := json.Unmarshal(factorsJSON, &lead.AssignmentFactors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal assignment factors: %w", err)
		}
	}
	if priceText != nil {
		price, err := decimal.NewFromString(*priceText)
		if err != nil {
			return nil, fmt.Errorf("failed to parse price_at_purchase: %w", err)
		}
		lead.PriceAtPurchase = &price
	}
	return &lead, nil
}
