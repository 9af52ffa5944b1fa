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

// IndustryRepository resolves industry names and pricing.
type IndustryRepository interface {
	// GetByID returns an industry or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Industry, error)
}

type industryRepository struct {
	db *database.DB
}

// NewIndustryRepository creates a new IndustryRepository.
func NewIndustryRepository(db *database.DB) IndustryRepository {
	return &industryRepository{db: db}
}

var _ IndustryRepository = (*industryRepository)(nil)

func (r *industryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Industry, error) {
	var industry models.Industry
	var priceText string

	err := r.db.QueryRow(ctx,
		`SELECT id, name, price_per_lead::text FROM industries WHERE id = $1`, id).
		Scan(&industry.ID, &industry.Name, &priceText)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get industry: %w", err)
	}

	price, err := decimal.NewFromString(priceText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price_per_lead: %w", err)
	}
	industry.PricePerLead = price
	return &industry, nil
}
