package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/leadwerk/leadwerk-engine/pkg/database"
	"github.com/leadwerk/leadwerk-engine/pkg/models"
)

// PaymentRepository provides payment methods and payment records for the
// billing side of the gate.
type PaymentRepository interface {
	// ListPaymentMethods returns the partner's payment methods with any of
	// the given statuses.
	ListPaymentMethods(ctx context.Context, partnerID uuid.UUID, statuses []string) ([]*models.PaymentMethod, error)

	// CreatePaymentTx inserts a payment record inside the caller's
	// transaction.
	CreatePaymentTx(ctx context.Context, tx pgx.Tx, payment *models.Payment) error
}

type paymentRepository struct {
	db *database.DB
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db *database.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

var _ PaymentRepository = (*paymentRepository)(nil)

func (r *paymentRepository) ListPaymentMethods(ctx context.Context, partnerID uuid.UUID, statuses []string) ([]*models.PaymentMethod, error) {
	query := `
		SELECT id, user_id, type, status, is_default, provider, provider_payment_method_id, created_at
		FROM payment_methods
		WHERE user_id = $1 AND status = ANY($2)`

	rows, err := r.db.Query(ctx, query, partnerID, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	defer rows.Close()

	var methods []*models.PaymentMethod
	for rows.Next() {
		var m models.PaymentMethod
		if err := rows.Scan(&m.ID, &m.PartnerID, &m.Type, &m.Status, &m.IsDefault,
			&m.Provider, &m.ProviderPaymentMethodID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment method: %w", err)
		}
		methods = append(methods, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment methods: %w", err)
	}
	return methods, nil
}

func (r *paymentRepository) CreatePaymentTx(ctx context.Context, tx pgx.Tx, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = time.Now()

	var detailsJSON []byte
	if len(payment.Details) > 0 {
		var err error
		detailsJSON, err = json.Marshal(payment.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal payment details: %w", err)
		}
	}

	query := `
		INSERT INTO payments (id, user_id, amount, description, status, payment_details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		payment.ID, payment.PartnerID, payment.Amount.String(),
		payment.Description, payment.Status, detailsJSON, payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}
