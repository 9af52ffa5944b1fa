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

// AssignmentLogRepository provides the append-only assignment decision log.
// Entries are never mutated after insert.
type AssignmentLogRepository interface {
	// CreateTx appends an entry inside the caller's transaction, so the log
	// row is causally tied to the lead-state mutation it describes.
	CreateTx(ctx context.Context, tx pgx.Tx, entry *models.AssignmentLog) error

	// ListByLead returns all entries for a lead, newest first.
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]*models.AssignmentLog, error)
}

type assignmentLogRepository struct {
	db *database.DB
}

// NewAssignmentLogRepository creates a new AssignmentLogRepository.
func NewAssignmentLogRepository(db *database.DB) AssignmentLogRepository {
	return &assignmentLogRepository{db: db}
}

var _ AssignmentLogRepository = (*assignmentLogRepository)(nil)

func (r *assignmentLogRepository) CreateTx(ctx context.Context, tx pgx.Tx, entry *models.AssignmentLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()

	factorsJSON, err := json.Marshal(entry.RawFactors)
	if err != nil {
		return fmt.Errorf("failed to marshal raw factors: %w", err)
	}

	query := `
		INSERT INTO lead_assignment_logs (id, lead_id, assigned_to, assigned_by, score, raw_factors, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = tx.Exec(ctx, query,
		entry.ID, entry.LeadID, entry.AssignedTo, entry.AssignedBy,
		entry.Score, factorsJSON, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create assignment log entry: %w", err)
	}
	return nil
}

func (r *assignmentLogRepository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]*models.AssignmentLog, error) {
	query := `
		SELECT id, lead_id, assigned_to, assigned_by, score, raw_factors, created_at
		FROM lead_assignment_logs
		WHERE lead_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.AssignmentLog
	for rows.Next() {
		var entry models.AssignmentLog
		var factorsJSON []byte
		if err := rows.Scan(&entry.ID, &entry.LeadID, &entry.AssignedTo, &entry.AssignedBy,
			&entry.Score, &factorsJSON, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment log entry: %w", err)
		}
		if len(factorsJSON) > 0 && string(factorsJSON) != "null" {
			if err := json.Unmarshal(factorsJSON, &entry.RawFactors); err != nil {
				return nil, fmt.Errorf("failed to unmarshal raw factors: %w", err)
			}
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignment log entries: %w", err)
	}
	return entries, nil
}
