package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadwerk/leadwerk-engine/pkg/database"
	"github.com/leadwerk/leadwerk-engine/pkg/models"
)

// ActivityLogRepository writes lead timeline activities. Assignment
// activities are best-effort from the core's perspective: callers log and
// swallow failures.
type ActivityLogRepository interface {
	Create(ctx context.Context, activity *models.LeadActivity) error
}

type activityLogRepository struct {
	db *database.DB
}

// NewActivityLogRepository creates a new ActivityLogRepository.
func NewActivityLogRepository(db *database.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

var _ ActivityLogRepository = (*activityLogRepository)(nil)

func (r *activityLogRepository) Create(ctx context.Context, activity *models.LeadActivity) error {
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	activity.CreatedAt = time.Now()

	var metadataJSON []byte
	if len(activity.Metadata) > 0 {
		var err error
		metadataJSON, err = json.Marshal(activity.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal activity metadata: %w", err)
		}
	}

	query := `
		INSERT INTO lead_activities (id, lead_id, type, description, created_by, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		activity.ID, activity.LeadID, activity.Type, activity.Description,
		activity.CreatedBy, metadataJSON, activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create lead activity: %w", err)
	}
	return nil
}
