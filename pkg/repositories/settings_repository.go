package repositories

import (
	"context"
	"fmt"
	"strconv"

	"github.com/leadwerk/leadwerk-engine/pkg/database"
	"github.com/leadwerk/leadwerk-engine/pkg/models"
)

// SettingsRepository reads and writes the global router settings. Settings
// are stored as key/value rows in ai_router_settings; missing keys take the
// documented defaults.
type SettingsRepository interface {
	// Get returns the current router settings. Callers must fall back to
	// models.DefaultRouterSettings() on error - a settings failure is never
	// fatal for an assignment.
	Get(ctx context.Context) (models.RouterSettings, error)

	// Update upserts all settings values (clamped to their valid ranges).
	Update(ctx context.Context, settings models.RouterSettings) error
}

type settingsRepository struct {
	db *database.DB
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db *database.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

var _ SettingsRepository = (*settingsRepository)(nil)

func (r *settingsRepository) Get(ctx context.Context) (models.RouterSettings, error) {
	settings := models.DefaultRouterSettings()

	rows, err := r.db.Query(ctx,
		`SELECT setting_key, setting_value FROM ai_router_settings WHERE setting_key = ANY($1)`,
		[]string{
			models.SettingRegionWeight,
			models.SettingPerformanceWeight,
			models.SettingFairnessWeight,
			models.SettingAutoAssignEnabled,
			models.SettingAutoAssignThreshold,
		})
	if err != nil {
		return settings, fmt.Errorf("failed to query router settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return settings, fmt.Errorf("failed to scan router setting: %w", err)
		}
		switch key {
		case models.SettingRegionWeight:
			settings.RegionWeight = parseIntOr(value, settings.RegionWeight)
		case models.SettingPerformanceWeight:
			settings.PerformanceWeight = parseIntOr(value, settings.PerformanceWeight)
		case models.SettingFairnessWeight:
			settings.FairnessWeight = parseIntOr(value, settings.FairnessWeight)
		case models.SettingAutoAssignEnabled:
			settings.AutoAssignEnabled = value != "false"
		case models.SettingAutoAssignThreshold:
			settings.AutoAssignThreshold = parseIntOr(value, settings.AutoAssignThreshold)
		}
	}
	if err := rows.Err(); err != nil {
		return settings, fmt.Errorf("error iterating router settings: %w", err)
	}

	settings.Clamp()
	return settings, nil
}

func (r *settingsRepository) Update(ctx context.Context, settings models.RouterSettings) error {
	settings.Clamp()

	values := map[string]string{
		models.SettingRegionWeight:        strconv.Itoa(settings.RegionWeight),
		models.SettingPerformanceWeight:   strconv.Itoa(settings.PerformanceWeight),
		models.SettingFairnessWeight:      strconv.Itoa(settings.FairnessWeight),
		models.SettingAutoAssignEnabled:   strconv.FormatBool(settings.AutoAssignEnabled),
		models.SettingAutoAssignThreshold: strconv.Itoa(settings.AutoAssignThreshold),
	}

	for key, value := range values {
		_, err := r.db.Exec(ctx, `
			INSERT INTO ai_router_settings (setting_key, setting_value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (setting_key) DO UPDATE SET setting_value = $2, updated_at = now()`,
			key, value)
		if err != nil {
			return fmt.Errorf("failed to upsert router setting %s: %w", key, err)
		}
	}
	return nil
}

func parseIntOr(value string, fallback int) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
