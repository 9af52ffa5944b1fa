package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/leadwerk/leadwerk-engine/pkg/models"
	"github.com/leadwerk/leadwerk-engine/pkg/repositories"
)

// SettingsService exposes the router weight configuration to the admin
// surface.
type SettingsService interface {
	Get(ctx context.Context) (models.RouterSettings, error)
	Update(ctx context.Context, settings models.RouterSettings) (models.RouterSettings, error)
}

type settingsService struct {
	settings repositories.SettingsRepository
	logger   *zap.Logger
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(settings repositories.SettingsRepository, logger *zap.Logger) SettingsService {
	return &settingsService{
		settings: settings,
		logger:   logger.Named("settings-service"),
	}
}

var _ SettingsService = (*settingsService)(nil)

func (s *settingsService) Get(ctx context.Context) (models.RouterSettings, error) {
	return s.settings.Get(ctx)
}

func (s *settingsService) Update(ctx context.Context, settings models.RouterSettings) (models.RouterSettings, error) {
	settings.Clamp()

	if err := s.settings.Update(ctx, settings); err != nil {
		return models.RouterSettings{}, fmt.Errorf("update router settings: %w", err)
	}

	s.logger.Info("Router settings updated",
		zap.Int("region_weight", settings.RegionWeight),
		zap.Int("performance_weight", settings.PerformanceWeight),
		zap.Int("fairness_weight", settings.FairnessWeight),
		zap.Bool("auto_assign_enabled", settings.AutoAssignEnabled),
		zap.Int("auto_assign_threshold", settings.AutoAssignThreshold))

	return settings, nil
}
