package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadwerk/leadwerk-engine/pkg/metrics"
	"github.com/leadwerk/leadwerk-engine/pkg/models"
	"github.com/leadwerk/leadwerk-engine/pkg/repositories"
)

// Sweeper periodically retries assignment for leads that intake left
// unassigned, for example because no partner had quota at the time.
type Sweeper struct {
	leads    repositories.LeadRepository
	assigner AssignmentService
	metrics  *metrics.Metrics
	interval time.Duration
	batch    int
	logger   *zap.Logger
}

// NewSweeper creates a Sweeper running every interval over at most batch
// leads per pass.
func NewSweeper(
	leads repositories.LeadRepository,
	assigner AssignmentService,
	m *metrics.Metrics,
	interval time.Duration,
	batch int,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		leads:    leads,
		assigner: assigner,
		metrics:  m,
		interval: interval,
		batch:    batch,
		logger:   logger.Named("sweeper"),
	}
}

// Run loops until ctx is cancelled. One pass runs immediately on start.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Sweeper started",
		zap.Duration("interval", s.interval),
		zap.Int("batch_size", s.batch))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	leads, err := s.leads.List(ctx, models.LeadFilter{
		Status:     models.LeadStatusNew,
		Unassigned: true,
		Limit:      s.batch,
	})
	if err != nil {
		s.logger.Error("Sweep pass failed to list unassigned leads", zap.Error(err))
		return
	}
	if len(leads) == 0 {
		return
	}

	ids := make([]uuid.UUID, len(leads))
	for i, lead := range leads {
		ids[i] = lead.ID
	}

	result, err := s.assigner.AutoAssignBatch(ctx, ids)
	if result != nil {
		s.metrics.SweepAssigned.Add(float64(result.Assigned))
		s.logger.Info("Sweep pass finished",
			zap.Int("candidates", len(ids)),
			zap.Int("assigned", result.Assigned),
			zap.Int("failed", result.Failed))
	}
	if err != nil && ctx.Err() == nil {
		s.logger.Error("Sweep pass aborted", zap.Error(err))
	}
}
