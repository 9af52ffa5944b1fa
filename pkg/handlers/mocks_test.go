package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/leadwerk/leadwerk-engine/pkg/models"
	"github.com/leadwerk/leadwerk-engine/pkg/services"
)

type mockLeadService struct {
	get               func(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	list              func(ctx context.Context, filter models.LeadFilter) ([]*models.Lead, error)
	create            func(ctx context.Context, lead *models.Lead) (*models.Lead, error)
	accept            func(ctx context.Context, leadID, partnerID uuid.UUID) (*models.Lead, error)
	approve           func(ctx context.Context, leadID uuid.UUID) error
	updateDetails     func(ctx context.Context, leadID uuid.UUID, update models.LeadDetailsUpdate) (*models.Lead, error)
	recommendations   func(ctx context.Context, leadID uuid.UUID, limit int) ([]*services.Candidate, error)
	assignmentHistory func(ctx context.Context, leadID uuid.UUID) ([]*models.AssignmentLog, error)
}

func (m *mockLeadService) Get(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	return m.get(ctx, id)
}

func (m *mockLeadService) List(ctx context.Context, filter models.LeadFilter) ([]*models.Lead, error) {
	return m.list(ctx, filter)
}

func (m *mockLeadService) Create(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	return m.create(ctx, lead)
}

func (m *mockLeadService) Accept(ctx context.Context, leadID, partnerID uuid.UUID) (*models.Lead, error) {
	return m.accept(ctx, leadID, partnerID)
}

func (m *mockLeadService) Approve(ctx context.Context, leadID uuid.UUID) error {
	return m.approve(ctx, leadID)
}

func (m *mockLeadService) UpdateDetails(ctx context.Context, leadID uuid.UUID, update models.LeadDetailsUpdate) (*models.Lead, error) {
	return m.updateDetails(ctx, leadID, update)
}

func (m *mockLeadService) Recommendations(ctx context.Context, leadID uuid.UUID, limit int) ([]*services.Candidate, error) {
	return m.recommendations(ctx, leadID, limit)
}

func (m *mockLeadService) AssignmentHistory(ctx context.Context, leadID uuid.UUID) ([]*models.AssignmentLog, error) {
	return m.assignmentHistory(ctx, leadID)
}

type mockAssignmentService struct {
	assignToPartner func(ctx context.Context, leadID, partnerID uuid.UUID, assignedBy string) (*services.AssignmentResult, error)
	autoAssign      func(ctx context.Context, leadID uuid.UUID) (*services.AssignmentResult, error)
	autoAssignBatch func(ctx context.Context, leadIDs []uuid.UUID) (*services.BatchResult, error)
}

func (m *mockAssignmentService) AssignToPartner(ctx context.Context, leadID, partnerID uuid.UUID, assignedBy string) (*services.AssignmentResult, error) {
	return m.assignToPartner(ctx, leadID, partnerID, assignedBy)
}

func (m *mockAssignmentService) AutoAssign(ctx context.Context, leadID uuid.UUID) (*services.AssignmentResult, error) {
	return m.autoAssign(ctx, leadID)
}

func (m *mockAssignmentService) AutoAssignBatch(ctx context.Context, leadIDs []uuid.UUID) (*services.BatchResult, error) {
	return m.autoAssignBatch(ctx, leadIDs)
}

type mockSettingsService struct {
	get    func(ctx context.Context) (models.RouterSettings, error)
	update func(ctx context.Context, settings models.RouterSettings) (models.RouterSettings, error)
}

func (m *mockSettingsService) Get(ctx context.Context) (models.RouterSettings, error) {
	return m.get(ctx)
}

func (m *mockSettingsService) Update(ctx context.Context, settings models.RouterSettings) (models.RouterSettings, error) {
	return m.update(ctx, settings)
}
