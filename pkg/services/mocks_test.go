package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/leadwerk/leadwerk-engine/pkg/models"
	"github.com/leadwerk/leadwerk-engine/pkg/notify"
)

// Hand-written function-field mocks for the repository interfaces. Tests set
// only the functions they need; unset functions panic, which surfaces
// unexpected calls immediately.

type mockLeadRepo struct {
	getByID            func(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	list               func(ctx context.Context, filter models.LeadFilter) ([]*models.Lead, error)
	create             func(ctx context.Context, lead *models.Lead) error
	updateAssignmentTx func(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, update models.LeadAssignmentUpdate) (*models.Lead, error)
	updateAcceptanceTx func(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, price decimal.Decimal, acceptedAt time.Time) (*models.Lead, error)
	updateApproval     func(ctx context.Context, leadID uuid.UUID, approvedAt time.Time) error
	updateDetails      func(ctx context.Context, leadID uuid.UUID, update models.LeadDetailsUpdate) (*models.Lead, error)
}

func (m *mockLeadRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	return m.getByID(ctx, id)
}

func (m *mockLeadRepo) List(ctx context.Context, filter models.LeadFilter) ([]*models.Lead, error) {
	return m.list(ctx, filter)
}

func (m *mockLeadRepo) Create(ctx context.Context, lead *models.Lead) error {
	return m.create(ctx, lead)
}

func (m *mockLeadRepo) UpdateAssignmentTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, update models.LeadAssignmentUpdate) (*models.Lead, error) {
	return m.updateAssignmentTx(ctx, tx, leadID, update)
}

func (m *mockLeadRepo) UpdateAcceptanceTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, price decimal.Decimal, acceptedAt time.Time) (*models.Lead, error) {
	return m.updateAcceptanceTx(ctx, tx, leadID, price, acceptedAt)
}

func (m *mockLeadRepo) UpdateApproval(ctx context.Context, leadID uuid.UUID, approvedAt time.Time) error {
	return m.updateApproval(ctx, leadID, approvedAt)
}

func (m *mockLeadRepo) UpdateDetails(ctx context.Context, leadID uuid.UUID, update models.LeadDetailsUpdate) (*models.Lead, error) {
	return m.updateDetails(ctx, leadID, update)
}

type mockPartnerRepo struct {
	getByID                        func(ctx context.Context, id uuid.UUID) (*models.Partner, error)
	listActiveRouting              func(ctx context.Context) ([]*models.Partner, error)
	listEnabledIndustryPreferences func(ctx context.Context, partnerID uuid.UUID) ([]uuid.UUID, error)
	getForUpdateTx                 func(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Partner, error)
	updateBalanceTx                func(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error
}

func (m *mockPartnerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	return m.getByID(ctx, id)
}

func (m *mockPartnerRepo) ListActiveRouting(ctx context.Context) ([]*models.Partner, error) {
	return m.listActiveRouting(ctx)
}

func (m *mockPartnerRepo) ListEnabledIndustryPreferences(ctx context.Context, partnerID uuid.UUID) ([]uuid.UUID, error) {
	return m.listEnabledIndustryPreferences(ctx, partnerID)
}

func (m *mockPartnerRepo) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Partner, error) {
	return m.getForUpdateTx(ctx, tx, id)
}

func (m *mockPartnerRepo) UpdateBalanceTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	return m.updateBalanceTx(ctx, tx, id, balance)
}

type mockStatsRepo struct {
	listAll      func(ctx context.Context) ([]*models.PerformanceStats, error)
	getByPartner func(ctx context.Context, partnerID uuid.UUID) (*models.PerformanceStats, error)
}

func (m *mockStatsRepo) ListAll(ctx context.Context) ([]*models.PerformanceStats, error) {
	return m.listAll(ctx)
}

func (m *mockStatsRepo) GetByPartner(ctx context.Context, partnerID uuid.UUID) (*models.PerformanceStats, error) {
	return m.getByPartner(ctx, partnerID)
}

type mockSettingsRepo struct {
	get    func(ctx context.Context) (models.RouterSettings, error)
	update func(ctx context.Context, settings models.RouterSettings) error
}

func (m *mockSettingsRepo) Get(ctx context.Context) (models.RouterSettings, error) {
	return m.get(ctx)
}

func (m *mockSettingsRepo) Update(ctx context.Context, settings models.RouterSettings) error {
	return m.update(ctx, settings)
}

type mockSubscriptionRepo struct {
	listByPartner     func(ctx context.Context, partnerID uuid.UUID) ([]*models.Subscription, error)
	getMonthlyUsage   func(ctx context.Context, partnerID uuid.UUID) (*models.MonthlyUsage, error)
	getMonthlyUsageTx func(ctx context.Context, tx pgx.Tx, partnerID uuid.UUID) (*models.MonthlyUsage, error)
}

func (m *mockSubscriptionRepo) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]*models.Subscription, error) {
	return m.listByPartner(ctx, partnerID)
}

func (m *mockSubscriptionRepo) GetMonthlyUsage(ctx context.Context, partnerID uuid.UUID) (*models.MonthlyUsage, error) {
	return m.getMonthlyUsage(ctx, partnerID)
}

func (m *mockSubscriptionRepo) GetMonthlyUsageTx(ctx context.Context, tx pgx.Tx, partnerID uuid.UUID) (*models.MonthlyUsage, error) {
	return m.getMonthlyUsageTx(ctx, tx, partnerID)
}

type mockPaymentRepo struct {
	listPaymentMethods func(ctx context.Context, partnerID uuid.UUID, statuses []string) ([]*models.PaymentMethod, error)
	createPaymentTx    func(ctx context.Context, tx pgx.Tx, payment *models.Payment) error
}

func (m *mockPaymentRepo) ListPaymentMethods(ctx context.Context, partnerID uuid.UUID, statuses []string) ([]*models.PaymentMethod, error) {
	return m.listPaymentMethods(ctx, partnerID, statuses)
}

func (m *mockPaymentRepo) CreatePaymentTx(ctx context.Context, tx pgx.Tx, payment *models.Payment) error {
	return m.createPaymentTx(ctx, tx, payment)
}

type mockIndustryRepo struct {
	getByID func(ctx context.Context, id uuid.UUID) (*models.Industry, error)
}

func (m *mockIndustryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Industry, error) {
	return m.getByID(ctx, id)
}

type mockAssignmentLogRepo struct {
	createTx   func(ctx context.Context, tx pgx.Tx, entry *models.AssignmentLog) error
	listByLead func(ctx context.Context, leadID uuid.UUID) ([]*models.AssignmentLog, error)
}

func (m *mockAssignmentLogRepo) CreateTx(ctx context.Context, tx pgx.Tx, entry *models.AssignmentLog) error {
	return m.createTx(ctx, tx, entry)
}

func (m *mockAssignmentLogRepo) ListByLead(ctx context.Context, leadID uuid.UUID) ([]*models.AssignmentLog, error) {
	return m.listByLead(ctx, leadID)
}

type mockActivityLogRepo struct {
	create func(ctx context.Context, activity *models.LeadActivity) error
}

func (m *mockActivityLogRepo) Create(ctx context.Context, activity *models.LeadActivity) error {
	return m.create(ctx, activity)
}

type mockSelector struct {
	getCandidates func(ctx context.Context, leadID uuid.UUID) ([]*Candidate, error)
	scorePartner  func(ctx context.Context, leadID, partnerID uuid.UUID) (*Candidate, error)
	settings      func(ctx context.Context) models.RouterSettings
}

func (m *mockSelector) GetCandidates(ctx context.Context, leadID uuid.UUID) ([]*Candidate, error) {
	return m.getCandidates(ctx, leadID)
}

func (m *mockSelector) ScorePartner(ctx context.Context, leadID, partnerID uuid.UUID) (*Candidate, error) {
	return m.scorePartner(ctx, leadID, partnerID)
}

func (m *mockSelector) Settings(ctx context.Context) models.RouterSettings {
	if m.settings == nil {
		return models.DefaultRouterSettings()
	}
	return m.settings(ctx)
}

type mockGate struct {
	check func(ctx context.Context, leadID, partnerID uuid.UUID) (*Eligibility, error)
}

func (m *mockGate) Check(ctx context.Context, leadID, partnerID uuid.UUID) (*Eligibility, error) {
	return m.check(ctx, leadID, partnerID)
}

type mockAssigner struct {
	assignToPartner func(ctx context.Context, leadID, partnerID uuid.UUID, assignedBy string) (*AssignmentResult, error)
	autoAssign      func(ctx context.Context, leadID uuid.UUID) (*AssignmentResult, error)
	autoAssignBatch func(ctx context.Context, leadIDs []uuid.UUID) (*BatchResult, error)
}

func (m *mockAssigner) AssignToPartner(ctx context.Context, leadID, partnerID uuid.UUID, assignedBy string) (*AssignmentResult, error) {
	return m.assignToPartner(ctx, leadID, partnerID, assignedBy)
}

func (m *mockAssigner) AutoAssign(ctx context.Context, leadID uuid.UUID) (*AssignmentResult, error) {
	return m.autoAssign(ctx, leadID)
}

func (m *mockAssigner) AutoAssignBatch(ctx context.Context, leadIDs []uuid.UUID) (*BatchResult, error) {
	return m.autoAssignBatch(ctx, leadIDs)
}

// recordingSink captures published events.
type recordingSink struct {
	events []notify.Event
	err    error
}

func (s *recordingSink) Publish(_ context.Context, event notify.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Close() error { return nil }
