//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadwerk/leadwerk-engine/pkg/apperrors"
	"github.com/leadwerk/leadwerk-engine/pkg/database"
	"github.com/leadwerk/leadwerk-engine/pkg/models"
	"github.com/leadwerk/leadwerk-engine/pkg/testhelpers"
)

func createIndustry(t *testing.T, db *database.DB, price string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(context.Background(),
		`INSERT INTO industries (id, name, price_per_lead) VALUES ($1, $2, $3::numeric)`,
		id, "industry-"+id.String()[:8], price)
	require.NoError(t, err)
	return id
}

func createPartner(t *testing.T, db *database.DB, balance string, active bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(context.Background(),
		`INSERT INTO profiles (id, company_name, primary_branch, regions, is_active_for_routing, balance)
		 VALUES ($1, $2, 'Dakdekker', ARRAY['Utrecht'], $3, $4::numeric)`,
		id, "partner-"+id.String()[:8], active, balance)
	require.NoError(t, err)
	return id
}

func createSubscription(t *testing.T, db *database.DB, partnerID uuid.UUID, quota int, status string) {
	t.Helper()
	_, err := db.Exec(context.Background(),
		`INSERT INTO subscriptions (user_id, leads_per_month, status) VALUES ($1, $2, $3)`,
		partnerID, quota, status)
	require.NoError(t, err)
}

func createLead(t *testing.T, repo LeadRepository, industryID uuid.UUID) *models.Lead {
	t.Helper()
	lead := &models.Lead{
		Name:       "Integratie Test",
		Email:      "test@example.nl",
		Phone:      "0612345678",
		IndustryID: &industryID,
		Province:   "Utrecht",
		Postcode:   "3511AB",
	}
	require.NoError(t, repo.Create(context.Background(), lead))
	return lead
}

func TestLeadRepository_CreateAndGet(t *testing.T) {
	db := testhelpers.GetEngineDB(t).DB
	repo := NewLeadRepository(db)
	industryID := createIndustry(t, db, "35.00")

	lead := createLead(t, repo, industryID)

	got, err := repo.GetByID(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, lead.ID, got.ID)
	assert.Equal(t, "Integratie Test", got.Name)
	assert.Equal(t, models.LeadStatusNew, got.Status)
	assert.Equal(t, &industryID, got.IndustryID)
	assert.Nil(t, got.AssignedTo)
}

func TestLeadRepository_GetByIDNotFound(t *testing.T) {
	db := testhelpers.GetEngineDB(t).DB
	repo := NewLeadRepository(db)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLeadRepository_ListUnassigned(t *testing.T) {
	db := testhelpers.GetEngineDB(t).DB
	repo := NewLeadRepository(db)
	industryID := createIndustry(t, db, "35.00")
	lead := createLead(t, repo, industryID)

	leads, err := repo.List(context.Background(), models.LeadFilter{
		Status:     models.LeadStatusNew,
		Unassigned: true,
		IndustryID: &industryID,
	})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, lead.ID, leads[0].ID)
}

func TestLeadRepository_AssignmentTransaction(t *testing.T) {
	db := testhelpers.GetEngineDB(t).DB
	ctx := context.Background()
	leadRepo := NewLeadRepository(db)
	partnerRepo := NewPartnerRepository(db)
	logRepo := NewAssignmentLogRepository(db)

	industryID := createIndustry(t, db, "35.00")
	partnerID := createPartner(t, db, "100.00", true)
	lead := createLead(t, leadRepo, industryID)

	tx, err := db.Pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	_, err = partnerRepo.GetForUpdateTx(ctx, tx, partnerID)
	require.NoError(t, err)

	assignedAt := time.Now()
	updated, err := leadRepo.UpdateAssignmentTx(ctx, tx, lead.ID, models.LeadAssignmentUpdate{
		AssignedTo:        partnerID,
		AssignedBy:        models.AssignedByAuto,
		AssignmentScore:   187.5,
		AssignmentFactors: map[string]any{"branchMatch": 100.0},
		AssignedAt:        assignedAt,
	})
	require.NoError(t, err)

	require.NoError(t, logRepo.CreateTx(ctx, tx, &models.AssignmentLog{
		LeadID:     lead.ID,
		AssignedTo: partnerID,
		AssignedBy: models.AssignedByAuto,
		Score:      187.5,
		RawFactors: map[string]any{"totalScore": 187.5},
	}))
	require.NoError(t, tx.Commit(ctx))

	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, partnerID, *updated.AssignedTo)
	// user_id mirrors assigned_to.
	require.NotNil(t, updated.UserID)
	assert.Equal(t, partnerID, *updated.UserID)
	require.NotNil(t, updated.AssignmentScore)
	assert.Equal(t, 187.5, *updated.AssignmentScore)
	assert.Equal(t, 100.0, updated.AssignmentFactors["branchMatch"])

	history, err := logRepo.ListByLead(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, partnerID, history[0].AssignedTo)
	assert.Equal(t, 187.5, history[0].Score)
}

func TestLeadRepository_AcceptanceAndApproval(t *testing.T) {
	db := testhelpers.GetEngineDB(t).DB
	ctx := context.Background()
	leadRepo := NewLeadRepository(db)

	industryID := createIndustry(t, db, "35.00")
	partnerID := createPartner(t, db, "100.00", true)
	lead := createLead(t, leadRepo, industryID)
	assignLead(t, db, lead.ID, partnerID)

	price := decimal.NewFromInt(35)
	tx, err := db.Pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	accepted, err := leadRepo.UpdateAcceptanceTx(ctx, tx, lead.ID, price, time.Now())
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	assert.Equal(t, models.LeadStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.PriceAtPurchase)
	assert.True(t, accepted.PriceAtPurchase.Equal(price))
	assert.NotNil(t, accepted.AcceptedAt)

	require.NoError(t, leadRepo.UpdateApproval(ctx, lead.ID, time.Now()))
	approved, err := leadRepo.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusApproved, approved.Status)
	assert.NotNil(t, approved.ApprovedAt)
}

func TestLeadRepository_UpdateDetailsPartial(t *testing.T) {
	db := testhelpers.GetEngineDB(t).DB
	leadRepo := NewLeadRepository(db)
	industryID := createIndustry(t, db, "35.00")
	lead := createLead(t, leadRepo, industryID)

	name := "Nieuwe Naam"
	updated, err := leadRepo.UpdateDetails(context.Background(), lead.ID, models.LeadDetailsUpdate{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "Nieuwe Naam", updated.Name)
	// Untouched fields keep their values.
	assert.Equal(t, lead.Email, updated.Email)
	assert.Equal(t, lead.Province, updated.Province)
}

func TestSubscriptionRepository_MonthlyUsage(t *testing.T) {
	db := testhelpers.GetEngineDB(t).DB
	ctx := context.Background()
	leadRepo := NewLeadRepository(db)
	subRepo := NewSubscriptionRepository(db)

	industryID := createIndustry(t, db, "35.00")
	partnerID := createPartner(t, db, "100.00", true)
	createSubscription(t, db, partnerID, 10, models.SubscriptionStatusActive)

	// A freshly assigned lead does not consume accepted quota yet, but it
	// must move assigned_count: that is the number the commit transaction
	// re-checks, so every commit has to be visible to the next one.
	first := createLead(t, leadRepo, industryID)
	assignLead(t, db, first.ID, partnerID)

	usage, err := subRepo.GetMonthlyUsage(ctx, partnerID)
	require.NoError(t, err)
	assert.Equal(t, 0, usage.EffectiveCount)
	assert.Equal(t, 1, usage.AssignedCount)

	// Acceptance makes it count.
	tx, err := db.Pool.Begin(ctx)
	require.NoError(t, err)
	_, err = leadRepo.UpdateAcceptanceTx(ctx, tx, first.ID, decimal.NewFromInt(35), time.Now())
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	usage, err = subRepo.GetMonthlyUsage(ctx, partnerID)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.EffectiveCount)
	assert.Equal(t, 1, usage.AssignedCount)
	assert.Equal(t, 0, usage.ApprovedCount)

	require.NoError(t, leadRepo.UpdateApproval(ctx, first.ID, time.Now()))

	usage, err = subRepo.GetMonthlyUsage(ctx, partnerID)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.EffectiveCount)
	assert.Equal(t, 1, usage.ApprovedCount)

	subs, err := subRepo.ListByPartner(ctx, partnerID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.NotNil(t, subs[0].LeadsPerMonth)
	assert.Equal(t, 10, *subs[0].LeadsPerMonth)
}

func TestPartnerRepository_ListActiveRouting(t *testing.T) {
	db := testhelpers.GetEngineDB(t).DB
	repo := NewPartnerRepository(db)

	activeID := createPartner(t, db, "0.00", true)
	inactiveID := createPartner(t, db, "0.00", false)

	partners, err := repo.ListActiveRouting(context.Background())
	require.NoError(t, err)

	ids := make(map[uuid.UUID]bool, len(partners))
	for _, p := range partners {
		ids[p.ID] = true
	}
	assert.True(t, ids[activeID])
	assert.False(t, ids[inactiveID])
}

func TestPartnerRepository_IndustryPreferences(t *testing.T) {
	db := testhelpers.GetEngineDB(t).DB
	repo := NewPartnerRepository(db)

	partnerID := createPartner(t, db, "0.00", true)
	enabled := createIndustry(t, db, "35.00")
	disabled := createIndustry(t, db, "20.00")
	_, err := db.Exec(context.Background(),
		`INSERT INTO user_industry_preferences (user_id, industry_id, is_enabled) VALUES ($1, $2, true), ($1, $3, false)`,
		partnerID, enabled, disabled)
	require.NoError(t, err)

	prefs, err := repo.ListEnabledIndustryPreferences(context.Background(), partnerID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{enabled}, prefs)
}

func TestSettingsRepository_Roundtrip(t *testing.T) {
	db := testhelpers.GetEngineDB(t).DB
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	initial, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, initial.RegionWeight)

	updated := models.RouterSettings{
		RegionWeight:        70,
		PerformanceWeight:   30,
		FairnessWeight:      60,
		AutoAssignEnabled:   false,
		AutoAssignThreshold: 40,
	}
	require.NoError(t, repo.Update(ctx, updated))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	// Restore defaults for other tests sharing the container.
	require.NoError(t, repo.Update(ctx, initial))
}

func TestPaymentRepository_MethodsAndPayments(t *testing.T) {
	db := testhelpers.GetEngineDB(t).DB
	ctx := context.Background()
	repo := NewPaymentRepository(db)
	partnerID := createPartner(t, db, "50.00", true)

	_, err := db.Exec(ctx,
		`INSERT INTO payment_methods (user_id, type, status) VALUES ($1, 'sepa', 'active'), ($1, 'credit_card', 'failed')`,
		partnerID)
	require.NoError(t, err)

	methods, err := repo.ListPaymentMethods(ctx, partnerID,
		[]string{models.PaymentMethodStatusActive, models.PaymentMethodStatusPending})
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, models.PaymentMethodSEPA, methods[0].Type)

	tx, err := db.Pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	payment := &models.Payment{
		PartnerID:   partnerID,
		Amount:      decimal.NewFromInt(35),
		Description: "Lead: Integratie Test",
		Status:      models.PaymentStatusPaid,
		Details:     map[string]any{"strategy": models.BillingBalanceOnly},
	}
	require.NoError(t, repo.CreatePaymentTx(ctx, tx, payment))
	require.NoError(t, tx.Commit(ctx))
	assert.NotEqual(t, uuid.Nil, payment.ID)
}

func TestStatsRepository_ListAll(t *testing.T) {
	db := testhelpers.GetEngineDB(t).DB
	ctx := context.Background()
	repo := NewStatsRepository(db)
	partnerID := createPartner(t, db, "0.00", true)

	_, err := db.Exec(ctx,
		`INSERT INTO partner_performance_stats (partner_id, open_leads_count, ai_trust_score) VALUES ($1, 3, 85)`,
		partnerID)
	require.NoError(t, err)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)

	var found *models.PerformanceStats
	for _, s := range all {
		if s.PartnerID == partnerID {
			found = s
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, 3, found.OpenLeadsCount)
	require.NotNil(t, found.AITrustScore)
	assert.Equal(t, 85.0, *found.AITrustScore)

	byPartner, err := repo.GetByPartner(ctx, partnerID)
	require.NoError(t, err)
	assert.Equal(t, 3, byPartner.OpenLeadsCount)
}

// assignLead commits a minimal assignment outside the executor, for tests
// that only need an assigned lead as a precondition.
func assignLead(t *testing.T, db *database.DB, leadID, partnerID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	repo := NewLeadRepository(db)
	tx, err := db.Pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	_, err = repo.UpdateAssignmentTx(ctx, tx, leadID, models.LeadAssignmentUpdate{
		AssignedTo:      partnerID,
		AssignedBy:      models.AssignedByAdmin,
		AssignmentScore: 100,
		AssignedAt:      time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
}
