package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadwerk/leadwerk-engine/pkg/auth"
	"github.com/leadwerk/leadwerk-engine/pkg/models"
	"github.com/leadwerk/leadwerk-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// CreateLeadRequest for POST /api/leads
type CreateLeadRequest struct {
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	IndustryID *uuid.UUID `json:"industry_id,omitempty"`
	Province   string     `json:"province"`
	Postcode   string     `json:"postcode"`
	IsUrgent   bool       `json:"is_urgent"`
}

// AssignLeadRequest for POST /api/leads/{lid}/assign
type AssignLeadRequest struct {
	PartnerID uuid.UUID `json:"partner_id"`
}

// BulkAssignRequest for POST /api/leads/bulk-assign
type BulkAssignRequest struct {
	LeadIDs []uuid.UUID `json:"lead_ids"`
}

// AssignmentResponse describes a committed assignment.
type AssignmentResponse struct {
	Lead    *models.Lead          `json:"lead"`
	Score   float64               `json:"score"`
	Factors services.ScoreFactors `json:"factors"`
}

// RecommendationResponse is one ranked candidate for a lead.
type RecommendationResponse struct {
	PartnerID   uuid.UUID             `json:"partner_id"`
	CompanyName string                `json:"company_name"`
	Score       float64               `json:"score"`
	Factors     services.ScoreFactors `json:"factors"`
}

// LeadListResponse for GET /api/leads
type LeadListResponse struct {
	Leads []*models.Lead `json:"leads"`
	Total int            `json:"total"`
}

// ============================================================================
// Handler
// ============================================================================

// LeadsHandler handles lead lifecycle and routing HTTP requests.
type LeadsHandler struct {
	leadService services.LeadService
	assigner    services.AssignmentService
	logger      *zap.Logger
}

// NewLeadsHandler creates a new leads handler.
func NewLeadsHandler(
	leadService services.LeadService,
	assigner services.AssignmentService,
	logger *zap.Logger,
) *LeadsHandler {
	return &LeadsHandler{
		leadService: leadService,
		assigner:    assigner,
		logger:      logger,
	}
}

// RegisterRoutes registers the leads handler's routes on the given mux.
// Intake is unauthenticated (website forms post here); everything else
// requires a token, and routing control requires the admin role.
func (h *LeadsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/leads", h.Create)
	mux.HandleFunc("GET /api/leads", authMiddleware.RequireAdmin(h.List))
	mux.HandleFunc("GET /api/leads/{lid}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PATCH /api/leads/{lid}", authMiddleware.RequireAdmin(h.UpdateDetails))

	mux.HandleFunc("GET /api/leads/{lid}/recommendations", authMiddleware.RequireAdmin(h.Recommendations))
	mux.HandleFunc("GET /api/leads/{lid}/assignments", authMiddleware.RequireAdmin(h.AssignmentHistory))
	mux.HandleFunc("POST /api/leads/{lid}/assign", authMiddleware.RequireAuth(h.Assign))
	mux.HandleFunc("POST /api/leads/{lid}/auto-assign", authMiddleware.RequireAdmin(h.AutoAssign))
	mux.HandleFunc("POST /api/leads/bulk-assign", authMiddleware.RequireAdmin(h.BulkAssign))

	mux.HandleFunc("POST /api/leads/{lid}/accept", authMiddleware.RequireAuth(h.Accept))
	mux.HandleFunc("POST /api/leads/{lid}/approve", authMiddleware.RequireAdmin(h.Approve))
}

// Create handles POST /api/leads
func (h *LeadsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "Ongeldige aanvraag")
		return
	}
	if req.Name == "" || req.Email == "" {
		h.badRequest(w, "Naam en e-mailadres zijn verplicht")
		return
	}

	lead, err := h.leadService.Create(r.Context(), &models.Lead{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		IndustryID: req.IndustryID,
		Province:   req.Province,
		Postcode:   req.Postcode,
		IsUrgent:   req.IsUrgent,
	})
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: lead}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/leads
func (h *LeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.LeadFilter{
		Status:     r.URL.Query().Get("status"),
		Unassigned: r.URL.Query().Get("unassigned") == "true",
	}

	leads, err := h.leadService.List(r.Context(), filter)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	response := LeadListResponse{Leads: leads, Total: len(leads)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/leads/{lid}
func (h *LeadsHandler) Get(w http.ResponseWriter, r *http.Request) {
	leadID, ok := ParseLeadID(w, r, h.logger)
	if !ok {
		return
	}

	lead, err := h.leadService.Get(r.Context(), leadID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	// Partners only see leads assigned to them.
	claims, _ := auth.GetClaims(r.Context())
	if claims != nil && !claims.IsAdmin() {
		partnerID, err := auth.PartnerIDFromContext(r.Context())
		if err != nil || lead.AssignedTo == nil || *lead.AssignedTo != partnerID {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Niet gevonden"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: lead}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateDetails handles PATCH /api/leads/{lid}
func (h *LeadsHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	leadID, ok := ParseLeadID(w, r, h.logger)
	if !ok {
		return
	}

	var update models.LeadDetailsUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.badRequest(w, "Ongeldige aanvraag")
		return
	}

	lead, err := h.leadService.UpdateDetails(r.Context(), leadID, update)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: lead}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Recommendations handles GET /api/leads/{lid}/recommendations
func (h *LeadsHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	leadID, ok := ParseLeadID(w, r, h.logger)
	if !ok {
		return
	}

	candidates, err := h.leadService.Recommendations(r.Context(), leadID, 0)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	response := make([]RecommendationResponse, len(candidates))
	for i, c := range candidates {
		response[i] = RecommendationResponse{
			PartnerID:   c.PartnerID,
			CompanyName: c.Partner.CompanyName,
			Score:       c.Score.TotalScore,
			Factors:     c.Score.Factors,
		}
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// AssignmentHistory handles GET /api/leads/{lid}/assignments
func (h *LeadsHandler) AssignmentHistory(w http.ResponseWriter, r *http.Request) {
	leadID, ok := ParseLeadID(w, r, h.logger)
	if !ok {
		return
	}

	history, err := h.leadService.AssignmentHistory(r.Context(), leadID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: history}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Assign handles POST /api/leads/{lid}/assign
// Admins may assign any partner; partners may only claim a lead for
// themselves.
func (h *LeadsHandler) Assign(w http.ResponseWriter, r *http.Request) {
	leadID, ok := ParseLeadID(w, r, h.logger)
	if !ok {
		return
	}

	var req AssignLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "Ongeldige aanvraag")
		return
	}
	if req.PartnerID == uuid.Nil {
		h.badRequest(w, "partner_id is verplicht")
		return
	}

	assignedBy := models.AssignedByAdmin
	claims, _ := auth.GetClaims(r.Context())
	if claims != nil && !claims.IsAdmin() {
		assignedBy = models.AssignedByManual
		partnerID, err := auth.PartnerIDFromContext(r.Context())
		if err != nil || partnerID != req.PartnerID {
			if err := ErrorResponse(w, http.StatusForbidden, "forbidden", "Alleen toewijzen aan eigen account"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
	}

	result, err := h.assigner.AssignToPartner(r.Context(), leadID, req.PartnerID, assignedBy)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.writeAssignment(w, result)
}

// AutoAssign handles POST /api/leads/{lid}/auto-assign
func (h *LeadsHandler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	leadID, ok := ParseLeadID(w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.assigner.AutoAssign(r.Context(), leadID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.writeAssignment(w, result)
}

// BulkAssign handles POST /api/leads/bulk-assign
func (h *LeadsHandler) BulkAssign(w http.ResponseWriter, r *http.Request) {
	var req BulkAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "Ongeldige aanvraag")
		return
	}
	if len(req.LeadIDs) == 0 {
		h.badRequest(w, "lead_ids is verplicht")
		return
	}

	result, err := h.assigner.AutoAssignBatch(r.Context(), req.LeadIDs)
	if err != nil {
		// Partial results still go out when the context was cancelled.
		h.logger.Warn("Bulk assign aborted", zap.Error(err))
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Accept handles POST /api/leads/{lid}/accept
// The accepting partner comes from the token, never the body.
func (h *LeadsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	leadID, ok := ParseLeadID(w, r, h.logger)
	if !ok {
		return
	}

	partnerID, err := auth.PartnerIDFromContext(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Inloggen vereist"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	lead, err := h.leadService.Accept(r.Context(), leadID, partnerID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: lead}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Approve handles POST /api/leads/{lid}/approve
func (h *LeadsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	leadID, ok := ParseLeadID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.leadService.Approve(r.Context(), leadID); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Lead goedgekeurd"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *LeadsHandler) writeAssignment(w http.ResponseWriter, result *services.AssignmentResult) {
	response := AssignmentResponse{
		Lead:    result.Lead,
		Score:   result.Score.TotalScore,
		Factors: result.Score.Factors,
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *LeadsHandler) badRequest(w http.ResponseWriter, message string) {
	if err := ErrorResponse(w, http.StatusBadRequest, "bad_request", message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
