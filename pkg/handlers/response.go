package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/leadwerk/leadwerk-engine/pkg/apperrors"
)

// ApiResponse wraps data in the format expected by the frontend.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// EligibilityResponse is the error body for eligibility-gate rejections. The
// numbers let the frontend render an explanatory message.
type EligibilityResponse struct {
	Error            string `json:"error"`
	Message          string `json:"message"`
	Quota            int    `json:"quota,omitempty"`
	Used             int    `json:"used,omitempty"`
	Remaining        int    `json:"remaining,omitempty"`
	RequiredBalance  string `json:"required_balance,omitempty"`
	AvailableBalance string `json:"available_balance,omitempty"`
}

// User-facing messages ship in Dutch; log and internal messages stay English.
var eligibilityMessages = map[apperrors.EligibilityReason]string{
	apperrors.ReasonIndustryMismatch:    "Bedrijf heeft geen toegang tot deze branche",
	apperrors.ReasonNoQuota:             "Geen actief abonnement met leadtegoed",
	apperrors.ReasonPartnerPaused:       "Abonnement is gepauzeerd",
	apperrors.ReasonQuotaExceeded:       "Maandelijks leadtegoed is verbruikt",
	apperrors.ReasonNoPaymentMethod:     "Geen geldige betaalmethode gevonden",
	apperrors.ReasonInsufficientBalance: "Onvoldoende saldo om deze lead te ontvangen",
}

// WriteServiceError maps service-layer errors onto HTTP responses. Expected
// conditions (not found, gate rejections) are never logged as errors;
// everything else becomes a 500.
func WriteServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if eligErr, ok := apperrors.AsEligibility(err); ok {
		message := eligibilityMessages[eligErr.Reason]
		if message == "" {
			message = eligErr.Error()
		}
		body := EligibilityResponse{
			Error:   string(eligErr.Reason),
			Message: message,
			Quota:   eligErr.Quota,
			Used:    eligErr.Used,
		}
		if eligErr.Reason == apperrors.ReasonQuotaExceeded || eligErr.Reason == apperrors.ReasonNoQuota {
			body.Remaining = eligErr.Remaining
		}
		if eligErr.Reason == apperrors.ReasonInsufficientBalance {
			body.RequiredBalance = eligErr.RequiredBalance.StringFixed(2)
			body.AvailableBalance = eligErr.AvailableBalance.StringFixed(2)
		}
		if err := WriteJSON(w, http.StatusForbidden, body); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var status int
	var code, message string
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", "Niet gevonden"
	case errors.Is(err, apperrors.ErrLeadAlreadyFinal):
		status, code, message = http.StatusConflict, "lead_already_final", "Lead is al geaccepteerd of afgewezen"
	case errors.Is(err, apperrors.ErrNoEligiblePartner):
		status, code, message = http.StatusUnprocessableEntity, "no_eligible_partner", "Geen geschikt bedrijf gevonden"
	case errors.Is(err, apperrors.ErrAutoAssignDisabled):
		status, code, message = http.StatusConflict, "auto_assign_disabled", "Automatisch toewijzen staat uit"
	case errors.Is(err, apperrors.ErrAcceptedLeadImmutable):
		status, code, message = http.StatusConflict, "lead_immutable", "Geaccepteerde leads kunnen niet meer worden aangepast"
	default:
		logger.Error("Request failed", zap.Error(err))
		status, code, message = http.StatusInternalServerError, "internal_error", "Er is iets misgegaan"
	}

	if err := ErrorResponse(w, status, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
