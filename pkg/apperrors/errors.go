package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrLeadAlreadyFinal      = errors.New("lead already accepted or rejected")
	ErrNoEligiblePartner     = errors.New("no eligible partner found")
	ErrAcceptedLeadImmutable = errors.New("accepted lead cannot be modified")
	ErrAutoAssignDisabled    = errors.New("auto-assign is disabled")
)

// EligibilityReason identifies which gate check rejected an assignment.
type EligibilityReason string

const (
	ReasonIndustryMismatch    EligibilityReason = "industry_mismatch"
	ReasonNoQuota             EligibilityReason = "no_quota"
	ReasonPartnerPaused       EligibilityReason = "partner_paused"
	ReasonQuotaExceeded       EligibilityReason = "quota_exceeded"
	ReasonNoPaymentMethod     EligibilityReason = "no_payment_method"
	ReasonInsufficientBalance EligibilityReason = "insufficient_balance"
)

// EligibilityError is returned when the quota & billing gate rejects a
// partner. It carries the numbers the caller needs to render an explanatory
// message (current usage vs quota, required vs available balance). These are
// expected, user-recoverable conditions, not system errors.
type EligibilityError struct {
	Reason EligibilityReason

	// Quota detail, set for NoQuota and QuotaExceeded.
	Quota     int
	Used      int
	Remaining int

	// Balance detail, set for InsufficientBalance.
	RequiredBalance  decimal.Decimal
	AvailableBalance decimal.Decimal
}

func (e *EligibilityError) Error() string {
	switch e.Reason {
	case ReasonQuotaExceeded:
		return fmt.Sprintf("partner quota exceeded (%d/%d)", e.Used, e.Quota)
	case ReasonInsufficientBalance:
		return fmt.Sprintf("insufficient balance (required %s, available %s)",
			e.RequiredBalance.StringFixed(2), e.AvailableBalance.StringFixed(2))
	default:
		return string(e.Reason)
	}
}

// AsEligibility reports whether err is an eligibility-gate failure and
// returns the typed error if so.
func AsEligibility(err error) (*EligibilityError, bool) {
	var ee *EligibilityError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
