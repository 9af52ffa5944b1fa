// Package auth provides JWT-based authentication for leadwerk-engine.
// It validates tokens issued by the external identity provider using its
// JWKS endpoint.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// RoleAdmin marks back-office accounts. Everything else is a partner.
const RoleAdmin = "admin"

// Claims represents the identity provider's JWT claims. The subject is the
// partner account id (profiles.id).
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// IsAdmin reports whether the token belongs to a back-office account.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// PartnerIDFromContext extracts the authenticated partner id from the
// context. Returns an error if not authenticated or the subject is not a
// UUID.
func PartnerIDFromContext(ctx context.Context) (uuid.UUID, error) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return uuid.Nil, fmt.Errorf("authentication required: no claims in context")
	}

	partnerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject in token: %w", err)
	}
	return partnerID, nil
}
