package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the only supported JWT claims shape for the admin API.
// Multi-tenant invariant: TenantID must be present on every token; an admin
// token is always scoped to exactly one practice.
type Claims struct {
	jwt.RegisteredClaims

	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}
