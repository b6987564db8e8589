// Package auth provides JWT authentication for the dittocore admin API.
package auth

import "github.com/golang-jwt/jwt/v5"

// Roles understood by the admin API.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// Claims are the JWT claims of an admin API token.
type Claims struct {
	jwt.RegisteredClaims

	// Role is "admin" or "viewer". Viewers may only read.
	Role string `json:"role"`
}

// IsAdmin returns true if the token grants admin access.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
