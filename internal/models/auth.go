package models

import "github.com/golang-jwt/jwt/v5"

// Role is the console role carried in access tokens.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
)

// Valid reports whether r is a known console role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEditor
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}
