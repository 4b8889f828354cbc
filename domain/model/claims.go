package model

import "github.com/golang-jwt/jwt"

// UserClaims is the JWT payload issued by the identity service. WorkspaceID
// and TenantID scope every request; admin-only routes check Role.
type UserClaims struct {
	UserID      string `json:"user_id"`
	WorkspaceID int64  `json:"workspace_id"`
	TenantID    int64  `json:"tenant_id"`
	Role        string `json:"role"`
	jwt.StandardClaims
}
