package model

import "github.com/golang-jwt/jwt/v5"

// AppClaims is shared by access and refresh tokens; refresh tokens only carry
// UserID and the registered claims.
type AppClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	UserName string `json:"userName,omitempty"`
	Name     string `json:"name,omitempty"`
	jwt.RegisteredClaims
}
