package dto

import "time"

// LoginRequest payload for the issuer's login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned after a successful login.
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	Role      string    `json:"role"`
	Audience  []string  `json:"audience"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IdentityResponse describes the caller as seen by the local service.
type IdentityResponse struct {
	Role    string `json:"role"`
	Service string `json:"service"`
}
