package domain

import "time"

// Principal is an authenticated identity that the issuer can mint tokens for.
type Principal struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
