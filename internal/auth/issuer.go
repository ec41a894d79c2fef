package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var (
	// ErrEmptySubject is returned when minting without a principal identifier.
	ErrEmptySubject = errors.New("subject is required")
	// ErrEmptyRole is returned when minting without a role.
	ErrEmptyRole = errors.New("role is required")
)

// IssuedToken is a signed token plus the claims it carries.
type IssuedToken struct {
	Token     string
	Subject   string
	Role      string
	Audience  []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer mints signed, time-bounded tokens scoped by the policy table.
type Issuer struct {
	secret   []byte
	lifetime time.Duration
	policy   *PolicyTable
	now      func() time.Time
}

// NewIssuer builds an issuer. The secret and a positive lifetime are required.
func NewIssuer(settings Settings, policy *PolicyTable, opts ...Option) (*Issuer, error) {
	if err := settings.validateSecret(); err != nil {
		return nil, err
	}
	if settings.TokenLifetime <= 0 {
		return nil, errors.New("auth: token lifetime must be positive")
	}
	if policy == nil {
		return nil, errors.New("auth: policy table is required")
	}
	o := buildOptions(opts)
	return &Issuer{
		secret:   settings.Secret,
		lifetime: settings.TokenLifetime,
		policy:   policy,
		now:      o.now,
	}, nil
}

// Policy returns the table consulted at mint time.
func (i *Issuer) Policy() *PolicyTable {
	return i.policy
}

// Mint signs a token for an already authenticated subject.
func (i *Issuer) Mint(subject, role string) (*IssuedToken, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, ErrEmptySubject
	}
	if strings.TrimSpace(role) == "" {
		return nil, ErrEmptyRole
	}

	audience := i.policy.ResolveAudiences(role)
	issuedAt := jwt.NewNumericDate(i.now())
	expiresAt := jwt.NewNumericDate(issuedAt.Add(i.lifetime))

	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
	}

	tokenString, err := jwt.NewWithClaims(signingMethod, claims).SignedString(i.secret)
	if err != nil {
		return nil, err
	}

	return &IssuedToken{
		Token:     tokenString,
		Subject:   subject,
		Role:      role,
		Audience:  audience,
		IssuedAt:  issuedAt.Time,
		ExpiresAt: expiresAt.Time,
	}, nil
}
