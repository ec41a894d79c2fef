package auth

import (
	"errors"
	"fmt"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Denial reasons. Every Check failure wraps exactly one of these.
var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrAudienceMismatch = errors.New("token not authorized for this service")
)

// Verifier admits or denies a token for a given local service.
// It holds only the shared secret and is safe for concurrent use.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier builds a verifier from the shared signing settings.
func NewVerifier(settings Settings, opts ...Option) (*Verifier, error) {
	if err := settings.validateSecret(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &Verifier{
		secret: settings.Secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(o.now),
		),
	}, nil
}

// Check verifies structure, signature, expiry and audience in that order and
// returns the embedded role when localServiceName is in the token's audience.
func (v *Verifier) Check(token, localServiceName string) (string, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", classify(err)
	}

	if claims.Subject == "" || claims.Role == "" || len(claims.Audience) == 0 {
		return "", fmt.Errorf("%w: missing required claims", ErrMalformedToken)
	}

	local := strings.TrimSpace(localServiceName)
	if local != "" {
		for _, aud := range claims.Audience {
			if strings.EqualFold(aud, local) {
				return claims.Role, nil
			}
		}
	}
	return "", ErrAudienceMismatch
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
}
