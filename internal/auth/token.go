package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Claims describes the JWT payload shared by the issuer and every verifier.
// Subject, audience and timestamps use the registered sub, aud, iat and exp claims.
type Claims struct {
	Role string `json:"rol"`
	jwt.RegisteredClaims
}

// signingMethod is the only algorithm the fleet accepts.
var signingMethod = jwt.SigningMethodHS256

// Settings is the process-wide signing configuration handed to both Issuer and Verifier.
type Settings struct {
	Secret        []byte
	TokenLifetime time.Duration
}

// Option customizes an Issuer or Verifier.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (s Settings) validateSecret() error {
	if len(s.Secret) == 0 {
		return errors.New("auth: signing secret is required")
	}
	return nil
}
