package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/fleet-auth/internal/auth"
	"github.com/spec-kit/fleet-auth/internal/events"
	"github.com/spec-kit/fleet-auth/internal/observability"
	"github.com/spec-kit/fleet-auth/internal/repository"
	apperrors "github.com/spec-kit/fleet-auth/pkg/util/errorutil"
)

const reasonInvalidCredentials = "invalid credentials"

// TokenMinter is the issuer half of the protocol.
type TokenMinter interface {
	Mint(subject, role string) (*auth.IssuedToken, error)
}

// PasswordChecker verifies a plaintext password against a stored hash.
type PasswordChecker interface {
	Compare(hashed, plain string) error
	CompareDummy(plain string)
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Principals  repository.PrincipalRepository
	Minter      TokenMinter
	Passwords   PasswordChecker
	Limiter     LoginLimiter
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	ServiceName string
}

// AuthService authenticates principals and hands them a signed token.
type AuthService struct {
	principals  repository.PrincipalRepository
	minter      TokenMinter
	passwords   PasswordChecker
	limiter     LoginLimiter
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	serviceName string
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = noopLimiter{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		principals:  deps.Principals,
		minter:      deps.Minter,
		passwords:   deps.Passwords,
		limiter:     limiter,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		serviceName: deps.ServiceName,
	}
}

// Login checks credentials and mints a token for the principal's role.
func (s *AuthService) Login(ctx context.Context, username, password string) (*auth.IssuedToken, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.NewValidationError("username and password required", nil)
	}

	allowed, err := s.limiter.Allow(ctx, username)
	if err != nil {
		s.logger.Warn("login limiter unavailable", zap.Error(err))
	}
	if !allowed {
		s.publish(ctx, events.EventLoginRejected, username, "", "too many failed attempts")
		return nil, apperrors.NewTooManyRequests("too many failed login attempts")
	}

	principal, err := s.principals.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrPrincipalNotFound) {
			s.passwords.CompareDummy(password)
			return nil, s.rejectCredentials(ctx, username)
		}
		return nil, apperrors.NewInternalError(err)
	}

	if err := s.passwords.Compare(principal.PasswordHash, password); err != nil {
		return nil, s.rejectCredentials(ctx, username)
	}
	if !principal.Active {
		return nil, s.rejectCredentials(ctx, username)
	}

	if err := s.limiter.Reset(ctx, username); err != nil {
		s.logger.Warn("reset login failures", zap.Error(err))
	}

	issued, err := s.minter.Mint(principal.Username, string(principal.Role))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.metrics.RecordIssued(issued.Role)
	s.publish(ctx, events.EventTokenIssued, issued.Subject, issued.Role, "")
	return issued, nil
}

func (s *AuthService) rejectCredentials(ctx context.Context, username string) error {
	if err := s.limiter.RecordFailure(ctx, username); err != nil {
		s.logger.Warn("record login failure", zap.Error(err))
	}
	s.publish(ctx, events.EventLoginRejected, username, "", reasonInvalidCredentials)
	return apperrors.NewUnauthorized(reasonInvalidCredentials, nil)
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, subject, role, reason string) {
	if s.dispatcher == nil {
		return
	}
	event := events.NewEvent(eventType, s.serviceName)
	event.Subject = subject
	event.Role = role
	event.Reason = reason
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("type", string(eventType)), zap.Error(err))
	}
}
