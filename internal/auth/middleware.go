package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/fleet-auth/internal/events"
	"github.com/spec-kit/fleet-auth/internal/observability"
	apperrors "github.com/spec-kit/fleet-auth/pkg/util/errorutil"
)

const roleKey = "auth_role"

type roleContextKey struct{}

// Rejection messages returned to callers.
const (
	ReasonMissingHeader = "missing Authorization header"
	ReasonInvalidToken  = "invalid or expired token"
	ReasonNotAuthorized = "token not authorized for this service"
)

// TokenChecker decides admit/deny for a token at a named service.
type TokenChecker interface {
	Check(token, localServiceName string) (string, error)
}

// InterceptorDependencies bundles optional collaborators.
type InterceptorDependencies struct {
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Dispatcher events.Dispatcher
}

// Interceptor guards every inbound request of one service.
type Interceptor struct {
	checker     TokenChecker
	serviceName string
	logger      *zap.Logger
	metrics     *observability.Metrics
	dispatcher  events.Dispatcher
}

// NewInterceptor constructs the interceptor for serviceName.
func NewInterceptor(checker TokenChecker, serviceName string, deps InterceptorDependencies) *Interceptor {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interceptor{
		checker:     checker,
		serviceName: serviceName,
		logger:      logger,
		metrics:     deps.Metrics,
		dispatcher:  deps.Dispatcher,
	}
}

// Handle rejects the request with 401 unless it carries a bearer token admitted for this service.
func (m *Interceptor) Handle(c *fiber.Ctx) error {
	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return m.deny(c, ReasonMissingHeader, nil)
	}

	role, err := m.checker.Check(token, m.serviceName)
	if err != nil {
		return m.deny(c, DenialReason(err), err)
	}

	m.metrics.RecordDecision(observability.OutcomeAdmitted, "")
	c.Locals(roleKey, role)
	c.SetUserContext(WithRole(c.UserContext(), role))
	return c.Next()
}

func (m *Interceptor) deny(c *fiber.Ctx, reason string, cause error) error {
	requestID := observability.RequestID(c)
	m.logger.Warn("request rejected",
		zap.String("request_id", requestID),
		zap.String("service", m.serviceName),
		zap.String("reason", reason),
		zap.Error(cause),
	)
	m.metrics.RecordDecision(observability.OutcomeDenied, reason)

	if m.dispatcher != nil {
		event := events.NewEvent(events.EventAccessDenied, m.serviceName)
		event.Reason = reason
		event.RequestID = requestID
		if err := m.dispatcher.Publish(c.UserContext(), event); err != nil {
			m.logger.Warn("publish access_denied", zap.Error(err))
		}
	}
	return apperrors.NewUnauthorized(reason, cause)
}

// DenialReason maps a verifier error to the message returned to the caller.
func DenialReason(err error) string {
	if errors.Is(err, ErrAudienceMismatch) {
		return ReasonNotAuthorized
	}
	return ReasonInvalidToken
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// RoleFromContext returns the role attached by Handle.
func RoleFromContext(c *fiber.Ctx) (string, bool) {
	role, ok := c.Locals(roleKey).(string)
	return role, ok && role != ""
}

// WithRole attaches role to ctx for code below the transport layer.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleContextKey{}, role)
}

// RoleFromUserContext returns the role attached with WithRole.
func RoleFromUserContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(roleContextKey{}).(string)
	return role, ok && role != ""
}
