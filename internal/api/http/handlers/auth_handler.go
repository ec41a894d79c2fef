package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fleet-auth/internal/api/dto"
	"github.com/spec-kit/fleet-auth/internal/auth"
)

// Authenticator logs a principal in and returns its token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*auth.IssuedToken, error)
}

// AuthHandler exposes the issuer's login endpoint and the per-service identity probe.
type AuthHandler struct {
	auth        Authenticator
	serviceName string
}

// NewAuthHandler constructs handler. authenticator may be nil on non-issuer services.
func NewAuthHandler(authenticator Authenticator, serviceName string) *AuthHandler {
	return &AuthHandler{auth: authenticator, serviceName: serviceName}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	if h.auth == nil {
		return fiber.NewError(http.StatusNotFound, "token issuance not served here")
	}

	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	issued, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.TokenResponse{
			Token:     issued.Token,
			TokenType: "Bearer",
			Role:      issued.Role,
			Audience:  issued.Audience,
			ExpiresAt: issued.ExpiresAt,
		},
	})
}

// Me handles GET /api/me. It runs behind the interceptor.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	role, ok := auth.RoleFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	return c.JSON(fiber.Map{
		"data": dto.IdentityResponse{Role: role, Service: h.serviceName},
	})
}
