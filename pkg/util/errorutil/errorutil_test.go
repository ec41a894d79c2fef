package errorutil

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	cause := errors.New("bad signature")

	t.Run("keeps domain errors and their cause", func(t *testing.T) {
		err := NewUnauthorized("invalid or expired token", cause)
		domainErr := ToDomainError(err)
		assert.Equal(t, http.StatusUnauthorized, domainErr.HTTPStatus)
		assert.Equal(t, "UNAUTHORIZED", domainErr.Code)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("maps fiber errors by status", func(t *testing.T) {
		domainErr := ToDomainError(fiber.NewError(http.StatusForbidden, "insufficient role"))
		assert.Equal(t, http.StatusForbidden, domainErr.HTTPStatus)
		assert.Equal(t, "FORBIDDEN", domainErr.Code)
		assert.Equal(t, "insufficient role", domainErr.Message)
	})

	t.Run("hides unknown errors", func(t *testing.T) {
		domainErr := ToDomainError(cause)
		assert.Equal(t, http.StatusInternalServerError, domainErr.HTTPStatus)
		assert.Equal(t, "internal server error", domainErr.Message)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
	})
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/", func(c *fiber.Ctx) error {
		return NewTooManyRequests("too many failed login attempts")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":{"code":"TOO_MANY_REQUESTS","message":"too many failed login attempts"}}`, string(body))
}
