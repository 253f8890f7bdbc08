package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/userkit/user-service/internal/api/dto"
	"github.com/userkit/user-service/internal/auth"
	"github.com/userkit/user-service/internal/observability"
	"github.com/userkit/user-service/internal/service"
)

// AuthHandler exposes the login endpoint.
type AuthHandler struct {
	auth    *service.AuthService
	metrics *observability.Metrics
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, metrics *observability.Metrics) *AuthHandler {
	return &AuthHandler{auth: authService, metrics: metrics}
}

// Login handles POST /login. Success returns the raw token as the body; a
// credential mismatch returns 401 with an empty body.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		h.metrics.RecordLogin(observability.LoginMalformed)
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	token, _, err := h.auth.Login(req.Username, req.Password)
	if errors.Is(err, auth.ErrCredentialMismatch) {
		c.Status(http.StatusUnauthorized)
		return nil
	}
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).SendString(token)
}
