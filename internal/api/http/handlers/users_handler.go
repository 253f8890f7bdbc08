package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/userkit/user-service/internal/api/dto"
	"github.com/userkit/user-service/internal/auth"
	"github.com/userkit/user-service/internal/domain"
	"github.com/userkit/user-service/internal/service"
)

// UsersHandler exposes CRUD endpoints for users.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// Create handles POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	user, err := h.users.Create(c.UserContext(), actor(c), service.UserInput{Name: req.Name, Email: req.Email})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserListResponse(users)})
}

// Get handles GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Update handles PUT /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	user, err := h.users.Update(c.UserContext(), actor(c), c.Params("id"), service.UserInput{Name: req.Name, Email: req.Email})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Delete handles DELETE /users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.Delete(c.UserContext(), actor(c), c.Params("id")); err != nil {
		return err
	}
	c.Status(http.StatusNoContent)
	return nil
}

func actor(c *fiber.Ctx) domain.Identity {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		return principal.Identity
	}
	return ""
}
