package handlers

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"hortti/internal/middleware"
	"hortti/internal/services"
)

// AuthHandler handles HTTP requests for authentication and the current
// user's profile.
type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the auth routes. auth guards the /me routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Post("/sign-up", h.HandleSignUp)
	router.Post("/sign-in", h.HandleSignIn)
	router.Get("/me", auth, h.HandleMe)
	router.Put("/me", auth, h.HandleUpdateMe)
	router.Delete("/me", auth, h.HandleDeleteMe)
}

// SignUpRequest is the body of POST /sign-up.
type SignUpRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// HandleSignUp registers a new user and returns their access token.
func (h *AuthHandler) HandleSignUp(c *fiber.Ctx) error {
	var req SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing sign-up request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	token, err := h.authService.SignUp(req.Name, req.Email, req.Password)
	if err != nil {
		log.Printf("Error signing up %s: %v", req.Email, err)
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"access_token": token,
	})
}

// SignInRequest is the body of POST /sign-in.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleSignIn authenticates a user and returns their access token.
func (h *AuthHandler) HandleSignIn(c *fiber.Ctx) error {
	var req SignInRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing sign-in request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	token, err := h.authService.SignIn(req.Email, req.Password)
	if err != nil {
		log.Printf("Error signing in %s: %v", req.Email, err)
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"access_token": token,
	})
}

// HandleMe returns the safe projection of the authenticated user.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	userID, ok := c.Locals(middleware.LocalUserID).(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid token subject",
		})
	}

	user, err := h.authService.Me(userID)
	if err != nil {
		// A token whose subject was deleted is no longer valid.
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "User not found",
			})
		}
		log.Printf("Error resolving user %d: %v", userID, err)
		return errorResponse(c, err)
	}

	return c.JSON(user)
}

// UpdateMeRequest is the body of PUT /me; all fields are optional.
type UpdateMeRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
}

// HandleUpdateMe applies a partial profile update for the authenticated
// user.
func (h *AuthHandler) HandleUpdateMe(c *fiber.Ctx) error {
	userID, ok := c.Locals(middleware.LocalUserID).(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid token subject",
		})
	}

	var req UpdateMeRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing profile update body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	user, err := h.userService.Update(userID, services.UserUpdateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		log.Printf("Error updating user %d: %v", userID, err)
		return errorResponse(c, err)
	}

	return c.JSON(user)
}

// HandleDeleteMe removes the authenticated user's account.
func (h *AuthHandler) HandleDeleteMe(c *fiber.Ctx) error {
	userID, ok := c.Locals(middleware.LocalUserID).(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid token subject",
		})
	}

	if err := h.userService.Remove(userID); err != nil {
		log.Printf("Error deleting user %d: %v", userID, err)
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
