package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/daniarthurwidodo/next-crm/app/models"
	"github.com/daniarthurwidodo/next-crm/app/repository"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/token"
)

const invalidCredentialsMsg = "invalid email or password"

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleAuthRegister creates a local-credentials account and signs it in.
func HandleAuthRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" {
		req.Name = req.Email
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := repo.GetByEmail(req.Email); err == nil {
		return conflict(c, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return internalError(c, err)
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := repo.Create(user); err != nil {
		// The unique index on lower(email) guards against a concurrent register.
		return conflict(c, "email already registered")
	}

	tokenStr, err := token.GenerateSessionToken(user.ID, user.Email)
	if err != nil {
		return internalError(c, err)
	}
	setAuthCookie(c, tokenStr)

	log.Infof("[Auth] Registered user %s", user.ID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"token":   tokenStr,
		"user":    userResponse(user),
	})
}

// HandleAuthLogin verifies credentials and issues a session token. Unknown
// email and wrong password answer identically.
func HandleAuthLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": invalidCredentialsMsg})
		}
		return internalError(c, err)
	}

	if !user.IsActive() || !user.CheckPassword(req.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": invalidCredentialsMsg})
	}

	tokenStr, err := token.GenerateSessionToken(user.ID, user.Email)
	if err != nil {
		return internalError(c, err)
	}
	setAuthCookie(c, tokenStr)

	return c.JSON(fiber.Map{
		"success": true,
		"token":   tokenStr,
		"user":    userResponse(user),
	})
}

// HandleAuthLogout clears the session cookie. Tokens are stateless, so
// logout is purely client-side invalidation.
func HandleAuthLogout(c *fiber.Ctx) error {
	clearAuthCookie(c)
	return c.JSON(fiber.Map{"success": true})
}
