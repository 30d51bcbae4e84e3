package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/daniarthurwidodo/next-crm/app/models"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/env"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/middleware"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/token"
)

// userResponse is the public shape of a user. The password hash never
// leaves the model (json:"-"), this narrows the rest.
func userResponse(u *models.User) fiber.Map {
	return fiber.Map{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"role":       u.Role,
		"status":     u.Status,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": message})
}

func conflict(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": message})
}

// internalError hides details in production but surfaces them in dev.
func internalError(c *fiber.Ctx, err error) error {
	body := fiber.Map{"error": "internal server error"}
	if env.IsDev() && err != nil {
		body["details"] = err.Error()
	}
	return c.Status(fiber.StatusInternalServerError).JSON(body)
}

// setAuthCookie attaches the session token as an httpOnly cookie.
func setAuthCookie(c *fiber.Ctx, tokenStr string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    tokenStr,
		Expires:  time.Now().Add(token.SessionTokenTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   !env.IsDev(),
		Path:     "/",
	})
}

func clearAuthCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}
