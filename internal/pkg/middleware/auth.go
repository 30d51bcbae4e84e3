package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/daniarthurwidodo/next-crm/app/models"
	"github.com/daniarthurwidodo/next-crm/app/repository"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/token"
)

// Locals keys set by RequireAuth.
const (
	KeyUserID  = "user_id"
	KeyUser    = "auth_user"
	KeyIsAdmin = "is_admin"
)

// AuthCookieName is the session cookie the login handler sets.
const AuthCookieName = "token"

// tokenFromRequest reads the session token from the auth cookie or, failing
// that, a bearer Authorization header.
func tokenFromRequest(c *fiber.Ctx) string {
	if cookie := c.Cookies(AuthCookieName); cookie != "" {
		return cookie
	}
	auth := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// RequireAuth verifies the session token, loads the user and stores it in
// Locals. API routes answer JSON 401, never a redirect.
func RequireAuth(c *fiber.Ctx) error {
	tokenStr := tokenFromRequest(c)
	if tokenStr == "" {
		return unauthorized(c)
	}

	userID, err := token.VerifySessionToken(tokenStr)
	if err != nil {
		return unauthorized(c)
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userID)
	if err != nil || !user.IsActive() {
		return unauthorized(c)
	}

	c.Locals(KeyUserID, user.ID)
	c.Locals(KeyUser, user)
	c.Locals(KeyIsAdmin, user.Role == models.ROLE_ADMIN)
	return c.Next()
}

// RequireAdmin runs after RequireAuth and rejects non-admin users.
func RequireAdmin(c *fiber.Ctx) error {
	if isAdmin, ok := c.Locals(KeyIsAdmin).(bool); !ok || !isAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "admin access required",
		})
	}
	return c.Next()
}

// AuthenticatedUser returns the user RequireAuth stored, nil when the route
// is not behind the middleware.
func AuthenticatedUser(c *fiber.Ctx) *models.User {
	if user, ok := c.Locals(KeyUser).(*models.User); ok {
		return user
	}
	return nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "unauthorized",
		"message": "login required",
	})
}
