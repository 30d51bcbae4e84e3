package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/daniarthurwidodo/next-crm/app/controllers"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// The webhook route bypasses the limiter: Stripe's retry bursts must
	// never be rate-limited into redelivery loops. Signature verification
	// authenticates the route instead.
	app.Post("/api/webhooks/stripe", controllers.HandleStripeWebhook)

	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// Public auth routes
	api.Post("/register", controllers.HandleAuthRegister)
	api.Post("/login", controllers.HandleAuthLogin)
	api.Post("/logout", controllers.HandleAuthLogout)
	api.Post("/forgot-password", controllers.HandleForgotPassword)
	api.Post("/reset-password", controllers.HandleResetPassword)

	// Checkout requires a signed-in user
	billing := api.Group("/billing", middleware.RequireAuth)
	billing.Post("/checkout", controllers.HandleCreateCheckoutSession)

	// User administration
	users := api.Group("/users", middleware.RequireAuth, middleware.RequireAdmin)
	users.Get("/", controllers.HandleListUsers)
	users.Post("/", controllers.HandleCreateUser)
	users.Get("/:id", controllers.HandleGetUser)
	users.Put("/:id", controllers.HandleUpdateUser)
	users.Delete("/:id", controllers.HandleDeleteUser)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
