package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/stripe/stripe-go/v82"

	"github.com/daniarthurwidodo/next-crm/app/controllers"
	"github.com/daniarthurwidodo/next-crm/app/repository"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/billing"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/cache"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/database"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/env"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/mail"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/mailqueue"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/router"
)

func main() {
	app, queue := NewApplication()

	// graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received %s, shutting down", sig)
		if err := app.Shutdown(); err != nil {
			log.Printf("Fiber shutdown error: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Printf("Listen error: %v", err)
	}

	// Listen returned: drain the mail queue, then release long-lived handles.
	queue.Stop()
	cache.Close()
	database.CloseDatabase()
}

func NewApplication() (*fiber.App, *mailqueue.Queue) {
	env.SetupEnvFile()
	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	cache.SetupCache()

	stripe.Key = env.GetEnv("STRIPE_SECRET_KEY", "")
	if stripe.Key == "" {
		log.Println("WARNING: STRIPE_SECRET_KEY is not set, checkout will fail")
	}

	mailer := mail.NewMailerFromEnv()
	workers, _ := strconv.Atoi(env.GetEnv("MAIL_WORKERS", "2"))
	queue := mailqueue.NewQueue(cache.GetClient(), mailer, workers)
	queue.Start()

	factory := repository.GetGlobalFactory()
	reconciler := billing.NewReconciler(
		factory.GetUserRepository(),
		factory.GetSubscriptionRepository(),
		queue,
	)
	controllers.SetupBilling(billing.NewCheckoutIssuer(), reconciler)
	controllers.SetupPasswordMailer(mailer)

	app := fiber.New(fiber.Config{
		AppName: "next-crm",
	})

	app.Use(recover.New(), logger.New())

	router.InstallRouter(app)

	return app, queue
}
