package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/daniarthurwidodo/next-crm/app/repository"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/env"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/mail"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/token"
)

// MailSender delivers one rendered template synchronously.
type MailSender interface {
	Send(to string, tpl mail.Template) bool
}

var passwordMailer MailSender

// SetupPasswordMailer wires the synchronous sender for reset emails.
// Unlike billing notifications, a reset email the user is waiting for is
// not fire-and-forget.
func SetupPasswordMailer(sender MailSender) {
	passwordMailer = sender
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// HandleForgotPassword issues a reset token and emails the reset link. The
// response never reveals whether the address has an account.
func HandleForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		return badRequest(c, "email is required")
	}

	neutral := fiber.Map{
		"success": true,
		"message": "If that address has an account, a reset link is on its way.",
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(neutral)
		}
		return internalError(c, err)
	}

	resetToken, err := token.GeneratePasswordResetToken(user.Email)
	if err != nil {
		return internalError(c, err)
	}

	if passwordMailer == nil {
		return internalError(c, errors.New("mailer not configured"))
	}
	resetLink := env.AppBaseURL() + "/reset-password?token=" + resetToken
	if !passwordMailer.Send(user.Email, mail.PasswordResetEmail(resetLink, "1 hour")) {
		log.Errorf("[Auth] Failed to send reset email to user %s", user.ID)
		return internalError(c, errors.New("failed to send reset email"))
	}

	return c.JSON(neutral)
}

// HandleResetPassword verifies a reset token and sets the new password.
// This is also how checkout-provisioned accounts get their first password.
func HandleResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Token == "" || req.Password == "" {
		return badRequest(c, "token and password are required")
	}

	email, err := token.VerifyPasswordResetToken(req.Token)
	if err != nil {
		return badRequest(c, "invalid or expired reset token")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return badRequest(c, "invalid or expired reset token")
		}
		return internalError(c, err)
	}

	if err := user.SetPassword(req.Password); err != nil {
		return badRequest(c, err.Error())
	}
	if err := repo.Update(user); err != nil {
		return internalError(c, err)
	}

	log.Infof("[Auth] Password reset for user %s", user.ID)
	return c.JSON(fiber.Map{"success": true})
}
