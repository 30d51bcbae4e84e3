package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/daniarthurwidodo/next-crm/app/models"
	"github.com/daniarthurwidodo/next-crm/app/repository"
)

const defaultPageSize = 50

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Role   *string `json:"role"`
	Status *string `json:"status"`
}

// HandleListUsers returns a page of users, optionally filtered by ?q=.
func HandleListUsers(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetUserRepository()

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		users, err := repo.Search(q)
		if err != nil {
			return internalError(c, err)
		}
		return c.JSON(fiber.Map{"users": usersResponse(users), "total": len(users)})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultPageSize)))
	if limit < 1 || limit > 200 {
		limit = defaultPageSize
	}

	users, err := repo.List((page-1)*limit, limit)
	if err != nil {
		return internalError(c, err)
	}
	total, err := repo.Count()
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"users": usersResponse(users),
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// HandleCreateUser creates a user through the admin API.
func HandleCreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
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
	if req.Role == models.ROLE_ADMIN {
		user.Role = models.ROLE_ADMIN
	}

	if err := repo.Create(user); err != nil {
		return conflict(c, "email already registered")
	}

	log.Infof("[Users] Created user %s (%s)", user.ID, user.Role)
	return c.Status(fiber.StatusCreated).JSON(userResponse(user))
}

// HandleGetUser returns one user with their latest subscription, if any.
func HandleGetUser(c *fiber.Ctx) error {
	factory := repository.GetGlobalFactory()
	user, err := factory.GetUserRepository().GetByID(c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "user not found")
		}
		return internalError(c, err)
	}

	resp := userResponse(user)
	if sub, err := factory.GetSubscriptionRepository().GetLatestByUserID(user.ID); err == nil {
		resp["subscription"] = fiber.Map{
			"status":             sub.Status,
			"plan_name":          sub.PlanName,
			"current_period_end": sub.CurrentPeriodEnd,
		}
	}

	return c.JSON(resp)
}

// HandleUpdateUser applies a partial update to a user.
func HandleUpdateUser(c *fiber.Ctx) error {
	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "user not found")
		}
		return internalError(c, err)
	}

	if req.Email != nil && !strings.EqualFold(*req.Email, user.Email) {
		if _, err := repo.GetByEmail(*req.Email); err == nil {
			return conflict(c, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return internalError(c, err)
		}
		user.Email = strings.TrimSpace(*req.Email)
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Status != nil {
		user.Status = *req.Status
	}

	if err := user.Validate(); err != nil {
		return badRequest(c, err.Error())
	}
	if err := repo.Update(user); err != nil {
		return internalError(c, err)
	}

	return c.JSON(userResponse(user))
}

// HandleDeleteUser soft-deletes a user.
func HandleDeleteUser(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := repo.GetByID(c.Params("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "user not found")
		}
		return internalError(c, err)
	}

	if err := repo.Delete(c.Params("id")); err != nil {
		return internalError(c, err)
	}

	log.Infof("[Users] Deleted user %s", c.Params("id"))
	return c.JSON(fiber.Map{"success": true})
}

func usersResponse(users []models.User) []fiber.Map {
	out := make([]fiber.Map, 0, len(users))
	for i := range users {
		out = append(out, userResponse(&users[i]))
	}
	return out
}
