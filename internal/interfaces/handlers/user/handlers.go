package user

import (
	"errors"

	policies "trubid-backend/internal/application/policies/user"
	usersvc "trubid-backend/internal/application/user"
	"trubid-backend/internal/domain"
	"trubid-backend/internal/interfaces/handlers/apierr"
	"trubid-backend/internal/middleware"
	"trubid-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers holds the user service and session config for create-user (session + cookie).
type Handlers struct {
	Service *usersvc.Service
	Config  middleware.SessionConfig
}

// CreateUser POST /api/v1/users/create-user. Registers a bidder and signs them in.
func (h *Handlers) CreateUser(c *fiber.Ctx) error {
	var req usersvc.CreateUserInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	u, err := h.Service.CreateUser(c.Context(), req)
	if err != nil {
		return accountError(c, err)
	}

	sid := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   u.UserID.String(),
		Fullname: u.Fullname,
		Email:    u.Email,
		Role:     u.Role,
	})
	if err := middleware.TrackUserSession(c.Context(), h.Service.Rdb, u.UserID.String(), sid); err != nil {
		log.Warn().Err(err).Str("user_id", u.UserID.String()).Msg("create-user: failed to index session")
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sid
	c.Cookie(&cookie)

	return response.SuccessCreated(c, "User created successfully", fiber.Map{"user": safeUser(u)}, nil)
}

// UpdateUser PUT /api/v1/users/update-user. Updates the session user.
func (h *Handlers) UpdateUser(c *fiber.Ctx) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}

	var in usersvc.UpdateUserInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	u, err := h.Service.UpdateUser(c.Context(), actor.UserID, in)
	if err != nil {
		return accountError(c, err)
	}
	return response.Success(c, "User updated successfully", fiber.Map{"user": safeUser(u)}, nil)
}

// ViewUser GET /api/v1/users/view-user
func (h *Handlers) ViewUser(c *fiber.Ctx) error {
	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}

	u, err := h.Service.FindByID(c.Context(), actor.UserID)
	if err != nil {
		return accountError(c, err)
	}
	return response.Success(c, "User found", fiber.Map{"user": safeUser(u)}, nil)
}

// ListUsers GET /api/v1/users/list-users
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	users, err := h.Service.ListUsers(c.Context())
	if err != nil {
		return apierr.Respond(c, err)
	}
	out := make([]fiber.Map, 0, len(users))
	for i := range users {
		out = append(out, safeUser(&users[i]))
	}
	return response.Success(c, "Users retrieved", fiber.Map{"users": out}, fiber.Map{"count": len(out)})
}

type UpdateRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// UpdateRole PATCH /api/v1/users/update-role
func (h *Handlers) UpdateRole(c *fiber.Ctx) error {
	var req UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" || req.Role == "" {
		return response.Error(c, "user_id and role are required", fiber.StatusBadRequest, nil)
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		return response.Error(c, "Invalid user ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}

	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}

	u, err := h.Service.UpdateUserRole(c.Context(), usersvc.UpdateUserRoleInput{
		ActorUserID:  actor.UserID.String(),
		ActorRole:    actor.Role,
		TargetUserID: req.UserID,
		TargetRole:   req.Role,
	})
	if err != nil {
		return mapPolicyError(c, err)
	}
	return response.Success(c, "User role updated successfully", fiber.Map{"user": safeUser(u)}, nil)
}

type RemoveUserRequest struct {
	UserID string `json:"user_id"`
}

// RemoveUser DELETE /api/v1/users/remove-user
func (h *Handlers) RemoveUser(c *fiber.Ctx) error {
	var req RemoveUserRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return response.Error(c, "user_id is required", fiber.StatusBadRequest, nil)
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		return response.Error(c, "Invalid user ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}

	actor, ok := apierr.Actor(c)
	if !ok {
		return nil
	}

	err := h.Service.RemoveUser(c.Context(), usersvc.RemoveUserInput{
		ActorUserID:  actor.UserID.String(),
		ActorRole:    actor.Role,
		TargetUserID: req.UserID,
	})
	if err != nil {
		return mapPolicyError(c, err)
	}
	return response.Success(c, "User removed", nil, nil)
}

func safeUser(u *domain.User) fiber.Map {
	return fiber.Map{
		"user_id":      u.UserID.String(),
		"fullname":     u.Fullname,
		"user_name":    u.UserName,
		"email":        u.Email,
		"role":         u.Role,
		"created_date": u.CreatedAt,
		"updated_date": u.UpdatedAt,
	}
}

// accountError maps registration and profile errors; validation goes through apierr with its field.
func accountError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, usersvc.ErrUserNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, usersvc.ErrEmailTaken), errors.Is(err, usersvc.ErrUserNameTaken):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	}
	return apierr.Respond(c, err)
}

func mapPolicyError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, policies.ErrTargetUserNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, policies.ErrOnlyAdminsCanAssignRoles), errors.Is(err, policies.ErrOnlyAdminsCanRemoveUsers):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, policies.ErrInvalidRole), errors.Is(err, policies.ErrUsersCannotModifyOwnRole),
		errors.Is(err, policies.ErrUsersCannotRemoveThemself), errors.Is(err, policies.ErrMustHaveAtLeastOneAdmin):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return apierr.Respond(c, err)
}
