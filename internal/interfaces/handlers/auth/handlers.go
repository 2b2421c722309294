package auth

import (
	"errors"

	authsvc "trubid-backend/internal/application/auth"
	"trubid-backend/internal/middleware"
	"trubid-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	UserFinder authsvc.UserFinder
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func loginStatus(err error) int {
	switch {
	case errors.Is(err, authsvc.ErrEmailPasswordRequired):
		return fiber.StatusBadRequest
	case errors.Is(err, authsvc.ErrInvalidEmail), errors.Is(err, authsvc.ErrIncorrectPassword):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// Login POST /api/v1/auth/login. A fresh session id is issued on every login and indexed under the
// user so role changes and removals can revoke it.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.UserFinder == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return response.Error(c, authsvc.ErrEmailPasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}

	user, err := h.UserFinder.FindByEmailAndPassword(c.Context(), req.Email, req.Password)
	if err != nil {
		status := loginStatus(err)
		if status == fiber.StatusInternalServerError {
			log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg("login lookup failed")
			return response.Error(c, "Internal Server Error", status, nil)
		}
		return response.Error(c, err.Error(), status, nil)
	}

	shape := authsvc.SessionUserShape{
		UserID:   user.UserID.String(),
		Fullname: user.Fullname,
		Email:    user.Email,
		Role:     user.Role,
	}
	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser(shape))
	if err := middleware.TrackUserSession(c.Context(), h.Rdb, shape.UserID, sessionID); err != nil {
		log.Error().Err(err).Str("user_id", shape.UserID).Msg("login: failed to index session")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	return response.Success(c, "Login successful", fiber.Map{"user": shape}, nil)
}

// Me GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	user, err := authsvc.VerifyUser(middleware.GetUser(c))
	if err != nil {
		log.Debug().
			Str("trace_id", middleware.GetTraceID(c)).
			Bool("session_id_present", middleware.GetSessionID(c) != "").
			Bool("cookie_present", c.Cookies(middleware.SessionCookieName) != "").
			Msg("auth/me: not authenticated")
		return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": user}, nil)
}

// Logout DELETE /api/v1/auth/logout. Always succeeds and always clears the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	ctx := c.Context()
	if sessionID := middleware.GetSessionID(c); sessionID != "" && h.Rdb != nil {
		if actor, ok := middleware.GetActor(c); ok {
			_ = h.Rdb.SRem(ctx, middleware.UserSessionsPrefix+actor.UserID.String(), sessionID).Err()
		}
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}
