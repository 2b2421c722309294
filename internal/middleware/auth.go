package middleware

import (
	"trubid-backend/internal/pkg/constants"
	"trubid-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals("auth", user)
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// Actor is the authenticated caller as seen by handlers.
type Actor struct {
	UserID   uuid.UUID
	Email    string
	Fullname string
	Role     string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == constants.Admin
}

// GetActor parses the session user. ok is false when there is no user or the id is malformed.
func GetActor(c *fiber.Ctx) (Actor, bool) {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return Actor{}, false
	}
	idStr, _ := m["user_id"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return Actor{}, false
	}
	email, _ := m["email"].(string)
	fullname, _ := m["fullname"].(string)
	role, _ := m["role"].(string)
	return Actor{UserID: id, Email: email, Fullname: fullname, Role: role}, true
}
