package middleware

import (
	"fmt"

	"trubid-backend/internal/pkg/constants"
	"trubid-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// AuthorizePermission lets the request through only when the session role is listed for
// permission in constants.PermissionRoles. It panics at route registration for a permission the
// table does not know.
func AuthorizePermission(permission string) fiber.Handler {
	if len(constants.PermissionRoles[permission]) == 0 {
		panic(fmt.Sprintf("middleware: permission %q has no roles", permission))
	}
	return func(c *fiber.Ctx) error {
		actor, ok := GetActor(c)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		if !constants.AllowedRole(permission, actor.Role) {
			log.Debug().
				Str("trace_id", GetTraceID(c)).
				Str("user_id", actor.UserID.String()).
				Str("permission", permission).
				Msg("permission denied")
			return response.Forbidden(c, "User is Forbidden from performing this action")
		}
		return c.Next()
	}
}
