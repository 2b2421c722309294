package middleware

import (
	"strings"

	"trubid-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig allows the storefront domains (AllowedSuffix) plus preview builds that present the
// dev-password header.
type CORSConfig struct {
	AllowedSuffix string
	DevPassword   string
}

// CORS answers with credentialed CORS headers for allowed origins and rejects the rest with 403.
// Localhost origins are accepted for preflight only.
func CORS(cfg CORSConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		// same-origin, curl, server-to-server
		if origin == "" {
			return c.Next()
		}
		preflight := c.Method() == fiber.MethodOptions
		if !cfg.allows(c, origin) && !(preflight && isLocalhost(origin)) {
			return response.Forbidden(c, "Not allowed by CORS")
		}
		setCORSHeaders(c, origin)
		if preflight {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

func (cfg CORSConfig) allows(c *fiber.Ctx, origin string) bool {
	if cfg.AllowedSuffix != "" && strings.HasSuffix(strings.ToLower(origin), strings.ToLower(cfg.AllowedSuffix)) {
		return true
	}
	return cfg.DevPassword != "" && c.Get("dev-password") == cfg.DevPassword
}

func isLocalhost(origin string) bool {
	return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
}

func setCORSHeaders(c *fiber.Ctx, origin string) {
	c.Set("Access-Control-Allow-Origin", origin)
	c.Set("Access-Control-Allow-Credentials", "true")
	c.Set("Access-Control-Allow-Headers", "Content-Type, dev-password, X-Trace-Id")
	c.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	c.Set("Access-Control-Expose-Headers", "X-Trace-Id")
}
