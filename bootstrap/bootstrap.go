package bootstrap

import (
	"context"

	"trubid-backend/internal/config"
	"trubid-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
)

// New creates the Fiber app for serverless (api handler imports this package, not internal).
// The auction closer does not run here; expired auctions are closed by a long-running instance
// or by the admin close endpoint.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a, err := router.CreateApp(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return a.Fiber, nil
}
