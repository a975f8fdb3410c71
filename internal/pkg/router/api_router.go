package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	apiv1 "github.com/hamrocafe/cafecloud/internal/api/v1"
	"github.com/hamrocafe/cafecloud/internal/pkg/env"
)

type ApiRouter struct {
	server *apiv1.APIServer
}

func NewApiRouter(server *apiv1.APIServer) *ApiRouter {
	return &ApiRouter{server: server}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "CafeCloud operator API",
		})
	})

	// Operator API is basicauth-protected; the authenticated username is
	// recorded as the operator on every mutating action.
	v1 := api.Group("/v1", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("ADMIN_USER", "admin"): env.GetEnv("ADMIN_PASSWORD", ""),
		},
	}))
	apiv1.RegisterHandlers(v1, h.server)
}

// InstallRouter wires every router into the app.
func InstallRouter(app *fiber.App, server *apiv1.APIServer) {
	NewApiRouter(server).InstallRouter(app)
}
