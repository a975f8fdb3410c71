package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/hamrocafe/cafecloud/app/repository"
	apiv1 "github.com/hamrocafe/cafecloud/internal/api/v1"
	"github.com/hamrocafe/cafecloud/internal/pkg/alerts"
	"github.com/hamrocafe/cafecloud/internal/pkg/billing"
	"github.com/hamrocafe/cafecloud/internal/pkg/cache"
	"github.com/hamrocafe/cafecloud/internal/pkg/database"
	"github.com/hamrocafe/cafecloud/internal/pkg/env"
	"github.com/hamrocafe/cafecloud/internal/pkg/lifecycle"
	"github.com/hamrocafe/cafecloud/internal/pkg/metering"
	"github.com/hamrocafe/cafecloud/internal/pkg/provisioner"
	"github.com/hamrocafe/cafecloud/internal/pkg/router"
	"github.com/hamrocafe/cafecloud/internal/pkg/scheduler"
	"github.com/hamrocafe/cafecloud/internal/pkg/tenantconn"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitGlobalFactory(database.GetDB())
	repos := repository.GetGlobalFactory().GetRepositories()

	conns, err := tenantconn.NewManagerFromEnv()
	if err != nil {
		log.Fatalf("tenant connection manager: %v", err)
	}

	prov := provisioner.New(conns)
	lc := lifecycle.NewManager(repos, prov, conns)
	meter := metering.NewService(repos.Tenant, conns)
	bill := billing.NewService(repos.Tenant, repos.Plan, repos.Activity, meter)
	engine := alerts.NewEngine(repos.Tenant, repos.Plan, repos.Alert, meter, alerts.DefaultThresholds())
	notifier := alerts.NewNotifier(repos.Tenant, repos.Alert)
	daily := scheduler.NewDaily(repos.Tenant, lc, bill, engine, notifier)

	server := apiv1.NewAPIServer(repos, lc, bill, meter, engine, daily)

	app := fiber.New(fiber.Config{
		AppName: "CafeCloud Operator API",
	})
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("ADMIN_USER", "admin"): env.GetEnv("ADMIN_PASSWORD", ""),
		},
	}), monitor.New())

	router.InstallRouter(app, server)

	return app
}
