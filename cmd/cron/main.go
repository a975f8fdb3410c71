package main

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/hamrocafe/cafecloud/app/repository"
	"github.com/hamrocafe/cafecloud/internal/pkg/alerts"
	"github.com/hamrocafe/cafecloud/internal/pkg/billing"
	"github.com/hamrocafe/cafecloud/internal/pkg/database"
	"github.com/hamrocafe/cafecloud/internal/pkg/env"
	"github.com/hamrocafe/cafecloud/internal/pkg/lifecycle"
	"github.com/hamrocafe/cafecloud/internal/pkg/metering"
	"github.com/hamrocafe/cafecloud/internal/pkg/provisioner"
	"github.com/hamrocafe/cafecloud/internal/pkg/scheduler"
	"github.com/hamrocafe/cafecloud/internal/pkg/tenantconn"
)

// Runs every daily check once and exits. Intended to be invoked by the
// platform cron (daily is typical); every check is idempotent, so
// overlapping or repeated runs are safe.
func main() {
	env.SetupEnvFile()
	database.SetupDatabase()

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

	summary := scheduler.NewDaily(repos.Tenant, lc, bill, engine, notifier).Run(time.Now())

	out, _ := json.MarshalIndent(summary, "", "  ")
	log.Printf("daily run summary:\n%s", out)

	if len(summary.Errors) > 0 {
		os.Exit(1)
	}
}
