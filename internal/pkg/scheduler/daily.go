package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/hamrocafe/cafecloud/app/models"
	"github.com/hamrocafe/cafecloud/app/repository"
	"github.com/hamrocafe/cafecloud/internal/pkg/alerts"
	"github.com/hamrocafe/cafecloud/internal/pkg/billing"
	"github.com/hamrocafe/cafecloud/internal/pkg/lifecycle"
)

// Daily bundles the idempotent time-driven checks that an external
// scheduler (typically a daily cron) invokes. Each check is safe to run
// repeatedly; a run with no qualifying tenants is a no-op.
type Daily struct {
	tenants   repository.TenantRepository
	lifecycle *lifecycle.Manager
	billing   *billing.Service
	alerts    *alerts.Engine
	notifier  *alerts.Notifier
}

// NewDaily creates the daily check runner.
func NewDaily(tenants repository.TenantRepository, lc *lifecycle.Manager, bs *billing.Service, ae *alerts.Engine, n *alerts.Notifier) *Daily {
	return &Daily{tenants: tenants, lifecycle: lc, billing: bs, alerts: ae, notifier: n}
}

// Summary reports one full daily run.
type Summary struct {
	TrialExpiry       lifecycle.SweepResult `json:"trial_expiry"`
	Overdue           lifecycle.SweepResult `json:"overdue"`
	Suspension        lifecycle.SweepResult `json:"suspension"`
	TenantsBilled     int                   `json:"tenants_billed"`
	AlertsCreated     int                   `json:"alerts_created"`
	AlertsResolved    int                   `json:"alerts_resolved"`
	NotificationsSent int                   `json:"notifications_sent"`
	Errors            []string              `json:"errors,omitempty"`
}

// Run executes every daily check once. Tenants are processed
// independently: a failure for one is recorded and the run continues.
func (d *Daily) Run(now time.Time) Summary {
	var s Summary

	s.TrialExpiry = d.lifecycle.CheckTrialExpiry(now)
	s.Overdue = d.lifecycle.MarkOverduePayments(now, lifecycle.DefaultGraceDays)
	s.Suspension = d.lifecycle.SuspendOverdueAccounts(now, lifecycle.DefaultOverdueDays)
	for _, r := range []lifecycle.SweepResult{s.TrialExpiry, s.Overdue, s.Suspension} {
		for _, err := range r.Errors {
			s.Errors = append(s.Errors, err.Error())
		}
	}

	active, err := d.tenants.ListByLifecycle(models.LifecycleActive)
	if err != nil {
		s.Errors = append(s.Errors, fmt.Sprintf("list active tenants: %v", err))
		return s
	}

	for _, tenant := range active {
		if _, err := d.billing.CalculateBilling(tenant.Slug); err != nil {
			s.Errors = append(s.Errors, err.Error())
			continue
		}
		s.TenantsBilled++

		created, err := d.alerts.CheckAndCreateAlerts(tenant.Slug)
		if err != nil {
			s.Errors = append(s.Errors, err.Error())
			continue
		}
		s.AlertsCreated += created

		resolved, err := d.alerts.ResolveObsoleteAlerts(tenant.Slug)
		if err != nil {
			s.Errors = append(s.Errors, err.Error())
			continue
		}
		s.AlertsResolved += resolved
	}

	sent, err := d.notifier.NotifyPending(200)
	if err != nil {
		s.Errors = append(s.Errors, err.Error())
	}
	s.NotificationsSent = sent

	log.Printf("scheduler: daily run done: expired=%d overdue=%d suspended=%d billed=%d alerts+%d/-%d sent=%d errors=%d",
		s.TrialExpiry.Transitioned, s.Overdue.Transitioned, s.Suspension.Transitioned,
		s.TenantsBilled, s.AlertsCreated, s.AlertsResolved, s.NotificationsSent, len(s.Errors))
	return s
}
