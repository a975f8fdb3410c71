package lifecycle

import (
	"fmt"
	"log"
	"time"

	"github.com/hamrocafe/cafecloud/app/models"
)

// Grace windows for the payment sweeps, in days.
const (
	DefaultGraceDays   = 5
	DefaultOverdueDays = 15
)

// SweepResult summarizes one time-driven check. Per-tenant failures are
// collected so one bad tenant never blocks the rest of the sweep; a
// sweep that finds nothing to do is a successful no-op.
type SweepResult struct {
	Checked      int     `json:"checked"`
	Transitioned int     `json:"transitioned"`
	Errors       []error `json:"-"`
}

// Err returns an aggregate error when any tenant failed, else nil.
func (r SweepResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("sweep: %d of %d tenants failed (first: %v)", len(r.Errors), r.Checked, r.Errors[0])
}

// CheckTrialExpiry expires every trial whose window has passed:
// lifecycle becomes trial_expired, subscription expired. Idempotent:
// the candidate query requires lifecycle=active, so already-expired
// tenants are not picked up or re-logged by later runs.
func (m *Manager) CheckTrialExpiry(now time.Time) SweepResult {
	var result SweepResult

	candidates, err := m.tenants.ListTrialExpiryCandidates(now)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("trial expiry: list candidates: %w", err))
		return result
	}

	for _, tenant := range candidates {
		result.Checked++
		// Re-check the precondition per row; a concurrent sweep may have
		// transitioned the tenant between query and update.
		if tenant.LifecycleStatus != models.LifecycleActive || !tenant.TrialExpired(now) {
			continue
		}
		err := m.tenants.UpdateFields(tenant.ID, map[string]interface{}{
			"lifecycle_status":    models.LifecycleTrialExpired,
			"subscription_status": models.SubscriptionExpired,
			"suspended_at":        now,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("trial expiry %s: %w", tenant.Slug, err))
			continue
		}
		if err := m.activity.Append(tenant.ID, models.ActivityTrialExpired, "", map[string]interface{}{
			"trial_ended": tenant.TrialEndsAt,
		}); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("trial expiry %s: append activity: %w", tenant.Slug, err))
			continue
		}
		result.Transitioned++
		log.Printf("lifecycle: trial expired for tenant %s", tenant.Slug)
	}
	return result
}

// MarkOverduePayments flags active tenants whose payment is more than
// graceDays late as payment_due. Lifecycle stays active: tenants keep
// access during the grace window.
func (m *Manager) MarkOverduePayments(now time.Time, graceDays int) SweepResult {
	var result SweepResult
	if graceDays <= 0 {
		graceDays = DefaultGraceDays
	}
	cutoff := now.AddDate(0, 0, -graceDays)

	candidates, err := m.tenants.ListOverdueCandidates(cutoff)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("mark overdue: list candidates: %w", err))
		return result
	}

	for _, tenant := range candidates {
		result.Checked++
		if tenant.SubscriptionStatus != models.SubscriptionActive || !tenant.PaymentOverdue(now, time.Duration(graceDays)*24*time.Hour) {
			continue
		}
		if err := m.tenants.UpdateFields(tenant.ID, map[string]interface{}{
			"subscription_status": models.SubscriptionPaymentDue,
		}); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("mark overdue %s: %w", tenant.Slug, err))
			continue
		}
		if err := m.activity.Append(tenant.ID, models.ActivityMarkedOverdue, "", map[string]interface{}{
			"next_payment_due": tenant.NextPaymentDue,
		}); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("mark overdue %s: append activity: %w", tenant.Slug, err))
			continue
		}
		result.Transitioned++
		log.Printf("lifecycle: marked tenant %s payment_due", tenant.Slug)
	}
	return result
}

// SuspendOverdueAccounts suspends payment_due tenants that are more
// than daysOverdue past their payment date.
func (m *Manager) SuspendOverdueAccounts(now time.Time, daysOverdue int) SweepResult {
	var result SweepResult
	if daysOverdue <= 0 {
		daysOverdue = DefaultOverdueDays
	}
	cutoff := now.AddDate(0, 0, -daysOverdue)

	candidates, err := m.tenants.ListSuspensionCandidates(cutoff)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("suspend overdue: list candidates: %w", err))
		return result
	}

	for _, tenant := range candidates {
		result.Checked++
		if tenant.LifecycleStatus != models.LifecycleActive || !tenant.PaymentOverdue(now, time.Duration(daysOverdue)*24*time.Hour) {
			continue
		}
		if err := m.tenants.UpdateFields(tenant.ID, map[string]interface{}{
			"lifecycle_status": models.LifecycleSuspended,
			"suspended_at":     now,
		}); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("suspend overdue %s: %w", tenant.Slug, err))
			continue
		}
		if err := m.activity.Append(tenant.ID, models.ActivitySuspended, "", map[string]interface{}{
			"reason":           "payment overdue",
			"next_payment_due": tenant.NextPaymentDue,
		}); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("suspend overdue %s: append activity: %w", tenant.Slug, err))
			continue
		}
		result.Transitioned++
		log.Printf("lifecycle: suspended overdue tenant %s", tenant.Slug)
	}
	return result
}
