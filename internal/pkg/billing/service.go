package billing

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hamrocafe/cafecloud/app/models"
	"github.com/hamrocafe/cafecloud/app/repository"
	"github.com/hamrocafe/cafecloud/internal/pkg/metering"
)

// UsageSource provides usage snapshots; satisfied by the metering
// service and by fixtures in tests.
type UsageSource interface {
	GetUsage(slug string) (*metering.Snapshot, error)
}

// ComputationError reports why a bill could not be produced. The
// computation aborts and reports rather than emitting a partial or
// zeroed bill.
type ComputationError struct {
	Slug   string
	Reason string
	Err    error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("billing %s: %s: %v", e.Slug, e.Reason, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// Service resolves billing inputs, runs the pure calculator and
// persists the outcome on the tenant row for historical display.
type Service struct {
	tenants  repository.TenantRepository
	plans    repository.PlanRepository
	activity repository.ActivityLogRepository
	usage    UsageSource

	now func() time.Time
}

// NewService creates a billing service.
func NewService(tenants repository.TenantRepository, plans repository.PlanRepository, activity repository.ActivityLogRepository, usage UsageSource) *Service {
	return &Service{
		tenants:  tenants,
		plans:    plans,
		activity: activity,
		usage:    usage,
		now:      time.Now,
	}
}

// CalculateBilling computes the current-period bill for a tenant from a
// fresh usage snapshot.
func (s *Service) CalculateBilling(slug string) (*Result, error) {
	tenant, err := s.tenants.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ComputationError{Slug: slug, Reason: "tenant not found", Err: err}
		}
		return nil, &ComputationError{Slug: slug, Reason: "load tenant", Err: err}
	}

	plan, err := s.plans.GetByCode(tenant.PlanCode)
	if err != nil {
		return nil, &ComputationError{Slug: slug, Reason: fmt.Sprintf("load plan %q", tenant.PlanCode), Err: err}
	}

	snap, err := s.usage.GetUsage(slug)
	if err != nil {
		return nil, &ComputationError{Slug: slug, Reason: "usage unavailable", Err: err}
	}

	result := s.computeFor(tenant, plan, snap)

	now := s.now()
	if err := s.tenants.UpdateFields(tenant.ID, map[string]interface{}{
		"last_billing_at": now,
		"last_overage":    result.TotalOverage,
		"last_total_bill": result.Total,
	}); err != nil {
		return nil, &ComputationError{Slug: slug, Reason: "persist result", Err: err}
	}

	if err := s.activity.Append(tenant.ID, models.ActivityBillingComputed, "", map[string]interface{}{
		"total":   result.Total,
		"overage": result.TotalOverage,
	}); err != nil {
		return nil, &ComputationError{Slug: slug, Reason: "append activity", Err: err}
	}

	return &result, nil
}

// Preview computes a bill from the cached counters without touching the
// tenant's isolated storage and without persisting anything.
func (s *Service) Preview(slug string) (*Result, error) {
	tenant, err := s.tenants.GetBySlug(slug)
	if err != nil {
		return nil, &ComputationError{Slug: slug, Reason: "load tenant", Err: err}
	}
	plan, err := s.plans.GetByCode(tenant.PlanCode)
	if err != nil {
		return nil, &ComputationError{Slug: slug, Reason: fmt.Sprintf("load plan %q", tenant.PlanCode), Err: err}
	}
	result := s.computeFor(tenant, plan, metering.CachedSnapshot(tenant))
	return &result, nil
}

func (s *Service) computeFor(tenant *models.Tenant, plan *models.SubscriptionPlan, snap *metering.Snapshot) Result {
	baseFee := plan.MonthlyFee
	if tenant.MonthlyFee > 0 {
		baseFee = tenant.MonthlyFee
	}
	priorityFee := 0.0
	if plan.PrioritySupport {
		priorityFee = plan.PrioritySupportFee
	}

	result := Calculate(snap, ResolveLimits(tenant, plan), RatesFromPlan(plan), baseFee, priorityFee)
	result.PlanCode = plan.Code
	return result
}
