package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hamrocafe/cafecloud/app/models"
	"github.com/hamrocafe/cafecloud/app/repository"
	"github.com/hamrocafe/cafecloud/internal/pkg/metering"
)

type fakeTenants struct {
	repository.TenantRepository
	tenant  *models.Tenant
	updates []map[string]interface{}
}

func (f *fakeTenants) GetBySlug(slug string) (*models.Tenant, error) {
	if f.tenant != nil && f.tenant.Slug == slug {
		return f.tenant, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTenants) UpdateFields(id uint, fields map[string]interface{}) error {
	f.updates = append(f.updates, fields)
	return nil
}

type fakePlans struct {
	repository.PlanRepository
	plan *models.SubscriptionPlan
}

func (f *fakePlans) GetByCode(code string) (*models.SubscriptionPlan, error) {
	if f.plan != nil && f.plan.Code == code {
		return f.plan, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeActivity struct {
	repository.ActivityLogRepository
	actions []string
}

func (f *fakeActivity) Append(tenantID uint, action, operator string, detail map[string]interface{}) error {
	f.actions = append(f.actions, action)
	return nil
}

type fakeUsage struct {
	snap  *metering.Snapshot
	err   error
	calls int
}

func (f *fakeUsage) GetUsage(slug string) (*metering.Snapshot, error) {
	f.calls++
	return f.snap, f.err
}

func newTestService(tenant *models.Tenant, usage *fakeUsage) (*Service, *fakeTenants, *fakeActivity) {
	tenants := &fakeTenants{tenant: tenant}
	activity := &fakeActivity{}
	svc := NewService(tenants, &fakePlans{plan: starterPlan()}, activity, usage)
	svc.now = func() time.Time { return time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC) }
	return svc, tenants, activity
}

func TestCalculateBilling(t *testing.T) {
	tenant := &models.Tenant{ID: 3, Slug: "x-cafe", PlanCode: models.PlanStarter}
	usage := &fakeUsage{snap: &metering.Snapshot{StorageMB: 130}}
	svc, tenants, activity := newTestService(tenant, usage)

	result, err := svc.CalculateBilling("x-cafe")
	require.NoError(t, err)

	assert.Equal(t, models.PlanStarter, result.PlanCode)
	assert.InDelta(t, 150.0, result.TotalOverage, 0.001)
	assert.InDelta(t, 1650.0, result.Total, 0.001)

	// The outcome is persisted on the tenant row and audited.
	require.Len(t, tenants.updates, 1)
	assert.InDelta(t, 1650.0, tenants.updates[0]["last_total_bill"].(float64), 0.001)
	assert.Equal(t, []string{models.ActivityBillingComputed}, activity.actions)
}

func TestCalculateBillingTenantFeeOverridesPlan(t *testing.T) {
	tenant := &models.Tenant{ID: 3, Slug: "x-cafe", PlanCode: models.PlanStarter, MonthlyFee: 999}
	usage := &fakeUsage{snap: &metering.Snapshot{}}
	svc, _, _ := newTestService(tenant, usage)

	result, err := svc.CalculateBilling("x-cafe")
	require.NoError(t, err)
	assert.InDelta(t, 999.0, result.BaseFee, 0.001)
	assert.InDelta(t, 999.0, result.Total, 0.001)
}

func TestCalculateBillingAbortsWhenUsageUnavailable(t *testing.T) {
	tenant := &models.Tenant{ID: 3, Slug: "x-cafe", PlanCode: models.PlanStarter}
	usage := &fakeUsage{err: errors.New("tenant database unreachable")}
	svc, tenants, activity := newTestService(tenant, usage)

	_, err := svc.CalculateBilling("x-cafe")
	var cerr *ComputationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "x-cafe", cerr.Slug)
	assert.Equal(t, "usage unavailable", cerr.Reason)

	// No partial or zeroed bill may be persisted.
	assert.Empty(t, tenants.updates)
	assert.Empty(t, activity.actions)
}

func TestCalculateBillingUnknownTenant(t *testing.T) {
	svc, _, _ := newTestService(nil, &fakeUsage{snap: &metering.Snapshot{}})

	_, err := svc.CalculateBilling("ghost-cafe")
	var cerr *ComputationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "tenant not found", cerr.Reason)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPreviewUsesCachedCountersAndPersistsNothing(t *testing.T) {
	tenant := &models.Tenant{
		ID: 3, Slug: "x-cafe", PlanCode: models.PlanStarter,
		UsedStorageMB: 120, UsedOrders: 500,
	}
	usage := &fakeUsage{snap: &metering.Snapshot{StorageMB: 9999}}
	svc, tenants, activity := newTestService(tenant, usage)

	result, err := svc.Preview("x-cafe")
	require.NoError(t, err)

	// 20 MB over at 5 NPR/MB.
	assert.InDelta(t, 100.0, result.TotalOverage, 0.001)
	assert.Equal(t, 0, usage.calls, "preview must not touch the isolated storage")
	assert.Empty(t, tenants.updates)
	assert.Empty(t, activity.actions)
}
