package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidSlug(t *testing.T) {
	tests := []struct {
		slug string
		want bool
	}{
		{"himalaya", true},
		{"himalayan-beans", true},
		{"cafe-42-lakeside", true},
		{"abc", true},
		{strings.Repeat("a", 50), true},
		{"ab", false},
		{strings.Repeat("a", 51), false},
		{"Himalaya", false},
		{"himalayan beans", false},
		{"himalayan_beans", false},
		{"-himalaya", false},
		{"himalaya-", false},
		{"hima--laya", false},
		{"cafe;drop", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidSlug(tt.slug), "slug %q", tt.slug)
	}
}

func TestTenantHasAccess(t *testing.T) {
	tests := []struct {
		status LifecycleStatus
		want   bool
	}{
		{LifecycleActive, true},
		{LifecycleProvisioning, false},
		{LifecycleSuspended, false},
		{LifecycleTrialExpired, false},
		{LifecycleCancelled, false},
		{LifecycleArchived, false},
	}

	for _, tt := range tests {
		tenant := &Tenant{LifecycleStatus: tt.status}
		assert.Equal(t, tt.want, tenant.HasAccess(), "status %s", tt.status)
	}
}

func TestTenantTrialWindow(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 3)
	past := now.AddDate(0, 0, -3)

	t.Run("inside trial", func(t *testing.T) {
		tenant := &Tenant{SubscriptionStatus: SubscriptionTrial, TrialEndsAt: &future}
		assert.True(t, tenant.OnTrial(now))
		assert.False(t, tenant.TrialExpired(now))
	})

	t.Run("trial over", func(t *testing.T) {
		tenant := &Tenant{SubscriptionStatus: SubscriptionTrial, TrialEndsAt: &past}
		assert.False(t, tenant.OnTrial(now))
		assert.True(t, tenant.TrialExpired(now))
	})

	t.Run("exactly at trial end", func(t *testing.T) {
		tenant := &Tenant{SubscriptionStatus: SubscriptionTrial, TrialEndsAt: &now}
		assert.False(t, tenant.OnTrial(now))
		assert.True(t, tenant.TrialExpired(now))
	})

	t.Run("paid tenant never reports trial state", func(t *testing.T) {
		tenant := &Tenant{SubscriptionStatus: SubscriptionActive, TrialEndsAt: &past}
		assert.False(t, tenant.OnTrial(now))
		assert.False(t, tenant.TrialExpired(now))
	})

	t.Run("no trial end set", func(t *testing.T) {
		tenant := &Tenant{SubscriptionStatus: SubscriptionTrial}
		assert.False(t, tenant.OnTrial(now))
		assert.False(t, tenant.TrialExpired(now))
	})
}

func TestTenantPaymentOverdue(t *testing.T) {
	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	grace := 5 * 24 * time.Hour

	t.Run("past grace", func(t *testing.T) {
		due := now.AddDate(0, 0, -6)
		tenant := &Tenant{NextPaymentDue: &due}
		assert.True(t, tenant.PaymentOverdue(now, grace))
	})

	t.Run("within grace", func(t *testing.T) {
		due := now.AddDate(0, 0, -3)
		tenant := &Tenant{NextPaymentDue: &due}
		assert.False(t, tenant.PaymentOverdue(now, grace))
	})

	t.Run("not due yet", func(t *testing.T) {
		due := now.AddDate(0, 0, 10)
		tenant := &Tenant{NextPaymentDue: &due}
		assert.False(t, tenant.PaymentOverdue(now, grace))
	})

	t.Run("no due date", func(t *testing.T) {
		tenant := &Tenant{}
		assert.False(t, tenant.PaymentOverdue(now, grace))
	})
}

func TestDefaultPlans(t *testing.T) {
	plans := DefaultPlans()
	assert.Len(t, plans, 3)

	byCode := map[string]SubscriptionPlan{}
	for _, p := range plans {
		byCode[p.Code] = p
	}

	starter := byCode[PlanStarter]
	assert.Equal(t, 100, starter.StorageLimitMB)
	assert.InDelta(t, 5.0, starter.StorageRatePerMB, 0.001)
	assert.False(t, starter.PrioritySupport)

	premium := byCode[PlanPremium]
	assert.True(t, premium.PrioritySupport)

	// Fees and limits grow monotonically across the tiers.
	assert.Less(t, byCode[PlanStarter].MonthlyFee, byCode[PlanStandard].MonthlyFee)
	assert.Less(t, byCode[PlanStandard].MonthlyFee, byCode[PlanPremium].MonthlyFee)
	assert.Less(t, byCode[PlanStarter].StorageLimitMB, byCode[PlanStandard].StorageLimitMB)
	assert.Less(t, byCode[PlanStandard].StorageLimitMB, byCode[PlanPremium].StorageLimitMB)
}

func TestPaymentRecordEnsureReference(t *testing.T) {
	p := &PaymentRecord{}
	p.EnsureReference()
	assert.True(t, strings.HasPrefix(p.Reference, "pay-"))

	existing := &PaymentRecord{Reference: "receipt-0042"}
	existing.EnsureReference()
	assert.Equal(t, "receipt-0042", existing.Reference)
}
