package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamrocafe/cafecloud/app/models"
)

func TestCheckTrialExpiry(t *testing.T) {
	e := newTestEnv(t)
	expiredEnd := testNow.AddDate(0, 0, -1)
	activeEnd := testNow.AddDate(0, 0, 3)

	expired := e.addTenant(t, &models.Tenant{
		Slug:               "expired-cafe",
		ContactEmail:       "expired@example.com",
		LifecycleStatus:    models.LifecycleActive,
		SubscriptionStatus: models.SubscriptionTrial,
		TrialEndsAt:        &expiredEnd,
	})
	stillTrialing := e.addTenant(t, &models.Tenant{
		Slug:               "fresh-cafe",
		ContactEmail:       "fresh@example.com",
		LifecycleStatus:    models.LifecycleActive,
		SubscriptionStatus: models.SubscriptionTrial,
		TrialEndsAt:        &activeEnd,
	})

	result := e.manager.CheckTrialExpiry(testNow)
	require.NoError(t, result.Err())
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 1, result.Transitioned)

	assert.Equal(t, models.LifecycleTrialExpired, expired.LifecycleStatus)
	assert.Equal(t, models.SubscriptionExpired, expired.SubscriptionStatus)
	assert.NotNil(t, expired.SuspendedAt)

	assert.Equal(t, models.LifecycleActive, stillTrialing.LifecycleStatus)
	assert.Equal(t, models.SubscriptionTrial, stillTrialing.SubscriptionStatus)
}

func TestCheckTrialExpiryIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	expiredEnd := testNow.AddDate(0, 0, -1)
	e.addTenant(t, &models.Tenant{
		Slug:               "expired-cafe",
		ContactEmail:       "expired@example.com",
		LifecycleStatus:    models.LifecycleActive,
		SubscriptionStatus: models.SubscriptionTrial,
		TrialEndsAt:        &expiredEnd,
	})

	first := e.manager.CheckTrialExpiry(testNow)
	assert.Equal(t, 1, first.Transitioned)

	// The tenant is no longer active, so a second run finds nothing and
	// appends no duplicate audit entries.
	second := e.manager.CheckTrialExpiry(testNow)
	assert.Equal(t, 0, second.Checked)
	assert.Equal(t, 0, second.Transitioned)
	assert.Equal(t, []string{models.ActivityTrialExpired}, e.activity.actions())
}

func TestCheckTrialExpiryExactBoundary(t *testing.T) {
	e := newTestEnv(t)
	boundary := testNow
	tenant := e.addTenant(t, &models.Tenant{
		Slug:               "boundary-cafe",
		ContactEmail:       "boundary@example.com",
		LifecycleStatus:    models.LifecycleActive,
		SubscriptionStatus: models.SubscriptionTrial,
		TrialEndsAt:        &boundary,
	})

	// A trial ending exactly now is expired: the window is [start, end).
	result := e.manager.CheckTrialExpiry(testNow)
	assert.Equal(t, 1, result.Transitioned)
	assert.Equal(t, models.LifecycleTrialExpired, tenant.LifecycleStatus)
}

func TestMarkOverduePayments(t *testing.T) {
	e := newTestEnv(t)
	lateDue := testNow.AddDate(0, 0, -6)
	withinGrace := testNow.AddDate(0, 0, -3)

	late := e.addTenant(t, &models.Tenant{
		Slug:               "late-cafe",
		ContactEmail:       "late@example.com",
		LifecycleStatus:    models.LifecycleActive,
		SubscriptionStatus: models.SubscriptionActive,
		NextPaymentDue:     &lateDue,
	})
	graced := e.addTenant(t, &models.Tenant{
		Slug:               "graced-cafe",
		ContactEmail:       "graced@example.com",
		LifecycleStatus:    models.LifecycleActive,
		SubscriptionStatus: models.SubscriptionActive,
		NextPaymentDue:     &withinGrace,
	})

	result := e.manager.MarkOverduePayments(testNow, DefaultGraceDays)
	require.NoError(t, result.Err())
	assert.Equal(t, 1, result.Transitioned)

	assert.Equal(t, models.SubscriptionPaymentDue, late.SubscriptionStatus)
	// Access is kept during the grace window and beyond it until the
	// suspension sweep runs; only the subscription status changes.
	assert.Equal(t, models.LifecycleActive, late.LifecycleStatus)

	assert.Equal(t, models.SubscriptionActive, graced.SubscriptionStatus)
}

func TestMarkOverduePaymentsIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	lateDue := testNow.AddDate(0, 0, -6)
	e.addTenant(t, &models.Tenant{
		Slug:               "late-cafe",
		ContactEmail:       "late@example.com",
		LifecycleStatus:    models.LifecycleActive,
		SubscriptionStatus: models.SubscriptionActive,
		NextPaymentDue:     &lateDue,
	})

	first := e.manager.MarkOverduePayments(testNow, DefaultGraceDays)
	assert.Equal(t, 1, first.Transitioned)

	second := e.manager.MarkOverduePayments(testNow, DefaultGraceDays)
	assert.Equal(t, 0, second.Checked)
	assert.Equal(t, []string{models.ActivityMarkedOverdue}, e.activity.actions())
}

func TestSuspendOverdueAccounts(t *testing.T) {
	e := newTestEnv(t)
	wayOverdue := testNow.AddDate(0, 0, -16)
	recentlyOverdue := testNow.AddDate(0, 0, -10)

	suspended := e.addTenant(t, &models.Tenant{
		Slug:               "overdue-cafe",
		ContactEmail:       "overdue@example.com",
		LifecycleStatus:    models.LifecycleActive,
		SubscriptionStatus: models.SubscriptionPaymentDue,
		NextPaymentDue:     &wayOverdue,
	})
	spared := e.addTenant(t, &models.Tenant{
		Slug:               "recent-cafe",
		ContactEmail:       "recent@example.com",
		LifecycleStatus:    models.LifecycleActive,
		SubscriptionStatus: models.SubscriptionPaymentDue,
		NextPaymentDue:     &recentlyOverdue,
	})

	result := e.manager.SuspendOverdueAccounts(testNow, DefaultOverdueDays)
	require.NoError(t, result.Err())
	assert.Equal(t, 1, result.Transitioned)

	assert.Equal(t, models.LifecycleSuspended, suspended.LifecycleStatus)
	require.NotNil(t, suspended.SuspendedAt)
	assert.Equal(t, testNow, *suspended.SuspendedAt)
	// Subscription status stays payment_due; suspension gates access,
	// not the billing relationship.
	assert.Equal(t, models.SubscriptionPaymentDue, suspended.SubscriptionStatus)

	assert.Equal(t, models.LifecycleActive, spared.LifecycleStatus)
}

func TestSweepDefaultsApplyOnNonPositiveWindows(t *testing.T) {
	e := newTestEnv(t)
	lateDue := testNow.AddDate(0, 0, -6)
	tenant := e.addTenant(t, &models.Tenant{
		Slug:               "late-cafe",
		ContactEmail:       "late@example.com",
		LifecycleStatus:    models.LifecycleActive,
		SubscriptionStatus: models.SubscriptionActive,
		NextPaymentDue:     &lateDue,
	})

	// Zero falls back to the 5-day default grace.
	result := e.manager.MarkOverduePayments(testNow, 0)
	assert.Equal(t, 1, result.Transitioned)
	assert.Equal(t, models.SubscriptionPaymentDue, tenant.SubscriptionStatus)
}

func TestSweepResultErr(t *testing.T) {
	var ok SweepResult
	assert.NoError(t, ok.Err())

	failed := SweepResult{Checked: 3, Errors: []error{assert.AnError}}
	err := failed.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3")
}

func TestFullDunningSequence(t *testing.T) {
	e := newTestEnv(t)
	due := testNow.AddDate(0, 0, -20)
	tenant := e.addTenant(t, &models.Tenant{
		Slug:               "dunned-cafe",
		ContactEmail:       "dunned@example.com",
		LifecycleStatus:    models.LifecycleActive,
		SubscriptionStatus: models.SubscriptionActive,
		NextPaymentDue:     &due,
	})

	// Grace passed long ago: first sweep marks the payment overdue, the
	// second suspends, and a recorded payment restores full access.
	e.manager.MarkOverduePayments(testNow, DefaultGraceDays)
	assert.Equal(t, models.SubscriptionPaymentDue, tenant.SubscriptionStatus)

	e.manager.SuspendOverdueAccounts(testNow, DefaultOverdueDays)
	assert.Equal(t, models.LifecycleSuspended, tenant.LifecycleStatus)

	_, err := e.manager.RecordPayment("dunned-cafe", PaymentInput{
		Amount:      1500,
		PaidAt:      testNow,
		PeriodStart: testNow,
		PeriodEnd:   testNow.AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, models.LifecycleActive, tenant.LifecycleStatus)
	assert.Equal(t, models.SubscriptionActive, tenant.SubscriptionStatus)
	assert.Nil(t, tenant.SuspendedAt)
	assert.True(t, tenant.NextPaymentDue.After(testNow), "next due date moved forward")
}
