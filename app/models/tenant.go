package models

import (
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// LifecycleStatus gates a tenant's access to the platform.
type LifecycleStatus string

const (
	LifecycleProvisioning LifecycleStatus = "provisioning"
	LifecycleActive       LifecycleStatus = "active"
	LifecycleSuspended    LifecycleStatus = "suspended"
	LifecycleTrialExpired LifecycleStatus = "trial_expired"
	LifecycleCancelled    LifecycleStatus = "cancelled"
	LifecycleArchived     LifecycleStatus = "archived"
)

// SubscriptionStatus drives the billing relationship, independent of
// lifecycle status.
type SubscriptionStatus string

const (
	SubscriptionTrial      SubscriptionStatus = "trial"
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionPaymentDue SubscriptionStatus = "payment_due"
	SubscriptionExpired    SubscriptionStatus = "expired"
	SubscriptionCancelled  SubscriptionStatus = "cancelled"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a usable tenant slug: lowercase
// alphanumeric groups separated by single hyphens.
func ValidSlug(s string) bool {
	return len(s) >= 3 && len(s) <= 50 && slugPattern.MatchString(s)
}

// Tenant is one customer account in the master registry. Each tenant owns
// an isolated MySQL database (or schema) whose connection descriptor is
// stored encrypted and never serialized.
type Tenant struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Slug         string `gorm:"uniqueIndex;type:varchar(50);not null" json:"slug" validate:"required,min=3,max=50"`
	BusinessName string `gorm:"type:varchar(150);not null" json:"business_name" validate:"required,min=2,max=150"`
	ContactName  string `gorm:"type:varchar(150)" json:"contact_name" validate:"max=150"`
	ContactEmail string `gorm:"uniqueIndex;type:varchar(200)" json:"contact_email" validate:"required,email,max=200"`
	ContactPhone string `gorm:"type:varchar(30)" json:"contact_phone" validate:"max=30"`
	Address      string `gorm:"type:varchar(255)" json:"address" validate:"max=255"`

	// DBConnEncrypted holds the AES-GCM encrypted connection descriptor
	// for the tenant's isolated storage. Only ephemeral decrypted values
	// may travel through memory during an operation.
	DBConnEncrypted string `gorm:"type:text" json:"-"`

	PlanCode           string             `gorm:"type:varchar(30);not null;default:'starter';index" json:"plan_code"`
	SubscriptionStatus SubscriptionStatus `gorm:"type:varchar(20);not null;default:'trial';index" json:"subscription_status"`
	LifecycleStatus    LifecycleStatus    `gorm:"type:varchar(20);not null;default:'provisioning';index" json:"lifecycle_status"`

	TrialEndsAt       *time.Time `gorm:"type:timestamp;default:null" json:"trial_ends_at,omitempty"`
	BillingCycleStart *time.Time `gorm:"type:timestamp;default:null" json:"billing_cycle_start,omitempty"`
	BillingCycleEnd   *time.Time `gorm:"type:timestamp;default:null" json:"billing_cycle_end,omitempty"`
	MonthlyFee        float64    `gorm:"type:decimal(12,2);not null;default:0" json:"monthly_fee"`
	LastPaymentAt     *time.Time `gorm:"type:timestamp;default:null" json:"last_payment_at,omitempty"`
	NextPaymentDue    *time.Time `gorm:"type:timestamp;default:null;index" json:"next_payment_due,omitempty"`

	// Per-tenant limit overrides. Nil means "use the plan default".
	CustomStorageLimitMB   *int `gorm:"default:null" json:"custom_storage_limit_mb,omitempty"`
	CustomBandwidthLimitGB *int `gorm:"default:null" json:"custom_bandwidth_limit_gb,omitempty"`
	CustomOrderLimit       *int `gorm:"default:null" json:"custom_order_limit,omitempty"`
	CustomStaffLimit       *int `gorm:"default:null" json:"custom_staff_limit,omitempty"`

	// Cached usage counters for the current billing period, refreshed by
	// the metering service so readers never touch the isolated storage.
	UsedStorageMB     float64    `gorm:"type:decimal(12,2);not null;default:0" json:"used_storage_mb"`
	UsedBandwidthGB   float64    `gorm:"type:decimal(12,2);not null;default:0" json:"used_bandwidth_gb"`
	UsedOrders        int        `gorm:"not null;default:0" json:"used_orders"`
	UsedStaff         int        `gorm:"not null;default:0" json:"used_staff"`
	CountersUpdatedAt *time.Time `gorm:"type:timestamp;default:null" json:"counters_updated_at,omitempty"`

	LastBillingAt *time.Time `gorm:"type:timestamp;default:null" json:"last_billing_at,omitempty"`
	LastOverage   float64    `gorm:"type:decimal(12,2);not null;default:0" json:"last_overage"`
	LastTotalBill float64    `gorm:"type:decimal(12,2);not null;default:0" json:"last_total_bill"`

	SuspendedAt *time.Time `gorm:"type:timestamp;default:null" json:"suspended_at,omitempty"`
	ActivatedAt *time.Time `gorm:"type:timestamp;default:null" json:"activated_at,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Tenant) Validate() error {
	v := validator.New()

	return v.Struct(t)
}

// HasAccess reports whether the tenant may use the platform at all.
func (t *Tenant) HasAccess() bool {
	return t.LifecycleStatus == LifecycleActive
}

// OnTrial reports whether the tenant is still inside its trial window.
func (t *Tenant) OnTrial(now time.Time) bool {
	return t.SubscriptionStatus == SubscriptionTrial &&
		t.TrialEndsAt != nil && now.Before(*t.TrialEndsAt)
}

// TrialExpired reports whether a trial tenant's trial window has passed.
func (t *Tenant) TrialExpired(now time.Time) bool {
	return t.SubscriptionStatus == SubscriptionTrial &&
		t.TrialEndsAt != nil && !now.Before(*t.TrialEndsAt)
}

// PaymentOverdue reports whether the next payment was due more than
// grace before now.
func (t *Tenant) PaymentOverdue(now time.Time, grace time.Duration) bool {
	return t.NextPaymentDue != nil && t.NextPaymentDue.Before(now.Add(-grace))
}
