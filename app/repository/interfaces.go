package repository

import (
	"time"

	"github.com/hamrocafe/cafecloud/app/models"
)

// TenantRepository defines the interface for registry tenant operations.
// Status fields are mutated only through the lifecycle manager; the
// metering service writes counter fields only (see UpdateFields callers).
type TenantRepository interface {
	Create(tenant *models.Tenant) error
	GetByID(id uint) (*models.Tenant, error)
	GetBySlug(slug string) (*models.Tenant, error)
	GetByEmail(email string) (*models.Tenant, error)
	Update(tenant *models.Tenant) error
	UpdateFields(id uint, fields map[string]interface{}) error
	HardDelete(id uint) error
	List(offset, limit int) ([]models.Tenant, error)
	ListByLifecycle(status models.LifecycleStatus) ([]models.Tenant, error)
	ListTrialExpiryCandidates(now time.Time) ([]models.Tenant, error)
	ListOverdueCandidates(cutoff time.Time) ([]models.Tenant, error)
	ListSuspensionCandidates(cutoff time.Time) ([]models.Tenant, error)
	Count() (int64, error)
	CountByLifecycle(status models.LifecycleStatus) (int64, error)
}

// PaymentRepository appends to and reads the immutable payment ledger.
type PaymentRepository interface {
	Create(payment *models.PaymentRecord) error
	ListByTenant(tenantID uint) ([]models.PaymentRecord, error)
	TotalPaid(tenantID uint) (float64, error)
}

// ActivityLogRepository appends to and reads the tenant audit trail.
type ActivityLogRepository interface {
	Append(tenantID uint, action, operator string, detail map[string]interface{}) error
	ListByTenant(tenantID uint, limit int) ([]models.TenantActivityLog, error)
}

// AlertRepository owns UsageAlert rows. Alerts are resolved, never
// deleted.
type AlertRepository interface {
	Create(alert *models.UsageAlert) error
	FindOpen(tenantID uint, resource models.AlertResource, level models.AlertLevel) (*models.UsageAlert, error)
	ListOpenByTenant(tenantID uint) ([]models.UsageAlert, error)
	ListByTenant(tenantID uint, limit int) ([]models.UsageAlert, error)
	Resolve(alertID uint, at time.Time) error
	ListUnsent(limit int) ([]models.UsageAlert, error)
	MarkSent(alertID uint) error
	MarkRead(alertID uint) error
	CountOpen() (int64, error)
}

// PlanRepository reads the plan catalogue.
type PlanRepository interface {
	GetByCode(code string) (*models.SubscriptionPlan, error)
	ListActive() ([]models.SubscriptionPlan, error)
}
