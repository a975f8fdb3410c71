package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/hamrocafe/cafecloud/app/models"
)

type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a tenant repository backed by GORM.
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) Create(tenant *models.Tenant) error {
	return r.db.Create(tenant).Error
}

func (r *tenantRepository) GetByID(id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.First(&tenant, id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) GetBySlug(slug string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.Where("slug = ?", slug).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) GetByEmail(email string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.Where("contact_email = ?", email).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) Update(tenant *models.Tenant) error {
	return r.db.Save(tenant).Error
}

func (r *tenantRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Tenant{}).Where("id = ?", id).Updates(fields).Error
}

func (r *tenantRepository) HardDelete(id uint) error {
	// Cascade the dependent ledgers, then remove the registry row for
	// good (bypassing the soft-delete hook).
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", id).Delete(&models.PaymentRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", id).Delete(&models.TenantActivityLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", id).Delete(&models.UsageAlert{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Tenant{}, id).Error
	})
}

func (r *tenantRepository) List(offset, limit int) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.Offset(offset).Limit(limit).Order("id").Find(&tenants).Error
	return tenants, err
}

func (r *tenantRepository) ListByLifecycle(status models.LifecycleStatus) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.Where("lifecycle_status = ?", status).Find(&tenants).Error
	return tenants, err
}

func (r *tenantRepository) ListTrialExpiryCandidates(now time.Time) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.
		Where("subscription_status = ? AND lifecycle_status = ? AND trial_ends_at IS NOT NULL AND trial_ends_at <= ?",
			models.SubscriptionTrial, models.LifecycleActive, now).
		Find(&tenants).Error
	return tenants, err
}

func (r *tenantRepository) ListOverdueCandidates(cutoff time.Time) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.
		Where("subscription_status = ? AND lifecycle_status = ? AND next_payment_due IS NOT NULL AND next_payment_due < ?",
			models.SubscriptionActive, models.LifecycleActive, cutoff).
		Find(&tenants).Error
	return tenants, err
}

func (r *tenantRepository) ListSuspensionCandidates(cutoff time.Time) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.
		Where("subscription_status = ? AND lifecycle_status = ? AND next_payment_due IS NOT NULL AND next_payment_due < ?",
			models.SubscriptionPaymentDue, models.LifecycleActive, cutoff).
		Find(&tenants).Error
	return tenants, err
}

func (r *tenantRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Tenant{}).Count(&count).Error
	return count, err
}

func (r *tenantRepository) CountByLifecycle(status models.LifecycleStatus) (int64, error) {
	var count int64
	err := r.db.Model(&models.Tenant{}).Where("lifecycle_status = ?", status).Count(&count).Error
	return count, err
}
