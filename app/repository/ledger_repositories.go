package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/hamrocafe/cafecloud/app/models"
)

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a payment ledger repository backed by GORM.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(payment *models.PaymentRecord) error {
	payment.EnsureReference()
	return r.db.Create(payment).Error
}

func (r *paymentRepository) ListByTenant(tenantID uint) ([]models.PaymentRecord, error) {
	var payments []models.PaymentRecord
	err := r.db.Where("tenant_id = ?", tenantID).Order("paid_at DESC").Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) TotalPaid(tenantID uint) (float64, error) {
	var total float64
	err := r.db.Model(&models.PaymentRecord{}).
		Where("tenant_id = ?", tenantID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository creates an audit trail repository backed by GORM.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Append(tenantID uint, action, operator string, detail map[string]interface{}) error {
	return models.AppendActivity(r.db, tenantID, action, operator, detail)
}

func (r *activityLogRepository) ListByTenant(tenantID uint, limit int) ([]models.TenantActivityLog, error) {
	var entries []models.TenantActivityLog
	err := r.db.Where("tenant_id = ?", tenantID).Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a usage alert repository backed by GORM.
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) Create(alert *models.UsageAlert) error {
	return r.db.Create(alert).Error
}

func (r *alertRepository) FindOpen(tenantID uint, resource models.AlertResource, level models.AlertLevel) (*models.UsageAlert, error) {
	var alert models.UsageAlert
	err := r.db.
		Where("tenant_id = ? AND resource = ? AND level = ? AND resolved_at IS NULL", tenantID, resource, level).
		First(&alert).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) ListOpenByTenant(tenantID uint) ([]models.UsageAlert, error) {
	var alerts []models.UsageAlert
	err := r.db.Where("tenant_id = ? AND resolved_at IS NULL", tenantID).Find(&alerts).Error
	return alerts, err
}

func (r *alertRepository) ListByTenant(tenantID uint, limit int) ([]models.UsageAlert, error) {
	var alerts []models.UsageAlert
	err := r.db.Where("tenant_id = ?", tenantID).Order("created_at DESC").Limit(limit).Find(&alerts).Error
	return alerts, err
}

func (r *alertRepository) Resolve(alertID uint, at time.Time) error {
	return r.db.Model(&models.UsageAlert{}).
		Where("id = ? AND resolved_at IS NULL", alertID).
		Update("resolved_at", at).Error
}

func (r *alertRepository) ListUnsent(limit int) ([]models.UsageAlert, error) {
	var alerts []models.UsageAlert
	err := r.db.Where("is_sent = ? AND resolved_at IS NULL", false).Limit(limit).Find(&alerts).Error
	return alerts, err
}

func (r *alertRepository) MarkSent(alertID uint) error {
	return r.db.Model(&models.UsageAlert{}).Where("id = ?", alertID).Update("is_sent", true).Error
}

func (r *alertRepository) MarkRead(alertID uint) error {
	return r.db.Model(&models.UsageAlert{}).Where("id = ?", alertID).Update("is_read", true).Error
}

func (r *alertRepository) CountOpen() (int64, error) {
	var count int64
	err := r.db.Model(&models.UsageAlert{}).Where("resolved_at IS NULL").Count(&count).Error
	return count, err
}

type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a plan catalogue repository backed by GORM.
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) GetByCode(code string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := r.db.Where("code = ? AND is_active = ?", code, true).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) ListActive() ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := r.db.Where("is_active = ?", true).Order("monthly_fee").Find(&plans).Error
	return plans, err
}
