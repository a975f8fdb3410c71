package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PlanStarter  = "starter"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

// SubscriptionPlan defines the included limits and overage rates for a
// pricing tier. All money values are NPR.
type SubscriptionPlan struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	Code       string  `gorm:"uniqueIndex;type:varchar(30);not null" json:"code"`
	Name       string  `gorm:"type:varchar(100);not null" json:"name"`
	MonthlyFee float64 `gorm:"type:decimal(12,2);not null" json:"monthly_fee"`

	StorageLimitMB   int `gorm:"not null" json:"storage_limit_mb"`
	BandwidthLimitGB int `gorm:"not null" json:"bandwidth_limit_gb"`
	OrderLimit       int `gorm:"not null" json:"order_limit"`
	StaffLimit       int `gorm:"not null" json:"staff_limit"`

	StorageRatePerMB   float64 `gorm:"type:decimal(12,4);not null" json:"storage_rate_per_mb"`
	BandwidthRatePerGB float64 `gorm:"type:decimal(12,4);not null" json:"bandwidth_rate_per_gb"`
	OrderRate          float64 `gorm:"type:decimal(12,4);not null" json:"order_rate"`
	StaffRate          float64 `gorm:"type:decimal(12,4);not null" json:"staff_rate"`

	PrioritySupport    bool    `gorm:"not null;default:false" json:"priority_support"`
	PrioritySupportFee float64 `gorm:"type:decimal(12,2);not null;default:0" json:"priority_support_fee"`

	IsActive  bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DefaultPlans is the catalogue seeded into a fresh registry.
func DefaultPlans() []SubscriptionPlan {
	return []SubscriptionPlan{
		{
			Code: PlanStarter, Name: "Starter", MonthlyFee: 1500,
			StorageLimitMB: 100, BandwidthLimitGB: 10, OrderLimit: 1000, StaffLimit: 5,
			StorageRatePerMB: 5, BandwidthRatePerGB: 50, OrderRate: 1, StaffRate: 200,
		},
		{
			Code: PlanStandard, Name: "Standard", MonthlyFee: 3500,
			StorageLimitMB: 500, BandwidthLimitGB: 50, OrderLimit: 5000, StaffLimit: 15,
			StorageRatePerMB: 4, BandwidthRatePerGB: 40, OrderRate: 0.8, StaffRate: 150,
		},
		{
			Code: PlanPremium, Name: "Premium", MonthlyFee: 7500,
			StorageLimitMB: 2000, BandwidthLimitGB: 200, OrderLimit: 25000, StaffLimit: 50,
			StorageRatePerMB: 3, BandwidthRatePerGB: 30, OrderRate: 0.5, StaffRate: 100,
			PrioritySupport: true, PrioritySupportFee: 1000,
		},
	}
}

// SeedDefaultPlans inserts the default plan catalogue if the codes are
// not present yet. Safe to run on every startup.
func SeedDefaultPlans(db *gorm.DB) error {
	for _, plan := range DefaultPlans() {
		p := plan
		if err := db.Where(SubscriptionPlan{Code: p.Code}).FirstOrCreate(&p).Error; err != nil {
			return err
		}
	}
	return nil
}
