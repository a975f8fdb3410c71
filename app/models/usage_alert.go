package models

import "time"

// AlertResource tags which metered resource an alert refers to.
type AlertResource string

const (
	ResourceStorage   AlertResource = "storage"
	ResourceBandwidth AlertResource = "bandwidth"
	ResourceOrders    AlertResource = "orders"
	ResourceStaff     AlertResource = "staff"
)

// AlertLevel is the severity band an alert was raised at.
type AlertLevel string

const (
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
	AlertExceeded AlertLevel = "exceeded"
)

// UsageAlert records a tenant crossing a usage threshold. Alerts are
// only ever resolved (ResolvedAt set), never deleted, so the full alert
// history per tenant is preserved. At most one open alert may exist per
// (tenant, resource, level); the alert engine enforces this before
// creating rows.
type UsageAlert struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	TenantID     uint          `gorm:"not null;index:idx_usage_alerts_tenant_open" json:"tenant_id"`
	Resource     AlertResource `gorm:"type:varchar(20);not null" json:"resource"`
	Level        AlertLevel    `gorm:"type:varchar(20);not null" json:"level"`
	Percent      float64       `gorm:"type:decimal(8,2);not null" json:"percent"`
	CurrentValue float64       `gorm:"type:decimal(14,2);not null" json:"current_value"`
	LimitValue   float64       `gorm:"type:decimal(14,2);not null" json:"limit_value"`
	Message      string        `gorm:"type:varchar(255);not null" json:"message"`
	IsRead       bool          `gorm:"not null;default:false" json:"is_read"`
	IsSent       bool          `gorm:"not null;default:false;index" json:"is_sent"`
	ResolvedAt   *time.Time    `gorm:"type:timestamp;default:null;index:idx_usage_alerts_tenant_open" json:"resolved_at,omitempty"`
	CreatedAt    time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// Open reports whether the alert is still unresolved.
func (a *UsageAlert) Open() bool {
	return a.ResolvedAt == nil
}
