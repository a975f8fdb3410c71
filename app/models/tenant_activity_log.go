package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

const (
	ActivityProvisioned       = "provisioned"
	ActivityTrialExpired      = "trial_expired"
	ActivityPaymentRecorded   = "payment_recorded"
	ActivityMarkedOverdue     = "marked_overdue"
	ActivitySuspended         = "suspended"
	ActivityReactivated       = "reactivated"
	ActivityCancelled         = "cancelled"
	ActivityBillingComputed   = "billing_computed"
	ActivityStructureRepaired = "structure_repaired"
	ActivityReseeded          = "reseeded"
)

// TenantActivityLog is the append-only audit trail. Every lifecycle
// transition and billing event appends exactly one entry.
type TenantActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  uint      `gorm:"not null;index" json:"tenant_id"`
	Action    string    `gorm:"type:varchar(50);not null;index" json:"action"`
	Operator  string    `gorm:"type:varchar(150)" json:"operator"`
	Detail    string    `gorm:"type:text" json:"detail"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// AppendActivity writes one audit entry. detail is marshalled to JSON;
// a nil detail stores an empty payload.
func AppendActivity(db *gorm.DB, tenantID uint, action, operator string, detail map[string]interface{}) error {
	payload := ""
	if detail != nil {
		b, err := json.Marshal(detail)
		if err != nil {
			return err
		}
		payload = string(b)
	}
	entry := TenantActivityLog{
		TenantID: tenantID,
		Action:   action,
		Operator: operator,
		Detail:   payload,
	}
	return db.Create(&entry).Error
}
