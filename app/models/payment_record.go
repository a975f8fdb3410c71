package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentMethodCash     = "cash"
	PaymentMethodBank     = "bank_transfer"
	PaymentMethodEsewa    = "esewa"
	PaymentMethodKhalti   = "khalti"
	PaymentMethodFonepay  = "fonepay"
	PaymentMethodInternal = "internal"
)

// PaymentRecord is one append-only ledger entry. Rows are never updated
// or deleted; the total paid by a tenant is always the sum over this
// ledger.
type PaymentRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TenantID    uint      `gorm:"not null;index" json:"tenant_id"`
	Tenant      Tenant    `gorm:"foreignKey:TenantID" json:"-"`
	Amount      float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaidAt      time.Time `gorm:"type:timestamp;not null" json:"paid_at"`
	Method      string    `gorm:"type:varchar(30);not null" json:"method"`
	PeriodStart time.Time `gorm:"type:timestamp;not null" json:"period_start"`
	PeriodEnd   time.Time `gorm:"type:timestamp;not null" json:"period_end"`
	Reference   string    `gorm:"type:varchar(100)" json:"reference"`
	RecordedBy  string    `gorm:"type:varchar(150)" json:"recorded_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// EnsureReference fills in a generated receipt reference when the
// operator did not supply one.
func (p *PaymentRecord) EnsureReference() {
	if p.Reference == "" {
		p.Reference = "pay-" + uuid.NewString()
	}
}
