package tenantschema

import (
	"time"

	"gorm.io/gorm"
)

// The tenant-side table structure is a fixed contract shared with the
// POS application. The provisioner creates it, the metering service
// reads it; nothing in this repo mutates tenant business data.

const (
	StaffRoleAdmin   = "admin"
	StaffRoleManager = "manager"
	StaffRoleCashier = "cashier"
)

const (
	OrderStatusOpen      = "open"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// StaffUser is a staff account inside one tenant's cafe.
type StaffUser struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"uniqueIndex;type:varchar(100);not null" json:"username"`
	FullName     string         `gorm:"type:varchar(150)" json:"full_name"`
	PasswordHash string         `gorm:"type:text;not null" json:"-"`
	Role         string         `gorm:"type:varchar(30);not null;default:'cashier'" json:"role"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// MenuCategory groups menu items.
type MenuCategory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;type:varchar(100);not null" json:"name"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// MenuItem is one sellable product.
type MenuItem struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CategoryID  uint           `gorm:"index" json:"category_id"`
	Name        string         `gorm:"type:varchar(150);not null" json:"name"`
	Price       float64        `gorm:"type:decimal(10,2);not null" json:"price"`
	IsAvailable bool           `gorm:"not null;default:true" json:"is_available"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// CafeTable is one physical table in the cafe.
type CafeTable struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Number    int       `gorm:"uniqueIndex;not null" json:"number"`
	Seats     int       `gorm:"not null;default:2" json:"seats"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Order is one customer order; the metering service counts these per
// billing period.
type Order struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TableID   *uint     `gorm:"index" json:"table_id,omitempty"`
	StaffID   uint      `gorm:"index" json:"staff_id"`
	Status    string    `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	Total     float64   `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderItem is one line on an order.
type OrderItem struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	OrderID    uint    `gorm:"not null;index" json:"order_id"`
	MenuItemID uint    `gorm:"not null;index" json:"menu_item_id"`
	Quantity   int     `gorm:"not null;default:1" json:"quantity"`
	UnitPrice  float64 `gorm:"type:decimal(10,2);not null" json:"unit_price"`
}

// InventoryItem tracks stock for ingredients and supplies.
type InventoryItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"uniqueIndex;type:varchar(150);not null" json:"name"`
	Unit         string    `gorm:"type:varchar(30);not null;default:'pcs'" json:"unit"`
	Quantity     float64   `gorm:"type:decimal(12,3);not null;default:0" json:"quantity"`
	ReorderLevel float64   `gorm:"type:decimal(12,3);not null;default:0" json:"reorder_level"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// All returns the full tenant table set in creation order.
func All() []interface{} {
	return []interface{}{
		&StaffUser{},
		&MenuCategory{},
		&MenuItem{},
		&CafeTable{},
		&Order{},
		&OrderItem{},
		&InventoryItem{},
	}
}
