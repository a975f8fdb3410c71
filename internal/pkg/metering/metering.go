package metering

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hamrocafe/cafecloud/app/models"
	"github.com/hamrocafe/cafecloud/app/repository"
	"github.com/hamrocafe/cafecloud/internal/pkg/tenantconn"
	"github.com/hamrocafe/cafecloud/internal/pkg/tenantschema"
)

// Snapshot is a point-in-time view of one tenant's resource
// consumption, with values in the units billing works in.
type Snapshot struct {
	StorageMB   float64   `json:"storage_mb"`
	BandwidthGB float64   `json:"bandwidth_gb"`
	Orders      int       `json:"orders"`
	Staff       int       `json:"staff"`
	MenuItems   int       `json:"menu_items"`
	Tables      int       `json:"tables"`
	CollectedAt time.Time `json:"collected_at"`
}

// Service measures per-tenant usage against the tenant's own isolated
// storage and refreshes the cached counters on the registry row.
type Service struct {
	tenants repository.TenantRepository
	conns   *tenantconn.Manager

	openDB func(dsn string) (*gorm.DB, error)
	now    func() time.Time
}

// closeDB releases the connection pool behind a per-operation handle.
// Tenant connections are never pooled across calls; the decrypted
// descriptor must not outlive the operation.
func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}

// NewService creates a metering service.
func NewService(tenants repository.TenantRepository, conns *tenantconn.Manager) *Service {
	return &Service{
		tenants: tenants,
		conns:   conns,
		openDB: func(dsn string) (*gorm.DB, error) {
			return gorm.Open(mysql.Open(dsn), &gorm.Config{
				Logger: logger.Default.LogMode(logger.Silent),
			})
		},
		now: time.Now,
	}
}

// CurrentPeriod returns the tenant's current billing period bounds,
// falling back to the calendar month containing now when the tenant has
// no explicit cycle yet (trial tenants).
func CurrentPeriod(tenant *models.Tenant, now time.Time) (time.Time, time.Time) {
	if tenant.BillingCycleStart != nil && tenant.BillingCycleEnd != nil {
		return *tenant.BillingCycleStart, *tenant.BillingCycleEnd
	}
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}

// GetUsage queries the tenant's isolated storage for a usage snapshot
// and writes the figures back into the tenant's cached counters.
// Bandwidth is an externally-tracked counter and is passed through
// unchanged. Only counter fields are written here, never status fields.
func (s *Service) GetUsage(slug string) (*Snapshot, error) {
	tenant, err := s.tenants.GetBySlug(slug)
	if err != nil {
		return nil, fmt.Errorf("metering %s: %w", slug, err)
	}

	target, err := s.conns.Decrypt(tenant.DBConnEncrypted)
	if err != nil {
		return nil, fmt.Errorf("metering %s: decrypt connection: %w", slug, err)
	}

	db, err := s.openDB(target.DSN())
	if err != nil {
		return nil, fmt.Errorf("metering %s: connect: %w", slug, err)
	}
	defer closeDB(db)

	now := s.now()
	snap := &Snapshot{
		BandwidthGB: tenant.UsedBandwidthGB,
		CollectedAt: now,
	}

	// Physical size from the storage engine, not an estimate.
	err = db.Raw(
		"SELECT COALESCE(SUM(data_length + index_length), 0) / 1024 / 1024 FROM information_schema.tables WHERE table_schema = ?",
		target.Database,
	).Scan(&snap.StorageMB).Error
	if err != nil {
		return nil, fmt.Errorf("metering %s: storage size: %w", slug, err)
	}

	periodStart, periodEnd := CurrentPeriod(tenant, now)
	var orders int64
	if err := db.Model(&tenantschema.Order{}).
		Where("created_at >= ? AND created_at < ?", periodStart, periodEnd).
		Count(&orders).Error; err != nil {
		return nil, fmt.Errorf("metering %s: order count: %w", slug, err)
	}
	snap.Orders = int(orders)

	var staff int64
	if err := db.Model(&tenantschema.StaffUser{}).Count(&staff).Error; err != nil {
		return nil, fmt.Errorf("metering %s: staff count: %w", slug, err)
	}
	snap.Staff = int(staff)

	var menuItems int64
	if err := db.Model(&tenantschema.MenuItem{}).Count(&menuItems).Error; err != nil {
		return nil, fmt.Errorf("metering %s: menu item count: %w", slug, err)
	}
	snap.MenuItems = int(menuItems)

	var tables int64
	if err := db.Model(&tenantschema.CafeTable{}).Count(&tables).Error; err != nil {
		return nil, fmt.Errorf("metering %s: table count: %w", slug, err)
	}
	snap.Tables = int(tables)

	if err := s.tenants.UpdateFields(tenant.ID, map[string]interface{}{
		"used_storage_mb":     snap.StorageMB,
		"used_bandwidth_gb":   snap.BandwidthGB,
		"used_orders":         snap.Orders,
		"used_staff":          snap.Staff,
		"counters_updated_at": now,
	}); err != nil {
		return nil, fmt.Errorf("metering %s: counter writeback: %w", slug, err)
	}

	return snap, nil
}

// CachedSnapshot builds a snapshot from the registry's cached counters
// without touching the isolated storage. Used by readers that can accept
// last-known values.
func CachedSnapshot(tenant *models.Tenant) *Snapshot {
	snap := &Snapshot{
		StorageMB:   tenant.UsedStorageMB,
		BandwidthGB: tenant.UsedBandwidthGB,
		Orders:      tenant.UsedOrders,
		Staff:       tenant.UsedStaff,
	}
	if tenant.CountersUpdatedAt != nil {
		snap.CollectedAt = *tenant.CountersUpdatedAt
	}
	return snap
}
