package metering

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hamrocafe/cafecloud/app/models"
	"github.com/hamrocafe/cafecloud/app/repository"
	"github.com/hamrocafe/cafecloud/internal/pkg/tenantconn"
)

func TestCurrentPeriod(t *testing.T) {
	now := time.Date(2026, 8, 15, 14, 30, 0, 0, time.UTC)

	t.Run("explicit billing cycle wins", func(t *testing.T) {
		start := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
		end := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
		tenant := &models.Tenant{BillingCycleStart: &start, BillingCycleEnd: &end}

		gotStart, gotEnd := CurrentPeriod(tenant, now)
		assert.Equal(t, start, gotStart)
		assert.Equal(t, end, gotEnd)
	})

	t.Run("trial tenant falls back to calendar month", func(t *testing.T) {
		gotStart, gotEnd := CurrentPeriod(&models.Tenant{}, now)
		assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), gotStart)
		assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), gotEnd)
	})

	t.Run("partial cycle ignored", func(t *testing.T) {
		start := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
		tenant := &models.Tenant{BillingCycleStart: &start}

		gotStart, _ := CurrentPeriod(tenant, now)
		assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), gotStart)
	})
}

func TestCachedSnapshot(t *testing.T) {
	updated := time.Date(2026, 8, 15, 6, 0, 0, 0, time.UTC)
	tenant := &models.Tenant{
		UsedStorageMB:     87.5,
		UsedBandwidthGB:   3.2,
		UsedOrders:        412,
		UsedStaff:         4,
		CountersUpdatedAt: &updated,
	}

	snap := CachedSnapshot(tenant)
	assert.InDelta(t, 87.5, snap.StorageMB, 0.001)
	assert.InDelta(t, 3.2, snap.BandwidthGB, 0.001)
	assert.Equal(t, 412, snap.Orders)
	assert.Equal(t, 4, snap.Staff)
	assert.Equal(t, updated, snap.CollectedAt)
}

func TestCachedSnapshotWithoutTimestamp(t *testing.T) {
	snap := CachedSnapshot(&models.Tenant{UsedOrders: 10})
	assert.True(t, snap.CollectedAt.IsZero())
}

type fakeTenants struct {
	repository.TenantRepository
	tenant  *models.Tenant
	updated map[string]interface{}
}

func (f *fakeTenants) GetBySlug(slug string) (*models.Tenant, error) {
	if f.tenant != nil && f.tenant.Slug == slug {
		return f.tenant, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTenants) UpdateFields(id uint, fields map[string]interface{}) error {
	f.updated = fields
	return nil
}

func TestGetUsageClosesConnection(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	conns := tenantconn.NewManager(key, tenantconn.ModeDatabase, "127.0.0.1", "3306", "ops", "s3cret")

	target, err := conns.TargetFor("himalayan-beans")
	require.NoError(t, err)
	blob, err := conns.Encrypt(target)
	require.NoError(t, err)

	tenants := &fakeTenants{tenant: &models.Tenant{
		ID:              7,
		Slug:            "himalayan-beans",
		UsedBandwidthGB: 1.5,
		DBConnEncrypted: blob,
	}}

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"size"}).AddRow(87.5))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `orders`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(412))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `staff_users`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `menu_items`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(38))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `cafe_tables`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))
	mock.ExpectClose()

	svc := &Service{
		tenants: tenants,
		conns:   conns,
		openDB: func(dsn string) (*gorm.DB, error) {
			assert.Equal(t, target.DSN(), dsn)
			return gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
				Logger: logger.Default.LogMode(logger.Silent),
			})
		},
		now: func() time.Time { return time.Date(2026, 8, 15, 6, 0, 0, 0, time.UTC) },
	}

	snap, err := svc.GetUsage("himalayan-beans")
	require.NoError(t, err)
	assert.InDelta(t, 87.5, snap.StorageMB, 0.001)
	assert.InDelta(t, 1.5, snap.BandwidthGB, 0.001)
	assert.Equal(t, 412, snap.Orders)
	assert.Equal(t, 4, snap.Staff)
	assert.Equal(t, 38, snap.MenuItems)
	assert.Equal(t, 6, snap.Tables)

	require.NotNil(t, tenants.updated)
	assert.Contains(t, tenants.updated, "used_storage_mb")
	assert.Contains(t, tenants.updated, "counters_updated_at")

	// ExpectClose above makes this fail if the pool outlived the call.
	assert.NoError(t, mock.ExpectationsWereMet())
}
