package statistics

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/hamrocafe/cafecloud/app/models"
	"github.com/hamrocafe/cafecloud/app/repository"
	"github.com/hamrocafe/cafecloud/internal/pkg/cache"
)

const (
	CacheKeyTenantsTotal     = "statistics:tenants:total"
	CacheKeyTenantsActive    = "statistics:tenants:active"
	CacheKeyTenantsSuspended = "statistics:tenants:suspended"
	CacheKeyAlertsOpen       = "statistics:alerts:open"
	CacheExpiration          = 30 * time.Minute
)

// PlatformStats holds the operator dashboard counters.
type PlatformStats struct {
	TotalTenants     int `json:"total_tenants"`
	ActiveTenants    int `json:"active_tenants"`
	SuspendedTenants int `json:"suspended_tenants"`
	OpenAlerts       int `json:"open_alerts"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached stats are stale.
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached stats when stale.
func UpdateCacheIfNeeded(repos *repository.Repositories) {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(repos); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// UpdateStatisticsCache recomputes all platform counters from the
// registry and stores them in the cache.
func UpdateStatisticsCache(repos *repository.Repositories) error {
	total, err := repos.Tenant.Count()
	if err != nil {
		log.Printf("Error counting tenants: %v", err)
		return err
	}

	active, err := repos.Tenant.CountByLifecycle(models.LifecycleActive)
	if err != nil {
		log.Printf("Error counting active tenants: %v", err)
		return err
	}

	suspended, err := repos.Tenant.CountByLifecycle(models.LifecycleSuspended)
	if err != nil {
		log.Printf("Error counting suspended tenants: %v", err)
		return err
	}

	openAlerts, err := repos.Alert.CountOpen()
	if err != nil {
		log.Printf("Error counting open alerts: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyTenantsTotal, strconv.FormatInt(total, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyTenantsActive, strconv.FormatInt(active, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyTenantsSuspended, strconv.FormatInt(suspended, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyAlertsOpen, strconv.FormatInt(openAlerts, 10), CacheExpiration); err != nil {
		return err
	}

	log.Printf("Statistics updated in cache: tenants=%d active=%d suspended=%d open_alerts=%d",
		total, active, suspended, openAlerts)
	return nil
}

func cachedCount(key string, fallback func() (int64, error)) int {
	if val, err := cache.GetInt(key); err == nil {
		return val
	}
	count, err := fallback()
	if err != nil {
		log.Printf("Error counting for %s: %v", key, err)
		return 0
	}
	if err := cache.Set(key, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
		log.Printf("Error caching %s: %v", key, err)
	}
	return int(count)
}

// GetPlatformStats returns the dashboard counters, refreshing the cache
// when needed.
func GetPlatformStats(repos *repository.Repositories) PlatformStats {
	UpdateCacheIfNeeded(repos)

	return PlatformStats{
		TotalTenants: cachedCount(CacheKeyTenantsTotal, repos.Tenant.Count),
		ActiveTenants: cachedCount(CacheKeyTenantsActive, func() (int64, error) {
			return repos.Tenant.CountByLifecycle(models.LifecycleActive)
		}),
		SuspendedTenants: cachedCount(CacheKeyTenantsSuspended, func() (int64, error) {
			return repos.Tenant.CountByLifecycle(models.LifecycleSuspended)
		}),
		OpenAlerts: cachedCount(CacheKeyAlertsOpen, repos.Alert.CountOpen),
	}
}
