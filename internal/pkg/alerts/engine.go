package alerts

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/hamrocafe/cafecloud/app/models"
	"github.com/hamrocafe/cafecloud/app/repository"
	"github.com/hamrocafe/cafecloud/internal/pkg/billing"
	"github.com/hamrocafe/cafecloud/internal/pkg/metering"
)

// Thresholds are the percentage bands alerts are raised at.
type Thresholds struct {
	Warning  float64
	Critical float64
	Exceeded float64
}

// DefaultThresholds returns the standard bands.
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 80, Critical: 90, Exceeded: 100}
}

// Candidate is one alert the evaluator wants to exist for a tenant.
type Candidate struct {
	Resource models.AlertResource
	Level    models.AlertLevel
	Percent  float64
	Current  float64
	Limit    float64
	Message  string
}

type resourceReading struct {
	resource models.AlertResource
	current  float64
	limit    float64
	unit     string
}

func readings(snap *metering.Snapshot, limits billing.Limits) []resourceReading {
	return []resourceReading{
		{models.ResourceStorage, snap.StorageMB, float64(limits.StorageMB), "MB"},
		{models.ResourceBandwidth, snap.BandwidthGB, float64(limits.BandwidthGB), "GB"},
		{models.ResourceOrders, float64(snap.Orders), float64(limits.Orders), "orders"},
		{models.ResourceStaff, float64(snap.Staff), float64(limits.Staff), "staff"},
	}
}

// LevelFor maps a usage percentage to its severity band, or "" when the
// percentage is below every threshold.
func (t Thresholds) LevelFor(percent float64) models.AlertLevel {
	switch {
	case percent >= t.Exceeded:
		return models.AlertExceeded
	case percent >= t.Critical:
		return models.AlertCritical
	case percent >= t.Warning:
		return models.AlertWarning
	default:
		return ""
	}
}

// Evaluate maps a usage snapshot to the set of alerts that should be
// open: at most one candidate per resource, at the highest band its
// percentage reaches. Pure function of its inputs.
func Evaluate(snap *metering.Snapshot, limits billing.Limits, th Thresholds) []Candidate {
	var out []Candidate
	for _, r := range readings(snap, limits) {
		percent := billing.Percent(r.current, r.limit)
		level := th.LevelFor(percent)
		if level == "" {
			continue
		}
		out = append(out, Candidate{
			Resource: r.resource,
			Level:    level,
			Percent:  percent,
			Current:  r.current,
			Limit:    r.limit,
			Message: fmt.Sprintf("%s usage at %.0f%% of limit (%.0f %s of %.0f %s)",
				r.resource, percent, r.current, r.unit, r.limit, r.unit),
		})
	}
	return out
}

// Engine compares usage against threshold bands, creating deduplicated
// alerts and resolving obsolete ones. It owns UsageAlert rows
// exclusively.
type Engine struct {
	tenants    repository.TenantRepository
	plans      repository.PlanRepository
	alerts     repository.AlertRepository
	usage      billing.UsageSource
	thresholds Thresholds

	now func() time.Time
}

// NewEngine creates an alert engine with the given thresholds.
func NewEngine(tenants repository.TenantRepository, plans repository.PlanRepository, alertRepo repository.AlertRepository, usage billing.UsageSource, th Thresholds) *Engine {
	return &Engine{
		tenants:    tenants,
		plans:      plans,
		alerts:     alertRepo,
		usage:      usage,
		thresholds: th,
		now:        time.Now,
	}
}

// CheckAndCreateAlerts evaluates a tenant's usage and creates one alert
// per crossed (resource, level) band, skipping bands that already have
// an open alert. Re-running with unchanged usage is a no-op, which keeps
// repeated scheduler runs from producing alert storms.
func (e *Engine) CheckAndCreateAlerts(slug string) (int, error) {
	tenant, err := e.tenants.GetBySlug(slug)
	if err != nil {
		return 0, fmt.Errorf("alerts %s: %w", slug, err)
	}
	plan, err := e.plans.GetByCode(tenant.PlanCode)
	if err != nil {
		return 0, fmt.Errorf("alerts %s: load plan: %w", slug, err)
	}
	snap, err := e.usage.GetUsage(slug)
	if err != nil {
		return 0, fmt.Errorf("alerts %s: usage: %w", slug, err)
	}

	limits := billing.ResolveLimits(tenant, plan)
	created := 0
	for _, c := range Evaluate(snap, limits, e.thresholds) {
		_, err := e.alerts.FindOpen(tenant.ID, c.Resource, c.Level)
		if err == nil {
			// Already open at this severity; nothing to do.
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, fmt.Errorf("alerts %s: lookup open alert: %w", slug, err)
		}

		alert := &models.UsageAlert{
			TenantID:     tenant.ID,
			Resource:     c.Resource,
			Level:        c.Level,
			Percent:      c.Percent,
			CurrentValue: c.Current,
			LimitValue:   c.Limit,
			Message:      c.Message,
		}
		if err := e.alerts.Create(alert); err != nil {
			return created, fmt.Errorf("alerts %s: create: %w", slug, err)
		}
		created++
	}
	return created, nil
}

// ResolveObsoleteAlerts closes every open alert of a tenant whose
// current usage percentage has dropped back below the warning
// threshold. Alerts are resolved, never deleted.
func (e *Engine) ResolveObsoleteAlerts(slug string) (int, error) {
	tenant, err := e.tenants.GetBySlug(slug)
	if err != nil {
		return 0, fmt.Errorf("alerts %s: %w", slug, err)
	}
	plan, err := e.plans.GetByCode(tenant.PlanCode)
	if err != nil {
		return 0, fmt.Errorf("alerts %s: load plan: %w", slug, err)
	}

	limits := billing.ResolveLimits(tenant, plan)
	percents := map[models.AlertResource]float64{}
	for _, r := range readings(metering.CachedSnapshot(tenant), limits) {
		percents[r.resource] = billing.Percent(r.current, r.limit)
	}

	open, err := e.alerts.ListOpenByTenant(tenant.ID)
	if err != nil {
		return 0, fmt.Errorf("alerts %s: list open: %w", slug, err)
	}

	resolved := 0
	now := e.now()
	for _, alert := range open {
		if percents[alert.Resource] >= e.thresholds.Warning {
			continue
		}
		if err := e.alerts.Resolve(alert.ID, now); err != nil {
			return resolved, fmt.Errorf("alerts %s: resolve %d: %w", slug, alert.ID, err)
		}
		log.Printf("alerts: resolved %s/%s alert for tenant %s (now %.0f%%)",
			alert.Resource, alert.Level, slug, percents[alert.Resource])
		resolved++
	}
	return resolved, nil
}
