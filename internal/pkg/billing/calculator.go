package billing

import (
	"math"

	"github.com/hamrocafe/cafecloud/app/models"
	"github.com/hamrocafe/cafecloud/internal/pkg/metering"
)

// Limits are the effective per-resource limits for a tenant after
// applying custom overrides on top of the plan defaults.
type Limits struct {
	StorageMB   int `json:"storage_mb"`
	BandwidthGB int `json:"bandwidth_gb"`
	Orders      int `json:"orders"`
	Staff       int `json:"staff"`
}

// Rates are the per-unit overage prices (NPR).
type Rates struct {
	StoragePerMB   float64 `json:"storage_per_mb"`
	BandwidthPerGB float64 `json:"bandwidth_per_gb"`
	PerOrder       float64 `json:"per_order"`
	PerStaff       float64 `json:"per_staff"`
}

// ResourceCharge is the overage computation for one metered resource.
// Percent is deliberately not clamped: values over 100 are meaningful.
type ResourceCharge struct {
	Resource models.AlertResource `json:"resource"`
	Usage    float64              `json:"usage"`
	Limit    float64              `json:"limit"`
	Percent  float64              `json:"percent"`
	Overage  float64              `json:"overage"`
	Rate     float64              `json:"rate"`
	Charge   float64              `json:"charge"`
}

// Result is a computed bill for one billing period.
type Result struct {
	PlanCode           string           `json:"plan_code"`
	BaseFee            float64          `json:"base_fee"`
	Charges            []ResourceCharge `json:"charges"`
	PrioritySupportFee float64          `json:"priority_support_fee"`
	TotalOverage       float64          `json:"total_overage"`
	Total              float64          `json:"total"`
}

// ResolveLimits returns the tenant's effective limits: the custom
// override when set, otherwise the plan default.
func ResolveLimits(tenant *models.Tenant, plan *models.SubscriptionPlan) Limits {
	limits := Limits{
		StorageMB:   plan.StorageLimitMB,
		BandwidthGB: plan.BandwidthLimitGB,
		Orders:      plan.OrderLimit,
		Staff:       plan.StaffLimit,
	}
	if tenant.CustomStorageLimitMB != nil {
		limits.StorageMB = *tenant.CustomStorageLimitMB
	}
	if tenant.CustomBandwidthLimitGB != nil {
		limits.BandwidthGB = *tenant.CustomBandwidthLimitGB
	}
	if tenant.CustomOrderLimit != nil {
		limits.Orders = *tenant.CustomOrderLimit
	}
	if tenant.CustomStaffLimit != nil {
		limits.Staff = *tenant.CustomStaffLimit
	}
	return limits
}

// RatesFromPlan extracts the overage rates of a plan.
func RatesFromPlan(plan *models.SubscriptionPlan) Rates {
	return Rates{
		StoragePerMB:   plan.StorageRatePerMB,
		BandwidthPerGB: plan.BandwidthRatePerGB,
		PerOrder:       plan.OrderRate,
		PerStaff:       plan.StaffRate,
	}
}

// Percent returns usage as a percentage of limit, unclamped. A
// non-positive limit yields 0 to avoid division blowups on unlimited
// resources.
func Percent(usage, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return usage / limit * 100
}

// Calculate computes the bill for one usage snapshot. It is a pure
// function of its inputs so it can be tested with fixed fixtures.
func Calculate(usage *metering.Snapshot, limits Limits, rates Rates, baseFee, priorityFee float64) Result {
	charges := []ResourceCharge{
		charge(models.ResourceStorage, usage.StorageMB, float64(limits.StorageMB), rates.StoragePerMB),
		charge(models.ResourceBandwidth, usage.BandwidthGB, float64(limits.BandwidthGB), rates.BandwidthPerGB),
		charge(models.ResourceOrders, float64(usage.Orders), float64(limits.Orders), rates.PerOrder),
		charge(models.ResourceStaff, float64(usage.Staff), float64(limits.Staff), rates.PerStaff),
	}

	totalOverage := 0.0
	for _, c := range charges {
		totalOverage += c.Charge
	}
	totalOverage = round2(totalOverage)

	return Result{
		BaseFee:            baseFee,
		Charges:            charges,
		PrioritySupportFee: priorityFee,
		TotalOverage:       totalOverage,
		Total:              round2(baseFee + totalOverage + priorityFee),
	}
}

func charge(resource models.AlertResource, usage, limit, rate float64) ResourceCharge {
	overage := math.Max(0, usage-limit)
	return ResourceCharge{
		Resource: resource,
		Usage:    usage,
		Limit:    limit,
		Percent:  round2(Percent(usage, limit)),
		Overage:  overage,
		Rate:     rate,
		Charge:   round2(overage * rate),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
