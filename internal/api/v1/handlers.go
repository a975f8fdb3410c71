package apiv1

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hamrocafe/cafecloud/app/repository"
	"github.com/hamrocafe/cafecloud/internal/pkg/alerts"
	"github.com/hamrocafe/cafecloud/internal/pkg/billing"
	"github.com/hamrocafe/cafecloud/internal/pkg/lifecycle"
	"github.com/hamrocafe/cafecloud/internal/pkg/metering"
	"github.com/hamrocafe/cafecloud/internal/pkg/provisioner"
	"github.com/hamrocafe/cafecloud/internal/pkg/scheduler"
	"github.com/hamrocafe/cafecloud/internal/pkg/statistics"
)

// APIServer exposes the operator-facing tenant operations.
type APIServer struct {
	repos     *repository.Repositories
	lifecycle *lifecycle.Manager
	billing   *billing.Service
	metering  *metering.Service
	alerts    *alerts.Engine
	daily     *scheduler.Daily
}

// NewAPIServer creates a new API server instance.
func NewAPIServer(repos *repository.Repositories, lc *lifecycle.Manager, bs *billing.Service, ms *metering.Service, ae *alerts.Engine, daily *scheduler.Daily) *APIServer {
	return &APIServer{repos: repos, lifecycle: lc, billing: bs, metering: ms, alerts: ae, daily: daily}
}

// errorJSON maps service errors to HTTP responses: validation
// rejections are 422, missing tenants 404, provisioning failures 502
// with the failing step, everything else 500.
func errorJSON(c *fiber.Ctx, err error) error {
	var ve *lifecycle.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "validation_failed", "field": ve.Field, "message": ve.Reason,
		})
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not_found", "message": err.Error(),
		})
	}
	var pe *provisioner.Error
	if errors.As(err, &pe) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "provisioning_failed", "step": pe.Step, "slug": pe.Slug, "message": pe.Err.Error(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal_error", "message": err.Error(),
	})
}

// GetPing handles the ping endpoint.
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
}

// GetStats returns the operator dashboard counters.
func (s *APIServer) GetStats(c *fiber.Ctx) error {
	return c.JSON(statistics.GetPlatformStats(s.repos))
}

// GetPlans lists the active plan catalogue.
func (s *APIServer) GetPlans(c *fiber.Ctx) error {
	plans, err := s.repos.Plan.ListActive()
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"plans": plans})
}

// PostTenant provisions a new tenant. The response includes the seeded
// staff credentials exactly once.
func (s *APIServer) PostTenant(c *fiber.Ctx) error {
	var in lifecycle.ProvisionInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}
	in.Operator = operatorFrom(c)

	out, err := s.lifecycle.Provision(in, time.Now())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetTenants lists registry tenants with simple pagination.
func (s *APIServer) GetTenants(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)
	if limit > 200 {
		limit = 200
	}
	tenants, err := s.repos.Tenant.List(offset, limit)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"tenants": tenants})
}

// GetTenant returns one tenant by slug.
func (s *APIServer) GetTenant(c *fiber.Ctx) error {
	tenant, err := s.repos.Tenant.GetBySlug(c.Params("slug"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(tenant)
}

// PostSuspend manually suspends a tenant.
func (s *APIServer) PostSuspend(c *fiber.Ctx) error {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}
	if err := s.lifecycle.Suspend(c.Params("slug"), body.Reason, operatorFrom(c)); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"status": "suspended"})
}

// PostReactivate clears a suspension.
func (s *APIServer) PostReactivate(c *fiber.Ctx) error {
	if err := s.lifecycle.Reactivate(c.Params("slug"), operatorFrom(c)); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"status": "active"})
}

// PostPayment records a payment for a tenant.
func (s *APIServer) PostPayment(c *fiber.Ctx) error {
	var in lifecycle.PaymentInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}
	in.RecordedBy = operatorFrom(c)

	payment, err := s.lifecycle.RecordPayment(c.Params("slug"), in)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(payment)
}

// GetPayments lists a tenant's payment ledger.
func (s *APIServer) GetPayments(c *fiber.Ctx) error {
	tenant, err := s.repos.Tenant.GetBySlug(c.Params("slug"))
	if err != nil {
		return errorJSON(c, err)
	}
	payments, err := s.repos.Payment.ListByTenant(tenant.ID)
	if err != nil {
		return errorJSON(c, err)
	}
	total, err := s.repos.Payment.TotalPaid(tenant.ID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"payments": payments, "total_paid": total})
}

// DeleteTenant soft-cancels or hard-deletes a tenant. The confirm query
// parameter must match the slug exactly.
func (s *APIServer) DeleteTenant(c *fiber.Ctx) error {
	slug := c.Params("slug")
	confirm := c.Query("confirm")
	hard := c.QueryBool("hard", false)

	if err := s.lifecycle.Delete(slug, confirm, hard, operatorFrom(c)); err != nil {
		return errorJSON(c, err)
	}
	if hard {
		return c.JSON(fiber.Map{"status": "deleted"})
	}
	return c.JSON(fiber.Map{"status": "cancelled"})
}

// GetBilling computes a fresh bill for a tenant (live usage).
func (s *APIServer) GetBilling(c *fiber.Ctx) error {
	result, err := s.billing.CalculateBilling(c.Params("slug"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(result)
}

// GetBillingPreview computes a bill from cached counters only.
func (s *APIServer) GetBillingPreview(c *fiber.Ctx) error {
	result, err := s.billing.Preview(c.Params("slug"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(result)
}

// GetUsage meters a tenant's isolated storage and returns the snapshot.
func (s *APIServer) GetUsage(c *fiber.Ctx) error {
	snap, err := s.metering.GetUsage(c.Params("slug"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(snap)
}

// GetAlerts lists a tenant's alerts, newest first.
func (s *APIServer) GetAlerts(c *fiber.Ctx) error {
	tenant, err := s.repos.Tenant.GetBySlug(c.Params("slug"))
	if err != nil {
		return errorJSON(c, err)
	}
	alertRows, err := s.repos.Alert.ListByTenant(tenant.ID, 100)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"alerts": alertRows})
}

// GetActivity lists a tenant's audit trail, newest first.
func (s *APIServer) GetActivity(c *fiber.Ctx) error {
	tenant, err := s.repos.Tenant.GetBySlug(c.Params("slug"))
	if err != nil {
		return errorJSON(c, err)
	}
	entries, err := s.repos.Activity.ListByTenant(tenant.ID, 100)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"activity": entries})
}

// PostRepairStructure re-applies the tenant table structure
// (remediation for partial provisioning).
func (s *APIServer) PostRepairStructure(c *fiber.Ctx) error {
	if err := s.lifecycle.RepairStructure(c.Params("slug")); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"status": "repaired"})
}

// PostReseed re-runs idempotent default-data seeding.
func (s *APIServer) PostReseed(c *fiber.Ctx) error {
	creds, err := s.lifecycle.ReseedDefaults(c.Params("slug"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"status": "reseeded", "credentials": creds})
}

// PostCronDaily triggers the daily checks manually.
func (s *APIServer) PostCronDaily(c *fiber.Ctx) error {
	summary := s.daily.Run(time.Now())
	return c.JSON(summary)
}

func operatorFrom(c *fiber.Ctx) string {
	// basicauth middleware stores the authenticated operator username.
	if user, ok := c.Locals("username").(string); ok {
		return user
	}
	return ""
}
