package lifecycle

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/hamrocafe/cafecloud/app/models"
	"github.com/hamrocafe/cafecloud/app/repository"
	"github.com/hamrocafe/cafecloud/internal/pkg/env"
	"github.com/hamrocafe/cafecloud/internal/pkg/tenantconn"
	"github.com/hamrocafe/cafecloud/internal/pkg/tenantschema"
)

// DefaultTrialDays is the trial length when none is configured.
const DefaultTrialDays = 14

// StorageProvisioner abstracts the resource provisioner so the
// provisioning workflow can be exercised without a MySQL server.
type StorageProvisioner interface {
	CreateIsolatedStorage(slug string) error
	ApplyStructure(target tenantconn.ConnectionTarget) error
	SeedDefaults(target tenantconn.ConnectionTarget) ([]tenantschema.SeededCredential, error)
	DropIsolatedStorage(slug string) error
}

// Manager owns the tenant state machine and the provisioning workflow.
// It is the only component that mutates lifecycle or subscription
// status; everything else reads tenant state or updates its own fields.
type Manager struct {
	tenants  repository.TenantRepository
	payments repository.PaymentRepository
	activity repository.ActivityLogRepository
	plans    repository.PlanRepository

	prov  StorageProvisioner
	conns *tenantconn.Manager

	trialDays int
}

// NewManager creates a lifecycle manager. Trial length comes from
// TRIAL_DAYS, defaulting to 14.
func NewManager(repos *repository.Repositories, prov StorageProvisioner, conns *tenantconn.Manager) *Manager {
	trialDays := DefaultTrialDays
	if raw := env.GetEnv("TRIAL_DAYS", ""); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			trialDays = n
		}
	}
	return &Manager{
		tenants:   repos.Tenant,
		payments:  repos.Payment,
		activity:  repos.Activity,
		plans:     repos.Plan,
		prov:      prov,
		conns:     conns,
		trialDays: trialDays,
	}
}

// ProvisionInput is the operator request to create a tenant.
type ProvisionInput struct {
	Slug         string `json:"slug" validate:"required"`
	BusinessName string `json:"business_name" validate:"required"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email" validate:"required,email"`
	ContactPhone string `json:"contact_phone"`
	Address      string `json:"address"`
	PlanCode     string `json:"plan_code"`
	TrialDays    int    `json:"trial_days"`
	Operator     string `json:"-"`
}

// ProvisionOutput is returned once per successful provisioning. The
// seeded credentials are not recoverable afterwards.
type ProvisionOutput struct {
	Tenant      *models.Tenant                  `json:"tenant"`
	Credentials []tenantschema.SeededCredential `json:"credentials"`
}

// Provision creates a tenant end-to-end: validate, create isolated
// storage, apply structure, seed defaults, then create the registry
// row. The registry row is written only after every external step has
// succeeded, so a failure part-way never leaves a row pointing at
// missing or half-structured storage. After the create-database step
// the operation is forward-only: failures surface with the failing step
// for remediation (RepairStructure / ReseedDefaults) instead of
// attempting a rollback.
func (m *Manager) Provision(in ProvisionInput, now time.Time) (*ProvisionOutput, error) {
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	email := strings.ToLower(strings.TrimSpace(in.ContactEmail))

	if !models.ValidSlug(slug) {
		return nil, &ValidationError{Field: "slug", Reason: "must be 3-50 chars of lowercase letters, digits and single hyphens"}
	}
	if _, err := tenantconn.DatabaseNameFor(slug); err != nil {
		return nil, &ValidationError{Field: "slug", Reason: err.Error()}
	}
	if email == "" {
		return nil, &ValidationError{Field: "contact_email", Reason: "is required"}
	}
	if strings.TrimSpace(in.BusinessName) == "" {
		return nil, &ValidationError{Field: "business_name", Reason: "is required"}
	}

	if _, err := m.tenants.GetBySlug(slug); err == nil {
		return nil, &ValidationError{Field: "slug", Reason: "already taken"}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("provision %s: check slug: %w", slug, err)
	}
	if _, err := m.tenants.GetByEmail(email); err == nil {
		return nil, &ValidationError{Field: "contact_email", Reason: "already registered"}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("provision %s: check email: %w", slug, err)
	}

	planCode := in.PlanCode
	if planCode == "" {
		planCode = models.PlanStarter
	}
	plan, err := m.plans.GetByCode(planCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Field: "plan_code", Reason: fmt.Sprintf("unknown plan %q", planCode)}
		}
		return nil, fmt.Errorf("provision %s: load plan: %w", slug, err)
	}

	// Point of no return: external resources get created from here on.
	if err := m.prov.CreateIsolatedStorage(slug); err != nil {
		return nil, err
	}

	target, err := m.conns.TargetFor(slug)
	if err != nil {
		return nil, fmt.Errorf("provision %s: derive connection: %w", slug, err)
	}

	if err := m.prov.ApplyStructure(target); err != nil {
		return nil, err
	}

	creds, err := m.prov.SeedDefaults(target)
	if err != nil {
		return nil, err
	}

	encrypted, err := m.conns.Encrypt(target)
	if err != nil {
		return nil, fmt.Errorf("provision %s: encrypt connection: %w", slug, err)
	}

	trialDays := in.TrialDays
	if trialDays <= 0 {
		trialDays = m.trialDays
	}
	trialEnd := now.AddDate(0, 0, trialDays)

	tenant := &models.Tenant{
		Slug:               slug,
		BusinessName:       strings.TrimSpace(in.BusinessName),
		ContactName:        strings.TrimSpace(in.ContactName),
		ContactEmail:       email,
		ContactPhone:       strings.TrimSpace(in.ContactPhone),
		Address:            strings.TrimSpace(in.Address),
		DBConnEncrypted:    encrypted,
		PlanCode:           plan.Code,
		MonthlyFee:         plan.MonthlyFee,
		SubscriptionStatus: models.SubscriptionTrial,
		LifecycleStatus:    models.LifecycleActive,
		TrialEndsAt:        &trialEnd,
	}
	if err := tenant.Validate(); err != nil {
		return nil, &ValidationError{Field: "tenant", Reason: err.Error()}
	}

	if err := m.tenants.Create(tenant); err != nil {
		// Storage exists but the registry row does not; surface enough
		// context for scripted remediation rather than dropping the
		// database behind the operator's back.
		return nil, fmt.Errorf("provision %s: register tenant (isolated storage already created): %w", slug, err)
	}

	if err := m.activity.Append(tenant.ID, models.ActivityProvisioned, in.Operator, map[string]interface{}{
		"plan":       plan.Code,
		"trial_days": trialDays,
	}); err != nil {
		return nil, fmt.Errorf("provision %s: append activity: %w", slug, err)
	}

	log.Printf("lifecycle: provisioned tenant %s on plan %s, trial ends %s", slug, plan.Code, trialEnd.Format(time.RFC3339))
	return &ProvisionOutput{Tenant: tenant, Credentials: creds}, nil
}

// PaymentInput records one received payment.
type PaymentInput struct {
	Amount      float64   `json:"amount" validate:"required,gt=0"`
	PaidAt      time.Time `json:"paid_at"`
	Method      string    `json:"method"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Reference   string    `json:"reference"`
	RecordedBy  string    `json:"recorded_by"`
}

// RecordPayment appends to the payment ledger and restores the tenant
// to fully active: subscription active, lifecycle active, suspension
// cleared, next payment due one day after the paid period ends.
// ActivatedAt is set by the first payment only and never overwritten.
func (m *Manager) RecordPayment(slug string, in PaymentInput) (*models.PaymentRecord, error) {
	tenant, err := m.tenants.GetBySlug(slug)
	if err != nil {
		return nil, fmt.Errorf("record payment %s: %w", slug, err)
	}
	if in.Amount <= 0 {
		return nil, &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !in.PeriodEnd.After(in.PeriodStart) {
		return nil, &ValidationError{Field: "period_end", Reason: "must be after period_start"}
	}
	if in.PaidAt.IsZero() {
		in.PaidAt = time.Now()
	}
	if in.Method == "" {
		in.Method = models.PaymentMethodCash
	}

	payment := &models.PaymentRecord{
		TenantID:    tenant.ID,
		Amount:      in.Amount,
		PaidAt:      in.PaidAt,
		Method:      in.Method,
		PeriodStart: in.PeriodStart,
		PeriodEnd:   in.PeriodEnd,
		Reference:   in.Reference,
		RecordedBy:  in.RecordedBy,
	}
	if err := m.payments.Create(payment); err != nil {
		return nil, fmt.Errorf("record payment %s: %w", slug, err)
	}

	nextDue := in.PeriodEnd.AddDate(0, 0, 1)
	fields := map[string]interface{}{
		"subscription_status": models.SubscriptionActive,
		"lifecycle_status":    models.LifecycleActive,
		"last_payment_at":     in.PaidAt,
		"next_payment_due":    nextDue,
		"billing_cycle_start": in.PeriodStart,
		"billing_cycle_end":   in.PeriodEnd,
		"suspended_at":        nil,
	}
	if tenant.ActivatedAt == nil {
		fields["activated_at"] = in.PaidAt
	}
	if err := m.tenants.UpdateFields(tenant.ID, fields); err != nil {
		return nil, fmt.Errorf("record payment %s: update tenant: %w", slug, err)
	}

	if err := m.activity.Append(tenant.ID, models.ActivityPaymentRecorded, in.RecordedBy, map[string]interface{}{
		"amount":    in.Amount,
		"method":    in.Method,
		"reference": payment.Reference,
	}); err != nil {
		return nil, fmt.Errorf("record payment %s: append activity: %w", slug, err)
	}
	return payment, nil
}

// Suspend is the manual operator-triggered suspension.
func (m *Manager) Suspend(slug, reason, operator string) error {
	tenant, err := m.tenants.GetBySlug(slug)
	if err != nil {
		return fmt.Errorf("suspend %s: %w", slug, err)
	}
	if tenant.LifecycleStatus == models.LifecycleSuspended {
		return nil
	}
	now := time.Now()
	if err := m.tenants.UpdateFields(tenant.ID, map[string]interface{}{
		"lifecycle_status": models.LifecycleSuspended,
		"suspended_at":     now,
	}); err != nil {
		return fmt.Errorf("suspend %s: %w", slug, err)
	}
	return m.activity.Append(tenant.ID, models.ActivitySuspended, operator, map[string]interface{}{
		"reason": reason,
	})
}

// Reactivate clears a suspension and restores access. The subscription
// status is deliberately left untouched: reactivating an unpaid tenant
// does not make it paid.
func (m *Manager) Reactivate(slug, operator string) error {
	tenant, err := m.tenants.GetBySlug(slug)
	if err != nil {
		return fmt.Errorf("reactivate %s: %w", slug, err)
	}
	if err := m.tenants.UpdateFields(tenant.ID, map[string]interface{}{
		"lifecycle_status": models.LifecycleActive,
		"suspended_at":     nil,
	}); err != nil {
		return fmt.Errorf("reactivate %s: %w", slug, err)
	}
	return m.activity.Append(tenant.ID, models.ActivityReactivated, operator, nil)
}

// Delete removes a tenant. confirmSlug must exactly match the tenant's
// slug; this is a confirmation token against stale operator UI state.
// Soft delete cancels the tenant and preserves its isolated database.
// Hard delete drops the database first; if the drop fails the registry
// row is kept so the platform never loses its pointer to an undropped
// resource.
func (m *Manager) Delete(slug, confirmSlug string, hard bool, operator string) error {
	tenant, err := m.tenants.GetBySlug(slug)
	if err != nil {
		return fmt.Errorf("delete %s: %w", slug, err)
	}
	if confirmSlug != tenant.Slug {
		return &ValidationError{Field: "confirm_slug", Reason: "does not match tenant slug"}
	}

	if !hard {
		if err := m.tenants.UpdateFields(tenant.ID, map[string]interface{}{
			"lifecycle_status":    models.LifecycleCancelled,
			"subscription_status": models.SubscriptionCancelled,
		}); err != nil {
			return fmt.Errorf("delete %s: %w", slug, err)
		}
		return m.activity.Append(tenant.ID, models.ActivityCancelled, operator, nil)
	}

	if err := m.prov.DropIsolatedStorage(slug); err != nil {
		// Deliberate: skip the registry deletion so the undropped
		// database stays reachable for remediation.
		log.Printf("lifecycle: hard delete %s: database drop failed, keeping registry row: %v", slug, err)
		return fmt.Errorf("hard delete %s: drop isolated storage: %w", slug, err)
	}

	if err := m.tenants.HardDelete(tenant.ID); err != nil {
		return fmt.Errorf("hard delete %s: remove registry row: %w", slug, err)
	}
	log.Printf("lifecycle: hard deleted tenant %s (operator %s)", slug, operator)
	return nil
}

// RepairStructure re-applies the tenant table structure against an
// existing tenant database. Remediation path for provisioning that
// failed after the create-database step; the target must still be
// empty.
func (m *Manager) RepairStructure(slug string) error {
	tenant, err := m.tenants.GetBySlug(slug)
	if err != nil {
		// The registry row may not exist yet when provisioning failed
		// before registration; derive the target from the slug instead.
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("repair %s: %w", slug, err)
		}
		target, derr := m.conns.TargetFor(slug)
		if derr != nil {
			return fmt.Errorf("repair %s: %w", slug, derr)
		}
		return m.prov.ApplyStructure(target)
	}

	target, err := m.conns.Decrypt(tenant.DBConnEncrypted)
	if err != nil {
		return fmt.Errorf("repair %s: decrypt connection: %w", slug, err)
	}
	if err := m.prov.ApplyStructure(target); err != nil {
		return err
	}
	return m.activity.Append(tenant.ID, models.ActivityStructureRepaired, "", nil)
}

// ReseedDefaults re-runs the idempotent default-data seeding for a
// tenant, returning credentials for any accounts that were missing.
func (m *Manager) ReseedDefaults(slug string) ([]tenantschema.SeededCredential, error) {
	tenant, err := m.tenants.GetBySlug(slug)
	if err != nil {
		return nil, fmt.Errorf("reseed %s: %w", slug, err)
	}
	target, err := m.conns.Decrypt(tenant.DBConnEncrypted)
	if err != nil {
		return nil, fmt.Errorf("reseed %s: decrypt connection: %w", slug, err)
	}
	creds, err := m.prov.SeedDefaults(target)
	if err != nil {
		return nil, err
	}
	if err := m.activity.Append(tenant.ID, models.ActivityReseeded, "", nil); err != nil {
		return nil, fmt.Errorf("reseed %s: append activity: %w", slug, err)
	}
	return creds, nil
}
