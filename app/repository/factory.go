package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles all registry repositories.
type Repositories struct {
	Tenant   TenantRepository
	Payment  PaymentRepository
	Activity ActivityLogRepository
	Alert    AlertRepository
	Plan     PlanRepository
}

// NewRepositories creates all repositories on one DB handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Tenant:   NewTenantRepository(db),
		Payment:  NewPaymentRepository(db),
		Activity: NewActivityLogRepository(db),
		Alert:    NewAlertRepository(db),
		Plan:     NewPlanRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetTenantRepository returns the tenant repository instance
func (f *Factory) GetTenantRepository() TenantRepository {
	return f.GetRepositories().Tenant
}

// GetPaymentRepository returns the payment ledger repository instance
func (f *Factory) GetPaymentRepository() PaymentRepository {
	return f.GetRepositories().Payment
}

// GetActivityLogRepository returns the audit trail repository instance
func (f *Factory) GetActivityLogRepository() ActivityLogRepository {
	return f.GetRepositories().Activity
}

// GetAlertRepository returns the usage alert repository instance
func (f *Factory) GetAlertRepository() AlertRepository {
	return f.GetRepositories().Alert
}

// GetPlanRepository returns the plan catalogue repository instance
func (f *Factory) GetPlanRepository() PlanRepository {
	return f.GetRepositories().Plan
}

var (
	globalFactory *Factory
	globalOnce    sync.Once
)

// InitGlobalFactory sets up the process-wide repository factory.
func InitGlobalFactory(db *gorm.DB) {
	globalOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the process-wide repository factory.
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("repository factory not initialized - call InitGlobalFactory first")
	}
	return globalFactory
}
