package provisioner

import (
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hamrocafe/cafecloud/internal/pkg/tenantconn"
	"github.com/hamrocafe/cafecloud/internal/pkg/tenantschema"
)

// Step tags which provisioning phase an error occurred in, so operator
// tooling can pick the right remediation.
type Step string

const (
	StepValidate        Step = "validate"
	StepCreateDatabase  Step = "create_database"
	StepApplyStructure  Step = "apply_structure"
	StepSeed            Step = "seed"
	StepDropDatabase    Step = "drop_database"
	StepKillConnections Step = "kill_connections"
)

// Error is a provisioning failure with enough context for remediation:
// the tenant slug and the step that failed.
type Error struct {
	Slug string
	Step Step
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provisioning %s failed at step %s: %v", e.Slug, e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Provisioner creates and destroys isolated tenant storage and applies
// the fixed tenant table structure to fresh targets.
type Provisioner struct {
	conns *tenantconn.Manager

	// openDB is swappable so tests can run without a MySQL server.
	openDB func(dsn string) (*gorm.DB, error)
}

// New creates a Provisioner using the given connection manager.
func New(conns *tenantconn.Manager) *Provisioner {
	return &Provisioner{
		conns:  conns,
		openDB: openMySQL,
	}
}

func openMySQL(dsn string) (*gorm.DB, error) {
	return gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func (p *Provisioner) admin() (*gorm.DB, error) {
	return p.openDB(p.conns.AdminTarget().DSN())
}

// closeDB releases the pool behind a per-operation handle. Admin and
// tenant connections are opened per call and must not linger.
func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}

// CreateIsolatedStorage creates the tenant's database (or schema).
// "Already exists" is success, so retries are safe.
func (p *Provisioner) CreateIsolatedStorage(slug string) error {
	dbName, err := tenantconn.DatabaseNameFor(slug)
	if err != nil {
		return &Error{Slug: slug, Step: StepValidate, Err: err}
	}

	admin, err := p.admin()
	if err != nil {
		return &Error{Slug: slug, Step: StepCreateDatabase, Err: err}
	}
	defer closeDB(admin)

	stmt := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", dbName)
	if err := admin.Exec(stmt).Error; err != nil {
		return &Error{Slug: slug, Step: StepCreateDatabase, Err: err}
	}

	if p.conns.Mode() == tenantconn.ModeSchema {
		// Shared-server mode: the application role needs usage rights on
		// the new schema.
		target, err := p.conns.TargetFor(slug)
		if err != nil {
			return &Error{Slug: slug, Step: StepCreateDatabase, Err: err}
		}
		grant := fmt.Sprintf("GRANT SELECT, INSERT, UPDATE, DELETE, CREATE, INDEX, ALTER, DROP ON `%s`.* TO '%s'@'%%'", dbName, target.User)
		if err := admin.Exec(grant).Error; err != nil {
			return &Error{Slug: slug, Step: StepCreateDatabase, Err: err}
		}
	}

	log.Printf("provisioner: isolated storage %s ready for tenant %s", dbName, slug)
	return nil
}

// ApplyStructure applies the full tenant table structure to the target.
// The target must be a freshly created, empty database; this call is not
// idempotent and callers must invoke it exactly once per provisioning.
// A dedicated remediation path (lifecycle.RepairStructure) re-runs it
// against an existing empty tenant database after a partial failure.
func (p *Provisioner) ApplyStructure(target tenantconn.ConnectionTarget) error {
	db, err := p.openDB(target.DSN())
	if err != nil {
		return &Error{Slug: target.Database, Step: StepApplyStructure, Err: err}
	}
	defer closeDB(db)
	if err := tenantschema.Apply(db); err != nil {
		return &Error{Slug: target.Database, Step: StepApplyStructure, Err: err}
	}
	return nil
}

// SeedDefaults populates default data on the target. Seeding is
// idempotent, so it may be re-run to recover from a partial failure.
func (p *Provisioner) SeedDefaults(target tenantconn.ConnectionTarget) ([]tenantschema.SeededCredential, error) {
	db, err := p.openDB(target.DSN())
	if err != nil {
		return nil, &Error{Slug: target.Database, Step: StepSeed, Err: err}
	}
	defer closeDB(db)
	creds, err := tenantschema.Seed(db)
	if err != nil {
		return nil, &Error{Slug: target.Database, Step: StepSeed, Err: err}
	}
	return creds, nil
}

// DropIsolatedStorage terminates open connections to the tenant's
// database and drops it. Used only by hard delete.
func (p *Provisioner) DropIsolatedStorage(slug string) error {
	dbName, err := tenantconn.DatabaseNameFor(slug)
	if err != nil {
		return &Error{Slug: slug, Step: StepValidate, Err: err}
	}

	admin, err := p.admin()
	if err != nil {
		return &Error{Slug: slug, Step: StepDropDatabase, Err: err}
	}
	defer closeDB(admin)

	// Kill lingering connections first; DROP DATABASE blocks on them.
	var ids []int64
	if err := admin.Raw("SELECT id FROM information_schema.processlist WHERE db = ?", dbName).Scan(&ids).Error; err != nil {
		return &Error{Slug: slug, Step: StepKillConnections, Err: err}
	}
	for _, id := range ids {
		if err := admin.Exec(fmt.Sprintf("KILL %d", id)).Error; err != nil {
			// The connection may already be gone.
			log.Printf("provisioner: kill connection %d for %s: %v", id, dbName, err)
		}
	}

	if err := admin.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", dbName)).Error; err != nil {
		return &Error{Slug: slug, Step: StepDropDatabase, Err: err}
	}

	log.Printf("provisioner: dropped isolated storage %s for tenant %s", dbName, slug)
	return nil
}
