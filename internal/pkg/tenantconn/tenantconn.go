package tenantconn

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hamrocafe/cafecloud/app/models"
	"github.com/hamrocafe/cafecloud/internal/pkg/env"
	"github.com/hamrocafe/cafecloud/internal/pkg/secrets"
)

// IsolationMode selects how tenants are isolated on the MySQL server.
type IsolationMode string

const (
	// ModeDatabase gives every tenant its own database.
	ModeDatabase IsolationMode = "database"
	// ModeSchema creates per-tenant schemas on one shared server and
	// grants the application role usage on them. On MySQL a schema is a
	// database, so the two modes differ in credentials and grants, not
	// in the created object.
	ModeSchema IsolationMode = "schema"
)

// DatabaseNamePrefix is prepended to every generated tenant identifier.
const DatabaseNamePrefix = "cafecloud_t_"

// maxIdentifierLen is the MySQL limit for database names.
const maxIdentifierLen = 64

// ConnectionTarget is the decrypted, typed form of a tenant's connection
// descriptor. Values are ephemeral: they must never be persisted or
// logged in plaintext.
type ConnectionTarget struct {
	Host     string        `json:"host"`
	Port     string        `json:"port"`
	User     string        `json:"user"`
	Password string        `json:"password"`
	Database string        `json:"database"`
	Schema   string        `json:"schema,omitempty"`
	Mode     IsolationMode `json:"mode"`
}

// DSN renders the MySQL data source name for this target.
func (t ConnectionTarget) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		t.User, t.Password, t.Host, t.Port, t.Database)
}

// DatabaseNameFor maps a tenant slug to its isolated database name:
// prefix + slug with hyphens folded to underscores. The result is
// validated against MySQL identifier constraints before use so invalid
// slugs are rejected before any provisioning statement runs.
func DatabaseNameFor(slug string) (string, error) {
	if !models.ValidSlug(slug) {
		return "", fmt.Errorf("invalid tenant slug %q", slug)
	}
	name := DatabaseNamePrefix + strings.ReplaceAll(slug, "-", "_")
	if len(name) > maxIdentifierLen {
		return "", fmt.Errorf("database name for slug %q exceeds %d characters", slug, maxIdentifierLen)
	}
	for _, r := range name {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return "", fmt.Errorf("database name %q contains invalid character %q", name, r)
		}
	}
	return name, nil
}

// Manager derives, encrypts and decrypts per-tenant connection
// descriptors from the platform's administrative connection template.
type Manager struct {
	key      []byte
	mode     IsolationMode
	host     string
	port     string
	user     string
	password string
	systemDB string
}

// NewManagerFromEnv builds a Manager from the platform environment.
func NewManagerFromEnv() (*Manager, error) {
	key, err := secrets.KeyFromEnv()
	if err != nil {
		return nil, err
	}
	mode := IsolationMode(env.GetEnv("TENANT_ISOLATION_MODE", string(ModeDatabase)))
	if mode != ModeDatabase && mode != ModeSchema {
		return nil, fmt.Errorf("unknown TENANT_ISOLATION_MODE %q", mode)
	}
	return &Manager{
		key:      key,
		mode:     mode,
		host:     env.GetEnv("TENANT_DB_HOST", env.GetEnv("DB_HOST", "127.0.0.1")),
		port:     env.GetEnv("TENANT_DB_PORT", "3306"),
		user:     env.GetEnv("TENANT_DB_USER", ""),
		password: env.GetEnv("TENANT_DB_PASSWORD", ""),
		systemDB: env.GetEnv("TENANT_SYSTEM_DB", "mysql"),
	}, nil
}

// NewManager builds a Manager with explicit settings, used by tests.
func NewManager(key []byte, mode IsolationMode, host, port, user, password string) *Manager {
	return &Manager{key: key, mode: mode, host: host, port: port, user: user, password: password, systemDB: "mysql"}
}

// Mode returns the configured isolation mode.
func (m *Manager) Mode() IsolationMode {
	return m.mode
}

// AdminTarget is the privileged connection to the system database, used
// only for create/drop statements.
func (m *Manager) AdminTarget() ConnectionTarget {
	return ConnectionTarget{
		Host:     m.host,
		Port:     m.port,
		User:     m.user,
		Password: m.password,
		Database: m.systemDB,
		Mode:     m.mode,
	}
}

// TargetFor derives the tenant connection target for a slug, branching
// on the isolation mode.
func (m *Manager) TargetFor(slug string) (ConnectionTarget, error) {
	dbName, err := DatabaseNameFor(slug)
	if err != nil {
		return ConnectionTarget{}, err
	}
	t := ConnectionTarget{
		Host:     m.host,
		Port:     m.port,
		User:     m.user,
		Password: m.password,
		Database: dbName,
		Mode:     m.mode,
	}
	if m.mode == ModeSchema {
		t.Schema = dbName
	}
	return t, nil
}

// Encrypt serializes a target and encrypts it for storage on the Tenant
// row. Only the encrypted form is ever persisted.
func (m *Manager) Encrypt(t ConnectionTarget) (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return secrets.EncryptToB64(m.key, string(raw))
}

// Decrypt recovers a target from its stored encrypted form. Callers must
// not cache the result beyond the operation's lifetime.
func (m *Manager) Decrypt(blob string) (ConnectionTarget, error) {
	if blob == "" {
		return ConnectionTarget{}, errors.New("empty connection descriptor")
	}
	raw, err := secrets.DecryptFromB64(m.key, blob)
	if err != nil {
		return ConnectionTarget{}, err
	}
	var t ConnectionTarget
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return ConnectionTarget{}, err
	}
	return t, nil
}
