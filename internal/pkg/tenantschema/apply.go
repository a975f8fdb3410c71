package tenantschema

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Apply creates the full tenant table structure on db. The target must
// be a freshly provisioned, empty database; running this against a
// tenant with data is not supported and the caller must prevent it.
func Apply(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("apply tenant structure: %w", err)
	}
	return nil
}

// SeededCredential is returned once per newly created staff account.
// The plaintext password exists only in this return value.
type SeededCredential struct {
	Role     string `json:"role"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Seed populates a tenant database with its default data: one staff
// account per role, a starter set of cafe tables and menu categories.
// Seeding is upsert-style and tolerates partial prior completion, so it
// is safe to re-run after a failed provisioning attempt. Credentials are
// returned only for accounts created by this call.
func Seed(db *gorm.DB) ([]SeededCredential, error) {
	var creds []SeededCredential

	for _, role := range []string{StaffRoleAdmin, StaffRoleManager, StaffRoleCashier} {
		var existing StaffUser
		err := db.Where("username = ?", role).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("seed staff %s: %w", role, err)
		}

		password, err := generatePassword()
		if err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user := StaffUser{
			Username:     role,
			FullName:     "Default " + role,
			PasswordHash: string(hash),
			Role:         role,
			IsActive:     true,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("seed staff %s: %w", role, err)
		}
		creds = append(creds, SeededCredential{Role: role, Username: role, Password: password})
	}

	for number := 1; number <= 4; number++ {
		table := CafeTable{Number: number, Seats: 4}
		if err := db.Where(CafeTable{Number: number}).FirstOrCreate(&table).Error; err != nil {
			return nil, fmt.Errorf("seed table %d: %w", number, err)
		}
	}

	for i, name := range []string{"Hot Drinks", "Cold Drinks", "Snacks", "Meals"} {
		category := MenuCategory{Name: name, SortOrder: i}
		if err := db.Where(MenuCategory{Name: name}).FirstOrCreate(&category).Error; err != nil {
			return nil, fmt.Errorf("seed category %q: %w", name, err)
		}
	}

	return creds, nil
}

func generatePassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
