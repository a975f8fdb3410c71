package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/hamrocafe/cafecloud/app/models"
	"github.com/hamrocafe/cafecloud/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

// SetupDatabase connects to the master registry database and migrates
// the registry tables. The registry is distinct from any tenant's
// isolated storage and is the single source of truth for tenant
// metadata.
func SetupDatabase() {
	var err error
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", "cafecloud_registry"),
	)

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,   // data source name
			DefaultStringSize:         256,   // default size for string fields
			DisableDatetimePrecision:  true,  // disable datetime precision, which not supported before MySQL 5.6
			DontSupportRenameIndex:    true,  // drop & create when rename index, rename index not supported before MySQL 5.7, MariaDB
			DontSupportRenameColumn:   true,  // `change` when rename column, rename column not supported before MySQL 8, MariaDB
			SkipInitializeWithVersion: false, // auto configure based on currently MySQL version
		}), &gorm.Config{})
		if err == nil {
			if migErr := DB.AutoMigrate(
				&models.SubscriptionPlan{},
				&models.Tenant{},
				&models.PaymentRecord{},
				&models.TenantActivityLog{},
				&models.UsageAlert{},
			); migErr != nil {
				panic(migErr)
			}

			if seedErr := models.SeedDefaultPlans(DB); seedErr != nil {
				panic(seedErr)
			}

			return
		}

		log.Printf("Failed to connect to registry database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// GetDB returns the registry database handle.
func GetDB() *gorm.DB {
	return DB
}
