package main

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"cardledger/reporting"
)

// openReportingDB opens and migrates the reporting read-model database,
// choosing the driver by name: "sqlite" for local/dev deployments,
// "postgres" for production.
func openReportingDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("cardledgerd: unknown reporting driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("cardledgerd: open reporting db: %w", err)
	}
	if err := reporting.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("cardledgerd: migrate reporting db: %w", err)
	}
	return db, nil
}
