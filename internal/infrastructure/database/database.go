package database

import (
	"propsales-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Postgres or pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind connection poolers such as PgBouncer.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// Models lists every table the service owns or reads.
func Models() []interface{} {
	return []interface{}{
		&domain.Customer{},
		&domain.Broker{},
		&domain.Project{},
		&domain.Unit{},
		&domain.TransferChargePayment{},
		&domain.TransferTransaction{},
		&domain.OwnerHistoryEntry{},
	}
}

// AutoMigrate creates or updates the tables in Models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
