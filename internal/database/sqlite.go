package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lagoalabs/aquafleet/internal/cities"
	"github.com/lagoalabs/aquafleet/internal/equipment"
	"github.com/lagoalabs/aquafleet/internal/models"
	"github.com/lagoalabs/aquafleet/internal/users"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}
	return db, nil
}

// Migrate brings the schema up to date and applies pending data repairs.
// It is exposed separately so tests can run it against their own handles.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	err := db.AutoMigrate(
		&cities.City{},
		&equipment.Equipment{},
		&equipment.OwnerModuleAssociation{},
		&equipment.FilterReplacement{},
		&models.Model{},
		&users.User{},
		&migrationRecord{},
	)
	if err != nil {
		return err
	}
	return applyMigrations(db, logger)
}
