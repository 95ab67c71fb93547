package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationCollapseDuplicateAssociations = "2026-07-18_collapse_duplicate_module_associations"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationCollapseDuplicateAssociations, apply: collapseDuplicateAssociations},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// collapseDuplicateAssociations keeps only the newest association row per
// equipment. Databases written before the unique index existed could hold
// several rows for one machine.
func collapseDuplicateAssociations(db *gorm.DB) error {
	return db.Exec(`DELETE FROM owner_module_associations
		WHERE id NOT IN (
			SELECT MAX(id) FROM owner_module_associations GROUP BY equipment_id
		)`).Error
}
