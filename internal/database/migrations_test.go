package database

import (
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/lagoalabs/aquafleet/internal/equipment"
)

var memoryDatabaseSequence int

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	memoryDatabaseSequence++
	dsn := fmt.Sprintf("file:database_test_%d?mode=memory&cache=shared", memoryDatabaseSequence)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := Migrate(db, nil); err != nil {
		t.Fatalf("first migrate failed: %v", err)
	}
	if err := Migrate(db, nil); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	var applied int64
	db.Model(&migrationRecord{}).Count(&applied)
	if applied != 1 {
		t.Fatalf("expected each migration recorded once, found %d records", applied)
	}
}

func TestCollapseDuplicateAssociationsKeepsNewestRow(t *testing.T) {
	db := openTestDB(t)

	// Legacy schema without the unique index, holding duplicate rows.
	if err := db.Exec(`CREATE TABLE owner_module_associations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id INTEGER NOT NULL,
		equipment_id INTEGER NOT NULL,
		cold_water BOOLEAN NOT NULL DEFAULT 0,
		hot_water BOOLEAN NOT NULL DEFAULT 0,
		pet_fountain BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error; err != nil {
		t.Fatalf("failed to create legacy table: %v", err)
	}
	for _, insert := range []string{
		"INSERT INTO owner_module_associations (owner_id, equipment_id, cold_water) VALUES (1, 10, 1)",
		"INSERT INTO owner_module_associations (owner_id, equipment_id, hot_water) VALUES (2, 10, 1)",
		"INSERT INTO owner_module_associations (owner_id, equipment_id) VALUES (3, 11)",
	} {
		if err := db.Exec(insert).Error; err != nil {
			t.Fatalf("failed to seed legacy rows: %v", err)
		}
	}

	if err := collapseDuplicateAssociations(db); err != nil {
		t.Fatalf("collapse failed: %v", err)
	}

	var rows []equipment.OwnerModuleAssociation
	if err := db.Order("equipment_id ASC").Find(&rows).Error; err != nil {
		t.Fatalf("failed to load rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected one row per equipment, got %d", len(rows))
	}
	if rows[0].EquipmentID != 10 || rows[0].OwnerID != 2 || !rows[0].HotWater {
		t.Fatalf("expected the newest duplicate to survive, got %+v", rows[0])
	}
	if rows[1].EquipmentID != 11 {
		t.Fatalf("expected untouched single row, got %+v", rows[1])
	}
}
