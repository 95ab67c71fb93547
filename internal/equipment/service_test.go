package equipment

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/lagoalabs/aquafleet/internal/cities"
	"github.com/lagoalabs/aquafleet/internal/fault"
	"github.com/lagoalabs/aquafleet/internal/normalize"
)

var memoryDatabaseSequence int

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	memoryDatabaseSequence++
	dsn := fmt.Sprintf("file:equipment_test_%d?mode=memory&cache=shared", memoryDatabaseSequence)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&cities.City{}, &Equipment{}, &OwnerModuleAssociation{}, &FilterReplacement{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	resolver, err := cities.NewResolver(cities.ResolverConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to create resolver: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database: db,
		Cities:   resolver,
		Clock: func() time.Time {
			return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service, db
}

func validPayload() Payload {
	return Payload{
		ModelID:      7,
		Name:         "Purifier Front Desk",
		SerialNumber: "SN-0001",
		InstalledAt:  time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC),
		Status:       "ativo",
	}
}

func TestCreateValidationNamesEveryMissingField(t *testing.T) {
	service, db := newTestService(t)

	_, err := service.Create(context.Background(), Payload{})
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	var typed *fault.Error
	if !errors.As(err, &typed) || typed.Kind() != fault.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"model_id", "name", "serial_number", "installed_at", "status"} {
		if !slices.Contains(typed.Fields(), field) {
			t.Fatalf("expected missing field %q in %v", field, typed.Fields())
		}
	}

	var count int64
	db.Model(&Equipment{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no rows persisted on validation failure, found %d", count)
	}
}

func TestCreateRejectsDuplicateSerialAmongLiveRows(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	if _, err := service.Create(ctx, validPayload()); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	duplicate := validPayload()
	duplicate.SerialNumber = "  sn-0001 "
	_, err := service.Create(ctx, duplicate)
	if err == nil || fault.KindOf(err) != fault.KindDuplicateSerial {
		t.Fatalf("expected duplicate serial conflict, got %v", err)
	}
}

func TestCreateAllowsReusingSerialOfDeletedRow(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	id, err := service.Create(ctx, validPayload())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := service.SoftDelete(ctx, id); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}

	if _, err := service.Create(ctx, validPayload()); err != nil {
		t.Fatalf("expected serial of deleted row to be reusable, got %v", err)
	}
}

func TestCreateResolvesCityDesignator(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	payload := validPayload()
	payload.City = "Niterói/rj"
	id, err := service.Create(ctx, payload)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	var row Equipment
	if err := db.Take(&row, id).Error; err != nil {
		t.Fatalf("failed to load row: %v", err)
	}
	if row.CityID == nil {
		t.Fatalf("expected city reference to be set")
	}

	var city cities.City
	if err := db.Take(&city, *row.CityID).Error; err != nil {
		t.Fatalf("failed to load city: %v", err)
	}
	if city.Name != "Niterói" || city.StateCode != "RJ" {
		t.Fatalf("unexpected city row: %+v", city)
	}
}

func TestCreateWithoutCityLeavesReferenceNull(t *testing.T) {
	service, db := newTestService(t)

	id, err := service.Create(context.Background(), validPayload())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	var row Equipment
	if err := db.Take(&row, id).Error; err != nil {
		t.Fatalf("failed to load row: %v", err)
	}
	if row.CityID != nil {
		t.Fatalf("expected null city reference, got %d", *row.CityID)
	}
}

func TestCreateReconcilesModulesWhenOwnerSupplied(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	owner := int64(42)
	payload := validPayload()
	payload.OwnerID = &owner
	payload.Modules = ModuleFlags{ColdWater: true, PetFountain: true}

	id, err := service.Create(ctx, payload)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	var association OwnerModuleAssociation
	if err := db.Where("equipment_id = ?", id).Take(&association).Error; err != nil {
		t.Fatalf("expected association row: %v", err)
	}
	if association.OwnerID != owner || !association.ColdWater || association.HotWater || !association.PetFountain {
		t.Fatalf("unexpected association: %+v", association)
	}
}

func TestUpdateStatusOnlyTouchesStatusAndTimestamp(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	id, err := service.Create(ctx, validPayload())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	var before Equipment
	if err := db.Take(&before, id).Error; err != nil {
		t.Fatalf("failed to load row: %v", err)
	}

	if err := service.UpdateStatus(ctx, id, "atendimento"); err != nil {
		t.Fatalf("status update failed: %v", err)
	}

	var after Equipment
	if err := db.Take(&after, id).Error; err != nil {
		t.Fatalf("failed to reload row: %v", err)
	}
	if after.Status != normalize.StatusInService {
		t.Fatalf("expected StatusInService, got %d", after.Status)
	}
	if after.Name != before.Name || after.SerialNumber != before.SerialNumber ||
		after.Metadata != before.Metadata || !after.InstalledAt.Equal(before.InstalledAt) ||
		after.ModelID != before.ModelID {
		t.Fatalf("status-only update changed unrelated fields: before %+v after %+v", before, after)
	}
}

func TestUpdateMergesMetadata(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	observation := "installed behind reception"
	sprinkler := true
	payload := validPayload()
	payload.Observation = &observation
	payload.SprinklerEnabled = &sprinkler

	id, err := service.Create(ctx, payload)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Update mentions only the observation; the sprinkler flag must survive.
	newObservation := "moved to second floor"
	update := validPayload()
	update.Observation = &newObservation
	if err := service.Update(ctx, id, update); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	var row Equipment
	if err := db.Take(&row, id).Error; err != nil {
		t.Fatalf("failed to load row: %v", err)
	}
	meta := decodeMetadata(row.Metadata)
	if meta.Observation != newObservation {
		t.Fatalf("expected merged observation, got %q", meta.Observation)
	}
	if !meta.SprinklerEnabled {
		t.Fatalf("expected stored sprinkler flag to be preserved")
	}
}

func TestUpdateClearsAssociationOnExplicitZeroOwner(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	owner := int64(9)
	payload := validPayload()
	payload.OwnerID = &owner
	id, err := service.Create(ctx, payload)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cleared := int64(0)
	update := validPayload()
	update.OwnerID = &cleared
	if err := service.Update(ctx, id, update); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	var count int64
	db.Model(&OwnerModuleAssociation{}).Where("equipment_id = ?", id).Count(&count)
	if count != 0 {
		t.Fatalf("expected association cleared, found %d rows", count)
	}
}

func TestUpdateLeavesAssociationWhenOwnerAbsent(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	owner := int64(9)
	payload := validPayload()
	payload.OwnerID = &owner
	payload.Modules = ModuleFlags{HotWater: true}
	id, err := service.Create(ctx, payload)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := service.Update(ctx, id, validPayload()); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	var association OwnerModuleAssociation
	if err := db.Where("equipment_id = ?", id).Take(&association).Error; err != nil {
		t.Fatalf("expected association to survive: %v", err)
	}
	if !association.HotWater {
		t.Fatalf("expected association flags untouched: %+v", association)
	}
}

func TestUpdateUnknownIDFailsNotFound(t *testing.T) {
	service, _ := newTestService(t)

	err := service.Update(context.Background(), 12345, validPayload())
	if err == nil || fault.KindOf(err) != fault.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSoftDeleteHidesRowAndClearsAssociation(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	owner := int64(3)
	payload := validPayload()
	payload.OwnerID = &owner
	id, err := service.Create(ctx, payload)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := service.SoftDelete(ctx, id); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}

	var row Equipment
	if err := db.Take(&row, id).Error; err != nil {
		t.Fatalf("expected row to remain in storage: %v", err)
	}
	if row.Status != normalize.StatusDeleted {
		t.Fatalf("expected StatusDeleted, got %d", row.Status)
	}

	var count int64
	db.Model(&OwnerModuleAssociation{}).Where("equipment_id = ?", id).Count(&count)
	if count != 0 {
		t.Fatalf("expected association removed, found %d rows", count)
	}

	listed, err := service.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, item := range listed {
		if item.ID == id {
			t.Fatalf("soft-deleted equipment still listed")
		}
	}
}

func TestDeletedRowsAreTerminal(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	id, err := service.Create(ctx, validPayload())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := service.SoftDelete(ctx, id); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}

	if err := service.UpdateStatus(ctx, id, "ativo"); fault.KindOf(err) != fault.KindNotFound {
		t.Fatalf("expected status update on deleted row to fail not found, got %v", err)
	}
	if err := service.Deactivate(ctx, id); fault.KindOf(err) != fault.KindNotFound {
		t.Fatalf("expected deactivate on deleted row to fail not found, got %v", err)
	}
	if _, err := service.Get(ctx, id); fault.KindOf(err) != fault.KindNotFound {
		t.Fatalf("expected get on deleted row to fail not found, got %v", err)
	}
}

func TestDeactivateOnlyChangesStatus(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	owner := int64(5)
	payload := validPayload()
	payload.OwnerID = &owner
	id, err := service.Create(ctx, payload)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := service.Deactivate(ctx, id); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	var row Equipment
	if err := db.Take(&row, id).Error; err != nil {
		t.Fatalf("failed to load row: %v", err)
	}
	if row.Status != normalize.StatusDeactivated {
		t.Fatalf("expected StatusDeactivated, got %d", row.Status)
	}

	var count int64
	db.Model(&OwnerModuleAssociation{}).Where("equipment_id = ?", id).Count(&count)
	if count != 1 {
		t.Fatalf("expected association untouched, found %d rows", count)
	}
}
