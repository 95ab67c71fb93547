package equipment

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lagoalabs/aquafleet/internal/fault"
)

const opReplaceModules = "equipment.replace_modules"

// ReplaceModules atomically replaces the equipment's module association with
// a single row carrying the supplied flags. The delete and insert run on one
// transaction handle so a partial replacement is never observable; replaying
// the same call is idempotent. Concurrent calls on the same equipment
// serialize by commit order (last write wins).
//
// A non-positive owner or equipment id makes the call a silent no-op, which
// is the behavior the legacy front-end payloads depend on.
func (s *Service) ReplaceModules(ctx context.Context, ownerID, equipmentID int64, flags ModuleFlags) error {
	if ownerID <= 0 || equipmentID <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The delete sweeps every row for the equipment, restoring the
		// one-row invariant even if prior data violated it.
		if err := tx.Where("equipment_id = ?", equipmentID).Delete(&OwnerModuleAssociation{}).Error; err != nil {
			return err
		}
		association := OwnerModuleAssociation{
			OwnerID:     ownerID,
			EquipmentID: equipmentID,
			ColdWater:   flags.ColdWater,
			HotWater:    flags.HotWater,
			PetFountain: flags.PetFountain,
		}
		return tx.Create(&association).Error
	})
	if err != nil {
		s.logError(opReplaceModules, "transaction_failed", err,
			zap.Int64("owner_id", ownerID),
			zap.Int64("equipment_id", equipmentID))
		return fault.Store(opReplaceModules, "transaction_failed", err)
	}
	return nil
}

// clearModules removes the equipment's association row, used when an update
// payload explicitly zeroes the owner reference.
func (s *Service) clearModules(ctx context.Context, operation string, equipmentID int64) error {
	if err := s.db.WithContext(ctx).Where("equipment_id = ?", equipmentID).Delete(&OwnerModuleAssociation{}).Error; err != nil {
		s.logError(operation, "clear_modules_failed", err, zap.Int64("equipment_id", equipmentID))
		return fault.Store(operation, "clear_modules_failed", err)
	}
	return nil
}

// Modules returns the equipment's association row when one exists.
func (s *Service) Modules(ctx context.Context, equipmentID int64) (*OwnerModuleAssociation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var association OwnerModuleAssociation
	err := s.db.WithContext(ctx).Where("equipment_id = ?", equipmentID).Take(&association).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logError(opReplaceModules, "select_failed", err, zap.Int64("equipment_id", equipmentID))
		return nil, fault.Store(opReplaceModules, "select_failed", err)
	}
	return &association, nil
}
