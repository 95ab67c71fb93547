// Package equipment implements the lifecycle of fleet equipment records:
// creation, full and status-only updates, deactivation, soft deletion, the
// per-equipment module association, and the filter maintenance history.
package equipment

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lagoalabs/aquafleet/internal/fault"
	"github.com/lagoalabs/aquafleet/internal/normalize"
)

var (
	errMissingDatabase     = errors.New("database handle is required")
	errMissingCityResolver = errors.New("city resolver is required")
	noOpLogger             = zap.NewNop()
)

const (
	opServiceNew   = "equipment.service.new"
	opCreate       = "equipment.create"
	opUpdate       = "equipment.update"
	opUpdateStatus = "equipment.update_status"
	opSoftDelete   = "equipment.soft_delete"
	opDeactivate   = "equipment.deactivate"
	opGet          = "equipment.get"
	opList         = "equipment.list"

	defaultStoreTimeout = 5 * time.Second
)

// CityResolver resolves a free-text city name to a persistent city id.
type CityResolver interface {
	Resolve(ctx context.Context, name, stateCode string) (int64, error)
}

// ServiceConfig describes the dependencies of the equipment service.
type ServiceConfig struct {
	Database     *gorm.DB
	Cities       CityResolver
	Clock        func() time.Time
	Logger       *zap.Logger
	StoreTimeout time.Duration
}

// Service orchestrates equipment persistence and its collaborators.
type Service struct {
	db      *gorm.DB
	cities  CityResolver
	clock   func() time.Time
	logger  *zap.Logger
	timeout time.Duration
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fault.New(fault.KindStoreError, opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Cities == nil {
		return nil, fault.New(fault.KindStoreError, opServiceNew, "missing_city_resolver", errMissingCityResolver)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &Service{
		db:      cfg.Database,
		cities:  cfg.Cities,
		clock:   clock,
		logger:  logger,
		timeout: timeout,
	}, nil
}

// Payload carries the writable equipment fields shared by create and full
// update. City is the optional "Name/UF" designator; OwnerID controls module
// reconciliation: nil leaves the association untouched, zero clears it, a
// positive id replaces it with Modules.
type Payload struct {
	ModelID          int64
	Name             string
	SerialNumber     string
	InvoiceNumber    string
	Address          string
	ZipCode          string
	InstalledAt      time.Time
	Status           string
	City             string
	Observation      *string
	SprinklerEnabled *bool
	OwnerID          *int64
	Modules          ModuleFlags
}

func (p Payload) missingFields() []string {
	var missing []string
	if p.ModelID <= 0 {
		missing = append(missing, "model_id")
	}
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.SerialNumber) == "" {
		missing = append(missing, "serial_number")
	}
	if p.InstalledAt.IsZero() {
		missing = append(missing, "installed_at")
	}
	if strings.TrimSpace(p.Status) == "" {
		missing = append(missing, "status")
	}
	return missing
}

// Create validates and persists a new equipment row, resolving the optional
// city designator and replacing the module association when an owner id is
// supplied. It returns the new equipment id.
func (s *Service) Create(ctx context.Context, payload Payload) (int64, error) {
	if missing := payload.missingFields(); len(missing) > 0 {
		return 0, fault.Validation(opCreate, missing)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	serial := strings.TrimSpace(payload.SerialNumber)
	if err := s.ensureSerialAvailable(ctx, opCreate, serial, 0); err != nil {
		return 0, err
	}

	cityID, err := s.resolveCity(ctx, payload.City)
	if err != nil {
		return 0, err
	}

	if !normalize.Recognized(payload.Status) {
		s.logger.Debug("unrecognized status token defaulted to active",
			zap.String("operation", opCreate), zap.String("status", payload.Status))
	}

	meta := Metadata{}.apply(MetadataPatch{
		Observation:      payload.Observation,
		SprinklerEnabled: payload.SprinklerEnabled,
	})
	row := Equipment{
		ModelID:       payload.ModelID,
		CityID:        cityID,
		Name:          strings.TrimSpace(payload.Name),
		SerialNumber:  serial,
		InvoiceNumber: strings.TrimSpace(payload.InvoiceNumber),
		Address:       strings.TrimSpace(payload.Address),
		ZipCode:       strings.TrimSpace(payload.ZipCode),
		InstalledAt:   payload.InstalledAt,
		Status:        normalize.Status(payload.Status),
		Metadata:      encodeMetadata(meta),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("serial_number", serial))
		return 0, fault.Store(opCreate, "insert_failed", err)
	}

	if payload.OwnerID != nil && *payload.OwnerID > 0 {
		if err := s.ReplaceModules(ctx, *payload.OwnerID, row.ID, payload.Modules); err != nil {
			return 0, err
		}
	}

	s.logger.Info("equipment created",
		zap.Int64("equipment_id", row.ID),
		zap.String("serial_number", serial))
	return row.ID, nil
}

// Update re-validates and rewrites every writable field of an existing row.
// The stored metadata blob is merged with the payload rather than replaced:
// metadata fields absent from the payload keep their stored values. Module
// reconciliation follows the payload's OwnerID semantics. Rows already in
// StatusDeleted are treated as absent.
func (s *Service) Update(ctx context.Context, id int64, payload Payload) error {
	if missing := payload.missingFields(); len(missing) > 0 {
		return fault.Validation(opUpdate, missing)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	existing, err := s.loadLive(ctx, opUpdate, id)
	if err != nil {
		return err
	}

	serial := strings.TrimSpace(payload.SerialNumber)
	if err := s.ensureSerialAvailable(ctx, opUpdate, serial, id); err != nil {
		return err
	}

	cityID, err := s.resolveCity(ctx, payload.City)
	if err != nil {
		return err
	}

	merged := decodeMetadata(existing.Metadata).apply(MetadataPatch{
		Observation:      payload.Observation,
		SprinklerEnabled: payload.SprinklerEnabled,
	})

	updates := map[string]any{
		"model_id":       payload.ModelID,
		"city_id":        cityID,
		"name":           strings.TrimSpace(payload.Name),
		"serial_number":  serial,
		"invoice_number": strings.TrimSpace(payload.InvoiceNumber),
		"address":        strings.TrimSpace(payload.Address),
		"zip_code":       strings.TrimSpace(payload.ZipCode),
		"installed_at":   payload.InstalledAt,
		"status":         normalize.Status(payload.Status),
		"metadata":       encodeMetadata(merged),
		"updated_at":     s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Model(&Equipment{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		s.logError(opUpdate, "update_failed", err, zap.Int64("equipment_id", id))
		return fault.Store(opUpdate, "update_failed", err)
	}

	if payload.OwnerID == nil {
		return nil
	}
	if *payload.OwnerID > 0 {
		return s.ReplaceModules(ctx, *payload.OwnerID, id, payload.Modules)
	}
	return s.clearModules(ctx, opUpdate, id)
}

// UpdateStatus is the fast path for status-only payloads: it rewrites the
// status and modification timestamp, leaving every other column untouched.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.loadLive(ctx, opUpdateStatus, id); err != nil {
		return err
	}

	if !normalize.Recognized(status) {
		s.logger.Debug("unrecognized status token defaulted to active",
			zap.String("operation", opUpdateStatus), zap.String("status", status))
	}

	updates := map[string]any{
		"status":     normalize.Status(status),
		"updated_at": s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Model(&Equipment{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		s.logError(opUpdateStatus, "update_failed", err, zap.Int64("equipment_id", id))
		return fault.Store(opUpdateStatus, "update_failed", err)
	}
	return nil
}

// SoftDelete marks the row StatusDeleted and removes its module association
// so the equipment disappears from the owning customer's view while its
// historical records remain.
func (s *Service) SoftDelete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.loadLive(ctx, opSoftDelete, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":     normalize.StatusDeleted,
			"updated_at": s.clock().UTC(),
		}
		if err := tx.Model(&Equipment{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("equipment_id = ?", id).Delete(&OwnerModuleAssociation{}).Error
	})
	if err != nil {
		s.logError(opSoftDelete, "transaction_failed", err, zap.Int64("equipment_id", id))
		return fault.Store(opSoftDelete, "transaction_failed", err)
	}

	s.logger.Info("equipment soft-deleted", zap.Int64("equipment_id", id))
	return nil
}

// Deactivate sets the row to StatusDeactivated without touching its module
// association.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.loadLive(ctx, opDeactivate, id); err != nil {
		return err
	}

	updates := map[string]any{
		"status":     normalize.StatusDeactivated,
		"updated_at": s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Model(&Equipment{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		s.logError(opDeactivate, "update_failed", err, zap.Int64("equipment_id", id))
		return fault.Store(opDeactivate, "update_failed", err)
	}
	return nil
}

// Get returns one live equipment row. Soft-deleted rows read as absent.
func (s *Service) Get(ctx context.Context, id int64) (Equipment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row, err := s.loadLive(ctx, opGet, id)
	if err != nil {
		return Equipment{}, err
	}
	return row, nil
}

// List returns every equipment row that is not soft-deleted, newest first.
func (s *Service) List(ctx context.Context) ([]Equipment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []Equipment
	err := s.db.WithContext(ctx).
		Where("status <> ?", normalize.StatusDeleted).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		s.logError(opList, "query_failed", err)
		return nil, fault.Store(opList, "query_failed", err)
	}
	return rows, nil
}

// loadLive fetches a row by id, treating StatusDeleted as terminal: a
// soft-deleted row is reported as not found rather than resurrected.
func (s *Service) loadLive(ctx context.Context, operation string, id int64) (Equipment, error) {
	var row Equipment
	err := s.db.WithContext(ctx).
		Where("id = ? AND status <> ?", id, normalize.StatusDeleted).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Equipment{}, fault.New(fault.KindNotFound, operation, "not_found", err)
	}
	if err != nil {
		s.logError(operation, "select_failed", err, zap.Int64("equipment_id", id))
		return Equipment{}, fault.Store(operation, "select_failed", err)
	}
	return row, nil
}

// ensureSerialAvailable enforces serial-number uniqueness among rows that are
// not soft-deleted, comparing case- and whitespace-insensitively. excludeID
// skips the row's own id during updates.
func (s *Service) ensureSerialAvailable(ctx context.Context, operation, serial string, excludeID int64) error {
	query := s.db.WithContext(ctx).Model(&Equipment{}).
		Where("LOWER(TRIM(serial_number)) = ? AND status <> ?", strings.ToLower(serial), normalize.StatusDeleted)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		s.logError(operation, "serial_check_failed", err, zap.String("serial_number", serial))
		return fault.Store(operation, "serial_check_failed", err)
	}
	if count > 0 {
		return fault.New(fault.KindDuplicateSerial, operation, "duplicate_serial",
			errors.New("serial number already registered on live equipment"))
	}
	return nil
}

// resolveCity maps the optional "Name/UF" designator to a city id. Absent
// city text leaves the reference null without consulting the resolver.
func (s *Service) resolveCity(ctx context.Context, designator string) (*int64, error) {
	if strings.TrimSpace(designator) == "" {
		return nil, nil
	}
	name, stateCode := normalize.SplitCityUF(designator)
	cityID, err := s.cities.Resolve(ctx, name, stateCode)
	if err != nil {
		return nil, err
	}
	return &cityID, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("equipment service error", attrs...)
}
