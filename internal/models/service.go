// Package models maintains the catalog of equipment models (types).
package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lagoalabs/aquafleet/internal/fault"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew = "models.service.new"
	opCreate     = "models.create"
	opList       = "models.list"
	opGet        = "models.get"
	opUpdate     = "models.update"
	opDelete     = "models.delete"

	defaultStoreTimeout = 5 * time.Second
)

// Model is one entry in the equipment type catalog.
type Model struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;size:190;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (Model) TableName() string {
	return "models"
}

// ServiceConfig describes the dependencies of the catalog service.
type ServiceConfig struct {
	Database     *gorm.DB
	Logger       *zap.Logger
	StoreTimeout time.Duration
}

// Service exposes CRUD over the model catalog.
type Service struct {
	db      *gorm.DB
	logger  *zap.Logger
	timeout time.Duration
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fault.New(fault.KindStoreError, opServiceNew, "missing_database", errMissingDatabase)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &Service{db: cfg.Database, logger: logger, timeout: timeout}, nil
}

// Create inserts a new catalog entry.
func (s *Service) Create(ctx context.Context, name string) (int64, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return 0, fault.Validation(opCreate, []string{"name"})
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := Model{Name: trimmed}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("name", trimmed))
		return 0, fault.Store(opCreate, "insert_failed", err)
	}
	return row.ID, nil
}

// List returns the full catalog ordered by name.
func (s *Service) List(ctx context.Context) ([]Model, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []Model
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, fault.Store(opList, "query_failed", err)
	}
	return rows, nil
}

// Get returns one catalog entry by id.
func (s *Service) Get(ctx context.Context, id int64) (Model, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row Model
	err := s.db.WithContext(ctx).Take(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Model{}, fault.New(fault.KindNotFound, opGet, "not_found", err)
	}
	if err != nil {
		s.logError(opGet, "select_failed", err, zap.Int64("model_id", id))
		return Model{}, fault.Store(opGet, "select_failed", err)
	}
	return row, nil
}

// Update renames one catalog entry.
func (s *Service) Update(ctx context.Context, id int64, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fault.Validation(opUpdate, []string{"name"})
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := s.db.WithContext(ctx).Model(&Model{}).Where("id = ?", id).Update("name", trimmed)
	if result.Error != nil {
		s.logError(opUpdate, "update_failed", result.Error, zap.Int64("model_id", id))
		return fault.Store(opUpdate, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return fault.New(fault.KindNotFound, opUpdate, "not_found", gorm.ErrRecordNotFound)
	}
	return nil
}

// Delete removes one catalog entry.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := s.db.WithContext(ctx).Delete(&Model{}, id)
	if result.Error != nil {
		s.logError(opDelete, "delete_failed", result.Error, zap.Int64("model_id", id))
		return fault.Store(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return fault.New(fault.KindNotFound, opDelete, "not_found", gorm.ErrRecordNotFound)
	}
	return nil
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
	s.logger.Error("model catalog error", attrs...)
}
