// Package users manages customer accounts: the people and companies that
// own fleet equipment. Passwords are stored as bcrypt hashes; the API itself
// carries no authentication layer.
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/lagoalabs/aquafleet/internal/fault"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	errEmailTaken      = errors.New("email already registered")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew = "users.service.new"
	opCreate     = "users.create"
	opGet        = "users.get"
	opList       = "users.list"
	opUpdate     = "users.update"
	opDelete     = "users.delete"

	defaultStoreTimeout = 5 * time.Second
)

// User is a customer account row.
type User struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"column:name;size:190;not null" json:"name"`
	Email        string    `gorm:"column:email;size:320;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;size:60;not null" json:"-"`
	Phone        string    `gorm:"column:phone;size:32" json:"phone"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}

// Payload carries the writable account fields. Password is optional on
// update; when present it is re-hashed.
type Payload struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// ServiceConfig describes the dependencies of the account service.
type ServiceConfig struct {
	Database     *gorm.DB
	Logger       *zap.Logger
	StoreTimeout time.Duration
	// HashCost overrides the bcrypt cost, mainly to keep tests fast.
	HashCost int
}

// Service exposes CRUD over customer accounts.
type Service struct {
	db       *gorm.DB
	logger   *zap.Logger
	timeout  time.Duration
	hashCost int
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
	hashCost := cfg.HashCost
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	return &Service{db: cfg.Database, logger: logger, timeout: timeout, hashCost: hashCost}, nil
}

// Create registers a new account with a hashed password.
func (s *Service) Create(ctx context.Context, payload Payload) (int64, error) {
	var missing []string
	if strings.TrimSpace(payload.Name) == "" {
		missing = append(missing, "name")
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		missing = append(missing, "email")
	}
	if payload.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return 0, fault.Validation(opCreate, missing)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.ensureEmailAvailable(ctx, opCreate, email, 0); err != nil {
		return 0, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), s.hashCost)
	if err != nil {
		s.logError(opCreate, "hash_failed", err)
		return 0, fault.New(fault.KindStoreError, opCreate, "hash_failed", err)
	}

	row := User{
		Name:         strings.TrimSpace(payload.Name),
		Email:        email,
		PasswordHash: string(hash),
		Phone:        strings.TrimSpace(payload.Phone),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("email", email))
		return 0, fault.Store(opCreate, "insert_failed", err)
	}

	s.logger.Info("user created", zap.Int64("user_id", row.ID))
	return row.ID, nil
}

// Get returns one account by id.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row User
	err := s.db.WithContext(ctx).Take(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, fault.New(fault.KindNotFound, opGet, "not_found", err)
	}
	if err != nil {
		s.logError(opGet, "select_failed", err, zap.Int64("user_id", id))
		return User{}, fault.Store(opGet, "select_failed", err)
	}
	return row, nil
}

// List returns every account ordered by name.
func (s *Service) List(ctx context.Context) ([]User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []User
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, fault.Store(opList, "query_failed", err)
	}
	return rows, nil
}

// Update rewrites the account fields; the password is re-hashed only when a
// new one is supplied.
func (s *Service) Update(ctx context.Context, id int64, payload Payload) error {
	var missing []string
	if strings.TrimSpace(payload.Name) == "" {
		missing = append(missing, "name")
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return fault.Validation(opUpdate, missing)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.ensureEmailAvailable(ctx, opUpdate, email, id); err != nil {
		return err
	}

	updates := map[string]any{
		"name":  strings.TrimSpace(payload.Name),
		"email": email,
		"phone": strings.TrimSpace(payload.Phone),
	}
	if payload.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), s.hashCost)
		if err != nil {
			s.logError(opUpdate, "hash_failed", err)
			return fault.New(fault.KindStoreError, opUpdate, "hash_failed", err)
		}
		updates["password_hash"] = string(hash)
	}

	if err := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		s.logError(opUpdate, "update_failed", err, zap.Int64("user_id", id))
		return fault.Store(opUpdate, "update_failed", err)
	}
	return nil
}

// Delete removes the account row.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := s.db.WithContext(ctx).Delete(&User{}, id)
	if result.Error != nil {
		s.logError(opDelete, "delete_failed", result.Error, zap.Int64("user_id", id))
		return fault.Store(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return fault.New(fault.KindNotFound, opDelete, "not_found", gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *Service) ensureEmailAvailable(ctx context.Context, operation, email string, excludeID int64) error {
	query := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", email)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		s.logError(operation, "email_check_failed", err)
		return fault.Store(operation, "email_check_failed", err)
	}
	if count > 0 {
		return fault.New(fault.KindDuplicateEmail, operation, "duplicate_email", errEmailTaken)
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
	s.logger.Error("user service error", attrs...)
}
