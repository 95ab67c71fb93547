// Package cities resolves free-text city names to persistent city rows.
//
// City names arrive from several front-end forms with inconsistent accenting
// ("São Paulo", "Sao Paulo", "sao paulo"). The resolver matches them against
// stored rows without proliferating near-duplicate cities, and self-registers
// unknown cities when a disambiguating state code is supplied.
package cities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lagoalabs/aquafleet/internal/fault"
	"github.com/lagoalabs/aquafleet/internal/normalize"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opResolverNew = "cities.resolver.new"
	opResolve     = "cities.resolve"
	opList        = "cities.list"

	// prefixLength bounds the stored-name narrowing in the accent-insensitive
	// tier; the full comparison happens in process on folded names.
	prefixLength = 4

	defaultStoreTimeout = 5 * time.Second
)

// ResolverConfig describes the dependencies of the city resolver.
type ResolverConfig struct {
	Database     *gorm.DB
	Logger       *zap.Logger
	StoreTimeout time.Duration
}

// Resolver maps user-supplied city names to city identifiers.
type Resolver struct {
	db      *gorm.DB
	logger  *zap.Logger
	timeout time.Duration
}

// NewResolver validates the configuration and constructs a Resolver.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Database == nil {
		return nil, fault.New(fault.KindStoreError, opResolverNew, "missing_database", errMissingDatabase)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &Resolver{db: cfg.Database, logger: logger, timeout: timeout}, nil
}

// Resolve returns the identifier for the named city, creating the row when
// it does not exist yet and a state code is available.
//
// Lookup runs in three tiers, each short-circuiting on a unique hit:
//  1. exact case-insensitive name match (state-filtered when supplied);
//  2. stored-name prefix narrowing plus in-process folded-name equality,
//     because the storage collation cannot be trusted to fold accents;
//  3. creation, which requires a state code to disambiguate.
//
// Several candidates at either lookup tier fail with KindAmbiguousCity.
func (r *Resolver) Resolve(ctx context.Context, name, stateCode string) (int64, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return 0, fault.Validation(opResolve, []string{"city"})
	}
	stateCode = strings.ToUpper(strings.TrimSpace(stateCode))

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	id, found, err := r.exactMatch(ctx, trimmed, stateCode)
	if err != nil || found {
		return id, err
	}

	id, found, err = r.foldedMatch(ctx, trimmed, stateCode)
	if err != nil || found {
		return id, err
	}

	if stateCode == "" {
		return 0, fault.New(fault.KindCityNeedsState, opResolve, "state_code_required",
			fmt.Errorf("city %q is unknown and cannot be created without a state code", trimmed))
	}
	return r.create(ctx, trimmed, stateCode)
}

func (r *Resolver) exactMatch(ctx context.Context, name, stateCode string) (int64, bool, error) {
	query := r.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(name))
	if stateCode != "" {
		query = query.Where("state_code = ?", stateCode)
	}

	var candidates []City
	if err := query.Find(&candidates).Error; err != nil {
		r.logError(opResolve, "exact_query_failed", err, zap.String("city", name))
		return 0, false, fault.Store(opResolve, "exact_query_failed", err)
	}
	return r.pick(name, stateCode, candidates)
}

func (r *Resolver) foldedMatch(ctx context.Context, name, stateCode string) (int64, bool, error) {
	folded := normalize.Fold(name)
	prefix := folded
	if runes := []rune(folded); len(runes) > prefixLength {
		prefix = string(runes[:prefixLength])
	}

	query := r.db.WithContext(ctx).Where("name_folded LIKE ?", prefix+"%")
	if stateCode != "" {
		query = query.Where("state_code = ?", stateCode)
	}

	var narrowed []City
	if err := query.Find(&narrowed).Error; err != nil {
		r.logError(opResolve, "folded_query_failed", err, zap.String("city", name))
		return 0, false, fault.Store(opResolve, "folded_query_failed", err)
	}

	var candidates []City
	for _, candidate := range narrowed {
		if normalize.Fold(candidate.Name) == folded {
			candidates = append(candidates, candidate)
		}
	}
	return r.pick(name, stateCode, candidates)
}

// pick applies the shared zero/one/many handling of both lookup tiers.
func (r *Resolver) pick(name, stateCode string, candidates []City) (int64, bool, error) {
	switch len(candidates) {
	case 0:
		return 0, false, nil
	case 1:
		return candidates[0].ID, true, nil
	default:
		states := make([]string, 0, len(candidates))
		for _, candidate := range candidates {
			states = append(states, candidate.StateCode)
		}
		err := fault.New(fault.KindAmbiguousCity, opResolve, "ambiguous_city",
			fmt.Errorf("city %q (state %q) matched %d candidates in states %s",
				name, stateCode, len(candidates), strings.Join(states, ", ")))
		return 0, false, err
	}
}

func (r *Resolver) create(ctx context.Context, name, stateCode string) (int64, error) {
	city := City{
		Name:       name,
		NameFolded: normalize.Fold(name),
		StateCode:  stateCode,
	}
	if err := r.db.WithContext(ctx).Create(&city).Error; err != nil {
		r.logError(opResolve, "create_failed", err,
			zap.String("city", name), zap.String("state_code", stateCode))
		return 0, fault.Store(opResolve, "create_failed", err)
	}
	r.logger.Info("city created",
		zap.Int64("city_id", city.ID),
		zap.String("city", name),
		zap.String("state_code", stateCode))
	return city.ID, nil
}

// List returns every known city ordered by name for lookup endpoints.
func (r *Resolver) List(ctx context.Context) ([]City, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []City
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		r.logError(opList, "query_failed", err)
		return nil, fault.Store(opList, "query_failed", err)
	}
	return rows, nil
}

func (r *Resolver) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	r.logger.Error("city resolver error", attrs...)
}
