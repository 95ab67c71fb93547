package equipment

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lagoalabs/aquafleet/internal/fault"
)

const (
	opAddFilter   = "equipment.add_filter_replacement"
	opListFilters = "equipment.list_filter_replacements"
)

// FilterPayload carries the writable fields of one filter replacement entry.
type FilterPayload struct {
	FilterType string
	FilterName string
	ReplacedAt time.Time
	FlowRate   float64
}

// AddFilterReplacement appends one entry to the equipment's filter history.
// The history is append-only; entries are never mutated afterwards.
func (s *Service) AddFilterReplacement(ctx context.Context, equipmentID int64, payload FilterPayload) (int64, error) {
	var missing []string
	if strings.TrimSpace(payload.FilterType) == "" {
		missing = append(missing, "filter_type")
	}
	if strings.TrimSpace(payload.FilterName) == "" {
		missing = append(missing, "filter_name")
	}
	if payload.ReplacedAt.IsZero() {
		missing = append(missing, "replaced_at")
	}
	if len(missing) > 0 {
		return 0, fault.Validation(opAddFilter, missing)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.loadLive(ctx, opAddFilter, equipmentID); err != nil {
		return 0, err
	}

	record := FilterReplacement{
		EquipmentID: equipmentID,
		FilterType:  strings.TrimSpace(payload.FilterType),
		FilterName:  strings.TrimSpace(payload.FilterName),
		ReplacedAt:  payload.ReplacedAt,
		FlowRate:    payload.FlowRate,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opAddFilter, "insert_failed", err, zap.Int64("equipment_id", equipmentID))
		return 0, fault.Store(opAddFilter, "insert_failed", err)
	}
	return record.ID, nil
}

// ListFilterReplacements returns the equipment's filter history, newest
// replacement first.
func (s *Service) ListFilterReplacements(ctx context.Context, equipmentID int64) ([]FilterReplacement, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.loadLive(ctx, opListFilters, equipmentID); err != nil {
		return nil, err
	}

	var records []FilterReplacement
	err := s.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Order("replaced_at DESC").
		Find(&records).Error
	if err != nil {
		s.logError(opListFilters, "query_failed", err, zap.Int64("equipment_id", equipmentID))
		return nil, fault.Store(opListFilters, "query_failed", err)
	}
	return records, nil
}
