package equipment

import (
	"time"

	"github.com/lagoalabs/aquafleet/internal/normalize"
)

// Equipment is a physical machine installed at a customer site.
type Equipment struct {
	ID            int64                `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ModelID       int64                `gorm:"column:model_id;not null;index" json:"model_id"`
	CityID        *int64               `gorm:"column:city_id" json:"city_id"`
	Name          string               `gorm:"column:name;size:190;not null" json:"name"`
	SerialNumber  string               `gorm:"column:serial_number;size:64;not null;index" json:"serial_number"`
	InvoiceNumber string               `gorm:"column:invoice_number;size:64" json:"invoice_number"`
	Address       string               `gorm:"column:address;size:320" json:"address"`
	ZipCode       string               `gorm:"column:zip_code;size:16" json:"zip_code"`
	InstalledAt   time.Time            `gorm:"column:installed_at;not null" json:"installed_at"`
	Status        normalize.StatusCode `gorm:"column:status;not null;default:0;index" json:"status"`
	Metadata      string               `gorm:"column:metadata;type:text" json:"metadata"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (Equipment) TableName() string {
	return "equipment"
}

// OwnerModuleAssociation links one equipment unit to its owning customer and
// the feature modules enabled on it. The unique index on equipment_id backs
// the one-row-per-equipment invariant the reconciler enforces.
type OwnerModuleAssociation struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OwnerID     int64     `gorm:"column:owner_id;not null;index" json:"owner_id"`
	EquipmentID int64     `gorm:"column:equipment_id;not null;uniqueIndex:idx_assoc_equipment" json:"equipment_id"`
	ColdWater   bool      `gorm:"column:cold_water;not null;default:false" json:"cold_water"`
	HotWater    bool      `gorm:"column:hot_water;not null;default:false" json:"hot_water"`
	PetFountain bool      `gorm:"column:pet_fountain;not null;default:false" json:"pet_fountain"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (OwnerModuleAssociation) TableName() string {
	return "owner_module_associations"
}

// ModuleFlags carries the boolean feature switches of an association.
type ModuleFlags struct {
	ColdWater   bool `json:"cold_water"`
	HotWater    bool `json:"hot_water"`
	PetFountain bool `json:"pet_fountain"`
}

// FilterReplacement is one append-only entry in an equipment's filter
// maintenance history. Rows are never mutated after insertion.
type FilterReplacement struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	EquipmentID int64     `gorm:"column:equipment_id;not null;index" json:"equipment_id"`
	FilterType  string    `gorm:"column:filter_type;size:64;not null" json:"filter_type"`
	FilterName  string    `gorm:"column:filter_name;size:190;not null" json:"filter_name"`
	ReplacedAt  time.Time `gorm:"column:replaced_at;not null" json:"replaced_at"`
	FlowRate    float64   `gorm:"column:flow_rate" json:"flow_rate"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (FilterReplacement) TableName() string {
	return "filter_replacements"
}
