package cities

import "time"

// City is a lookup row shared by every equipment installation address.
// NameFolded carries the lowercase, diacritic-free form of Name so the
// schema can enforce uniqueness per state regardless of accenting.
type City struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name       string    `gorm:"column:name;size:190;not null" json:"name"`
	NameFolded string    `gorm:"column:name_folded;size:190;not null;uniqueIndex:idx_cities_folded_state,priority:1" json:"-"`
	StateCode  string    `gorm:"column:state_code;size:2;not null;uniqueIndex:idx_cities_folded_state,priority:2" json:"state_code"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (City) TableName() string {
	return "cities"
}
