package model

import (
	"time"

	"gorm.io/gorm"
)

// Place is a date spot owned by exactly one tenant.
type Place struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"type:varchar(255);not null"`
	Description string         `json:"description,omitempty" gorm:"type:text"`
	Address     string         `json:"address,omitempty" gorm:"type:text"`
	URL         string         `json:"url,omitempty" gorm:"type:text"`
	VisitDate   *time.Time     `json:"visit_date,omitempty"`
	TenantID    uint           `json:"tenant_id" gorm:"index;not null"`
	UserID      uint           `json:"user_id" gorm:"index;not null"`
	CreatedAt   time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// PlaceInput carries the fields accepted when creating a place.
type PlaceInput struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Description string     `json:"description"`
	Address     string     `json:"address"`
	URL         string     `json:"url" validate:"omitempty,url"`
	VisitDate   *time.Time `json:"visit_date"`
}

// PlacePatch lists the updatable fields of a place. An absent field is left
// unchanged; null clears an optional field. Name cannot be cleared.
type PlacePatch struct {
	Name        Optional[string]    `json:"name" validate:"omitempty,max=255"`
	Description Optional[string]    `json:"description"`
	Address     Optional[string]    `json:"address"`
	URL         Optional[string]    `json:"url" validate:"omitempty,url"`
	VisitDate   Optional[time.Time] `json:"visit_date"`
}

// Columns returns the column/value pairs set by the patch. Cleared text
// columns become empty strings, a cleared visit date becomes NULL.
func (p PlacePatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Name.Set {
		cols["name"] = p.Name.Value
	}
	if p.Description.Set {
		cols["description"] = p.Description.Value
	}
	if p.Address.Set {
		cols["address"] = p.Address.Value
	}
	if p.URL.Set {
		cols["url"] = p.URL.Value
	}
	if p.VisitDate.Set {
		if p.VisitDate.Valid {
			cols["visit_date"] = p.VisitDate.Value
		} else {
			cols["visit_date"] = nil
		}
	}
	return cols
}
