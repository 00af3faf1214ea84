package model

import (
	"time"

	"gorm.io/gorm"
)

// Tenant is a shared space grouping users and the places they manage together.
type Tenant struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	Members   []User         `json:"members" gorm:"many2many:user_tenants;"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
