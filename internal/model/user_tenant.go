package model

import (
	"time"
)

// UserTenant is the membership relation between users and tenants. The
// composite primary key keeps a membership from being recorded twice.
// There are no roles: every member has the same rights.
type UserTenant struct {
	UserID    uint      `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	TenantID  uint      `json:"tenant_id" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `json:"created_at"`
}
