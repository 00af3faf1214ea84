package model

import (
	"time"
)

// User is an identity record. Users are created on first sign-in or when
// invited, and are never deleted.
type User struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	Email           string     `json:"email" gorm:"type:varchar(320);uniqueIndex;not null"`
	Name            string     `json:"name,omitempty" gorm:"type:varchar(255)"`
	Image           string     `json:"image,omitempty" gorm:"type:text"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Verified reports whether the user has completed a sign-in.
func (u User) Verified() bool {
	return u.EmailVerifiedAt != nil
}
