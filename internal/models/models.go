package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"       json:"id"`
	Name         string    `gorm:"not null"                          json:"name"`
	Email        string    `gorm:"uniqueIndex;not null;size:254"     json:"email"`
	PasswordHash string    `gorm:"not null"                          json:"-"`
	Role         string    `gorm:"not null;default:member;size:16"   json:"role"`
	CreatedAt    time.Time `gorm:"not null"                          json:"createdAt"`
}

// BeforeCreate assigns the store-side id; callers never choose it.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleMember
	}
	return nil
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Meeting is a call owned by the video provider. It is only mirrored into
// the meeting directory, never persisted in the credential store.
type Meeting struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	CreatedBy     string    `json:"createdBy"`
	CreatedByName string    `json:"createdByName"`
	StartsAt      time.Time `json:"startsAt"`
}
