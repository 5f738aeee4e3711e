package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account record. Password, RefreshToken and OTP are secrets and
// never serialized, so a marshalled User is already the sanitized shape
// handlers return to clients.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	Fullname     string    `json:"fullname" gorm:"not null"`
	Password     string    `json:"-" gorm:"not null"`
	Avatar       string    `json:"avatar"`
	OTP          int64     `json:"-" gorm:"column:otp"`
	IsVerified   bool      `json:"isVerified" gorm:"default:false"`
	IsDisabled   bool      `json:"isDisabled" gorm:"default:false"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
