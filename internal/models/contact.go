package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContactUs is an archived contact-form submission. Records are only ever
// created, never updated.
type ContactUs struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Email     string    `json:"email" gorm:"not null"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

func (c *ContactUs) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
