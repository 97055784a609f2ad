package model

import (
	"time"

	"github.com/google/uuid"
)

// Contact is owned by exactly one user. OwnerID is nullable for
// admin-seeded rows without an owner; such rows only show up on the
// unscoped admin queries.
type Contact struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	FirstName   string         `gorm:"size:50;index;not null" json:"firstname"`
	LastName    string         `gorm:"size:50;index;not null" json:"lastname"`
	Birthday    time.Time      `gorm:"type:date;not null" json:"birthday"`
	Description *string        `gorm:"size:250" json:"description,omitempty"`
	OwnerID     *uuid.UUID     `gorm:"type:uuid;index" json:"owner_id,omitempty"`
	Owner       *User          `gorm:"foreignKey:OwnerID" json:"-"`
	Emails      []ContactEmail `gorm:"constraint:OnDelete:CASCADE" json:"emails"`
	Phones      []ContactPhone `gorm:"constraint:OnDelete:CASCADE" json:"phones"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// ContactEmail values are unique across all contacts, not per owner.
type ContactEmail struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Email     string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	ContactID uint   `gorm:"index;not null" json:"-"`
}

type ContactPhone struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Phone     string `gorm:"size:30;index;not null" json:"phone"`
	ContactID uint   `gorm:"index;not null" json:"-"`
}
