package models

import (
	"time"

	"github.com/google/uuid"
)

type Review struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BookingID  uuid.UUID `gorm:"not null;unique"`
	CustomerID uuid.UUID `gorm:"not null"`
	ProviderID uuid.UUID `gorm:"not null"`
	Rating     int       `gorm:"not null"`
	Comment    string    `gorm:"type:text"`

	Booking  Booking `gorm:"foreignkey:BookingID"`
	Customer User    `gorm:"foreignkey:CustomerID"`
	Provider User    `gorm:"foreignkey:ProviderID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
