package models

import (
	"time"

	"github.com/google/uuid"
)

type Receipt struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BookingID     uuid.UUID `gorm:"not null;unique"`
	CustomerID    uuid.UUID `gorm:"not null"`
	ProviderID    uuid.UUID `gorm:"not null"`
	ReceiptNumber string    `gorm:"size:50;not null;unique"`
	Amount        float64   `gorm:"type:numeric(10,2);not null"`
	Currency      string    `gorm:"size:3"`
	IssuedAt      time.Time `gorm:"not null"`
	ReceiptURL    string    `gorm:"type:text;not null"`

	Booking  Booking `gorm:"foreignkey:BookingID"`
	Customer User    `gorm:"foreignkey:CustomerID"`
	Provider User    `gorm:"foreignkey:ProviderID"`
}
