package models

import (
	"time"

	"github.com/google/uuid"
)

type Booking struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CustomerID         uuid.UUID `gorm:"not null"`
	ProviderID         uuid.UUID `gorm:"not null"`
	AvailabilitySlotID uuid.UUID `gorm:"not null"`
	Status             string    `gorm:"size:25;not null;default:'pending_payment'"`
	Price              float64   `gorm:"type:numeric(10,2);not null"`
	Currency           string    `gorm:"size:3"`
	ServiceAddress     string    `gorm:"size:255;not null"`
	CustomerNotes      *string   `gorm:"type:text"`

	ProviderFeedback *string `gorm:"type:text"`
	CustomerFeedback *string `gorm:"type:text"`

	ProposedStartTime *time.Time
	ProposedEndTime   *time.Time

	Customer         User             `gorm:"foreignkey:CustomerID"`
	Provider         User             `gorm:"foreignkey:ProviderID"`
	AvailabilitySlot AvailabilitySlot `gorm:"foreignkey:AvailabilitySlotID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
