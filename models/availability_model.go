package models

import (
	"time"

	"github.com/google/uuid"
)

type AvailabilitySlot struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProviderID uuid.UUID  `gorm:"not null" json:"-"`
	ServiceID  *uuid.UUID `gorm:"" json:"service_id"`
	StartTime  time.Time  `gorm:"not null" json:"start_time"`
	EndTime    time.Time  `gorm:"not null" json:"end_time"`
	Status     string     `gorm:"size:20;not null;default:'available'" json:"status"`

	MaxBookings     int `gorm:"not null;default:1" json:"max_bookings"`
	CurrentBookings int `gorm:"not null;default:0" json:"current_bookings"`

	Provider User    `gorm:"foreignkey:ProviderID" json:"provider,omitempty"`
	Service  Service `gorm:"foreignkey:ServiceID" json:"service,omitempty"`
}
