package models

import "github.com/google/uuid"

type Service struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"ID"`
	Name            string    `gorm:"size:100;not null;unique" json:"name"`
	Category        string    `gorm:"size:50;not null" json:"category"`
	Description     *string   `gorm:"type:text" json:"description"`
	PricePerVisit   float64   `gorm:"type:numeric(10,2);not null;default:0.00" json:"PricePerVisit"`
	Currency        string    `gorm:"size:3;not null;default:'USD'"`
	DurationMinutes int       `gorm:"not null;default:60" json:"duration_minutes"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`
}
