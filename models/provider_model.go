package models

import (
	"time"

	"github.com/google/uuid"
)

type Provider struct {
	UserID          uuid.UUID  `gorm:"primary_key" json:"user_id"`
	Headline        *string    `gorm:"size:255" json:"headline"`
	Bio             *string    `gorm:"type:text" json:"bio"`
	Status          string     `gorm:"size:20;not null;default:'pending'" json:"status"`
	AvgRating       float32    `gorm:"default:0" json:"avg_rating"`
	CurrentBalance  float64    `gorm:"type:numeric(10,2);default:0.00" json:"-"`
	YearsExperience int        `gorm:"default:0" json:"years_experience"`
	Address         *string    `gorm:"size:255" json:"address"`
	Latitude        *float64   `json:"latitude"`
	Longitude       *float64   `json:"longitude"`
	ServiceRadiusKm float64    `gorm:"type:numeric(6,1);default:15.0" json:"service_radius_km"`
	Services        []*Service `gorm:"many2many:provider_services;" json:"services"`
	User            User       `gorm:"foreignkey:UserID" json:"user"`
	CreatedAt       time.Time  `json:"-"`
	UpdatedAt       time.Time  `json:"-"`
}
