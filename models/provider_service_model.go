package models

import "github.com/google/uuid"

type ProviderService struct {
	ProviderUserID uuid.UUID `gorm:"type:uuid;primaryKey"`
	ServiceID      uuid.UUID `gorm:"type:uuid;primaryKey"`

	Provider Provider `gorm:"foreignKey:ProviderUserID"`
	Service  Service  `gorm:"foreignKey:ServiceID"`
}
