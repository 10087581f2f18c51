package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FullName string    `gorm:"size:255;not null" json:"full_name"`
	Email    string    `gorm:"size:255;not null;unique" json:"email"`
	Password string    `gorm:"not null" json:"-"`
	Role     string    `gorm:"size:20;not null;default:'customer'" json:"role"`

	ReferralCode   *string `gorm:"size:10;unique" json:"referral_code"`
	ReferredByCode *string `gorm:"size:10" json:"referred_by_code"`
	CreditBalance  float64 `gorm:"type:numeric(10,2);default:0.00" json:"credit_balance"`

	PhoneNumber       *string `gorm:"size:20" json:"phone_number"`
	DefaultAddress    *string `gorm:"size:255" json:"default_address"`
	ProfilePictureURL *string `gorm:"size:255" json:"profile_picture_url"`
	TimeZone          *string `gorm:"size:100" json:"time_zone"`

	ResetPasswordToken          *string    `gorm:"size:255;unique" json:"-"`
	ResetPasswordTokenExpiresAt *time.Time `json:"-"`
	IsActive                    bool       `gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
