package services

import (
	"log"

	"github.com/google/uuid"
	"github.com/kelvinmwangi/fundilink/database"
	"github.com/kelvinmwangi/fundilink/models"
	"github.com/kelvinmwangi/fundilink/notifications"
	"gorm.io/gorm"
)

const ReferralRewardAmount = 5.00

func CompleteReferralIfApplicable(customerID uuid.UUID) {
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var referral models.Referral
		if err := tx.Preload("Referrer").Where("referred_user_id = ? AND status = ?", customerID, "pending").First(&referral).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}

		referrer := referral.Referrer
		referrer.CreditBalance += ReferralRewardAmount
		if err := tx.Save(&referrer).Error; err != nil {
			return err
		}

		referral.Status = "completed"
		referral.RewardAmount = ReferralRewardAmount
		if err := tx.Save(&referral).Error; err != nil {
			return err
		}

		go notifications.SendEmail(
			referrer.FullName,
			referrer.Email,
			"You've Earned a Referral Credit!",
			"<h1>Congratulations!</h1><p>Someone you referred has booked their first visit. A credit of $5.00 has been added to your account.</p>",
		)

		return nil
	})

	if err != nil {
		log.Printf("🔥 Error processing referral for customer %s: %v", customerID, err)
	}
}
