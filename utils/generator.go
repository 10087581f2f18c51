package utils

import (
	"math/rand"
	"time"

	"github.com/kelvinmwangi/fundilink/models"
	"gorm.io/gorm"
)

const referralCodeLength = 8
const letterBytes = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomReferralCode(r *rand.Rand) string {
	b := make([]byte, referralCodeLength)
	for i := range b {
		b[i] = letterBytes[r.Intn(len(letterBytes))]
	}
	return string(b)
}

func GenerateUniqueReferralCode(tx *gorm.DB) (string, error) {
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		code := randomReferralCode(seededRand)

		var user models.User
		err := tx.Where("referral_code = ?", code).First(&user).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return code, nil
			}
			return "", err
		}
	}
}
