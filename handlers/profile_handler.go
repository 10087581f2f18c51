package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/kelvinmwangi/fundilink/database"
	"github.com/kelvinmwangi/fundilink/models"
)

type UpdateProfileRequest struct {
	FullName          *string `json:"full_name"`
	PhoneNumber       *string `json:"phone_number"`
	DefaultAddress    *string `json:"default_address"`
	ProfilePictureURL *string `json:"profile_picture_url"`
	TimeZone          *string `json:"time_zone"`
}

func GetProfile(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID := claims["user_id"].(string)

	var user models.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	return c.JSON(user)
}

func UpdateProfile(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID := claims["user_id"].(string)

	var user models.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.DefaultAddress != nil {
		user.DefaultAddress = req.DefaultAddress
	}
	if req.ProfilePictureURL != nil {
		user.ProfilePictureURL = req.ProfilePictureURL
	}
	if req.TimeZone != nil {
		user.TimeZone = req.TimeZone
	}

	database.DB.Save(&user)

	return c.JSON(user)
}

func GetMyActivity(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	customerID, _ := uuid.Parse(claims["user_id"].(string))

	var completedVisits int64
	database.DB.Model(&models.Booking{}).
		Where("customer_id = ? AND status = ?", customerID, "completed").
		Count(&completedVisits)

	var totalSpent float64
	database.DB.Model(&models.Payment{}).
		Joins("JOIN bookings on payments.booking_id = bookings.id").
		Where("bookings.customer_id = ? AND payments.status = ?", customerID, "succeeded").
		Select("COALESCE(SUM(payments.amount), 0)").
		Row().Scan(&totalSpent)

	var upcoming []models.Booking
	database.DB.Preload("AvailabilitySlot.Service").Preload("Provider").
		Joins("JOIN availability_slots on bookings.availability_slot_id = availability_slots.id").
		Where("bookings.customer_id = ? AND bookings.status = ? AND availability_slots.start_time > NOW()", customerID, "confirmed").
		Order("availability_slots.start_time asc").
		Find(&upcoming)

	return c.JSON(fiber.Map{
		"completed_visits": completedVisits,
		"total_spent":      totalSpent,
		"upcoming_visits":  upcoming,
	})
}
