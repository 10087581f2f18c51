package handlers

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	config "github.com/kelvinmwangi/fundilink/configs"
	"github.com/kelvinmwangi/fundilink/database"
	"github.com/kelvinmwangi/fundilink/models"
	"github.com/kelvinmwangi/fundilink/notifications"
	"github.com/kelvinmwangi/fundilink/services"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProviderApplicationRequest struct {
	Headline        string `json:"headline" validate:"required"`
	Bio             string `json:"bio" validate:"required"`
	Address         string `json:"address" validate:"required"`
	YearsExperience int    `json:"years_experience,omitempty"`
}

func ApplyToBeAProvider(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userIDStr := claims["user_id"].(string)
	userID, _ := uuid.Parse(userIDStr)

	var req ProviderApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var existingProvider models.Provider
	err := database.DB.Where("user_id = ?", userID).First(&existingProvider).Error
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "You have already submitted an application."})
	}
	if err != gorm.ErrRecordNotFound {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	newApplication := models.Provider{
		UserID:          userID,
		Headline:        &req.Headline,
		Bio:             &req.Bio,
		Address:         &req.Address,
		YearsExperience: req.YearsExperience,
	}

	if err := database.DB.Create(&newApplication).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create application"})
	}

	go geocodeProviderAddress(userID, req.Address)

	return c.Status(fiber.StatusCreated).JSON(newApplication)
}

func geocodeProviderAddress(providerID uuid.UUID, address string) {
	lat, lng, err := services.GeocodeAddress(address)
	if err != nil {
		log.Printf("🔥 Failed to geocode address for provider %s: %v", providerID, err)
		return
	}
	if err := database.DB.Model(&models.Provider{}).Where("user_id = ?", providerID).
		Updates(map[string]interface{}{"latitude": lat, "longitude": lng}).Error; err != nil {
		log.Printf("🔥 Failed to store coordinates for provider %s: %v", providerID, err)
	}
}

type CreateAvailabilityRequest struct {
	StartTime   string `json:"start_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndTime     string `json:"end_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	ServiceID   string `json:"service_id" validate:"required,uuid"`
	MaxBookings int    `json:"max_bookings,omitempty"`
}

func CreateAvailabilitySlot(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerIDStr := claims["user_id"].(string)
	providerID, _ := uuid.Parse(providerIDStr)

	var req CreateAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	startTime, _ := time.Parse(time.RFC3339, req.StartTime)
	endTime, _ := time.Parse(time.RFC3339, req.EndTime)

	if startTime.After(endTime) || startTime.Equal(endTime) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Start time must be before end time"})
	}

	maxBookings := 1
	if req.MaxBookings > 1 {
		maxBookings = req.MaxBookings
	}

	newSlot := models.AvailabilitySlot{
		ProviderID:  providerID,
		ServiceID:   func() *uuid.UUID { id := uuid.MustParse(req.ServiceID); return &id }(),
		StartTime:   startTime,
		EndTime:     endTime,
		MaxBookings: maxBookings,
	}

	if err := database.DB.Create(&newSlot).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create availability slot"})
	}

	return c.Status(fiber.StatusCreated).JSON(newSlot)
}

func GetMyAvailability(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerIDStr := claims["user_id"].(string)

	var slots []models.AvailabilitySlot
	database.DB.Where("provider_id = ?", providerIDStr).Find(&slots)

	return c.JSON(slots)
}

func GetProviderAvailability(c *fiber.Ctx) error {
	providerID := c.Params("providerId")

	var availableSlots []models.AvailabilitySlot
	database.DB.Where("provider_id = ? AND status = ? AND start_time > ?", providerID, "available", time.Now()).
		Order("start_time asc").
		Find(&availableSlots)

	return c.JSON(availableSlots)
}

type AddServiceRequest struct {
	ServiceID string `json:"service_id" validate:"required,uuid"`
}

func AddServiceToProfile(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerIDStr := claims["user_id"].(string)

	var req AddServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var provider models.Provider
	if err := database.DB.Where("user_id = ?", providerIDStr).First(&provider).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Provider profile not found"})
	}

	var service models.Service
	if err := database.DB.Where("id = ?", req.ServiceID).First(&service).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Service not found"})
	}

	database.DB.Model(&provider).Association("Services").Append(&service)

	return c.JSON(fiber.Map{"message": "Service added successfully"})
}

func RemoveServiceFromProfile(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerIDStr := claims["user_id"].(string)
	serviceID := c.Params("serviceId")

	var provider models.Provider
	if err := database.DB.Where("user_id = ?", providerIDStr).First(&provider).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Provider profile not found"})
	}

	var service models.Service
	if err := database.DB.Where("id = ?", serviceID).First(&service).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Service not found"})
	}

	database.DB.Model(&provider).Association("Services").Delete(&service)

	return c.SendStatus(fiber.StatusNoContent)
}

func ListRescheduleRequests(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))

	var requests []models.Booking
	database.DB.Preload("Customer").Where("provider_id = ? AND status = ?", providerID, "reschedule_requested").Find(&requests)

	return c.JSON(requests)
}

func ProcessReschedule(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))
	bookingID := c.Params("bookingId")

	type ProcessRequest struct {
		Decision string `json:"decision" validate:"required,oneof=approve reject"`
	}
	var req ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var booking models.Booking
	if err := database.DB.Preload("Customer").First(&booking, "id = ?", bookingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	if booking.ProviderID != providerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "This is not your booking to manage"})
	}

	if req.Decision == "approve" {
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			var slot models.AvailabilitySlot
			if err := tx.First(&slot, "id = ?", booking.AvailabilitySlotID).Error; err != nil {
				return err
			}

			slot.StartTime = *booking.ProposedStartTime
			slot.EndTime = *booking.ProposedEndTime
			if err := tx.Save(&slot).Error; err != nil {
				return err
			}

			booking.Status = "confirmed"
			booking.ProposedStartTime = nil
			booking.ProposedEndTime = nil
			if err := tx.Save(&booking).Error; err != nil {
				return err
			}

			return nil
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process reschedule"})
		}

		go notifications.SendEmail(booking.Customer.FullName, booking.Customer.Email, "Reschedule Approved", "Your request to reschedule the visit has been approved by the provider.")

	} else {
		booking.Status = "confirmed"
		booking.ProposedStartTime = nil
		booking.ProposedEndTime = nil
		database.DB.Save(&booking)

		go notifications.SendEmail(booking.Customer.FullName, booking.Customer.Email, "Reschedule Rejected", "Your request to reschedule the visit was not approved by the provider.")
	}

	return c.JSON(fiber.Map{"message": "Reschedule request processed successfully"})
}

func GetProviderProfile(c *fiber.Ctx) error {
	providerID := c.Params("providerId")

	var provider models.Provider
	if err := database.DB.Preload("User").Preload("Services").First(&provider, "user_id = ? AND status = ?", providerID, "active").Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Active provider not found"})
	}

	return c.JSON(provider)
}

func ListActiveProviders(c *fiber.Ctx) error {
	var activeProviders []models.Provider
	query := database.DB.Preload("User").Preload("Services").Where("status = ?", "active")

	if serviceID := c.Query("service_id"); serviceID != "" {
		query = query.Joins("JOIN provider_services ON provider_services.provider_user_id = providers.user_id").Where("provider_services.service_id = ?", serviceID)
	}
	if category := c.Query("category"); category != "" {
		query = query.Joins("JOIN provider_services ps ON ps.provider_user_id = providers.user_id").
			Joins("JOIN services ON services.id = ps.service_id").Where("services.category = ?", category)
	}
	if minRating := c.Query("min_rating"); minRating != "" {
		query = query.Where("avg_rating >= ?", minRating)
	}

	// With customer coordinates, order by great-circle distance and keep
	// providers whose declared service radius covers the customer.
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr != "" && lngStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(lngStr, 64)
		if latErr != nil || lngErr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coordinates"})
		}

		distanceExpr := "6371 * acos(LEAST(1.0, cos(radians(?)) * cos(radians(latitude)) * cos(radians(longitude) - radians(?)) + sin(radians(?)) * sin(radians(latitude))))"
		query = query.
			Where("latitude IS NOT NULL AND longitude IS NOT NULL").
			Where(distanceExpr+" <= service_radius_km", lat, lng, lat).
			Order(clause.OrderBy{Expression: clause.Expr{SQL: distanceExpr, Vars: []interface{}{lat, lng, lat}}})
	}

	if err := query.Find(&activeProviders).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve providers"})
	}

	return c.JSON(activeProviders)
}

func DeleteAvailabilitySlot(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))
	slotID := c.Params("slotId")

	var slot models.AvailabilitySlot
	if err := database.DB.First(&slot, "id = ? AND provider_id = ?", slotID, providerID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Availability slot not found or you do not have permission to delete it."})
	}

	if slot.Status != "available" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot delete a slot that has already been booked."})
	}

	database.DB.Delete(&slot)

	return c.SendStatus(fiber.StatusNoContent)
}

func GetProviderEarnings(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))

	var provider models.Provider
	if err := database.DB.First(&provider, "user_id = ?", providerID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Provider profile not found"})
	}

	return c.JSON(fiber.Map{"current_balance": provider.CurrentBalance})
}

func GetMyPayoutRequests(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))

	var requests []models.PayoutRequest
	database.DB.Where("provider_id = ?", providerID).Order("requested_at desc").Find(&requests)

	return c.JSON(requests)
}

func GetMyProviderProfile(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))

	var provider models.Provider
	if err := database.DB.Preload("User").Preload("Services").First(&provider, "user_id = ?", providerID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Provider profile not found"})
	}
	return c.JSON(provider)
}

func UpdateMyProviderProfile(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))

	type UpdateRequest struct {
		Headline        string   `json:"headline" validate:"required"`
		Bio             string   `json:"bio" validate:"required"`
		Address         *string  `json:"address"`
		ServiceRadiusKm *float64 `json:"service_radius_km"`
		YearsExperience *int     `json:"years_experience"`
	}
	var req UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var provider models.Provider
	if err := database.DB.First(&provider, "user_id = ?", providerID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Provider profile not found"})
	}

	provider.Headline = &req.Headline
	provider.Bio = &req.Bio
	if req.ServiceRadiusKm != nil {
		provider.ServiceRadiusKm = *req.ServiceRadiusKm
	}
	if req.YearsExperience != nil {
		provider.YearsExperience = *req.YearsExperience
	}

	addressChanged := req.Address != nil && (provider.Address == nil || *provider.Address != *req.Address)
	if req.Address != nil {
		provider.Address = req.Address
	}

	database.DB.Save(&provider)

	if addressChanged {
		go geocodeProviderAddress(providerID, *req.Address)
	}

	return c.JSON(provider)
}

func GetMyReviews(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))

	var reviews []models.Review
	database.DB.Preload("Customer").Where("provider_id = ?", providerID).Order("created_at desc").Find(&reviews)

	return c.JSON(reviews)
}

type MonthlyEarning struct {
	Month    string  `json:"month"`
	Earnings float64 `json:"earnings"`
}

func GetProviderAnalytics(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	providerID, _ := uuid.Parse(claims["user_id"].(string))

	var provider models.Provider
	if err := database.DB.First(&provider, "user_id = ?", providerID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Provider profile not found"})
	}

	var totalVisits int64
	database.DB.Model(&models.Booking{}).Where("provider_id = ? AND status = 'completed'", providerID).Count(&totalVisits)

	commissionRate, _ := strconv.ParseFloat(config.Config("PLATFORM_COMMISSION_RATE"), 64)
	providerShare := 1 - commissionRate

	var monthlyEarnings []MonthlyEarning
	database.DB.Model(&models.Booking{}).
		Select("TO_CHAR(created_at, 'YYYY-MM') as month, SUM(price * ?) as earnings", providerShare).
		Where("provider_id = ? AND status IN ?", providerID, []string{"completed", "confirmed"}).
		Group("month").
		Order("month asc").
		Scan(&monthlyEarnings)

	var totalEarnings float64
	for _, me := range monthlyEarnings {
		totalEarnings += me.Earnings
	}

	return c.JSON(fiber.Map{
		"total_earnings":        totalEarnings,
		"average_rating":        provider.AvgRating,
		"total_visits_done":     totalVisits,
		"monthly_earnings_data": monthlyEarnings,
	})
}
